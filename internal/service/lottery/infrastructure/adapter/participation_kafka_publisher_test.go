package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"promo-lottery/internal/service/lottery/domain"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func TestParticipationKafkaPublisher(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	w := &captureWriter{}
	pub := NewParticipationKafkaPublisher(w)
	event := &domain.ParticipationRecorded{
		EventID:      "evt-1",
		MemberID:     "m-1001",
		IsWinAttempt: true,
		Tier:         domain.FirstPrize,
		DayKey:       "2025-06-25",
		CreatedAt:    time.Date(2025, 6, 25, 10, 0, 0, 0, time.UTC),
	}
	if err := pub.PublishRecorded(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "m-1001" {
		t.Fatalf("expected member id as key, got %q", msg.Key)
	}

	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded["memberId"] != "m-1001" || decoded["tier"] != float64(1) || decoded["dayKey"] != "2025-06-25" {
		t.Fatalf("unexpected payload %s", msg.Value)
	}

	var traceparent string
	for _, h := range msg.Headers {
		if h.Key == "traceparent" {
			traceparent = string(h.Value)
		}
	}
	if traceparent != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
		t.Fatalf("unexpected traceparent header %q", traceparent)
	}
}

func TestParticipationKafkaPublisherWriteError(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewParticipationKafkaPublisher(&captureWriter{err: boom})
	err := pub.PublishRecorded(context.Background(), &domain.ParticipationRecorded{EventID: "evt-2", MemberID: "m-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected broker error to be wrapped, got %v", err)
	}
}
