package mq

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaHeaderCarrier(t *testing.T) {
	c := KafkaHeaderCarrier{{Key: "a", Value: []byte("1")}}
	c.Set("b", "2")
	c.Set("a", "3")

	if got := c.Get("a"); got != "3" {
		t.Fatalf("expected overwritten value, got %q", got)
	}
	if got := c.Get("missing"); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
	if keys := c.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestProduceMessagePropagatesTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	w := &recordingWriter{}
	if err := ProduceMessage(ctx, w, []byte("m-1"), []byte(`{}`)); err != nil {
		t.Fatalf("produce: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}

	carrier := KafkaHeaderCarrier(w.msgs[0].Headers)
	extracted := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(context.Background(), &carrier))
	if extracted.TraceID() != traceID || extracted.SpanID() != spanID {
		t.Fatalf("trace context not propagated: %v", extracted)
	}
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "lottery-participations")
	defer w.Close()
	if w.Topic != "lottery-participations" {
		t.Fatalf("unexpected topic %q", w.Topic)
	}
	if _, ok := w.Balancer.(*kafka.Hash); !ok {
		t.Fatalf("expected hash balancer, got %T", w.Balancer)
	}
}
