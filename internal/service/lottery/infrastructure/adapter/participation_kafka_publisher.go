package adapter

import (
	"context"
	"encoding/json"

	"promo-lottery/internal/pkg/mq"
	"promo-lottery/internal/service/lottery/domain"

	"github.com/pkg/errors"
)

// ParticipationKafkaPublisher 实现了 port.ParticipationPublisher 接口，
// 把每一条落库的记录作为审计事件发到 Kafka。
type ParticipationKafkaPublisher struct {
	writer mq.MessageWriter
}

func NewParticipationKafkaPublisher(writer mq.MessageWriter) *ParticipationKafkaPublisher {
	return &ParticipationKafkaPublisher{writer: writer}
}

// PublishRecorded 以会员 id 为 key 发送事件
func (p *ParticipationKafkaPublisher) PublishRecorded(ctx context.Context, event *domain.ParticipationRecorded) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal participation event")
	}
	if err := mq.ProduceMessage(ctx, p.writer, []byte(event.MemberID), eventBytes); err != nil {
		return errors.Wrapf(err, "failed to publish participation event %s", event.EventID)
	}
	return nil
}
