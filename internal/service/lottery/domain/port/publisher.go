package port

import (
	"context"

	"promo-lottery/internal/service/lottery/domain"
)

// ParticipationPublisher 是参与事件的出站端口。
type ParticipationPublisher interface {
	// PublishRecorded 在记录提交之后调用，失败不会回滚记录。
	PublishRecorded(ctx context.Context, event *domain.ParticipationRecorded) error
}
