// internal/service/lottery/domain/event.go
package domain

import "time"

// ParticipationRecorded 是抽奖记录成功落库后发布的领域事件，供审计等下游消费。
type ParticipationRecorded struct {
	EventID      string    `json:"eventId"`
	TraceID      string    `json:"traceId,omitempty"`
	MemberID     string    `json:"memberId"`
	IsWinAttempt bool      `json:"isWinAttempt"`
	Tier         Tier      `json:"tier"`
	DayKey       string    `json:"dayKey"`
	CreatedAt    time.Time `json:"createdAt"`
}
