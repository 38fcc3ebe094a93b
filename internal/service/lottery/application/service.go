// internal/service/lottery/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"promo-lottery/internal/service/lottery/domain"
	"promo-lottery/internal/service/lottery/domain/port"

	"go.opentelemetry.io/otel/trace"
)

// Dependencies 是 LotteryService 需要的所有出站端口。
type Dependencies struct {
	Participations domain.ParticipationRepository
	Members        domain.MemberDirectory
	Locker         port.Locker
	Publisher      port.ParticipationPublisher // 可选
	Filters        FilterCompiler              // 可选，为 nil 时历史查询不支持过滤
	Metrics        *Metrics                    // 可选
	Tracer         trace.Tracer
	Clock          func() time.Time
	WriteTimeout   time.Duration
}

// LotteryService 对接口层暴露三个用例：资格查询、抽奖、历史。
type LotteryService struct {
	validator *EligibilityValidator
	engine    *AllocationEngine
	history   *HistoryReporter
	metrics   *Metrics
}

// NewLotteryService 组装校验器、分配引擎和历史查询。
func NewLotteryService(policy EventPolicy, deps Dependencies) (*LotteryService, error) {
	if err := policy.Limits.Validate(); err != nil {
		return nil, err
	}
	if deps.Participations == nil || deps.Members == nil || deps.Locker == nil {
		return nil, errors.New("lottery service: missing required dependency")
	}

	validator := NewEligibilityValidator(policy, deps.Participations, deps.Clock, deps.Tracer)
	return &LotteryService{
		validator: validator,
		engine:    NewAllocationEngine(validator, deps.Participations, deps.Members, deps.Locker, deps.Publisher, deps.Metrics, deps.WriteTimeout),
		history:   NewHistoryReporter(policy.Window, deps.Participations, deps.Members, deps.Filters, deps.Tracer),
		metrics:   deps.Metrics,
	}, nil
}

// CheckEligibility 以抽奖的严格程度预检，包含名额规则。结果只是提示，不预留名额。
func (s *LotteryService) CheckEligibility(ctx context.Context, memberID string) (EligibilityResult, error) {
	res, err := s.validator.Evaluate(ctx, memberID, true)
	switch {
	case err != nil:
		s.metrics.observeCheck("error")
	case res.Allowed:
		s.metrics.observeCheck("allowed")
	default:
		s.metrics.observeCheck("denied")
	}
	return res, err
}

// Attempt 见 AllocationEngine.Attempt。
func (s *LotteryService) Attempt(ctx context.Context, memberID string, isWinAttempt bool) (AllocationResult, error) {
	return s.engine.Attempt(ctx, memberID, isWinAttempt)
}

// ListHistory 见 HistoryReporter.ListHistory。
func (s *LotteryService) ListHistory(ctx context.Context, filterExpr string) ([]HistoryEntry, error) {
	return s.history.ListHistory(ctx, filterExpr)
}
