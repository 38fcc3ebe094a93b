// internal/service/lottery/application/validator.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promo-lottery/internal/service/lottery/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventPolicy 是本次活动的固定参数。
type EventPolicy struct {
	Window domain.EventWindow
	Limits domain.PrizeLimits
}

// EligibilityValidator 只读地判定会员当前能否参与。
// 它不持有可变状态，可以被任意并发调用。
type EligibilityValidator struct {
	policy EventPolicy
	repo   domain.ParticipationRepository
	chain  Rule
	clock  func() time.Time
	tracer trace.Tracer
}

// NewEligibilityValidator 创建校验器。
func NewEligibilityValidator(policy EventPolicy, repo domain.ParticipationRepository, clock func() time.Time, tracer trace.Tracer) *EligibilityValidator {
	if clock == nil {
		clock = time.Now
	}
	return &EligibilityValidator{
		policy: policy,
		repo:   repo,
		chain:  buildRuleChain(policy.Window, repo, policy.Limits),
		clock:  clock,
		tracer: tracerOrNoop(tracer),
	}
}

// Evaluate 以当前时间执行规则链。
func (v *EligibilityValidator) Evaluate(ctx context.Context, memberID string, isWinAttempt bool) (EligibilityResult, error) {
	res, _, err := v.evaluateAt(ctx, memberID, isWinAttempt, v.clock())
	return res, err
}

// evaluateAt 以给定时间执行规则链，并把链中读取的名额计数一并返回。
func (v *EligibilityValidator) evaluateAt(ctx context.Context, memberID string, isWinAttempt bool, now time.Time) (EligibilityResult, *domain.PrizeCounts, error) {
	ctx, span := v.tracer.Start(ctx, "app.EvaluateEligibility")
	defer span.End()

	ev := &evaluation{
		ctx:          ctx,
		memberID:     memberID,
		isWinAttempt: isWinAttempt,
		now:          now,
		bucket:       v.policy.Window.DayBucket(now),
	}
	span.SetAttributes(
		attribute.String("member.id", memberID),
		attribute.Bool("lottery.win_attempt", isWinAttempt),
		attribute.String("lottery.day", ev.bucket.Key()),
	)

	res, err := v.chain.Check(ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "eligibility evaluation failed")
		return EligibilityResult{}, nil, err
	}
	span.SetAttributes(
		attribute.Bool("lottery.allowed", res.Allowed),
		attribute.String("lottery.denial", string(res.Denial)),
	)
	return res, ev.counts, nil
}

// unavailable 把基础设施错误包装为可重试的 ErrUnavailable，保留原始错误链。
func unavailable(op string, err error) error {
	if errors.Is(err, domain.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
}

func tracerOrNoop(t trace.Tracer) trace.Tracer {
	if t == nil {
		return noopTracer
	}
	return t
}
