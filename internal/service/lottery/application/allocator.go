// internal/service/lottery/application/allocator.go
package application

import (
	"context"
	"errors"
	"time"

	"promo-lottery/internal/pkg/logger"
	"promo-lottery/internal/service/lottery/domain"
	"promo-lottery/internal/service/lottery/domain/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// maxSlotRetries 是名额序号冲突后重新计数的次数上限。
	maxSlotRetries      = 3
	defaultWriteTimeout = 5 * time.Second
)

var noopTracer = noop.NewTracerProvider().Tracer("")

// AllocationEngine 在锁的保护下重新校验资格、决定等级并写入记录。
type AllocationEngine struct {
	validator    *EligibilityValidator
	limits       domain.PrizeLimits
	window       domain.EventWindow
	repo         domain.ParticipationRepository
	members      domain.MemberDirectory
	locker       port.Locker
	publisher    port.ParticipationPublisher
	metrics      *Metrics
	clock        func() time.Time
	tracer       trace.Tracer
	writeTimeout time.Duration
}

// NewAllocationEngine 创建分配引擎。publisher 和 metrics 可以为 nil。
func NewAllocationEngine(validator *EligibilityValidator, repo domain.ParticipationRepository, members domain.MemberDirectory,
	locker port.Locker, publisher port.ParticipationPublisher, metrics *Metrics, writeTimeout time.Duration) *AllocationEngine {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &AllocationEngine{
		validator:    validator,
		limits:       validator.policy.Limits,
		window:       validator.policy.Window,
		repo:         repo,
		members:      members,
		locker:       locker,
		publisher:    publisher,
		metrics:      metrics,
		clock:        validator.clock,
		tracer:       validator.tracer,
		writeTimeout: writeTimeout,
	}
}

// Attempt 执行一次抽奖尝试。
// 业务拒绝通过 AllocationResult.Denial 返回；error 只表示会员不存在或基础设施故障。
func (e *AllocationEngine) Attempt(ctx context.Context, memberID string, isWinAttempt bool) (AllocationResult, error) {
	ctx, span := e.tracer.Start(ctx, "app.AttemptDraw")
	defer span.End()
	span.SetAttributes(
		attribute.String("member.id", memberID),
		attribute.Bool("lottery.win_attempt", isWinAttempt),
	)

	res, record, err := e.attempt(ctx, memberID, isWinAttempt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt failed")
		e.metrics.observeAttempt(outcomeOf(err))
		logger.Ctx(ctx).Error().Err(err).
			Str("member_id", memberID).
			Bool("draw", isWinAttempt).
			Msg("Lottery attempt failed")
		return AllocationResult{}, err
	}

	span.SetAttributes(
		attribute.Int("lottery.tier", res.Tier.Rank()),
		attribute.String("lottery.denial", string(res.Denial)),
	)
	if res.Denied() {
		e.metrics.observeAttempt("denied")
		logger.Ctx(ctx).Info().
			Str("member_id", memberID).
			Bool("draw", isWinAttempt).
			Str("denial", string(res.Denial)).
			Msg(res.Message)
		return res, nil
	}
	e.metrics.observeAttempt("tier_" + res.Tier.String())
	logger.Ctx(ctx).Info().
		Str("member_id", memberID).
		Bool("draw", isWinAttempt).
		Int("tier", res.Tier.Rank()).
		Msg("Participation recorded")

	// 锁已经释放，发布慢不会阻塞其他会员
	e.publish(ctx, record)
	return res, nil
}

// attempt 在锁内完成校验和写入。成功写入时返回落库的记录，由调用方在解锁后发布。
func (e *AllocationEngine) attempt(ctx context.Context, memberID string, isWinAttempt bool) (AllocationResult, *domain.Participation, error) {
	// 1. 先锁会员，抽奖时再锁当天的名额桶。顺序固定，避免死锁
	unlockMember, err := e.acquire(ctx, "member", memberLockKey(memberID))
	if err != nil {
		return AllocationResult{}, nil, err
	}
	defer e.release(ctx, unlockMember)

	now := e.clock()
	bucket := e.window.DayBucket(now)
	if isWinAttempt {
		var unlockDay port.Unlock
		now, bucket, unlockDay, err = e.lockDay(ctx)
		if err != nil {
			return AllocationResult{}, nil, err
		}
		defer e.release(ctx, unlockDay)
	}

	// 2. 在锁内重新执行规则链
	verdict, counts, err := e.validator.evaluateAt(ctx, memberID, isWinAttempt, now)
	if err != nil {
		return AllocationResult{}, nil, err
	}
	if !verdict.Allowed {
		return deniedAllocation(verdict.Denial, verdict.Reason), nil, nil
	}

	// 3. 校验通过后会员必须存在
	if _, err := e.members.FindByID(ctx, memberID); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return AllocationResult{}, nil, err
		}
		return AllocationResult{}, nil, unavailable("resolve member", err)
	}

	for try := 0; ; try++ {
		// 4. 决定等级
		tier, slotNo := domain.NoPrize, 0
		if isWinAttempt {
			if counts == nil {
				c, err := countPrizes(ctx, e.repo, bucket)
				if err != nil {
					return AllocationResult{}, nil, err
				}
				counts = &c
			}
			var ok bool
			tier, slotNo, ok = e.limits.NextTier(*counts)
			if !ok {
				return deniedAllocation(DenialSlotsFilled, MessageSlotsFilled), nil, nil
			}
		}

		record, err := domain.NewParticipation(memberID, isWinAttempt, tier, slotNo, bucket, now)
		if err != nil {
			return AllocationResult{}, nil, err
		}

		// 5. 写入
		err = e.write(ctx, record)
		switch {
		case err == nil:
			return AllocationResult{Tier: tier, Message: messageFor(tier), RecordedAt: record.CreatedAt}, record, nil
		case errors.Is(err, domain.ErrSlotTaken):
			e.metrics.observeSlotConflict()
			logger.Ctx(ctx).Warn().
				Str("member_id", memberID).
				Str("slot", record.SlotKey()).
				Int("try", try+1).
				Msg("Prize slot already claimed, recounting")
			if try+1 >= maxSlotRetries {
				return deniedAllocation(DenialSlotsFilled, MessageSlotsFilled), nil, nil
			}
			counts = nil
		case errors.Is(err, domain.ErrDuplicateDaily), errors.Is(err, domain.ErrDuplicateWin):
			res, err := e.denyAfterConflict(ctx, memberID, isWinAttempt, now, err)
			return res, nil, err
		default:
			return AllocationResult{}, nil, unavailable("save participation", err)
		}
	}
}

// lockDay 获取当前名额桶的锁，并在持锁后读取时间。
// 等锁期间跨过午夜时换成新一天的锁重试。
func (e *AllocationEngine) lockDay(ctx context.Context) (time.Time, domain.DayBucket, port.Unlock, error) {
	bucket := e.window.DayBucket(e.clock())
	for {
		unlock, err := e.acquire(ctx, "day", dayLockKey(bucket))
		if err != nil {
			return time.Time{}, domain.DayBucket{}, nil, err
		}
		now := e.clock()
		if current := e.window.DayBucket(now); current.Key() != bucket.Key() {
			e.release(ctx, unlock)
			bucket = current
			continue
		}
		return now, bucket, unlock, nil
	}
}

// write 与调用方的取消解耦：请求一旦发出，结果要么已提交，要么什么都没有。
func (e *AllocationEngine) write(ctx context.Context, p *domain.Participation) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.writeTimeout)
	defer cancel()
	return e.repo.Create(wctx, p)
}

// denyAfterConflict 在唯一约束冲突后重新执行规则链，得到与顺序执行一致的拒绝原因。
func (e *AllocationEngine) denyAfterConflict(ctx context.Context, memberID string, isWinAttempt bool, now time.Time, conflict error) (AllocationResult, error) {
	verdict, _, err := e.validator.evaluateAt(context.WithoutCancel(ctx), memberID, isWinAttempt, now)
	if err != nil {
		return AllocationResult{}, err
	}
	if !verdict.Allowed {
		return deniedAllocation(verdict.Denial, verdict.Reason), nil
	}
	if errors.Is(conflict, domain.ErrDuplicateDaily) {
		return deniedAllocation(DenialAlreadyParticipated, ReasonAlreadyParticipated), nil
	}
	return AllocationResult{}, unavailable("resolve uniqueness conflict", conflict)
}

func (e *AllocationEngine) acquire(ctx context.Context, scope, key string) (port.Unlock, error) {
	start := time.Now()
	unlock, err := e.locker.Acquire(ctx, key)
	e.metrics.observeLockWait(scope, time.Since(start))
	if err != nil {
		return nil, unavailable("acquire "+scope+" lock", err)
	}
	return unlock, nil
}

func (e *AllocationEngine) release(ctx context.Context, unlock port.Unlock) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.writeTimeout)
	defer cancel()
	if err := unlock(rctx); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Failed to release lock")
	}
}

func (e *AllocationEngine) publish(ctx context.Context, p *domain.Participation) {
	if e.publisher == nil {
		return
	}
	event := &domain.ParticipationRecorded{
		EventID:      uuid.New().String(),
		TraceID:      trace.SpanContextFromContext(ctx).TraceID().String(),
		MemberID:     p.MemberID,
		IsWinAttempt: p.IsWinAttempt,
		Tier:         p.Tier,
		DayKey:       p.DayKey,
		CreatedAt:    p.CreatedAt,
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.writeTimeout)
	defer cancel()
	if err := e.publisher.PublishRecorded(pctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("member_id", p.MemberID).
			Str("event_id", event.EventID).
			Msg("Failed to publish participation event")
	}
}

func memberLockKey(memberID string) string { return "lottery:member:" + memberID }

func dayLockKey(b domain.DayBucket) string { return "lottery:day:" + b.Key() }

func outcomeOf(err error) string {
	if errors.Is(err, domain.ErrMemberNotFound) {
		return "member_not_found"
	}
	return "error"
}
