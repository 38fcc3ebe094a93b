// internal/service/lottery/application/rule.go
package application

import (
	"context"
	"errors"
	"time"

	"promo-lottery/internal/service/lottery/domain"
)

// evaluation 在规则链中传递一次判定所需的数据。
type evaluation struct {
	ctx          context.Context
	memberID     string
	isWinAttempt bool
	now          time.Time
	bucket       domain.DayBucket

	// counts 由名额规则读取，分配引擎在同一把日锁内复用。
	counts *domain.PrizeCounts
}

// Rule 是资格校验责任链中的一环。
// 规则按固定顺序执行，第一个拒绝即中断，保证拒绝原因可复现。
type Rule interface {
	SetNext(rule Rule) Rule
	Check(ev *evaluation) (EligibilityResult, error)
}

type NextRule struct {
	next Rule
}

func (r *NextRule) SetNext(rule Rule) Rule {
	r.next = rule
	return rule
}

func (r *NextRule) checkNext(ev *evaluation) (EligibilityResult, error) {
	if r.next != nil {
		return r.next.Check(ev)
	}
	return allow(), nil
}

// WindowRule 1. 活动期间校验
type WindowRule struct {
	NextRule
	window domain.EventWindow
}

func (r *WindowRule) Check(ev *evaluation) (EligibilityResult, error) {
	if !r.window.Contains(ev.now) {
		return deny(DenialNotInSession, ReasonNotInSession), nil
	}
	return r.checkNext(ev)
}

// LifetimeWinRule 2. 整个活动期间的中奖记录校验
type LifetimeWinRule struct {
	NextRule
	repo domain.ParticipationRepository
}

func (r *LifetimeWinRule) Check(ev *evaluation) (EligibilityResult, error) {
	won, err := r.repo.FindWinByMember(ev.ctx, ev.memberID)
	switch {
	case err == nil:
		return deny(DenialAlreadyWon, reasonAlreadyWon(won.Tier)), nil
	case errors.Is(err, domain.ErrParticipationNotFound):
		return r.checkNext(ev)
	default:
		return EligibilityResult{}, unavailable("find prior win", err)
	}
}

// DailyParticipationRule 3. 当天参与记录校验
type DailyParticipationRule struct {
	NextRule
	repo domain.ParticipationRepository
}

func (r *DailyParticipationRule) Check(ev *evaluation) (EligibilityResult, error) {
	today, err := r.repo.FindByMemberInBucket(ev.ctx, ev.memberID, ev.bucket)
	if err != nil {
		return EligibilityResult{}, unavailable("find today's participation", err)
	}
	if len(today) > 0 {
		return deny(DenialAlreadyParticipated, ReasonAlreadyParticipated), nil
	}
	return r.checkNext(ev)
}

// CapacityRule 4. 当天名额校验 (仅抽奖时)
type CapacityRule struct {
	NextRule
	repo   domain.ParticipationRepository
	limits domain.PrizeLimits
}

func (r *CapacityRule) Check(ev *evaluation) (EligibilityResult, error) {
	if !ev.isWinAttempt {
		return r.checkNext(ev)
	}
	counts, err := countPrizes(ev.ctx, r.repo, ev.bucket)
	if err != nil {
		return EligibilityResult{}, err
	}
	ev.counts = &counts
	if r.limits.Exhausted(counts) {
		return deny(DenialSlotsFull, ReasonSlotsFull), nil
	}
	return r.checkNext(ev)
}

// countPrizes 读取某天各等级已发放的名额数。
func countPrizes(ctx context.Context, repo domain.ParticipationRepository, bucket domain.DayBucket) (domain.PrizeCounts, error) {
	first, err := repo.CountByTier(ctx, bucket, domain.FirstPrize)
	if err != nil {
		return domain.PrizeCounts{}, unavailable("count first prize", err)
	}
	second, err := repo.CountByTier(ctx, bucket, domain.SecondPrize)
	if err != nil {
		return domain.PrizeCounts{}, unavailable("count second prize", err)
	}
	return domain.PrizeCounts{First: first, Second: second}, nil
}

// buildRuleChain 负责按顺序连接所有规则
func buildRuleChain(window domain.EventWindow, repo domain.ParticipationRepository, limits domain.PrizeLimits) Rule {
	chain := &WindowRule{window: window}
	chain.
		SetNext(&LifetimeWinRule{repo: repo}).
		SetNext(&DailyParticipationRule{repo: repo}).
		SetNext(&CapacityRule{repo: repo, limits: limits})
	return chain
}
