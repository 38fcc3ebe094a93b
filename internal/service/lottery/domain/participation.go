// internal/service/lottery/domain/participation.go
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Participation 是一次抽奖尝试的记录，创建后不可修改。
type Participation struct {
	ID           int64
	MemberID     string
	IsWinAttempt bool
	Tier         Tier
	CreatedAt    time.Time

	// DayKey 是 CreatedAt 所在的活动时区日期，存储层用它建立每日唯一索引。
	DayKey string
	// SlotNo 是当天该等级内的名额序号 (从 1 开始)，仅中奖记录有值。
	SlotNo int
}

// NewParticipation 工厂函数: 校验字段并派生 DayKey。
func NewParticipation(memberID string, isWinAttempt bool, tier Tier, slotNo int, bucket DayBucket, createdAt time.Time) (*Participation, error) {
	if memberID == "" {
		return nil, errors.New("participation requires a member id")
	}
	if !bucket.Contains(createdAt) {
		return nil, fmt.Errorf("created_at %s is outside day bucket %s", createdAt.Format(time.RFC3339), bucket.Key())
	}
	if tier.IsPrize() {
		if !isWinAttempt {
			return nil, errors.New("a consolation attempt cannot claim a prize tier")
		}
		if slotNo < 1 {
			return nil, fmt.Errorf("prize tier %d requires a positive slot number", tier.Rank())
		}
	} else {
		slotNo = 0
	}
	return &Participation{
		MemberID:     memberID,
		IsWinAttempt: isWinAttempt,
		Tier:         tier,
		CreatedAt:    createdAt,
		DayKey:       bucket.Key(),
		SlotNo:       slotNo,
	}, nil
}

// SlotKey 唯一标识某天某等级的一个名额，例如 "2025-06-25:1:2"。
func (p *Participation) SlotKey() string {
	if !p.Tier.IsPrize() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", p.DayKey, p.Tier.Rank(), p.SlotNo)
}

// PrizeCounts 是某天各等级已发放名额数。
type PrizeCounts struct {
	First  int64
	Second int64
}

// Of 返回给定等级的计数。
func (c PrizeCounts) Of(t Tier) int64 {
	switch t {
	case FirstPrize:
		return c.First
	case SecondPrize:
		return c.Second
	default:
		return 0
	}
}

// PrizeLimits 是每天各等级的名额上限。
type PrizeLimits struct {
	First  int
	Second int
}

// DefaultPrizeLimits 每天一等奖 2 名、二等奖 3 名。
var DefaultPrizeLimits = PrizeLimits{First: 2, Second: 3}

func (l PrizeLimits) Of(t Tier) int {
	switch t {
	case FirstPrize:
		return l.First
	case SecondPrize:
		return l.Second
	default:
		return 0
	}
}

func (l PrizeLimits) Validate() error {
	if l.First <= 0 || l.Second <= 0 {
		return fmt.Errorf("prize limits must be positive, got first=%d second=%d", l.First, l.Second)
	}
	return nil
}

// Exhausted 表示两个等级的名额都已发完。
func (l PrizeLimits) Exhausted(c PrizeCounts) bool {
	return c.First >= int64(l.First) && c.Second >= int64(l.Second)
}

// NextTier 按一等奖优先的顺序选出下一个可领取的等级和名额序号。
// 没有剩余名额时 ok 为 false。
func (l PrizeLimits) NextTier(c PrizeCounts) (tier Tier, slotNo int, ok bool) {
	for _, t := range PrizeTiers {
		if used := c.Of(t); used < int64(l.Of(t)) {
			return t, int(used) + 1, true
		}
	}
	return NoPrize, 0, false
}
