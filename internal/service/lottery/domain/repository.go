// internal/service/lottery/domain/repository.go
package domain

import (
	"context"
	"time"
)

// ParticipationRepository 定义了抽奖记录的持久化接口。
// 它位于领域层，但由基础设施层实现。
type ParticipationRepository interface {
	// Create 插入一条记录。违反唯一约束时返回 ErrDuplicateDaily、ErrDuplicateWin 或 ErrSlotTaken。
	Create(ctx context.Context, p *Participation) error

	// CountByTier 统计某个自然日内某等级的记录数。
	CountByTier(ctx context.Context, bucket DayBucket, tier Tier) (int64, error)

	// FindWinByMember 返回会员的中奖记录，没有时返回 ErrParticipationNotFound。
	FindWinByMember(ctx context.Context, memberID string) (*Participation, error)

	// FindByMemberInBucket 返回会员在某个自然日内的所有记录。
	FindByMemberInBucket(ctx context.Context, memberID string, bucket DayBucket) ([]*Participation, error)

	// FindInRange 返回 [from, to] 内的记录，按 CreatedAt 倒序。
	FindInRange(ctx context.Context, from, to time.Time) ([]*Participation, error)
}

// MemberDirectory 是外部会员目录的只读视图。
type MemberDirectory interface {
	// FindByID 不存在时返回 ErrMemberNotFound。
	FindByID(ctx context.Context, id string) (*Member, error)

	// FindByIDs 批量查询，缺失的 id 不出现在结果中。
	FindByIDs(ctx context.Context, ids []string) (map[string]*Member, error)
}
