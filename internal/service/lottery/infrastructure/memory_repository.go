package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"promo-lottery/internal/service/lottery/domain"
)

// InMemoryParticipationRepository 在进程内保存记录，并与数据库一样强制三条唯一约束。
// 单实例部署和测试使用。
type InMemoryParticipationRepository struct {
	mu        sync.RWMutex
	records   []domain.Participation
	memberDay map[string]struct{}
	winners   map[string]int
	slots     map[string]struct{}
	nextID    int64
}

func NewInMemoryParticipationRepository() *InMemoryParticipationRepository {
	return &InMemoryParticipationRepository{
		memberDay: make(map[string]struct{}),
		winners:   make(map[string]int),
		slots:     make(map[string]struct{}),
		nextID:    1,
	}
}

func (r *InMemoryParticipationRepository) Create(_ context.Context, p *domain.Participation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dayKey := p.MemberID + "|" + p.DayKey
	if _, ok := r.memberDay[dayKey]; ok {
		return domain.ErrDuplicateDaily
	}
	if p.Tier.IsPrize() {
		if _, ok := r.winners[p.MemberID]; ok {
			return domain.ErrDuplicateWin
		}
		if _, ok := r.slots[p.SlotKey()]; ok {
			return domain.ErrSlotTaken
		}
	}

	p.ID = r.nextID
	r.nextID++
	r.records = append(r.records, *p)
	r.memberDay[dayKey] = struct{}{}
	if p.Tier.IsPrize() {
		r.winners[p.MemberID] = len(r.records) - 1
		r.slots[p.SlotKey()] = struct{}{}
	}
	return nil
}

func (r *InMemoryParticipationRepository) CountByTier(_ context.Context, bucket domain.DayBucket, tier domain.Tier) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for i := range r.records {
		if r.records[i].DayKey == bucket.Key() && r.records[i].Tier == tier {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryParticipationRepository) FindWinByMember(_ context.Context, memberID string) (*domain.Participation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.winners[memberID]
	if !ok {
		return nil, domain.ErrParticipationNotFound
	}
	p := r.records[idx]
	return &p, nil
}

func (r *InMemoryParticipationRepository) FindByMemberInBucket(_ context.Context, memberID string, bucket domain.DayBucket) ([]*domain.Participation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Participation
	for i := range r.records {
		if r.records[i].MemberID == memberID && r.records[i].DayKey == bucket.Key() {
			p := r.records[i]
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *InMemoryParticipationRepository) FindInRange(_ context.Context, from, to time.Time) ([]*domain.Participation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Participation
	for i := range r.records {
		at := r.records[i].CreatedAt
		if at.Before(from) || at.After(to) {
			continue
		}
		p := r.records[i]
		out = append(out, &p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// InMemoryMemberDirectory 是固定会员列表的目录实现
type InMemoryMemberDirectory struct {
	mu      sync.RWMutex
	members map[string]domain.Member
}

func NewInMemoryMemberDirectory(members ...domain.Member) *InMemoryMemberDirectory {
	d := &InMemoryMemberDirectory{members: make(map[string]domain.Member, len(members))}
	for _, m := range members {
		d.members[m.ID] = m
	}
	return d
}

func (d *InMemoryMemberDirectory) FindByID(_ context.Context, id string) (*domain.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.members[id]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return &m, nil
}

func (d *InMemoryMemberDirectory) FindByIDs(_ context.Context, ids []string) (map[string]*domain.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]*domain.Member, len(ids))
	for _, id := range ids {
		if m, ok := d.members[id]; ok {
			out[id] = &m
		}
	}
	return out, nil
}
