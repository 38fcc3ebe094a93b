package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"promo-lottery/internal/service/lottery/domain"
	"promo-lottery/internal/service/lottery/domain/port"
	"promo-lottery/internal/service/lottery/infrastructure"
	"promo-lottery/internal/service/lottery/infrastructure/adapter"

	"github.com/prometheus/client_golang/prometheus"
)

var testLoc = time.FixedZone("KST", 9*60*60)

func at(day, hour int) time.Time {
	return time.Date(2025, 6, day, hour, 0, 0, 0, testLoc)
}

// fakeClock 可以在测试中前进
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	svc       *LotteryService
	repo      *infrastructure.InMemoryParticipationRepository
	clock     *fakeClock
	publisher *recordingPublisher
	metrics   *Metrics
}

type fixtureOption func(*Dependencies)

func withLocker(l port.Locker) fixtureOption {
	return func(d *Dependencies) { d.Locker = l }
}

func withRepo(r domain.ParticipationRepository) fixtureOption {
	return func(d *Dependencies) { d.Participations = r }
}

func withPublisher(p port.ParticipationPublisher) fixtureOption {
	return func(d *Dependencies) { d.Publisher = p }
}

func withFilters(c FilterCompiler) fixtureOption {
	return func(d *Dependencies) { d.Filters = c }
}

func memberIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("m-%03d", i+1)
	}
	return ids
}

func newFixture(t *testing.T, members int, opts ...fixtureOption) *fixture {
	t.Helper()

	window, err := domain.ParseEventWindow("2025-06-25", "2025-06-26", testLoc)
	if err != nil {
		t.Fatalf("parse window: %v", err)
	}
	seeds := make([]domain.Member, 0, members)
	for _, id := range memberIDs(members) {
		seeds = append(seeds, domain.Member{ID: id, Username: "user-" + id, Name: "Member " + id})
	}

	f := &fixture{
		repo:      infrastructure.NewInMemoryParticipationRepository(),
		clock:     &fakeClock{now: at(25, 10)},
		publisher: &recordingPublisher{},
		metrics:   NewMetrics(prometheus.NewRegistry()),
	}
	deps := Dependencies{
		Participations: f.repo,
		Members:        infrastructure.NewInMemoryMemberDirectory(seeds...),
		Locker:         adapter.NewLocalLocker(),
		Publisher:      f.publisher,
		Metrics:        f.metrics,
		Clock:          f.clock.Now,
		WriteTimeout:   time.Second,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	f.svc, err = NewLotteryService(EventPolicy{Window: window, Limits: domain.DefaultPrizeLimits}, deps)
	if err != nil {
		t.Fatalf("new lottery service: %v", err)
	}
	return f
}

// seedWin 直接写入一条中奖记录，模拟之前已经发出的名额
func (f *fixture) seedWin(t *testing.T, memberID string, tier domain.Tier, slotNo int, when time.Time) {
	t.Helper()
	bucket := f.svc.validator.policy.Window.DayBucket(when)
	p, err := domain.NewParticipation(memberID, true, tier, slotNo, bucket, when)
	if err != nil {
		t.Fatalf("new participation: %v", err)
	}
	if err := f.repo.Create(context.Background(), p); err != nil {
		t.Fatalf("seed win: %v", err)
	}
}

func (f *fixture) countTier(t *testing.T, day int, tier domain.Tier) int64 {
	t.Helper()
	bucket := f.svc.validator.policy.Window.DayBucket(at(day, 12))
	n, err := f.repo.CountByTier(context.Background(), bucket, tier)
	if err != nil {
		t.Fatalf("count tier: %v", err)
	}
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.ParticipationRecorded
	err    error
}

func (p *recordingPublisher) PublishRecorded(_ context.Context, event *domain.ParticipationRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) snapshot() []*domain.ParticipationRecorded {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.ParticipationRecorded(nil), p.events...)
}

// noopLocker 不做任何互斥，只依赖存储层唯一约束
type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (port.Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

type failingLocker struct{ err error }

func (l failingLocker) Acquire(context.Context, string) (port.Unlock, error) {
	return nil, l.err
}

// faultyRepo 在指定操作上注入错误
type faultyRepo struct {
	domain.ParticipationRepository

	mu          sync.Mutex
	findWinErr  error
	createErrs  []error
	createCalls int
	beforeWrite func(ctx context.Context)
}

func (r *faultyRepo) FindWinByMember(ctx context.Context, memberID string) (*domain.Participation, error) {
	if r.findWinErr != nil {
		return nil, r.findWinErr
	}
	return r.ParticipationRepository.FindWinByMember(ctx, memberID)
}

func (r *faultyRepo) Create(ctx context.Context, p *domain.Participation) error {
	if r.beforeWrite != nil {
		r.beforeWrite(ctx)
	}
	r.mu.Lock()
	r.createCalls++
	var injected error
	if len(r.createErrs) > 0 {
		injected, r.createErrs = r.createErrs[0], r.createErrs[1:]
	}
	r.mu.Unlock()
	if injected != nil {
		return injected
	}
	return r.ParticipationRepository.Create(ctx, p)
}

func (r *faultyRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createCalls
}
