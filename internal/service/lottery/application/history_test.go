package application

import (
	"context"
	"errors"
	"testing"

	"promo-lottery/internal/service/lottery/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// prizeCompiler 是测试用的编译器，只支持表达式 "prize"
type prizeCompiler struct{}

func (prizeCompiler) Compile(expr string) (HistoryFilter, error) {
	if expr != "prize" {
		return nil, errors.New("unsupported expression")
	}
	return prizeOnly{}, nil
}

type prizeOnly struct{}

func (prizeOnly) Match(e HistoryEntry) (bool, error) { return e.Tier.IsPrize(), nil }

func TestListHistoryNewestFirstWithNames(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	f.clock.Set(at(25, 9))
	if _, err := f.svc.Attempt(ctx, "m-001", true); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	f.clock.Set(at(25, 11))
	if _, err := f.svc.Attempt(ctx, "m-002", false); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	f.clock.Set(at(26, 23))
	if _, err := f.svc.Attempt(ctx, "m-003", true); err != nil {
		t.Fatalf("attempt: %v", err)
	}

	entries, err := f.svc.ListHistory(ctx, "")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantOrder := []string{"m-003", "m-002", "m-001"}
	for i, id := range wantOrder {
		if entries[i].MemberID != id {
			t.Fatalf("entry %d: expected %s, got %s", i, id, entries[i].MemberID)
		}
		if entries[i].MemberName != "user-"+id {
			t.Fatalf("entry %d: expected username as display name, got %q", i, entries[i].MemberName)
		}
	}
	if entries[2].Tier != domain.FirstPrize || !entries[2].IsWinAttempt {
		t.Fatalf("unexpected oldest entry %+v", entries[2])
	}
}

func TestListHistoryFilter(t *testing.T) {
	f := newFixture(t, 2, withFilters(prizeCompiler{}))
	ctx := context.Background()

	if _, err := f.svc.Attempt(ctx, "m-001", true); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if _, err := f.svc.Attempt(ctx, "m-002", false); err != nil {
		t.Fatalf("attempt: %v", err)
	}

	entries, err := f.svc.ListHistory(ctx, "prize")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 || entries[0].MemberID != "m-001" {
		t.Fatalf("expected only the winner, got %+v", entries)
	}

	if _, err := f.svc.ListHistory(ctx, "tier > 0"); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestListHistoryFilterDisabled(t *testing.T) {
	f := newFixture(t, 1)
	if _, err := f.svc.ListHistory(context.Background(), "entry.tier > 0"); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter without a compiler, got %v", err)
	}
}

func TestListHistoryExcludesRecordsOutsideWindow(t *testing.T) {
	f := newFixture(t, 2)
	// 直接写入窗口外的记录
	f.seedWin(t, "m-002", domain.FirstPrize, 1, at(24, 12))

	if _, err := f.svc.Attempt(context.Background(), "m-001", false); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	entries, err := f.svc.ListHistory(context.Background(), "")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 || entries[0].MemberID != "m-001" {
		t.Fatalf("expected only in-window entries, got %+v", entries)
	}
}

func TestCheckEligibilityMetrics(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	if _, err := f.svc.CheckEligibility(ctx, "m-001"); err != nil {
		t.Fatalf("check: %v", err)
	}
	f.clock.Set(at(27, 0))
	if _, err := f.svc.CheckEligibility(ctx, "m-001"); err != nil {
		t.Fatalf("check: %v", err)
	}

	if got := testutil.ToFloat64(f.metrics.checks.WithLabelValues("allowed")); got != 1 {
		t.Fatalf("expected 1 allowed check, got %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.checks.WithLabelValues("denied")); got != 1 {
		t.Fatalf("expected 1 denied check, got %v", got)
	}
}
