package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func testBucket() DayBucket {
	start := time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC)
	return DayBucket{Start: start, End: start.AddDate(0, 0, 1)}
}

func TestNewParticipation(t *testing.T) {
	b := testBucket()
	at := b.Start.Add(10 * time.Hour)

	p, err := NewParticipation("m-1", true, FirstPrize, 2, b, at)
	if err != nil {
		t.Fatalf("new participation: %v", err)
	}
	if p.DayKey != "2025-06-25" {
		t.Fatalf("expected day key 2025-06-25, got %s", p.DayKey)
	}
	if p.SlotKey() != "2025-06-25:1:2" {
		t.Fatalf("unexpected slot key %q", p.SlotKey())
	}

	consolation, err := NewParticipation("m-2", false, NoPrize, 7, b, at)
	if err != nil {
		t.Fatalf("new consolation: %v", err)
	}
	if consolation.SlotNo != 0 || consolation.SlotKey() != "" {
		t.Fatalf("consolation must not hold a slot, got %d %q", consolation.SlotNo, consolation.SlotKey())
	}
}

func TestNewParticipationInvalid(t *testing.T) {
	b := testBucket()
	at := b.Start.Add(time.Hour)

	tests := []struct {
		name     string
		memberID string
		isWin    bool
		tier     Tier
		slotNo   int
		at       time.Time
	}{
		{name: "missing member", memberID: "", isWin: true, tier: NoPrize, at: at},
		{name: "prize without draw", memberID: "m-1", isWin: false, tier: SecondPrize, slotNo: 1, at: at},
		{name: "prize without slot", memberID: "m-1", isWin: true, tier: FirstPrize, slotNo: 0, at: at},
		{name: "outside bucket", memberID: "m-1", isWin: false, tier: NoPrize, at: b.End},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewParticipation(tt.memberID, tt.isWin, tt.tier, tt.slotNo, b, tt.at); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPrizeLimitsNextTier(t *testing.T) {
	limits := DefaultPrizeLimits

	tests := []struct {
		name     string
		counts   PrizeCounts
		wantTier Tier
		wantSlot int
		wantOK   bool
	}{
		{name: "fresh day", counts: PrizeCounts{}, wantTier: FirstPrize, wantSlot: 1, wantOK: true},
		{name: "one first left", counts: PrizeCounts{First: 1}, wantTier: FirstPrize, wantSlot: 2, wantOK: true},
		{name: "first exhausted", counts: PrizeCounts{First: 2}, wantTier: SecondPrize, wantSlot: 1, wantOK: true},
		{name: "last second", counts: PrizeCounts{First: 2, Second: 2}, wantTier: SecondPrize, wantSlot: 3, wantOK: true},
		{name: "all gone", counts: PrizeCounts{First: 2, Second: 3}, wantTier: NoPrize, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, slot, ok := limits.NextTier(tt.counts)
			if tier != tt.wantTier || slot != tt.wantSlot || ok != tt.wantOK {
				t.Fatalf("NextTier(%+v) = (%s, %d, %v), want (%s, %d, %v)",
					tt.counts, tier, slot, ok, tt.wantTier, tt.wantSlot, tt.wantOK)
			}
		})
	}

	if limits.Exhausted(PrizeCounts{First: 2, Second: 2}) {
		t.Fatal("one second prize is still available")
	}
	if !limits.Exhausted(PrizeCounts{First: 2, Second: 3}) {
		t.Fatal("expected limits to be exhausted")
	}
}

func TestPrizeLimitsValidate(t *testing.T) {
	if err := DefaultPrizeLimits.Validate(); err != nil {
		t.Fatalf("default limits: %v", err)
	}
	if err := (PrizeLimits{First: 0, Second: 3}).Validate(); err == nil {
		t.Fatal("expected error for zero first-prize limit")
	}
}

func TestTierFromRank(t *testing.T) {
	for rank, want := range map[int]Tier{0: NoPrize, 1: FirstPrize, 2: SecondPrize} {
		got, err := TierFromRank(rank)
		if err != nil || got != want {
			t.Fatalf("TierFromRank(%d) = %s, %v", rank, got, err)
		}
	}
	if _, err := TierFromRank(3); err == nil {
		t.Fatal("expected error for tier 3")
	}
}

func TestTierJSONRejectsUnknownRank(t *testing.T) {
	var tier Tier
	if err := json.Unmarshal([]byte("3"), &tier); err == nil {
		t.Fatal("expected error for tier 3")
	}
	if err := json.Unmarshal([]byte("2"), &tier); err != nil || tier != SecondPrize {
		t.Fatalf("expected second prize, got %s, %v", tier, err)
	}
	out, err := json.Marshal(FirstPrize)
	if err != nil || string(out) != "1" {
		t.Fatalf("expected 1, got %s, %v", out, err)
	}
}
