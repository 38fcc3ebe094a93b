package domain

import (
	"testing"
	"time"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func TestEventWindowContains(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	w, err := ParseEventWindow("2025-06-25", "2025-06-26", loc)
	if err != nil {
		t.Fatalf("parse window: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "day before", at: time.Date(2025, 6, 24, 23, 59, 59, 0, loc), want: false},
		{name: "first instant", at: time.Date(2025, 6, 25, 0, 0, 0, 0, loc), want: true},
		{name: "last day evening", at: time.Date(2025, 6, 26, 23, 59, 59, 0, loc), want: true},
		{name: "day after", at: time.Date(2025, 6, 27, 0, 0, 0, 0, loc), want: false},
		// 16:00 UTC on the 24th is already the 25th in KST
		{name: "utc instant on local first day", at: time.Date(2025, 6, 24, 16, 0, 0, 0, time.UTC), want: true},
		{name: "utc instant after local end", at: time.Date(2025, 6, 26, 15, 0, 0, 0, time.UTC), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.at); got != tt.want {
				t.Fatalf("Contains(%s) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestEventWindowRejectsReversedDates(t *testing.T) {
	if _, err := ParseEventWindow("2025-06-26", "2025-06-25", time.UTC); err == nil {
		t.Fatal("expected error for end before start")
	}
	if _, err := ParseEventWindow("25/06/2025", "2025-06-26", time.UTC); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestDayBucket(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	w, err := ParseEventWindow("2025-06-25", "2025-06-26", loc)
	if err != nil {
		t.Fatalf("parse window: %v", err)
	}

	b := w.DayBucket(time.Date(2025, 6, 25, 10, 0, 0, 0, loc))
	if b.Key() != "2025-06-25" {
		t.Fatalf("expected key 2025-06-25, got %s", b.Key())
	}
	if !b.Start.Equal(time.Date(2025, 6, 25, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected start %s", b.Start)
	}
	if !b.End.Equal(time.Date(2025, 6, 26, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected end %s", b.End)
	}
	if !b.Contains(b.Start) {
		t.Fatal("bucket must contain its start")
	}
	if b.Contains(b.End) {
		t.Fatal("bucket must not contain its end")
	}
}

func TestDayBucketAcrossDaylightSaving(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	w, err := ParseEventWindow("2025-03-09", "2025-03-10", loc)
	if err != nil {
		t.Fatalf("parse window: %v", err)
	}

	b := w.DayBucket(time.Date(2025, 3, 9, 12, 0, 0, 0, loc))
	if got := b.End.Sub(b.Start); got != 23*time.Hour {
		t.Fatalf("expected a 23h bucket on spring-forward day, got %s", got)
	}
	if b.End.Format(DayKeyLayout) != "2025-03-10" || b.End.Hour() != 0 {
		t.Fatalf("expected bucket to end at local midnight, got %s", b.End)
	}
}

func TestHistoryRange(t *testing.T) {
	w, err := ParseEventWindow("2025-06-25", "2025-06-26", time.UTC)
	if err != nil {
		t.Fatalf("parse window: %v", err)
	}
	from, to := w.HistoryRange()
	if !from.Equal(time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %s", from)
	}
	if !to.Equal(time.Date(2025, 6, 26, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected to %s", to)
	}
}
