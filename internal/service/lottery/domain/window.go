// internal/service/lottery/domain/window.go
package domain

import (
	"errors"
	"fmt"
	"time"
)

const DayKeyLayout = "2006-01-02"

// DayBucket 是 [当天零点, 次日零点) 的半开区间，用于每日唯一性和名额计数。
type DayBucket struct {
	Start time.Time
	End   time.Time
}

// Key 返回桶的日历日期，例如 "2025-06-25"。
func (b DayBucket) Key() string {
	return b.Start.Format(DayKeyLayout)
}

// Contains 判断 t 是否落在桶内。
func (b DayBucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// EventWindow 定义了活动的日历日期范围 (首尾均包含)。
// 所有日期计算都基于 Location 的本地日历，而不是 UTC 截断。
type EventWindow struct {
	startDate time.Time
	endDate   time.Time
	loc       *time.Location
}

// NewEventWindow 创建活动窗口。start/end 只取其在 loc 中的日期部分。
func NewEventWindow(start, end time.Time, loc *time.Location) (EventWindow, error) {
	if loc == nil {
		loc = time.Local
	}
	s := midnight(start.In(loc))
	e := midnight(end.In(loc))
	if e.Before(s) {
		return EventWindow{}, errors.New("event end date is before start date")
	}
	return EventWindow{startDate: s, endDate: e, loc: loc}, nil
}

// ParseEventWindow 从 "2006-01-02" 格式的日期创建活动窗口。
func ParseEventWindow(start, end string, loc *time.Location) (EventWindow, error) {
	if loc == nil {
		loc = time.Local
	}
	s, err := time.ParseInLocation(DayKeyLayout, start, loc)
	if err != nil {
		return EventWindow{}, fmt.Errorf("parse event start date: %w", err)
	}
	e, err := time.ParseInLocation(DayKeyLayout, end, loc)
	if err != nil {
		return EventWindow{}, fmt.Errorf("parse event end date: %w", err)
	}
	return NewEventWindow(s, e, loc)
}

func (w EventWindow) Location() *time.Location { return w.loc }

func (w EventWindow) StartDate() time.Time { return w.startDate }

func (w EventWindow) EndDate() time.Time { return w.endDate }

// Contains 判断 now 的本地日期是否在 [开始日期, 结束日期] 内。
func (w EventWindow) Contains(now time.Time) bool {
	day := midnight(now.In(w.loc))
	return !day.Before(w.startDate) && !day.After(w.endDate)
}

// DayBucket 返回 now 所在的本地自然日区间。
func (w EventWindow) DayBucket(now time.Time) DayBucket {
	start := midnight(now.In(w.loc))
	return DayBucket{Start: start, End: nextMidnight(start)}
}

// Span 返回整个活动的半开区间 [开始日 00:00, 结束日次日 00:00)。
func (w EventWindow) Span() (time.Time, time.Time) {
	return w.startDate, nextMidnight(w.endDate)
}

// HistoryRange 返回历史查询使用的闭区间 [开始日 00:00, 结束日 23:59:59]。
func (w EventWindow) HistoryRange() (time.Time, time.Time) {
	from, to := w.Span()
	return from, to.Add(-time.Second)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// nextMidnight 使用 time.Date 的日期进位，夏令时切换日同样正确。
func nextMidnight(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
}
