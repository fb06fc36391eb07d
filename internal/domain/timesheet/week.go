package timesheet

import (
	"sort"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// StartOfWeek returns the Monday of the week containing t, as a UTC calendar date.
// The weekday is taken in t's own location.
func StartOfWeek(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfWeek returns the Sunday closing the week containing t.
func EndOfWeek(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, 6)
}

// SameWeek reports whether a and b fall in the same canonical week.
func SameWeek(a, b time.Time) bool {
	return StartOfWeek(a).Equal(StartOfWeek(b))
}

type Direction int

const (
	Previous Direction = -1
	Next     Direction = 1
)

// Navigate moves one week from current. Weeks after the one containing now are refused
// and current is returned unchanged.
func Navigate(current time.Time, dir Direction, now time.Time) (time.Time, error) {
	start := StartOfWeek(current)
	switch {
	case dir > 0:
		dir = Next
	case dir < 0:
		dir = Previous
	default:
		return start, nil
	}
	return SetWeek(start.AddDate(0, 0, 7*int(dir)), now)
}

// SetWeek canonicalises date and applies the same future-week rule as Navigate.
func SetWeek(date time.Time, now time.Time) (time.Time, error) {
	target := StartOfWeek(date)
	if target.After(StartOfWeek(now)) {
		return StartOfWeek(now), ErrFutureWeek
	}
	return target, nil
}

// ResolveTimesheetForWeek finds owner's stored timesheet for the week, or builds a fresh one.
func ResolveTimesheetForWeek(list []Timesheet, owner Actor, weekStart time.Time) Timesheet {
	start := StartOfWeek(weekStart)
	for _, t := range list {
		if owner.Owns(t) && StartOfWeek(t.WeekStart).Equal(start) {
			return t.Clone()
		}
	}
	return NewTimesheet(owner, start)
}

// SortNewestFirst orders by week start descending, then id descending.
func SortNewestFirst(list []Timesheet) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].WeekStart.Equal(list[j].WeekStart) {
			return list[i].WeekStart.After(list[j].WeekStart)
		}
		return list[i].ID > list[j].ID
	})
}
