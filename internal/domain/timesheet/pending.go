package timesheet

import (
	"fmt"
	"sort"
	"time"
)

// PendingWeeks returns owner's not-submitted timesheets for weeks other than current,
// oldest first.
func PendingWeeks(list []Timesheet, owner Actor, current time.Time) []Timesheet {
	week := StartOfWeek(current)

	var pending []Timesheet
	for _, t := range list {
		if !owner.Owns(t) || t.Status != StatusNotSubmitted {
			continue
		}
		if StartOfWeek(t.WeekStart).Equal(week) {
			continue
		}
		pending = append(pending, t)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].WeekStart.Before(pending[j].WeekStart)
	})
	return pending
}

// PendingTimesheetsError blocks a mutation while other weeks are still unsubmitted.
type PendingTimesheetsError struct {
	Count int
	Weeks []time.Time
}

func (e *PendingTimesheetsError) Error() string {
	return PendingMessage(e.Count)
}

func (e *PendingTimesheetsError) Is(target error) bool {
	return target == ErrPendingTimesheets
}

// PendingMessage is the user-facing text for n pending weeks.
func PendingMessage(n int) string {
	if n == 1 {
		return "You have 1 pending timesheet."
	}
	return fmt.Sprintf("You have %d pending timesheets.", n)
}

// GuardPending is the single check run before every mutation of owner's week
// (save, submit, entry edits, clear). It returns nil when nothing is pending.
func GuardPending(list []Timesheet, owner Actor, current time.Time) error {
	pending := PendingWeeks(list, owner, current)
	if len(pending) == 0 {
		return nil
	}

	weeks := make([]time.Time, len(pending))
	for i, t := range pending {
		weeks[i] = t.WeekStart
	}
	return &PendingTimesheetsError{Count: len(pending), Weeks: weeks}
}
