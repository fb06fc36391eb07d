package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PendingReminder mails employees about weeks they have not submitted.
type PendingReminder interface {
	RemindPending(ctx context.Context) (int, error)
}

type ReminderJobs struct {
	reminder PendingReminder
	weekday  time.Weekday
	now      func() time.Time

	mu      sync.Mutex
	lastRun string
}

func NewReminderJobs(reminder PendingReminder, weekday time.Weekday) *ReminderJobs {
	return &ReminderJobs{reminder: reminder, weekday: weekday, now: time.Now}
}

func (j *ReminderJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("pending_timesheet_reminder", interval, j.SendPendingReminders)
}

// SendPendingReminders runs at most once per day, on the configured weekday.
func (j *ReminderJobs) SendPendingReminders(ctx context.Context) error {
	now := j.now()
	if now.Weekday() != j.weekday {
		return nil
	}

	today := now.Format("2006-01-02")
	j.mu.Lock()
	if j.lastRun == today {
		j.mu.Unlock()
		return nil
	}
	j.mu.Unlock()

	slog.Info("Cron: Starting pending timesheet reminder job")
	n, err := j.reminder.RemindPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to send pending reminders: %w", err)
	}

	j.mu.Lock()
	j.lastRun = today
	j.mu.Unlock()

	slog.Info("Cron: Pending timesheet reminders sent", "employees", n)
	return nil
}
