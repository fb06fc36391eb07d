package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReminder struct {
	calls atomic.Int32
	err   error
}

func (c *countingReminder) RemindPending(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestSendPendingReminders_OncePerWeekday(t *testing.T) {
	reminder := &countingReminder{}
	jobs := NewReminderJobs(reminder, time.Friday)
	now := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC) // Friday
	jobs.now = func() time.Time { return now }

	require.NoError(t, jobs.SendPendingReminders(context.Background()))
	require.NoError(t, jobs.SendPendingReminders(context.Background()))
	assert.Equal(t, int32(1), reminder.calls.Load())

	now = now.AddDate(0, 0, 1) // Saturday
	require.NoError(t, jobs.SendPendingReminders(context.Background()))
	assert.Equal(t, int32(1), reminder.calls.Load())

	now = now.AddDate(0, 0, 6) // next Friday
	require.NoError(t, jobs.SendPendingReminders(context.Background()))
	assert.Equal(t, int32(2), reminder.calls.Load())
}

func TestSendPendingReminders_RetriesAfterFailure(t *testing.T) {
	reminder := &countingReminder{err: errors.New("db down")}
	jobs := NewReminderJobs(reminder, time.Friday)
	jobs.now = func() time.Time { return time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC) }

	assert.Error(t, jobs.SendPendingReminders(context.Background()))
	reminder.err = nil
	assert.NoError(t, jobs.SendPendingReminders(context.Background()))
	assert.Equal(t, int32(2), reminder.calls.Load())
}

func TestScheduler_RunOnceJoinsErrors(t *testing.T) {
	s := NewScheduler()
	var ran atomic.Int32
	s.AddJob("ok", time.Hour, func(context.Context) error { ran.Add(1); return nil })
	s.AddJob("fails", time.Hour, func(context.Context) error { return errors.New("boom") })
	s.AddJob("panics", time.Hour, func(context.Context) error { panic("bad") })

	err := s.RunOnce(context.Background())

	assert.Equal(t, int32(1), ran.Load())
	assert.ErrorContains(t, err, "boom")
	assert.ErrorContains(t, err, "panicked")
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler()
	ran := make(chan struct{}, 1)
	s.AddJob("tick", time.Hour, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start(context.Background())
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()
}
