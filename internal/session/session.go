// Package session keeps one user's roster of timesheets in step with the store.
// Every write goes to the store first and the roster only ever holds what the
// store answered.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
)

// Store is the remote side of the session. internal/client implements it over HTTP.
type Store interface {
	ListTimesheets(ctx context.Context, filter timesheet.ListFilter) ([]timesheet.TimesheetResponse, error)
	CreateTimesheet(ctx context.Context, req timesheet.TimesheetRequest) (timesheet.TimesheetResponse, error)
	UpdateTimesheet(ctx context.Context, id int64, req timesheet.TimesheetRequest) (timesheet.TimesheetResponse, error)
	Submit(ctx context.Context, id int64) (timesheet.TimesheetResponse, error)
	UpdateStatus(ctx context.Context, id int64, req timesheet.StatusRequest) (timesheet.TimesheetResponse, error)
	Clear(ctx context.Context, id int64, confirm bool) (timesheet.TimesheetResponse, error)
}

type Session struct {
	store   Store
	actor   timesheet.Actor
	now     func() time.Time
	timeout time.Duration

	// write serialises mutations; mu guards the fields below and is held only briefly.
	write   sync.Mutex
	mu      sync.RWMutex
	roster  []timesheet.Timesheet
	current timesheet.Timesheet
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithTimeout bounds each store call.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

func New(store Store, actor timesheet.Actor, opts ...Option) *Session {
	s := &Session{
		store:   store,
		actor:   actor,
		now:     time.Now,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = timesheet.NewTimesheet(actor, s.now())
	return s
}

func (s *Session) Actor() timesheet.Actor {
	return s.actor
}

// Timesheets returns a copy of the roster, newest week first.
func (s *Session) Timesheets() []timesheet.Timesheet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]timesheet.Timesheet, len(s.roster))
	for i, t := range s.roster {
		out[i] = t.Clone()
	}
	return out
}

// Current returns a copy of the week being edited.
func (s *Session) Current() timesheet.Timesheet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Disabled returns the advisory grid of cells the input surface should lock.
func (s *Session) Disabled() []timesheet.DayFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return timesheet.Grid(s.current)
}

// Pending reports the actor's other unsubmitted weeks.
func (s *Session) Pending() timesheet.PendingResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return timesheet.NewPendingResponse(timesheet.PendingWeeks(s.roster, s.actor, s.current.WeekStart))
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Load replaces the roster with the store's listing. On failure the stale roster is kept.
func (s *Session) Load(ctx context.Context) error {
	s.write.Lock()
	defer s.write.Unlock()
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	records, err := s.store.ListTimesheets(ctx, timesheet.ListFilter{})
	if err != nil {
		return fmt.Errorf("load timesheets: %w", err)
	}

	roster := make([]timesheet.Timesheet, 0, len(records))
	for _, rec := range records {
		t, err := rec.ToTimesheet()
		if err != nil {
			return fmt.Errorf("load timesheet %d: %w", rec.ID, err)
		}
		roster = append(roster, t.Clone())
	}
	timesheet.SortNewestFirst(roster)

	s.mu.Lock()
	s.roster = roster
	s.current = timesheet.ResolveTimesheetForWeek(roster, s.actor, s.current.WeekStart)
	s.mu.Unlock()
	return nil
}

// statusCoder is implemented by store errors that carry the server's answer.
type statusCoder interface {
	StatusCode() int
}

// refused reports whether the store answered a write with a verdict on the request
// itself (conflict, validation, authorization). The local copy is still valid then.
func refused(err error) bool {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return true
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode() >= 400 && sc.StatusCode() < 500
	}
	for _, target := range []error{
		timesheet.ErrAlreadyEntered,
		timesheet.ErrPendingTimesheets,
		timesheet.ErrNotOwner,
		timesheet.ErrAdminRequired,
		timesheet.ErrInvalidTransition,
		timesheet.ErrNotEditable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeFailed drops the local copy unless the store refused the write outright.
func (s *Session) writeFailed(ctx context.Context, err error) {
	if refused(err) {
		return
	}
	s.reload(ctx)
}

// reload runs after a failed write so no local edit outlives the failure.
func (s *Session) reload(ctx context.Context) {
	if err := s.load(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("Session reload after failed write", "error", err)
		s.mu.Lock()
		s.current = timesheet.ResolveTimesheetForWeek(s.roster, s.actor, s.current.WeekStart)
		s.mu.Unlock()
	}
}

// SetWeek moves the editor to the week containing date. Future weeks are refused
// and leave the current week unchanged.
func (s *Session) SetWeek(date time.Time) error {
	week, err := timesheet.SetWeek(date, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = timesheet.ResolveTimesheetForWeek(s.roster, s.actor, week)
	s.mu.Unlock()
	return nil
}

func (s *Session) Navigate(dir timesheet.Direction) error {
	s.mu.RLock()
	from := s.current.WeekStart
	s.mu.RUnlock()

	week, err := timesheet.Navigate(from, dir, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = timesheet.ResolveTimesheetForWeek(s.roster, s.actor, week)
	s.mu.Unlock()
	return nil
}

// edit applies fn to the current week after the ownership and pending checks.
func (s *Session) edit(fn func(t *timesheet.Timesheet) error) error {
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMutation(s.current, timesheet.ActionEdit); err != nil {
		return err
	}
	draft := s.current.Clone()
	if err := fn(&draft); err != nil {
		return err
	}
	draft.Recalculate()
	s.current = draft
	return nil
}

// checkMutation must be called with mu held.
func (s *Session) checkMutation(t timesheet.Timesheet, action timesheet.Action) error {
	if err := timesheet.Authorize(s.actor, t, action); err != nil {
		return err
	}
	if !t.Editable() {
		return timesheet.ErrNotEditable
	}
	return timesheet.GuardPending(s.roster, s.actor, t.WeekStart)
}

func (s *Session) SetHours(row int, day timesheet.Day, hours float64) error {
	return s.edit(func(t *timesheet.Timesheet) error {
		return timesheet.SetHours(t, row, day, hours)
	})
}

func (s *Session) AddEntry(typ timesheet.EntryType, name string) error {
	return s.edit(func(t *timesheet.Timesheet) error {
		return t.AddEntry(typ, name)
	})
}

func (s *Session) RenameEntry(row int, name, comment string) error {
	return s.edit(func(t *timesheet.Timesheet) error {
		return t.RenameEntry(row, name, comment)
	})
}

func (s *Session) RemoveEntry(row int) error {
	return s.edit(func(t *timesheet.Timesheet) error {
		return t.RemoveEntry(row)
	})
}

func (s *Session) SetComments(comments string) error {
	return s.edit(func(t *timesheet.Timesheet) error {
		t.Comments = comments
		return nil
	})
}

// Save stores the current week and adopts the store's copy.
func (s *Session) Save(ctx context.Context) (timesheet.Timesheet, error) {
	s.write.Lock()
	defer s.write.Unlock()
	return s.save(ctx)
}

func (s *Session) save(ctx context.Context) (timesheet.Timesheet, error) {
	s.mu.RLock()
	draft := s.current.Clone()
	err := s.checkMutation(draft, timesheet.ActionSave)
	s.mu.RUnlock()
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	if err := draft.Save(); err != nil {
		return timesheet.Timesheet{}, err
	}
	if err := timesheet.ValidateEntries(draft.Entries); err != nil {
		return timesheet.Timesheet{}, err
	}

	req := timesheet.NewTimesheetRequest(draft)
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	var resp timesheet.TimesheetResponse
	if draft.Persisted() {
		resp, err = s.store.UpdateTimesheet(callCtx, draft.ID, req)
	} else {
		resp, err = s.store.CreateTimesheet(callCtx, req)
	}
	if err != nil {
		s.writeFailed(ctx, err)
		return timesheet.Timesheet{}, err
	}
	return s.adopt(resp)
}

// Submit saves the current week and submits it.
func (s *Session) Submit(ctx context.Context) (timesheet.Timesheet, error) {
	s.write.Lock()
	defer s.write.Unlock()

	saved, err := s.save(ctx)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	resp, err := s.store.Submit(callCtx, saved.ID)
	if err != nil {
		s.writeFailed(ctx, err)
		return timesheet.Timesheet{}, err
	}
	return s.adopt(resp)
}

// Clear zeroes every hour of the current week. confirm must be true.
func (s *Session) Clear(ctx context.Context, confirm bool) (timesheet.Timesheet, error) {
	if !confirm {
		return timesheet.Timesheet{}, timesheet.ErrConfirmationRequired
	}

	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	if err := s.checkMutation(s.current, timesheet.ActionClear); err != nil {
		s.mu.Unlock()
		return timesheet.Timesheet{}, err
	}
	if !s.current.Persisted() {
		// nothing stored yet: zero the draft and save it like any other edit
		err := s.current.Clear()
		s.mu.Unlock()
		if err != nil {
			return timesheet.Timesheet{}, err
		}
		return s.save(ctx)
	}
	id := s.current.ID
	s.mu.Unlock()

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	resp, err := s.store.Clear(callCtx, id, true)
	if err != nil {
		s.writeFailed(ctx, err)
		return timesheet.Timesheet{}, err
	}
	return s.adopt(resp)
}

func (s *Session) Approve(ctx context.Context, id int64, comment string) (timesheet.Timesheet, error) {
	return s.decide(ctx, id, timesheet.StatusRequest{Status: string(timesheet.StatusApproved), Comments: comment})
}

// Reject refuses a blank comment before calling the store.
func (s *Session) Reject(ctx context.Context, id int64, comment string) (timesheet.Timesheet, error) {
	return s.decide(ctx, id, timesheet.StatusRequest{Status: string(timesheet.StatusRejected), Comments: comment})
}

func (s *Session) decide(ctx context.Context, id int64, req timesheet.StatusRequest) (timesheet.Timesheet, error) {
	s.write.Lock()
	defer s.write.Unlock()

	if !s.actor.Admin {
		return timesheet.Timesheet{}, timesheet.ErrAdminRequired
	}
	if err := req.Validate(); err != nil {
		return timesheet.Timesheet{}, err
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	resp, err := s.store.UpdateStatus(callCtx, id, req)
	if err != nil {
		s.writeFailed(ctx, err)
		return timesheet.Timesheet{}, err
	}
	return s.adopt(resp)
}

// adopt puts the store's answer into the roster and, for the same week, the editor.
func (s *Session) adopt(resp timesheet.TimesheetResponse) (timesheet.Timesheet, error) {
	t, err := resp.ToTimesheet()
	if err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("decode stored timesheet: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.roster {
		if s.roster[i].ID == t.ID {
			s.roster[i] = t.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.roster = append(s.roster, t.Clone())
	}
	timesheet.SortNewestFirst(s.roster)

	if s.actor.Owns(t) && timesheet.SameWeek(t.WeekStart, s.current.WeekStart) {
		s.current = t.Clone()
	}
	return t, nil
}
