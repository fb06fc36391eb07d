package timesheet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
)

const defaultTimeout = 5 * time.Second

// TxManager runs fn in one database transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserGetter resolves timesheet owners for notifications.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type TimesheetServiceImpl struct {
	repo   timesheet.TimesheetRepository
	users  UserGetter
	tx     TxManager
	events sse.Publisher
	mail   email.EmailService

	now         func() time.Time
	timeout     time.Duration
	frontendURL string
	async       func(fn func())
}

type Option func(*TimesheetServiceImpl)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *TimesheetServiceImpl) { s.now = now }
}

// WithTimeout bounds each operation's store work.
func WithTimeout(d time.Duration) Option {
	return func(s *TimesheetServiceImpl) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithFrontendURL is linked from notification emails.
func WithFrontendURL(url string) Option {
	return func(s *TimesheetServiceImpl) { s.frontendURL = url }
}

// WithSyncNotifications sends emails on the caller's goroutine.
func WithSyncNotifications() Option {
	return func(s *TimesheetServiceImpl) { s.async = func(fn func()) { fn() } }
}

func NewTimesheetService(
	repo timesheet.TimesheetRepository,
	users UserGetter,
	tx TxManager,
	events sse.Publisher,
	mail email.EmailService,
	opts ...Option,
) *TimesheetServiceImpl {
	s := &TimesheetServiceImpl{
		repo:    repo,
		users:   users,
		tx:      tx,
		events:  events,
		mail:    mail,
		now:     time.Now,
		timeout: defaultTimeout,
		async:   func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ timesheet.Service = (*TimesheetServiceImpl)(nil)

func (s *TimesheetServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ownerTimesheets loads every timesheet actor owns, the input of the pending guard.
func (s *TimesheetServiceImpl) ownerTimesheets(ctx context.Context, actor timesheet.Actor) ([]timesheet.Timesheet, error) {
	list, err := s.repo.List(ctx, timesheet.Filter{EmployeeID: actor.EmployeeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheets of %s: %w", actor.EmployeeID, err)
	}
	return list, nil
}

func (s *TimesheetServiceImpl) guardPending(ctx context.Context, actor timesheet.Actor, week time.Time) error {
	list, err := s.ownerTimesheets(ctx, actor)
	if err != nil {
		return err
	}
	if err := timesheet.GuardPending(list, actor, week); err != nil {
		metrics.RecordPendingBlock()
		return err
	}
	return nil
}

func parseDateOrNow(field, value string, now time.Time) (time.Time, error) {
	if validator.IsEmpty(value) {
		return now, nil
	}
	d, ok := validator.IsValidDate(value)
	if !ok {
		return time.Time{}, validator.ValidationErrors{{
			Field:   field,
			Message: field + " must be in YYYY-MM-DD format",
		}}
	}
	return d, nil
}

// List implements timesheet.Service. Employees only ever see their own weeks.
func (s *TimesheetServiceImpl) List(ctx context.Context, actor timesheet.Actor, lf timesheet.ListFilter) ([]timesheet.TimesheetResponse, error) {
	if err := lf.Validate(); err != nil {
		return nil, err
	}
	filter := lf.ToFilter()
	if !actor.Admin {
		filter.EmployeeID = actor.EmployeeID
		filter.EmployeeName = ""
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}
	timesheet.SortNewestFirst(list)
	return timesheet.NewTimesheetResponses(list), nil
}

// Get implements timesheet.Service.
func (s *TimesheetServiceImpl) Get(ctx context.Context, actor timesheet.Actor, id int64) (timesheet.TimesheetResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	if err := timesheet.Authorize(actor, t, timesheet.ActionView); err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return timesheet.NewTimesheetResponse(t), nil
}

// Week implements timesheet.Service.
func (s *TimesheetServiceImpl) Week(ctx context.Context, actor timesheet.Actor, date string) (timesheet.WeekResponse, error) {
	now := s.now()
	d, err := parseDateOrNow("date", date, now)
	if err != nil {
		return timesheet.WeekResponse{}, err
	}
	weekStart, err := timesheet.SetWeek(d, now)
	if err != nil {
		return timesheet.WeekResponse{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	list, err := s.ownerTimesheets(ctx, actor)
	if err != nil {
		return timesheet.WeekResponse{}, err
	}

	t := timesheet.ResolveTimesheetForWeek(list, actor, weekStart)
	pending := timesheet.PendingWeeks(list, actor, weekStart)

	resp := timesheet.WeekResponse{
		Timesheet:    timesheet.NewTimesheetResponse(t),
		DailyTotals:  t.DailyTotals(),
		Disabled:     timesheet.Grid(t),
		PendingCount: len(pending),
		CurrentWeek:  timesheet.SameWeek(weekStart, now),
	}
	if len(pending) > 0 {
		resp.PendingMessage = timesheet.PendingMessage(len(pending))
	}
	return resp, nil
}

// Pending implements timesheet.Service.
func (s *TimesheetServiceImpl) Pending(ctx context.Context, actor timesheet.Actor, weekStart string) (timesheet.PendingResponse, error) {
	d, err := parseDateOrNow("weekStart", weekStart, s.now())
	if err != nil {
		return timesheet.PendingResponse{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	list, err := s.ownerTimesheets(ctx, actor)
	if err != nil {
		return timesheet.PendingResponse{}, err
	}
	return timesheet.NewPendingResponse(timesheet.PendingWeeks(list, actor, d)), nil
}

// Create implements timesheet.Service. The caller is always the owner.
func (s *TimesheetServiceImpl) Create(ctx context.Context, actor timesheet.Actor, req timesheet.TimesheetRequest) (resp timesheet.TimesheetResponse, err error) {
	defer func() { metrics.RecordAction(string(timesheet.ActionSave), err) }()

	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	weekStart, err := timesheet.SetWeek(req.ParsedWeekStart(), s.now())
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created timesheet.Timesheet
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		list, err := s.ownerTimesheets(ctx, actor)
		if err != nil {
			return err
		}
		if existing := timesheet.ResolveTimesheetForWeek(list, actor, weekStart); existing.Persisted() {
			return timesheet.ErrAlreadyEntered
		}
		if err := timesheet.GuardPending(list, actor, weekStart); err != nil {
			metrics.RecordPendingBlock()
			return err
		}

		t := timesheet.NewTimesheet(actor, weekStart)
		t.Entries = req.ToEntries()
		t.Comments = req.Comments
		if err := t.Save(); err != nil {
			return err
		}

		created, err = s.repo.Create(ctx, t)
		return err
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	slog.Info("timesheet created", "id", created.ID, "employee_id", created.EmployeeID, "week_start", created.WeekStart.Format(timesheet.DateLayout))
	return timesheet.NewTimesheetResponse(created), nil
}

// Update implements timesheet.Service. The week of a stored timesheet never moves.
func (s *TimesheetServiceImpl) Update(ctx context.Context, actor timesheet.Actor, id int64, req timesheet.TimesheetRequest) (resp timesheet.TimesheetResponse, err error) {
	defer func() { metrics.RecordAction(string(timesheet.ActionSave), err) }()

	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var updated timesheet.Timesheet
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := timesheet.Authorize(actor, t, timesheet.ActionSave); err != nil {
			return err
		}
		if !t.Editable() {
			return timesheet.ErrNotEditable
		}
		if !req.ParsedWeekStart().Equal(timesheet.StartOfWeek(t.WeekStart)) {
			return validator.ValidationErrors{{Field: "weekStart", Message: "weekStart cannot be changed"}}
		}
		if err := s.guardPending(ctx, actor, t.WeekStart); err != nil {
			return err
		}

		t.Entries = req.ToEntries()
		t.Comments = req.Comments
		if err := t.Save(); err != nil {
			return err
		}

		updated, err = s.repo.Update(ctx, t)
		return err
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return timesheet.NewTimesheetResponse(updated), nil
}

// Submit implements timesheet.Service.
func (s *TimesheetServiceImpl) Submit(ctx context.Context, actor timesheet.Actor, id int64) (resp timesheet.TimesheetResponse, err error) {
	defer func() { metrics.RecordAction(string(timesheet.ActionSubmit), err) }()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var submitted timesheet.Timesheet
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := timesheet.Authorize(actor, t, timesheet.ActionSubmit); err != nil {
			return err
		}
		if !t.Editable() {
			return timesheet.ErrInvalidTransition
		}
		if err := s.guardPending(ctx, actor, t.WeekStart); err != nil {
			return err
		}
		if err := timesheet.ValidateEntries(t.Entries); err != nil {
			return err
		}
		if err := t.Submit(s.now().UTC()); err != nil {
			return err
		}

		submitted, err = s.repo.Update(ctx, t)
		return err
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	resp = timesheet.NewTimesheetResponse(submitted)
	s.events.Publish(sse.AdminChannel, sse.Event{Event: sse.EventTimesheetSubmitted, Data: resp})
	slog.Info("timesheet submitted", "id", submitted.ID, "employee_id", submitted.EmployeeID)
	return resp, nil
}

// UpdateStatus implements timesheet.Service.
func (s *TimesheetServiceImpl) UpdateStatus(ctx context.Context, actor timesheet.Actor, id int64, req timesheet.StatusRequest) (resp timesheet.TimesheetResponse, err error) {
	action := timesheet.ActionApprove
	if req.ParsedStatus() == timesheet.StatusRejected {
		action = timesheet.ActionReject
	}
	defer func() { metrics.RecordAction(string(action), err) }()

	if !actor.Admin {
		return timesheet.TimesheetResponse{}, timesheet.ErrAdminRequired
	}
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var decided timesheet.Timesheet
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := timesheet.Authorize(actor, t, action); err != nil {
			return err
		}
		if action == timesheet.ActionReject {
			err = t.Reject(req.Comments)
		} else {
			err = t.Approve(req.Comments)
		}
		if err != nil {
			return err
		}

		decided, err = s.repo.Update(ctx, t)
		return err
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	resp = timesheet.NewTimesheetResponse(decided)
	s.notifyDecision(decided, resp)
	slog.Info("timesheet decided", "id", decided.ID, "status", decided.Status, "admin_id", actor.EmployeeID)
	return resp, nil
}

// Clear implements timesheet.Service.
func (s *TimesheetServiceImpl) Clear(ctx context.Context, actor timesheet.Actor, id int64, req timesheet.ClearRequest) (resp timesheet.TimesheetResponse, err error) {
	defer func() { metrics.RecordAction(string(timesheet.ActionClear), err) }()

	if !req.Confirm {
		return timesheet.TimesheetResponse{}, timesheet.ErrConfirmationRequired
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var cleared timesheet.Timesheet
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := timesheet.Authorize(actor, t, timesheet.ActionClear); err != nil {
			return err
		}
		if !t.Editable() {
			return timesheet.ErrNotEditable
		}
		if err := s.guardPending(ctx, actor, t.WeekStart); err != nil {
			return err
		}
		if err := t.Clear(); err != nil {
			return err
		}

		cleared, err = s.repo.Update(ctx, t)
		return err
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return timesheet.NewTimesheetResponse(cleared), nil
}

// Delete implements timesheet.Service. Owners may only drop weeks they have not submitted.
func (s *TimesheetServiceImpl) Delete(ctx context.Context, actor timesheet.Actor, id int64) (err error) {
	defer func() { metrics.RecordAction(string(timesheet.ActionDelete), err) }()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := timesheet.Authorize(actor, t, timesheet.ActionDelete); err != nil {
			return err
		}
		if !t.Editable() {
			return timesheet.ErrNotEditable
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.Info("timesheet deleted", "id", id, "by", actor.EmployeeID)
	return nil
}
