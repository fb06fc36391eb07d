package timesheet

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/sse"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]timesheet.Timesheet
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]timesheet.Timesheet)}
}

func (r *memoryRepo) Create(_ context.Context, t timesheet.Timesheet) (timesheet.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.EmployeeID == t.EmployeeID && row.WeekStart.Equal(t.WeekStart) {
			return timesheet.Timesheet{}, timesheet.ErrAlreadyEntered
		}
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.rows[t.ID] = t.Clone()
	return t, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (timesheet.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
	}
	return t.Clone(), nil
}

func (r *memoryRepo) GetByIDForUpdate(ctx context.Context, id int64) (timesheet.Timesheet, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryRepo) GetByEmployeeWeek(_ context.Context, employeeID string, weekStart time.Time) (timesheet.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if t.EmployeeID == employeeID && t.WeekStart.Equal(weekStart) {
			return t.Clone(), nil
		}
	}
	return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
}

func (r *memoryRepo) List(_ context.Context, f timesheet.Filter) ([]timesheet.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]timesheet.Timesheet, 0)
	for _, t := range r.rows {
		switch {
		case f.EmployeeID != "" && t.EmployeeID != f.EmployeeID:
		case f.EmployeeName != "" && !strings.EqualFold(t.EmployeeName, f.EmployeeName):
		case f.Status != "" && t.Status != f.Status:
		case f.From != nil && t.WeekEnd.Before(*f.From):
		case f.To != nil && t.WeekStart.After(*f.To):
		default:
			list = append(list, t.Clone())
		}
	}
	return list, nil
}

func (r *memoryRepo) Update(_ context.Context, t timesheet.Timesheet) (timesheet.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[t.ID]; !ok {
		return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
	}
	t.UpdatedAt = time.Now()
	r.rows[t.ID] = t.Clone()
	return t, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return timesheet.ErrTimesheetNotFound
	}
	delete(r.rows, id)
	return nil
}

// seed stores t as-is, bypassing the service rules.
func (r *memoryRepo) seed(t timesheet.Timesheet) timesheet.Timesheet {
	t.Recalculate()
	created, err := r.Create(context.Background(), t)
	if err != nil {
		panic(err)
	}
	return created
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type publishedEvent struct {
	key   string
	event sse.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(key string, event sse.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, event: event})
}

func (p *recordingPublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type recordingMail struct {
	mu        sync.Mutex
	decisions map[string][]email.DecisionEmail
	reminders map[string][]email.PendingReminderEmail
}

func newRecordingMail() *recordingMail {
	return &recordingMail{
		decisions: make(map[string][]email.DecisionEmail),
		reminders: make(map[string][]email.PendingReminderEmail),
	}
}

func (m *recordingMail) SendTimesheetDecision(to string, data email.DecisionEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[to] = append(m.decisions[to], data)
	return nil
}

func (m *recordingMail) SendPendingReminder(to string, data email.PendingReminderEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders[to] = append(m.reminders[to], data)
	return nil
}

type staticUsers map[string]user.User

func (u staticUsers) GetByID(_ context.Context, id string) (user.User, error) {
	found, ok := u[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return found, nil
}
