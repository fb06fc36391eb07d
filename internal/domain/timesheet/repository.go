package timesheet

import (
	"context"
	"time"
)

// TimesheetRepository - interface for timesheet_entries table
type TimesheetRepository interface {
	Create(ctx context.Context, t Timesheet) (Timesheet, error)
	GetByID(ctx context.Context, id int64) (Timesheet, error)
	// GetByIDForUpdate locks the row when called inside a transaction.
	GetByIDForUpdate(ctx context.Context, id int64) (Timesheet, error)
	GetByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (Timesheet, error)
	List(ctx context.Context, filter Filter) ([]Timesheet, error)
	Update(ctx context.Context, t Timesheet) (Timesheet, error)
	Delete(ctx context.Context, id int64) error
}
