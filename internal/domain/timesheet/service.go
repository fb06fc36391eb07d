package timesheet

import (
	"context"
	"io"
)

type Service interface {
	List(ctx context.Context, actor Actor, filter ListFilter) ([]TimesheetResponse, error)
	Get(ctx context.Context, actor Actor, id int64) (TimesheetResponse, error)
	Week(ctx context.Context, actor Actor, date string) (WeekResponse, error)
	Pending(ctx context.Context, actor Actor, weekStart string) (PendingResponse, error)

	Create(ctx context.Context, actor Actor, req TimesheetRequest) (TimesheetResponse, error)
	Update(ctx context.Context, actor Actor, id int64, req TimesheetRequest) (TimesheetResponse, error)
	Submit(ctx context.Context, actor Actor, id int64) (TimesheetResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id int64, req StatusRequest) (TimesheetResponse, error)
	Clear(ctx context.Context, actor Actor, id int64, req ClearRequest) (TimesheetResponse, error)
	Delete(ctx context.Context, actor Actor, id int64) error

	Export(ctx context.Context, actor Actor, req ExportRequest, w io.Writer) error
}
