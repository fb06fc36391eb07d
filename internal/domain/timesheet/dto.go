package timesheet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
)

type EntryRequest struct {
	Type    string    `json:"type"`
	Name    string    `json:"name"`
	Hours   WeekHours `json:"hours"`
	Comment string    `json:"comment,omitempty"`
}

// TimesheetRequest is the body of create and update. Clients that only know the
// flat daily totals may omit entries; the totals are then booked as one project row.
type TimesheetRequest struct {
	WeekStart string         `json:"weekStart"`
	Comments  string         `json:"comments"`
	Entries   []EntryRequest `json:"entries"`
	WeekHours
}

func (r *TimesheetRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WeekStart) {
		errs = append(errs, validator.ValidationError{
			Field:   "weekStart",
			Message: "weekStart is required",
		})
	} else if _, ok := validator.IsValidDate(r.WeekStart); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "weekStart",
			Message: "weekStart must be in YYYY-MM-DD format",
		})
	}

	if len(r.Comments) > 2000 {
		errs = append(errs, validator.ValidationError{
			Field:   "comments",
			Message: "comments must not exceed 2000 characters",
		})
	}

	typesOK := true
	for i, e := range r.Entries {
		if _, err := ParseEntryType(e.Type); err != nil {
			typesOK = false
			errs = append(errs, validator.ValidationError{
				Field:   fmt.Sprintf("entries[%d].type", i),
				Message: "type must be one of project, leave, holiday",
			})
		}
	}

	if typesOK {
		var entryErrs validator.ValidationErrors
		if err := ValidateEntries(r.ToEntries()); errors.As(err, &entryErrs) {
			errs = append(errs, entryErrs...)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ParsedWeekStart returns the canonical Monday of the requested week.
func (r *TimesheetRequest) ParsedWeekStart() time.Time {
	d, _ := validator.IsValidDate(r.WeekStart)
	return StartOfWeek(d)
}

// ToEntries converts the request rows. Call Validate first.
func (r *TimesheetRequest) ToEntries() Entries {
	if len(r.Entries) == 0 {
		if CalculateWeeklyTotal(r.WeekHours) > 0 {
			return Entries{{Type: TypeProject, Name: "Project", Hours: r.WeekHours}}
		}
		return DefaultEntries()
	}

	entries := make(Entries, 0, len(r.Entries))
	for _, e := range r.Entries {
		typ, _ := ParseEntryType(e.Type)
		entries = append(entries, TimeEntry{
			Type:    typ,
			Name:    strings.TrimSpace(e.Name),
			Hours:   e.Hours,
			Comment: e.Comment,
		})
	}
	return entries
}

// StatusRequest is the body of PUT /{id}/status.
type StatusRequest struct {
	Status   string `json:"status"`
	Comments string `json:"comments"`
}

func (r *StatusRequest) Validate() error {
	var errs validator.ValidationErrors

	status := r.ParsedStatus()
	if status != StatusApproved && status != StatusRejected {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be approved or rejected",
		})
	}
	if status == StatusRejected && validator.IsEmpty(r.Comments) {
		errs = append(errs, validator.ValidationError{
			Field:   "comments",
			Message: RejectCommentMessage,
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *StatusRequest) ParsedStatus() Status {
	return Status(strings.ToLower(strings.TrimSpace(r.Status)))
}

type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

// Filter narrows repository listings. Zero fields do not filter.
type Filter struct {
	EmployeeID   string
	EmployeeName string
	Status       Status
	From         *time.Time
	To           *time.Time
}

// ListFilter is the query string of GET /timesheet-entries.
type ListFilter struct {
	EmployeeName string
	Status       string
	From         string
	To           string
}

func (f *ListFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != "" && !Status(f.Status).Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of not-submitted, submitted, approved, rejected",
		})
	}

	from, fromOK := validator.IsValidDate(f.From)
	if f.From != "" && !fromOK {
		errs = append(errs, validator.ValidationError{
			Field:   "from",
			Message: "from must be in YYYY-MM-DD format",
		})
	}
	to, toOK := validator.IsValidDate(f.To)
	if f.To != "" && !toOK {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to must be in YYYY-MM-DD format",
		})
	}
	if fromOK && toOK && to.Before(from) {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to must not be before from",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToFilter converts a validated ListFilter.
func (f *ListFilter) ToFilter() Filter {
	filter := Filter{
		EmployeeName: strings.TrimSpace(f.EmployeeName),
		Status:       Status(f.Status),
	}
	if d, ok := validator.IsValidDate(f.From); ok {
		filter.From = &d
	}
	if d, ok := validator.IsValidDate(f.To); ok {
		filter.To = &d
	}
	return filter
}

// ExportRequest selects the month (YYYY-MM) and optionally one employee.
type ExportRequest struct {
	Month        string
	EmployeeName string
}

func (r *ExportRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Month) {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month is required",
		})
	} else if _, ok := validator.IsValidMonth(r.Month); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be in YYYY-MM format",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Range returns the first and last day of the requested month.
func (r *ExportRequest) Range() (time.Time, time.Time) {
	first, _ := validator.IsValidMonth(r.Month)
	return first, first.AddDate(0, 1, -1)
}

// TimesheetResponse is the flat record exchanged with clients: daily totals
// across all categories plus the full entry breakdown.
type TimesheetResponse struct {
	ID           int64  `json:"id"`
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	WeekStart    string `json:"weekStart"`
	WeekEnd      string `json:"weekEnd"`
	Status       Status `json:"status"`
	WeekHours
	TotalHours    float64 `json:"totalHours"`
	SubmittedDate *string `json:"submittedDate"`
	Comments      string  `json:"comments"`
	AdminComments string  `json:"adminComments,omitempty"`
	Entries       Entries `json:"entries"`
}

func NewTimesheetResponse(t Timesheet) TimesheetResponse {
	resp := TimesheetResponse{
		ID:            t.ID,
		EmployeeID:    t.EmployeeID,
		EmployeeName:  t.EmployeeName,
		WeekStart:     t.WeekStart.Format(DateLayout),
		WeekEnd:       t.WeekEnd.Format(DateLayout),
		Status:        t.Status,
		WeekHours:     CalculateDailyTotals(t.Entries),
		TotalHours:    t.TotalHours,
		Comments:      t.Comments,
		AdminComments: t.AdminComments,
		Entries:       t.Entries,
	}
	if resp.Entries == nil {
		resp.Entries = Entries{}
	}
	if t.SubmittedDate != nil {
		s := t.SubmittedDate.UTC().Format(time.RFC3339)
		resp.SubmittedDate = &s
	}
	return resp
}

func NewTimesheetResponses(list []Timesheet) []TimesheetResponse {
	out := make([]TimesheetResponse, 0, len(list))
	for _, t := range list {
		out = append(out, NewTimesheetResponse(t))
	}
	return out
}

// ToTimesheet converts a record received from the store back into the domain type.
func (r TimesheetResponse) ToTimesheet() (Timesheet, error) {
	start, err := time.Parse(DateLayout, r.WeekStart)
	if err != nil {
		return Timesheet{}, fmt.Errorf("parse weekStart: %w", err)
	}

	t := Timesheet{
		ID:            r.ID,
		EmployeeID:    r.EmployeeID,
		EmployeeName:  r.EmployeeName,
		WeekStart:     StartOfWeek(start),
		WeekEnd:       EndOfWeek(start),
		Status:        r.Status,
		TotalHours:    r.TotalHours,
		Comments:      r.Comments,
		AdminComments: r.AdminComments,
		Entries:       r.Entries,
	}
	if len(t.Entries) == 0 && CalculateWeeklyTotal(r.WeekHours) > 0 {
		t.Entries = Entries{{Type: TypeProject, Name: "Project", Hours: r.WeekHours}}
	}
	if r.SubmittedDate != nil && *r.SubmittedDate != "" {
		sd, err := time.Parse(time.RFC3339, *r.SubmittedDate)
		if err != nil {
			return Timesheet{}, fmt.Errorf("parse submittedDate: %w", err)
		}
		t.SubmittedDate = &sd
	}
	return t, nil
}

// NewTimesheetRequest builds the create/update body for t.
func NewTimesheetRequest(t Timesheet) TimesheetRequest {
	req := TimesheetRequest{
		WeekStart: t.WeekStart.Format(DateLayout),
		Comments:  t.Comments,
		WeekHours: CalculateDailyTotals(t.Entries),
	}
	for _, e := range t.Entries {
		req.Entries = append(req.Entries, EntryRequest{
			Type:    string(e.Type),
			Name:    e.Name,
			Hours:   e.Hours,
			Comment: e.Comment,
		})
	}
	return req
}

// WeekResponse is what an input surface needs to render one week.
type WeekResponse struct {
	Timesheet      TimesheetResponse `json:"timesheet"`
	DailyTotals    DailyTotal        `json:"dailyTotals"`
	Disabled       []DayFlags        `json:"disabled"`
	PendingCount   int               `json:"pendingCount"`
	PendingMessage string            `json:"pendingMessage,omitempty"`
	CurrentWeek    bool              `json:"currentWeek"`
}

type PendingResponse struct {
	Count   int      `json:"count"`
	Message string   `json:"message,omitempty"`
	Weeks   []string `json:"weeks"`
}

func NewPendingResponse(pending []Timesheet) PendingResponse {
	resp := PendingResponse{Count: len(pending), Weeks: make([]string, 0, len(pending))}
	for _, t := range pending {
		resp.Weeks = append(resp.Weeks, t.WeekStart.Format(DateLayout))
	}
	if resp.Count > 0 {
		resp.Message = PendingMessage(resp.Count)
	}
	return resp
}
