package timesheet

import (
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
)

type Action string

const (
	ActionSave    Action = "save"
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionClear   Action = "clear"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionView    Action = "view"
)

// RejectCommentMessage is returned when a rejection carries no comment.
const RejectCommentMessage = "Rejection requires comments."

var transitions = map[Status][]Status{
	StatusNotSubmitted: {StatusSubmitted},
	StatusSubmitted:    {StatusApproved, StatusRejected},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Authorize checks that actor may perform action on t. It never mutates t.
func Authorize(actor Actor, t Timesheet, action Action) error {
	switch action {
	case ActionApprove, ActionReject:
		if !actor.Admin {
			return ErrAdminRequired
		}
	case ActionView:
		if !actor.Admin && !actor.Owns(t) {
			return ErrNotOwner
		}
	default:
		if !actor.Owns(t) {
			return ErrNotOwner
		}
	}
	return nil
}

// Save recomputes totals of an editable timesheet.
func (t *Timesheet) Save() error {
	if !t.Editable() {
		return ErrNotEditable
	}
	t.WeekStart = StartOfWeek(t.WeekStart)
	t.WeekEnd = EndOfWeek(t.WeekStart)
	t.Recalculate()
	return nil
}

// Submit moves not-submitted to submitted and stamps the submission time.
func (t *Timesheet) Submit(now time.Time) error {
	if !CanTransition(t.Status, StatusSubmitted) {
		return ErrInvalidTransition
	}
	t.Recalculate()
	t.Status = StatusSubmitted
	submitted := now
	t.SubmittedDate = &submitted
	return nil
}

// Approve moves submitted to approved. The comment is optional.
func (t *Timesheet) Approve(comment string) error {
	if !CanTransition(t.Status, StatusApproved) {
		return ErrInvalidTransition
	}
	t.Status = StatusApproved
	t.AdminComments = comment
	return nil
}

// Reject moves submitted to rejected. A blank comment is a validation error and
// leaves the status untouched.
func (t *Timesheet) Reject(comment string) error {
	if validator.IsEmpty(comment) {
		return validator.ValidationErrors{{Field: "comments", Message: RejectCommentMessage}}
	}
	if !CanTransition(t.Status, StatusRejected) {
		return ErrInvalidTransition
	}
	t.Status = StatusRejected
	t.AdminComments = comment
	return nil
}

// Clear zeroes every hour of an editable timesheet.
func (t *Timesheet) Clear() error {
	if !t.Editable() {
		return ErrNotEditable
	}
	for i := range t.Entries {
		t.Entries[i].Hours = WeekHours{}
	}
	t.Recalculate()
	return nil
}

// AddEntry appends a zero-hour row.
func (t *Timesheet) AddEntry(typ EntryType, name string) error {
	if !t.Editable() {
		return ErrNotEditable
	}
	if !typ.Valid() {
		return ErrInvalidEntryType
	}
	if validator.IsEmpty(name) {
		return validator.ValidationErrors{{Field: "name", Message: "name is required"}}
	}
	t.Entries = append(t.Entries, TimeEntry{Type: typ, Name: name})
	return nil
}

// RenameEntry changes the label and comment of a row.
func (t *Timesheet) RenameEntry(row int, name, comment string) error {
	if !t.Editable() {
		return ErrNotEditable
	}
	if row < 0 || row >= len(t.Entries) {
		return ErrEntryNotFound
	}
	if validator.IsEmpty(name) {
		return validator.ValidationErrors{{Field: "name", Message: "name is required"}}
	}
	t.Entries[row].Name = name
	t.Entries[row].Comment = comment
	return nil
}

// RemoveEntry drops a row.
func (t *Timesheet) RemoveEntry(row int) error {
	if !t.Editable() {
		return ErrNotEditable
	}
	if row < 0 || row >= len(t.Entries) {
		return ErrEntryNotFound
	}
	t.Entries = append(t.Entries[:row], t.Entries[row+1:]...)
	t.Recalculate()
	return nil
}
