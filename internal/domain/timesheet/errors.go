package timesheet

import "errors"

var (
	ErrTimesheetNotFound    = errors.New("Timesheet not found")
	ErrAlreadyEntered       = errors.New("You already entered the data for this week")
	ErrNotOwner             = errors.New("Timesheet belongs to another employee")
	ErrAdminRequired        = errors.New("Administrator privilege required")
	ErrInvalidTransition    = errors.New("Timesheet status does not allow this action")
	ErrNotEditable          = errors.New("Timesheet can no longer be edited")
	ErrFutureWeek           = errors.New("Cannot navigate beyond the current week")
	ErrPendingTimesheets    = errors.New("Pending timesheets must be submitted first")
	ErrEntryNotFound        = errors.New("Timesheet entry not found")
	ErrConfirmationRequired = errors.New("Clearing entries requires confirmation")
	ErrInvalidDay           = errors.New("invalid day")
	ErrInvalidEntryType     = errors.New("invalid entry type")
)
