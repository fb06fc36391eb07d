package response

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var pending *timesheet.PendingTimesheetsError
	if errors.As(err, &pending) {
		weeks := make([]string, len(pending.Weeks))
		for i, week := range pending.Weeks {
			weeks[i] = week.Format(timesheet.DateLayout)
		}
		ConflictWithDetails(w, pending.Error(), map[string]string{"weeks": strings.Join(weeks, ",")})
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrAccountNotRegistered):
		Forbidden(w, err.Error())
	case errors.Is(err, auth.ErrPasswordNotSet):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")

	// User domain errors
	case errors.Is(err, user.ErrUserEmailExists):
		Conflict(w, err.Error())
	case errors.Is(err, user.ErrAdminPrivilegeRequired):
		Forbidden(w, err.Error())

	// Timesheet domain errors
	case errors.Is(err, timesheet.ErrTimesheetNotFound):
		NotFound(w, "Timesheet not found")
	case errors.Is(err, timesheet.ErrEntryNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, timesheet.ErrNotOwner), errors.Is(err, timesheet.ErrAdminRequired):
		Forbidden(w, err.Error())
	case errors.Is(err, timesheet.ErrAlreadyEntered):
		Conflict(w, timesheet.ErrAlreadyEntered.Error())
	case errors.Is(err, timesheet.ErrInvalidTransition), errors.Is(err, timesheet.ErrNotEditable):
		Conflict(w, err.Error())
	case errors.Is(err, timesheet.ErrFutureWeek), errors.Is(err, timesheet.ErrConfirmationRequired):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, timesheet.ErrInvalidDay), errors.Is(err, timesheet.ErrInvalidEntryType):
		BadRequest(w, err.Error(), nil)

	case errors.Is(err, context.DeadlineExceeded):
		GatewayTimeout(w, "The request timed out")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
