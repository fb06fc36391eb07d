package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// actorFromRequest builds the timesheet actor from the authenticated subject.
func actorFromRequest(r *http.Request) (timesheet.Actor, error) {
	sub, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		return timesheet.Actor{}, auth.ErrInvalidToken
	}
	return timesheet.Actor{
		EmployeeID:   sub.UserID,
		EmployeeName: sub.Name,
		Email:        sub.Email,
		Admin:        sub.Role == user.RoleAdmin,
	}, nil
}

func timesheetID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, validator.ValidationErrors{{Field: "id", Message: "id must be a positive integer"}}
	}
	return id, nil
}
