package timesheet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/sse"
)

// RemindPending mails every employee who still has not-submitted weeks before
// the current one and returns how many were reminded.
func (s *TimesheetServiceImpl) RemindPending(ctx context.Context) (int, error) {
	list, err := s.repo.List(ctx, timesheet.Filter{Status: timesheet.StatusNotSubmitted})
	if err != nil {
		return 0, fmt.Errorf("failed to list not-submitted timesheets: %w", err)
	}

	byEmployee := make(map[string][]timesheet.Timesheet)
	var order []string
	for _, t := range list {
		if _, seen := byEmployee[t.EmployeeID]; !seen {
			order = append(order, t.EmployeeID)
		}
		byEmployee[t.EmployeeID] = append(byEmployee[t.EmployeeID], t)
	}

	now := s.now()
	reminded := 0
	for _, employeeID := range order {
		owned := byEmployee[employeeID]
		owner := timesheet.Actor{EmployeeID: employeeID, EmployeeName: owned[0].EmployeeName}
		resp := timesheet.NewPendingResponse(timesheet.PendingWeeks(owned, owner, now))
		if resp.Count == 0 {
			continue
		}

		s.events.Publish(employeeID, sse.Event{UserID: employeeID, Event: sse.EventPendingReminder, Data: resp})

		u, err := s.users.GetByID(ctx, employeeID)
		if err != nil {
			slog.Error("failed to load employee for pending reminder", "employee_id", employeeID, "error", err)
			continue
		}
		err = s.mail.SendPendingReminder(u.Email, email.PendingReminderEmail{
			EmployeeName: u.Name,
			Weeks:        resp.Weeks,
			Link:         s.frontendURL,
		})
		if err != nil {
			slog.Error("failed to send pending reminder", "employee_id", employeeID, "error", err)
			continue
		}
		reminded++
	}
	return reminded, nil
}
