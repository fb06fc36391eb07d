package timesheet

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/sse"
)

func decisionEvent(status timesheet.Status) string {
	if status == timesheet.StatusRejected {
		return sse.EventTimesheetRejected
	}
	return sse.EventTimesheetApproved
}

// notifyDecision pushes the decision to the owner's streams and mails them.
// Mail failures are logged, the decision itself already committed.
func (s *TimesheetServiceImpl) notifyDecision(t timesheet.Timesheet, resp timesheet.TimesheetResponse) {
	s.events.Publish(t.EmployeeID, sse.Event{UserID: t.EmployeeID, Event: decisionEvent(t.Status), Data: resp})

	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		owner, err := s.users.GetByID(ctx, t.EmployeeID)
		if err != nil {
			slog.Error("failed to load timesheet owner for notification", "id", t.ID, "employee_id", t.EmployeeID, "error", err)
			return
		}

		err = s.mail.SendTimesheetDecision(owner.Email, email.DecisionEmail{
			EmployeeName:  owner.Name,
			WeekStart:     t.WeekStart.Format(timesheet.DateLayout),
			WeekEnd:       t.WeekEnd.Format(timesheet.DateLayout),
			Status:        string(t.Status),
			TotalHours:    t.TotalHours,
			AdminComments: t.AdminComments,
			Link:          s.frontendURL,
		})
		if err != nil {
			slog.Error("failed to send timesheet decision email", "id", t.ID, "to", owner.Email, "error", err)
		}
	})
}
