package timesheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
)

var exportHeader = []string{
	"Employee", "Week Start", "Week End", "Status", "Type", "Name",
	"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun",
	"Row Total", "Week Total", "Submitted Date", "Comments", "Admin Comments",
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// Export implements timesheet.Service. One CSV row per entry of every week
// starting inside the month, ordered by employee then week.
func (s *TimesheetServiceImpl) Export(ctx context.Context, actor timesheet.Actor, req timesheet.ExportRequest, w io.Writer) error {
	if !actor.Admin {
		return timesheet.ErrAdminRequired
	}
	if err := req.Validate(); err != nil {
		return err
	}
	first, last := req.Range()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	list, err := s.repo.List(ctx, timesheet.Filter{
		EmployeeName: strings.TrimSpace(req.EmployeeName),
		From:         &first,
		To:           &last,
	})
	if err != nil {
		return fmt.Errorf("failed to list timesheets for export: %w", err)
	}

	inMonth := list[:0]
	for _, t := range list {
		if !t.WeekStart.Before(first) && !t.WeekStart.After(last) {
			inMonth = append(inMonth, t)
		}
	}
	sort.SliceStable(inMonth, func(i, j int) bool {
		a, b := strings.ToLower(inMonth[i].EmployeeName), strings.ToLower(inMonth[j].EmployeeName)
		if a != b {
			return a < b
		}
		return inMonth[i].WeekStart.Before(inMonth[j].WeekStart)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, t := range inMonth {
		submitted := ""
		if t.SubmittedDate != nil {
			submitted = t.SubmittedDate.UTC().Format(time.RFC3339)
		}
		for _, e := range t.Entries {
			row := []string{
				t.EmployeeName,
				t.WeekStart.Format(timesheet.DateLayout),
				t.WeekEnd.Format(timesheet.DateLayout),
				string(t.Status),
				string(e.Type),
				e.Name,
			}
			for _, d := range timesheet.Days {
				row = append(row, formatHours(e.Hours.Get(d)))
			}
			row = append(row,
				formatHours(timesheet.RowTotal(e)),
				formatHours(t.TotalHours),
				submitted,
				t.Comments,
				t.AdminComments,
			)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
