package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/spf13/cobra"
)

func newListCmd(app *App) *cobra.Command {
	var filter timesheet.ListFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List timesheets, newest week first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := filter.Validate(); err != nil {
				return err
			}
			c, _, err := app.client()
			if err != nil {
				return err
			}
			list, err := c.ListTimesheets(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				app.printf("No timesheets found.\n")
				return nil
			}

			tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMPLOYEE\tWEEK\tSTATUS\tHOURS\tSUBMITTED")
			for _, t := range list {
				submitted := ""
				if t.SubmittedDate != nil {
					submitted = *t.SubmittedDate
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.EmployeeName, t.WeekStart, t.Status, formatHours(t.TotalHours), submitted)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&filter.EmployeeName, "employee", "", "Employee name")
	cmd.Flags().StringVar(&filter.Status, "status", "", "not-submitted, submitted, approved or rejected")
	cmd.Flags().StringVar(&filter.From, "from", "", "Weeks ending on or after, YYYY-MM-DD")
	cmd.Flags().StringVar(&filter.To, "to", "", "Weeks starting on or before, YYYY-MM-DD")
	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid timesheet id %q", arg)
	}
	return id, nil
}

func newApproveCmd(app *App) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "approve ID",
		Short: "Approve a submitted timesheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := app.session(cmd.Context(), "")
			if err != nil {
				return err
			}
			t, err := s.Approve(cmd.Context(), id, comment)
			if err != nil {
				return err
			}
			app.printf("Timesheet %d of %s approved\n", t.ID, t.EmployeeName)
			return nil
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "Optional comment for the employee")
	return cmd
}

func newRejectCmd(app *App) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "reject ID",
		Short: "Reject a submitted timesheet with a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := app.session(cmd.Context(), "")
			if err != nil {
				return err
			}
			t, err := s.Reject(cmd.Context(), id, comment)
			if err != nil {
				return err
			}
			app.printf("Timesheet %d of %s rejected\n", t.ID, t.EmployeeName)
			return nil
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "Reason, shown to the employee")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var month, employee, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the monthly CSV export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := timesheet.ExportRequest{Month: month, EmployeeName: employee}
			if err := req.Validate(); err != nil {
				return err
			}
			c, _, err := app.client()
			if err != nil {
				return err
			}

			var w io.Writer = app.Out
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return c.Export(cmd.Context(), month, employee, w)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month to export, YYYY-MM")
	cmd.Flags().StringVar(&employee, "employee", "", "Only this employee")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to file instead of stdout")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}
