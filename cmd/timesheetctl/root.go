package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/client"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/spf13/cobra"
)

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "timesheetctl",
		Short:         "Fill in, submit and approve weekly timesheets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&app.Server, "server", app.Server, "API base URL (env TIMESHEET_SERVER)")
	root.PersistentFlags().StringVar(&app.Token, "token", app.Token, "Access token, overrides the stored login (env TIMESHEET_TOKEN)")
	root.PersistentFlags().DurationVar(&app.Timeout, "timeout", app.Timeout, "Timeout of each API call")

	root.AddCommand(
		newLoginCmd(app),
		newWeekCmd(app),
		newSetCmd(app),
		newAddEntryCmd(app),
		newSubmitCmd(app),
		newClearCmd(app),
		newPendingCmd(app),
		newListCmd(app),
		newApproveCmd(app),
		newRejectCmd(app),
		newExportCmd(app),
	)
	return root
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("TIMESHEET_PASSWORD")
			}
			creds := Credentials{Server: app.serverURL(Credentials{})}
			c := client.New(creds.Server, client.WithTimeout(app.Timeout))

			tok, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			creds.Token = tok.AccessToken
			creds.User = tok.User
			if err := app.saveCredentials(creds); err != nil {
				return err
			}
			app.printf("Logged in as %s (%s)\n", tok.User.Name, tok.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (env TIMESHEET_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newWeekCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show the timesheet of a week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context(), date)
			if err != nil {
				return err
			}
			printWeek(app, s.Current(), s.Disabled())
			if p := s.Pending(); p.Count > 0 {
				app.printf("\n%s\n", p.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Any day of the week, YYYY-MM-DD (default today)")
	return cmd
}

func newSetCmd(app *App) *cobra.Command {
	var date, dayName string
	var row int
	var hours float64

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the hours of one cell and save the week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := timesheet.ParseDay(dayName)
			if err != nil {
				return err
			}
			s, err := app.session(cmd.Context(), date)
			if err != nil {
				return err
			}
			if err := s.SetHours(row, day, hours); err != nil {
				return err
			}
			saved, err := s.Save(cmd.Context())
			if err != nil {
				return err
			}
			app.printf("Saved week %s, total %.1fh\n", saved.WeekStart.Format(timesheet.DateLayout), saved.TotalHours)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Any day of the week, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&row, "row", 0, "Entry row, as shown by `week`")
	cmd.Flags().StringVar(&dayName, "day", "", "Weekday: mon..sun")
	cmd.Flags().Float64Var(&hours, "hours", 0, "Hours for the cell")
	_ = cmd.MarkFlagRequired("day")
	return cmd
}

func newAddEntryCmd(app *App) *cobra.Command {
	var date, typeName, name string

	cmd := &cobra.Command{
		Use:   "add-entry",
		Short: "Add a row to the week and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := timesheet.ParseEntryType(typeName)
			if err != nil {
				return err
			}
			s, err := app.session(cmd.Context(), date)
			if err != nil {
				return err
			}
			if err := s.AddEntry(typ, name); err != nil {
				return err
			}
			if _, err := s.Save(cmd.Context()); err != nil {
				return err
			}
			printWeek(app, s.Current(), s.Disabled())
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Any day of the week, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&typeName, "type", "project", "Entry type: project, leave, holiday")
	cmd.Flags().StringVar(&name, "name", "", "Row label")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSubmitCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Save and submit the week for approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context(), date)
			if err != nil {
				return err
			}
			submitted, err := s.Submit(cmd.Context())
			if err != nil {
				return err
			}
			app.printf("Submitted week %s (%.1fh)\n", submitted.WeekStart.Format(timesheet.DateLayout), submitted.TotalHours)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Any day of the week, YYYY-MM-DD (default today)")
	return cmd
}

func newClearCmd(app *App) *cobra.Command {
	var date string
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Zero every hour of the week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context(), date)
			if err != nil {
				return err
			}
			cleared, err := s.Clear(cmd.Context(), yes)
			if err != nil {
				return err
			}
			app.printf("Cleared week %s\n", cleared.WeekStart.Format(timesheet.DateLayout))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Any day of the week, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing all entries")
	return cmd
}

func newPendingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List weeks that still need submitting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context(), "")
			if err != nil {
				return err
			}
			p := s.Pending()
			if p.Count == 0 {
				app.printf("No pending timesheets.\n")
				return nil
			}
			app.printf("%s\n", p.Message)
			for _, w := range p.Weeks {
				app.printf("  %s\n", w)
			}
			return nil
		},
	}
}

func printWeek(app *App, t timesheet.Timesheet, disabled []timesheet.DayFlags) {
	app.printf("Week %s - %s  [%s]\n\n", t.WeekStart.Format(timesheet.DateLayout), t.WeekEnd.Format(timesheet.DateLayout), t.Status)

	tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	header := []string{"#", "TYPE", "NAME"}
	for _, d := range timesheet.Days {
		header = append(header, strings.ToUpper(d.String()))
	}
	fmt.Fprintln(tw, strings.Join(append(header, "TOTAL"), "\t"))

	for i, e := range t.Entries {
		cols := []string{strconv.Itoa(i), string(e.Type), e.Name}
		for _, d := range timesheet.Days {
			cell := formatHours(e.Hours.Get(d))
			if i < len(disabled) && disabled[i].Get(d) && e.Hours.Get(d) == 0 {
				cell = "--"
			}
			cols = append(cols, cell)
		}
		cols = append(cols, formatHours(timesheet.RowTotal(e)))
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}

	totals := t.DailyTotals()
	cols := []string{"", "", "Total"}
	for _, d := range timesheet.Days {
		cols = append(cols, formatHours(totals.Get(d)))
	}
	cols = append(cols, formatHours(timesheet.CalculateWeeklyTotal(totals)))
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	_ = tw.Flush()

	if t.AdminComments != "" {
		app.printf("\nAdmin comments: %s\n", t.AdminComments)
	}
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
