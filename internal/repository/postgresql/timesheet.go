package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const timesheetColumns = `id, employee_id, employee_name, week_start, week_end, status,
	total_hours, entries, submitted_date, comments, admin_comments, created_at, updated_at`

type timesheetRepositoryImpl struct {
	db *database.DB
}

func NewTimesheetRepository(db *database.DB) timesheet.TimesheetRepository {
	return &timesheetRepositoryImpl{db: db}
}

func scanTimesheet(row pgx.Row) (timesheet.Timesheet, error) {
	var t timesheet.Timesheet
	var entries []byte
	err := row.Scan(
		&t.ID,
		&t.EmployeeID,
		&t.EmployeeName,
		&t.WeekStart,
		&t.WeekEnd,
		&t.Status,
		&t.TotalHours,
		&entries,
		&t.SubmittedDate,
		&t.Comments,
		&t.AdminComments,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
	}
	if err != nil {
		return timesheet.Timesheet{}, err
	}
	if err := t.Entries.Scan(entries); err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("decode entries of timesheet %d: %w", t.ID, err)
	}
	return t, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return timesheet.ErrAlreadyEntered
	}
	return err
}

// flatArgs returns the persisted daily totals and the raw entries document.
func flatArgs(t timesheet.Timesheet) ([]interface{}, error) {
	raw, err := t.Entries.Value()
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	daily := t.DailyTotals()
	return []interface{}{
		daily.Mon, daily.Tue, daily.Wed, daily.Thu, daily.Fri, daily.Sat, daily.Sun,
		raw,
	}, nil
}

// Create implements timesheet.TimesheetRepository.
func (r *timesheetRepositoryImpl) Create(ctx context.Context, t timesheet.Timesheet) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	flat, err := flatArgs(t)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	query := `
		INSERT INTO timesheet_entries (
			employee_id, employee_name, week_start, week_end, status, total_hours,
			submitted_date, comments, admin_comments,
			mon, tue, wed, thu, fri, sat, sun, entries
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + timesheetColumns

	args := append([]interface{}{
		t.EmployeeID,
		t.EmployeeName,
		t.WeekStart,
		t.WeekEnd,
		t.Status,
		t.TotalHours,
		t.SubmittedDate,
		t.Comments,
		t.AdminComments,
	}, flat...)

	created, err := scanTimesheet(q.QueryRow(ctx, query, args...))
	if err != nil {
		return timesheet.Timesheet{}, mapWriteError(err)
	}
	return created, nil
}

// GetByID implements timesheet.TimesheetRepository.
func (r *timesheetRepositoryImpl) GetByID(ctx context.Context, id int64) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)
	return scanTimesheet(q.QueryRow(ctx, `SELECT `+timesheetColumns+` FROM timesheet_entries WHERE id = $1`, id))
}

// GetByIDForUpdate implements timesheet.TimesheetRepository.
func (r *timesheetRepositoryImpl) GetByIDForUpdate(ctx context.Context, id int64) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)
	return scanTimesheet(q.QueryRow(ctx, `SELECT `+timesheetColumns+` FROM timesheet_entries WHERE id = $1 FOR UPDATE`, id))
}

// GetByEmployeeWeek implements timesheet.TimesheetRepository.
func (r *timesheetRepositoryImpl) GetByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)
	return scanTimesheet(q.QueryRow(ctx,
		`SELECT `+timesheetColumns+` FROM timesheet_entries WHERE employee_id = $1 AND week_start = $2`,
		employeeID, weekStart,
	))
}

// List implements timesheet.TimesheetRepository. Results are newest week first.
func (r *timesheetRepositoryImpl) List(ctx context.Context, filter timesheet.Filter) ([]timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.EmployeeID != "" {
		add("employee_id = $%d", filter.EmployeeID)
	}
	if filter.EmployeeName != "" {
		add("lower(employee_name) = lower($%d)", filter.EmployeeName)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("week_end >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("week_start <= $%d", *filter.To)
	}

	query := `SELECT ` + timesheetColumns + ` FROM timesheet_entries`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY week_start DESC, employee_name ASC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]timesheet.Timesheet, 0)
	for rows.Next() {
		t, err := scanTimesheet(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Update implements timesheet.TimesheetRepository.
func (r *timesheetRepositoryImpl) Update(ctx context.Context, t timesheet.Timesheet) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	flat, err := flatArgs(t)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	query := `
		UPDATE timesheet_entries
		SET week_start = $2, week_end = $3, status = $4, total_hours = $5,
			submitted_date = $6, comments = $7, admin_comments = $8,
			mon = $9, tue = $10, wed = $11, thu = $12, fri = $13, sat = $14, sun = $15,
			entries = $16, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + timesheetColumns

	args := append([]interface{}{
		t.ID,
		t.WeekStart,
		t.WeekEnd,
		t.Status,
		t.TotalHours,
		t.SubmittedDate,
		t.Comments,
		t.AdminComments,
	}, flat...)

	updated, err := scanTimesheet(q.QueryRow(ctx, query, args...))
	if err != nil {
		return timesheet.Timesheet{}, mapWriteError(err)
	}
	return updated, nil
}

// Delete implements timesheet.TimesheetRepository.
func (r *timesheetRepositoryImpl) Delete(ctx context.Context, id int64) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM timesheet_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return timesheet.ErrTimesheetNotFound
	}
	return nil
}
