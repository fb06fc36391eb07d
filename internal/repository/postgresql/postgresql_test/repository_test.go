package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, ctx context.Context, repo user.UserRepository, name, email string) user.User {
	t.Helper()
	hash := "$2a$10$abcdefghijklmnopqrstuv"
	u, err := repo.Create(ctx, user.User{Name: name, Email: email, PasswordHash: &hash, Role: user.RoleEmployee})
	require.NoError(t, err)
	return u
}

func TestUserRepository_MalformedIDIsNotFound(t *testing.T) {
	// the id is rejected before any query, so no database is needed
	repo := postgresql.NewUserRepository(nil)

	_, err := repo.GetByID(context.Background(), "emp-1")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), "not-a-uuid", "hash"), user.ErrUserNotFound)
}

func TestUserRepository(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewUserRepository(setup.DB)

	created := createTestUser(t, ctx, repo, "Ana", "ana@example.com")
	assert.NotEmpty(t, created.ID)

	_, err := repo.Create(ctx, user.User{Name: "Ana 2", Email: "ana@example.com", Role: user.RoleEmployee})
	assert.ErrorIs(t, err, user.ErrUserEmailExists)

	found, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	linked, err := repo.LinkGoogleAccount(ctx, "google-1", "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, linked.OAuthProviderID)
	assert.Equal(t, "google-1", *linked.OAuthProviderID)

	require.NoError(t, repo.UpdatePassword(ctx, created.ID, "new-hash"))
	exists, err := repo.ExistsByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTimesheetRepository_RoundTrip(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	users := postgresql.NewUserRepository(setup.DB)
	repo := postgresql.NewTimesheetRepository(setup.DB)

	owner := createTestUser(t, ctx, users, "Ana", "ana@example.com")
	ts := timesheet.NewTimesheet(timesheet.Actor{EmployeeID: owner.ID, EmployeeName: owner.Name}, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))
	ts.Entries[0].Hours = timesheet.WeekHours{Mon: 8, Tue: 7.5}
	ts.Entries[1].Hours = timesheet.WeekHours{Wed: 8}
	require.NoError(t, ts.Save())

	created, err := repo.Create(ctx, ts)
	require.NoError(t, err)
	assert.True(t, created.Persisted())
	assert.Equal(t, 23.5, created.TotalHours)
	assert.Equal(t, ts.Entries, created.Entries)
	assert.Equal(t, "2024-06-03", created.WeekStart.Format(timesheet.DateLayout))

	_, err = repo.Create(ctx, ts)
	assert.ErrorIs(t, err, timesheet.ErrAlreadyEntered)

	now := time.Date(2024, 6, 7, 17, 0, 0, 0, time.UTC)
	require.NoError(t, created.Submit(now))
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusSubmitted, updated.Status)
	require.NotNil(t, updated.SubmittedDate)
	assert.True(t, updated.SubmittedDate.Equal(now))

	byWeek, err := repo.GetByEmployeeWeek(ctx, owner.ID, created.WeekStart)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byWeek.ID)

	list, err := repo.List(ctx, timesheet.Filter{EmployeeName: "ANA", Status: timesheet.StatusSubmitted})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, timesheet.ErrTimesheetNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), timesheet.ErrTimesheetNotFound)
}

func TestTxManager_RollsBack(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	users := postgresql.NewUserRepository(setup.DB)
	tx := postgresql.NewTxManager(setup.DB)

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		createTestUser(t, ctx, users, "Ben", "ben@example.com")
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = users.GetByEmail(ctx, "ben@example.com")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
