package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessExp = "1h"
	testSecret    = "test-secret-key-for-jwt"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]user.User
}

func newMemoryUsers(users ...user.User) *memoryUsers {
	m := &memoryUsers{users: make(map[string]user.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryUsers) List(context.Context) ([]user.User, error) { return nil, nil }

func (m *memoryUsers) Create(_ context.Context, u user.User) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memoryUsers) LinkGoogleAccount(_ context.Context, googleID string, email string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email {
			provider := "google"
			u.OAuthProvider = &provider
			u.OAuthProviderID = &googleID
			m.users[id] = u
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (m *memoryUsers) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return user.ErrUserNotFound
	}
	u.PasswordHash = &passwordHash
	m.users[userID] = u
	return nil
}

func newTestUser(t *testing.T, id, email, password string) user.User {
	t.Helper()
	u := user.User{ID: id, Name: "Ana", Email: email, Role: user.RoleEmployee, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		hashed := string(hash)
		u.PasswordHash = &hashed
	}
	return u
}

func newTestService(t *testing.T, users ...user.User) (*AuthServiceImpl, *memoryUsers, *jwt.JWTService) {
	t.Helper()
	jwtService, err := jwt.NewJWTService(testSecret, testAccessExp)
	require.NoError(t, err)
	repo := newMemoryUsers(users...)
	return NewAuthService(repo, jwtService), repo, jwtService
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, jwtService := newTestService(t, newTestUser(t, "u-1", "ana@example.com", "password123"))

	t.Run("success", func(t *testing.T) {
		resp, err := svc.Login(ctx, auth.LoginRequest{Email: "ana@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Greater(t, resp.AccessTokenExpiresIn, time.Now().Unix())
		assert.Equal(t, "u-1", resp.User.ID)

		token, err := jwtService.JWTAuth().Decode(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u-1", token.PrivateClaims()["user_id"])
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginRequest{Email: "ana@example.com", Password: "nope"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginRequest{Email: "ben@example.com", Password: "password123"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestLogin_GoogleOnlyAccount(t *testing.T) {
	svc, _, _ := newTestService(t, newTestUser(t, "u-1", "ana@example.com", ""))

	_, err := svc.Login(context.Background(), auth.LoginRequest{Email: "ana@example.com", Password: "anything"})

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginWithGoogle(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, newTestUser(t, "u-1", "ana@example.com", "password123"))

	resp, err := svc.LoginWithGoogle(ctx, "Ana@Example.com", "google-123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	stored, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, stored.OAuthProviderID)
	assert.Equal(t, "google-123", *stored.OAuthProviderID)

	_, err = svc.LoginWithGoogle(ctx, "ben@example.com", "google-456")
	assert.ErrorIs(t, err, auth.ErrAccountNotRegistered)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, newTestUser(t, "u-1", "ana@example.com", "password123"))

	err := svc.ChangePassword(ctx, "u-1", auth.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpassword1"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, "u-1", auth.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "newpassword1"}))

	_, err = svc.Login(ctx, auth.LoginRequest{Email: "ana@example.com", Password: "password123"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, auth.LoginRequest{Email: "ana@example.com", Password: "newpassword1"})
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, "missing", auth.ChangePasswordRequest{CurrentPassword: "x", NewPassword: "newpassword1"})
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestGenerateSSEToken(t *testing.T) {
	svc, _, jwtService := newTestService(t, newTestUser(t, "u-1", "ana@example.com", "password123"))

	resp, err := svc.GenerateSSEToken(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), resp.ExpiresIn)

	sub, err := jwtService.ValidateSSEToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", sub.UserID)
	assert.Equal(t, user.RoleEmployee, sub.Role)
}
