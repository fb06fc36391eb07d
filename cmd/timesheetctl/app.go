package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/client"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/session"
)

var _ session.Store = (*client.Client)(nil)

var errNotLoggedIn = errors.New("not logged in, run `timesheetctl login` first")

// Credentials is what login leaves behind for the next invocation.
type Credentials struct {
	Server string            `json:"server"`
	Token  string            `json:"token"`
	User   user.UserResponse `json:"user"`
}

type App struct {
	Out       io.Writer
	Server    string
	Token     string
	CredsPath string
	Timeout   time.Duration
	now       func() time.Time
}

func NewApp(out io.Writer) *App {
	path := ""
	if dir, err := os.UserConfigDir(); err == nil {
		path = filepath.Join(dir, "timesheetctl", "credentials.json")
	}
	return &App{
		Out:       out,
		Server:    os.Getenv("TIMESHEET_SERVER"),
		Token:     os.Getenv("TIMESHEET_TOKEN"),
		CredsPath: path,
		Timeout:   10 * time.Second,
		now:       time.Now,
	}
}

const defaultServer = "http://localhost:8080"

// serverURL prefers the flag or environment, then the server used at login.
func (a *App) serverURL(creds Credentials) string {
	switch {
	case a.Server != "":
		return a.Server
	case creds.Server != "":
		return creds.Server
	}
	return defaultServer
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.Out, format, args...)
}

func (a *App) loadCredentials() (Credentials, error) {
	var creds Credentials
	if a.CredsPath == "" {
		return creds, errNotLoggedIn
	}
	raw, err := os.ReadFile(a.CredsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return creds, errNotLoggedIn
	}
	if err != nil {
		return creds, fmt.Errorf("read credentials: %w", err)
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return creds, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

func (a *App) saveCredentials(creds Credentials) error {
	if a.CredsPath == "" {
		return errors.New("no config directory for credentials")
	}
	if err := os.MkdirAll(filepath.Dir(a.CredsPath), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.CredsPath, raw, 0o600)
}

// client returns an API client for the stored login. An explicit token wins over the file.
func (a *App) client() (*client.Client, Credentials, error) {
	creds, err := a.loadCredentials()
	if a.Token != "" {
		creds.Token = a.Token
		err = nil
	}
	if err != nil {
		return nil, creds, err
	}
	return client.New(a.serverURL(creds), client.WithToken(creds.Token), client.WithTimeout(a.Timeout)), creds, nil
}

// session loads the roster for the logged-in user and moves to date (empty means today).
func (a *App) session(ctx context.Context, date string) (*session.Session, error) {
	c, creds, err := a.client()
	if err != nil {
		return nil, err
	}
	actor := timesheet.Actor{
		EmployeeID:   creds.User.ID,
		EmployeeName: creds.User.Name,
		Email:        creds.User.Email,
		Admin:        creds.User.Role == string(user.RoleAdmin),
	}
	s := session.New(c, actor, session.WithClock(a.now), session.WithTimeout(a.Timeout))
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	if date != "" {
		d, err := time.Parse(timesheet.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("date must be in YYYY-MM-DD format")
		}
		if err := s.SetWeek(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}
