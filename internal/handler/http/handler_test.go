package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTimesheets struct {
	actor  timesheet.Actor
	id     int64
	status timesheet.StatusRequest
	err    error
	resp   timesheet.TimesheetResponse
}

func (s *stubTimesheets) List(_ context.Context, actor timesheet.Actor, _ timesheet.ListFilter) ([]timesheet.TimesheetResponse, error) {
	s.actor = actor
	return []timesheet.TimesheetResponse{s.resp}, s.err
}

func (s *stubTimesheets) Get(_ context.Context, actor timesheet.Actor, id int64) (timesheet.TimesheetResponse, error) {
	s.actor, s.id = actor, id
	return s.resp, s.err
}

func (s *stubTimesheets) Week(_ context.Context, actor timesheet.Actor, _ string) (timesheet.WeekResponse, error) {
	s.actor = actor
	return timesheet.WeekResponse{Timesheet: s.resp}, s.err
}

func (s *stubTimesheets) Pending(_ context.Context, actor timesheet.Actor, _ string) (timesheet.PendingResponse, error) {
	s.actor = actor
	return timesheet.PendingResponse{Count: 2, Message: timesheet.PendingMessage(2)}, s.err
}

func (s *stubTimesheets) Create(_ context.Context, actor timesheet.Actor, _ timesheet.TimesheetRequest) (timesheet.TimesheetResponse, error) {
	s.actor = actor
	return s.resp, s.err
}

func (s *stubTimesheets) Update(_ context.Context, actor timesheet.Actor, id int64, _ timesheet.TimesheetRequest) (timesheet.TimesheetResponse, error) {
	s.actor, s.id = actor, id
	return s.resp, s.err
}

func (s *stubTimesheets) Submit(_ context.Context, actor timesheet.Actor, id int64) (timesheet.TimesheetResponse, error) {
	s.actor, s.id = actor, id
	return s.resp, s.err
}

func (s *stubTimesheets) UpdateStatus(_ context.Context, actor timesheet.Actor, id int64, req timesheet.StatusRequest) (timesheet.TimesheetResponse, error) {
	s.actor, s.id, s.status = actor, id, req
	return s.resp, s.err
}

func (s *stubTimesheets) Clear(_ context.Context, actor timesheet.Actor, id int64, req timesheet.ClearRequest) (timesheet.TimesheetResponse, error) {
	s.actor, s.id = actor, id
	if !req.Confirm {
		return timesheet.TimesheetResponse{}, timesheet.ErrConfirmationRequired
	}
	return s.resp, s.err
}

func (s *stubTimesheets) Delete(_ context.Context, actor timesheet.Actor, id int64) error {
	s.actor, s.id = actor, id
	return s.err
}

func (s *stubTimesheets) Export(_ context.Context, actor timesheet.Actor, _ timesheet.ExportRequest, w io.Writer) error {
	s.actor = actor
	if s.err != nil {
		return s.err
	}
	_, err := io.WriteString(w, "Employee,Week Start\nAna,2024-06-03\n")
	return err
}

type stubAuth struct {
	jwt jwt.Service
}

func (s *stubAuth) Login(_ context.Context, req auth.LoginRequest) (auth.TokenResponse, error) {
	if req.Password != "secret123" {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	token, exp, err := s.jwt.GenerateAccessToken(jwt.Subject{UserID: "emp-1", Email: req.Email, Role: user.RoleEmployee})
	return auth.TokenResponse{AccessToken: token, AccessTokenExpiresIn: exp, User: user.UserResponse{ID: "emp-1"}}, err
}

func (s *stubAuth) LoginWithGoogle(context.Context, string, string) (auth.TokenResponse, error) {
	return auth.TokenResponse{}, auth.ErrAccountNotRegistered
}

func (s *stubAuth) ChangePassword(context.Context, string, auth.ChangePasswordRequest) error {
	return nil
}

func (s *stubAuth) GenerateSSEToken(_ context.Context, userID string) (auth.SSETokenResponse, error) {
	role := user.RoleEmployee
	if strings.HasPrefix(userID, "adm") {
		role = user.RoleAdmin
	}
	token, exp, err := s.jwt.GenerateSSEToken(jwt.Subject{UserID: userID, Role: role})
	return auth.SSETokenResponse{Token: token, ExpiresIn: int64(exp)}, err
}

type stubUsers struct{}

func (stubUsers) List(context.Context) ([]user.UserResponse, error) {
	return []user.UserResponse{{ID: "emp-1", Name: "Ana"}}, nil
}

func (stubUsers) Create(_ context.Context, req user.CreateUserRequest) (user.UserResponse, error) {
	return user.UserResponse{ID: "emp-9", Name: req.Name, Email: req.Email}, nil
}

type testServer struct {
	router     http.Handler
	jwt        *jwt.JWTService
	timesheets *stubTimesheets
	hub        *sse.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	jwtSvc, err := jwt.NewJWTService("handler-test-secret", "1h")
	require.NoError(t, err)

	ts := &stubTimesheets{resp: timesheet.TimesheetResponse{ID: 7, WeekStart: "2024-06-03", Status: timesheet.StatusNotSubmitted}}
	authSvc := &stubAuth{jwt: jwtSvc}
	hub := sse.NewHub()

	events := NewEventHandler(authSvc, jwtSvc, hub).(*eventHandlerImpl)
	events.keepalive = time.Hour

	router := NewRouter(RouterConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		jwtSvc,
		NewAuthHandler(authSvc, nil, "http://localhost:3000", false),
		NewUserHandler(stubUsers{}),
		NewTimesheetHandler(ts),
		events,
	)
	return &testServer{router: router, jwt: jwtSvc, timesheets: ts, hub: hub}
}

func (s *testServer) token(t *testing.T, sub jwt.Subject) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken(sub)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

var (
	employee = jwt.Subject{UserID: "emp-1", Name: "Ana", Email: "ana@example.com", Role: user.RoleEmployee}
	admin    = jwt.Subject{UserID: "adm-1", Name: "Root", Email: "root@example.com", Role: user.RoleAdmin}
)

func TestCreateTimesheet(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/timesheet-entries", s.token(t, employee), `{"weekStart":"2024-06-03","mon":8}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
	assert.Equal(t, timesheet.Actor{EmployeeID: "emp-1", EmployeeName: "Ana", Email: "ana@example.com"}, s.timesheets.actor)
}

func TestCreateTimesheet_AlreadyEntered(t *testing.T) {
	s := newTestServer(t)
	s.timesheets.err = timesheet.ErrAlreadyEntered

	rec := s.do(t, http.MethodPost, "/api/timesheet-entries", s.token(t, employee), `{"weekStart":"2024-06-03"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "You already entered the data for this week", resp.Error.Message)
}

func TestCreateTimesheet_BadJSON(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/timesheet-entries", s.token(t, employee), `{`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimesheetRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/timesheet-entries", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmit_PendingGuard(t *testing.T) {
	s := newTestServer(t)
	s.timesheets.err = &timesheet.PendingTimesheetsError{Count: 2}

	rec := s.do(t, http.MethodPost, "/api/timesheet-entries/7/submit", s.token(t, employee), "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int64(7), s.timesheets.id)
	assert.Equal(t, "You have 2 pending timesheets.", decodeResponse(t, rec).Error.Message)
}

func TestGet_InvalidID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/timesheet-entries/abc", s.token(t, employee), "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateStatus_AdminOnly(t *testing.T) {
	s := newTestServer(t)
	body := `{"status":"rejected","comments":"Missing Friday"}`

	rec := s.do(t, http.MethodPut, "/api/timesheet-entries/7/status", s.token(t, employee), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.timesheets.resp.Status = timesheet.StatusRejected
	rec = s.do(t, http.MethodPut, "/api/timesheet-entries/7/status", s.token(t, admin), body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.timesheets.actor.Admin)
	assert.Equal(t, "Missing Friday", s.timesheets.status.Comments)
	assert.Equal(t, "Timesheet rejected", decodeResponse(t, rec).Message)
}

func TestClear_RequiresConfirm(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/timesheet-entries/7/clear", s.token(t, employee), `{"confirm":false}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/timesheet-entries/7/clear", s.token(t, employee), `{"confirm":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDelete(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/api/timesheet-entries/7", s.token(t, employee), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), s.timesheets.id)
}

func TestWeekAndPending(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/timesheet-entries/week?date=2024-06-05", s.token(t, employee), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/timesheet-entries/pending", s.token(t, employee), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You have 2 pending timesheets.")
}

func TestExport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/timesheet-entries/export?month=2024-06", s.token(t, employee), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/timesheet-entries/export?month=2024-06", s.token(t, admin), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "timesheets-2024-06.csv")
	assert.Contains(t, rec.Body.String(), "Ana,2024-06-03")
}

func TestUsers_AdminOnly(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/users", s.token(t, employee), "").Code)

	rec := s.do(t, http.MethodGet, "/api/users", s.token(t, admin), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/users", s.token(t, admin), `{"name":"Ben","email":"ben@example.com","password":"password1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/users", s.token(t, admin), `{"name":"","email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"Ana@Example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"ana@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"","password":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGoogleLogin_NotConfigured(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/auth/oauth/google", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHeartbeatAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/", "", "").Code)

	rec := s.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "timesheet_http_requests_total")
}

func TestEventStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	rec := s.do(t, http.MethodPost, "/api/events/token", s.token(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data auth.SSETokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?token="+envelope.Data.Token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)
	_, _ = reader.ReadString('\n') // data
	_, _ = reader.ReadString('\n') // blank

	s.hub.Publish(sse.AdminChannel, sse.Event{Event: sse.EventTimesheetSubmitted, Data: map[string]int{"id": 7}})

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: "+sse.EventTimesheetSubmitted+"\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: {\"id\":7}\n", line)
}

func TestEventStream_EndsWhenHubCloses(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	rec := s.do(t, http.MethodPost, "/api/events/token", s.token(t, employee), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data auth.SSETokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?token="+envelope.Data.Token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	s.hub.Close()

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.NotContains(t, string(rest), "event:")
}

func TestEventStream_RejectsAccessToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/events?token="+s.token(t, employee), "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
