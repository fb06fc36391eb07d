// Package client talks to the timesheet REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/sony/gobreaker"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// StatusCode is the HTTP status the API answered with.
func (e *APIError) StatusCode() int {
	return e.Status
}

// Is lets callers match API conflicts against the domain sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case timesheet.ErrAlreadyEntered:
		return e.Status == http.StatusConflict && e.Message == timesheet.ErrAlreadyEntered.Error()
	case timesheet.ErrPendingTimesheets:
		return e.Status == http.StatusConflict && strings.HasPrefix(e.Message, "You have ")
	case timesheet.ErrTimesheetNotFound:
		return e.Status == http.StatusNotFound
	case auth.ErrInvalidToken:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds every call. Zero disables the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "timesheet-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// Client errors mean the API is healthy.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}
			return err == nil
		},
	})
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send performs the request through the breaker and returns the raw response on 2xx.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s %s: api unavailable: %w", method, path, err)
		}
		return nil, err
	}
	return out.(*http.Response), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func timesheetPath(id int64, suffix string) string {
	return "/api/timesheet-entries/" + strconv.FormatInt(id, 10) + suffix
}

// Login stores the returned access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (auth.TokenResponse, error) {
	var tok auth.TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, auth.LoginRequest{Email: email, Password: password}, &tok)
	if err != nil {
		return auth.TokenResponse{}, err
	}
	c.SetToken(tok.AccessToken)
	return tok, nil
}

func (c *Client) ListTimesheets(ctx context.Context, filter timesheet.ListFilter) ([]timesheet.TimesheetResponse, error) {
	q := url.Values{}
	for key, value := range map[string]string{
		"employeeName": filter.EmployeeName,
		"status":       filter.Status,
		"from":         filter.From,
		"to":           filter.To,
	} {
		if value != "" {
			q.Set(key, value)
		}
	}

	var list []timesheet.TimesheetResponse
	if err := c.do(ctx, http.MethodGet, "/api/timesheet-entries", q, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetTimesheet(ctx context.Context, id int64) (timesheet.TimesheetResponse, error) {
	var ts timesheet.TimesheetResponse
	err := c.do(ctx, http.MethodGet, timesheetPath(id, ""), nil, nil, &ts)
	return ts, err
}

func (c *Client) Week(ctx context.Context, date string) (timesheet.WeekResponse, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	var week timesheet.WeekResponse
	err := c.do(ctx, http.MethodGet, "/api/timesheet-entries/week", q, nil, &week)
	return week, err
}

func (c *Client) Pending(ctx context.Context, weekStart string) (timesheet.PendingResponse, error) {
	q := url.Values{}
	if weekStart != "" {
		q.Set("weekStart", weekStart)
	}
	var pending timesheet.PendingResponse
	err := c.do(ctx, http.MethodGet, "/api/timesheet-entries/pending", q, nil, &pending)
	return pending, err
}

func (c *Client) CreateTimesheet(ctx context.Context, req timesheet.TimesheetRequest) (timesheet.TimesheetResponse, error) {
	var ts timesheet.TimesheetResponse
	err := c.do(ctx, http.MethodPost, "/api/timesheet-entries", nil, req, &ts)
	return ts, err
}

func (c *Client) UpdateTimesheet(ctx context.Context, id int64, req timesheet.TimesheetRequest) (timesheet.TimesheetResponse, error) {
	var ts timesheet.TimesheetResponse
	err := c.do(ctx, http.MethodPut, timesheetPath(id, ""), nil, req, &ts)
	return ts, err
}

func (c *Client) Submit(ctx context.Context, id int64) (timesheet.TimesheetResponse, error) {
	var ts timesheet.TimesheetResponse
	err := c.do(ctx, http.MethodPost, timesheetPath(id, "/submit"), nil, nil, &ts)
	return ts, err
}

func (c *Client) UpdateStatus(ctx context.Context, id int64, req timesheet.StatusRequest) (timesheet.TimesheetResponse, error) {
	var ts timesheet.TimesheetResponse
	err := c.do(ctx, http.MethodPut, timesheetPath(id, "/status"), nil, req, &ts)
	return ts, err
}

func (c *Client) Clear(ctx context.Context, id int64, confirm bool) (timesheet.TimesheetResponse, error) {
	var ts timesheet.TimesheetResponse
	err := c.do(ctx, http.MethodPost, timesheetPath(id, "/clear"), nil, timesheet.ClearRequest{Confirm: confirm}, &ts)
	return ts, err
}

func (c *Client) DeleteTimesheet(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, timesheetPath(id, ""), nil, nil, nil)
}

// Export streams the CSV for month (YYYY-MM) into w.
func (c *Client) Export(ctx context.Context, month, employeeName string, w io.Writer) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	q := url.Values{"month": {month}}
	if employeeName != "" {
		q.Set("employeeName", employeeName)
	}
	resp, err := c.send(ctx, http.MethodGet, "/api/timesheet-entries/export", q, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	return nil
}

func (c *Client) ListUsers(ctx context.Context) ([]user.UserResponse, error) {
	var users []user.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}
