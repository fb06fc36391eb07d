package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_LoginStoresToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ana@example.com", req.Email)
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"access_token": "tok-1", "access_token_expires_in": 99},
		})
	})
	mux.HandleFunc("GET /api/timesheet-entries", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "submitted", r.URL.Query().Get("status"))
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    []map[string]interface{}{{"id": 3, "weekStart": "2024-06-03", "status": "submitted", "mon": 8}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	tok, err := c.Login(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)

	list, err := c.ListTimesheets(context.Background(), timesheet.ListFilter{Status: "submitted"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 8.0, list[0].Mon)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestClient_DecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"error":   map[string]interface{}{"code": "CONFLICT", "message": "You already entered the data for this week"},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).CreateTimesheet(context.Background(), timesheet.TimesheetRequest{WeekStart: "2024-06-03"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "CONFLICT", apiErr.Code)
	assert.ErrorIs(t, err, timesheet.ErrAlreadyEntered)
	assert.NotErrorIs(t, err, timesheet.ErrPendingTimesheets)
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   map[string]interface{}{"code": "NOT_FOUND", "message": "Timesheet not found"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	for i := 0; i < 8; i++ {
		_, err := c.GetTimesheet(context.Background(), 9)
		assert.ErrorIs(t, err, timesheet.ErrTimesheetNotFound)
	}
	assert.Equal(t, int32(8), calls.Load())
}

func TestClient_ServerErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   map[string]interface{}{"code": "INTERNAL_SERVER_ERROR", "message": "An unexpected error occurred"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.Submit(context.Background(), 1)
		require.Error(t, err)
	}

	_, err := c.Submit(context.Background(), 1)

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), calls.Load())
}

func TestClient_Export(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/timesheet-entries/export", r.URL.Path)
		assert.Equal(t, "2024-06", r.URL.Query().Get("month"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("Employee\nAna\n"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	require.NoError(t, New(srv.URL, WithToken("t")).Export(context.Background(), "2024-06", "", &buf))
	assert.Equal(t, "Employee\nAna\n", buf.String())
}

func TestClient_DeleteWithoutData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/timesheet-entries/4", r.URL.Path)
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Timesheet deleted"})
	}))
	defer srv.Close()

	assert.NoError(t, New(srv.URL).DeleteTimesheet(context.Background(), 4))
}
