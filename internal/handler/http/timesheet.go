package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/response"
)

type TimesheetHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Week(w http.ResponseWriter, r *http.Request)
	Pending(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Submit(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
	Clear(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
}

type timesheetHandlerImpl struct {
	timesheetService timesheet.Service
}

func NewTimesheetHandler(timesheetService timesheet.Service) TimesheetHandler {
	return &timesheetHandlerImpl{timesheetService: timesheetService}
}

// List implements TimesheetHandler.
func (h *timesheetHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	q := r.URL.Query()
	filter := timesheet.ListFilter{
		EmployeeName: q.Get("employeeName"),
		Status:       q.Get("status"),
		From:         q.Get("from"),
		To:           q.Get("to"),
	}

	list, err := h.timesheetService.List(r.Context(), actor, filter)
	if err != nil {
		slog.Error("List timesheets error", "error", err)
		response.HandleError(w, err)
		return
	}
	response.List(w, list)
}

// Get implements TimesheetHandler.
func (h *timesheetHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	ts, err := h.timesheetService.Get(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, ts)
}

// Week implements TimesheetHandler.
func (h *timesheetHandlerImpl) Week(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	week, err := h.timesheetService.Week(r.Context(), actor, r.URL.Query().Get("date"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, week)
}

// Pending implements TimesheetHandler.
func (h *timesheetHandlerImpl) Pending(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	pending, err := h.timesheetService.Pending(r.Context(), actor, r.URL.Query().Get("weekStart"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, pending)
}

// Create implements TimesheetHandler.
func (h *timesheetHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req timesheet.TimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Create timesheet decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	created, err := h.timesheetService.Create(r.Context(), actor, req)
	if err != nil {
		slog.Error("Create timesheet service error", "error", err, "employee_id", actor.EmployeeID)
		response.HandleError(w, err)
		return
	}

	slog.Info("Timesheet created", "id", created.ID, "week_start", created.WeekStart)
	response.Created(w, "Timesheet saved", created)
}

// Update implements TimesheetHandler.
func (h *timesheetHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req timesheet.TimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Update timesheet decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	updated, err := h.timesheetService.Update(r.Context(), actor, id, req)
	if err != nil {
		slog.Error("Update timesheet service error", "error", err, "id", id)
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Timesheet saved", updated)
}

// Submit implements TimesheetHandler.
func (h *timesheetHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	submitted, err := h.timesheetService.Submit(r.Context(), actor, id)
	if err != nil {
		slog.Error("Submit timesheet service error", "error", err, "id", id)
		response.HandleError(w, err)
		return
	}

	slog.Info("Timesheet submitted", "id", id, "employee_id", actor.EmployeeID)
	response.SuccessWithMessage(w, "Timesheet submitted", submitted)
}

// UpdateStatus implements TimesheetHandler.
func (h *timesheetHandlerImpl) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req timesheet.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("UpdateStatus decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	decided, err := h.timesheetService.UpdateStatus(r.Context(), actor, id, req)
	if err != nil {
		slog.Error("UpdateStatus service error", "error", err, "id", id)
		response.HandleError(w, err)
		return
	}

	slog.Info("Timesheet status changed", "id", id, "status", decided.Status, "admin_id", actor.EmployeeID)
	response.SuccessWithMessage(w, fmt.Sprintf("Timesheet %s", decided.Status), decided)
}

// Clear implements TimesheetHandler.
func (h *timesheetHandlerImpl) Clear(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req timesheet.ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	cleared, err := h.timesheetService.Clear(r.Context(), actor, id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Timesheet cleared", cleared)
}

// Delete implements TimesheetHandler.
func (h *timesheetHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.timesheetService.Delete(r.Context(), actor, id); err != nil {
		slog.Error("Delete timesheet service error", "error", err, "id", id)
		response.HandleError(w, err)
		return
	}

	slog.Info("Timesheet deleted", "id", id, "actor_id", actor.EmployeeID)
	response.SuccessWithMessage(w, "Timesheet deleted", nil)
}

// Export implements TimesheetHandler.
func (h *timesheetHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	q := r.URL.Query()
	req := timesheet.ExportRequest{Month: q.Get("month"), EmployeeName: q.Get("employeeName")}

	// Buffered so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.timesheetService.Export(r.Context(), actor, req, &buf); err != nil {
		slog.Error("Export timesheets error", "error", err)
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="timesheets-%s.csv"`, req.Month))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *timesheetHandlerImpl) target(w http.ResponseWriter, r *http.Request) (timesheet.Actor, int64, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		response.HandleError(w, err)
		return timesheet.Actor{}, 0, false
	}
	id, err := timesheetID(r)
	if err != nil {
		response.HandleError(w, err)
		return timesheet.Actor{}, 0, false
	}
	return actor, id, true
}
