package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/sse"
)

// Subscriber is the part of the hub the stream needs.
type Subscriber interface {
	Subscribe(keys ...string) (<-chan sse.Event, func())
}

type EventHandler interface {
	// Token issues a short-lived SSE token (EventSource cannot send headers).
	Token(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type eventHandlerImpl struct {
	authService auth.AuthService
	jwtService  jwt.Service
	hub         Subscriber
	keepalive   time.Duration
}

func NewEventHandler(authService auth.AuthService, jwtService jwt.Service, hub Subscriber) EventHandler {
	return &eventHandlerImpl{
		authService: authService,
		jwtService:  jwtService,
		hub:         hub,
		keepalive:   30 * time.Second,
	}
}

func (h *eventHandlerImpl) Token(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	token, err := h.authService.GenerateSSEToken(r.Context(), sub.UserID)
	if err != nil {
		slog.Error("Generate SSE token error", "error", err, "user_id", sub.UserID)
		response.HandleError(w, err)
		return
	}
	response.Success(w, token)
}

func (h *eventHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return
	}

	sub, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	keys := []string{sub.UserID}
	if sub.Role == user.RoleAdmin {
		keys = append(keys, sse.AdminChannel)
	}
	events, cleanup := h.hub.Subscribe(keys...)
	defer cleanup()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"user_id\":%q}\n\n", sub.UserID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			frame, err := event.Encode()
			if err != nil {
				slog.Error("Encode SSE event error", "error", err, "event", event.Event)
				continue
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
