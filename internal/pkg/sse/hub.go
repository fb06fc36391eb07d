package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/metrics"
)

// AdminChannel is the subscription key every admin stream also listens on.
const AdminChannel = "role:admin"

const (
	EventTimesheetSubmitted = "timesheet.submitted"
	EventTimesheetApproved  = "timesheet.approved"
	EventTimesheetRejected  = "timesheet.rejected"
	EventPendingReminder    = "timesheet.pending_reminder"
)

// Event represents an SSE event to be sent to subscribers
type Event struct {
	UserID string      `json:"-"`
	Event  string      `json:"event"`
	Data   interface{} `json:"data"`
}

// Encode renders the event as a text/event-stream frame.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.Event, err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", e.Event, data)
	return buf.Bytes(), nil
}

// Publisher is the part of the hub services depend on.
type Publisher interface {
	Publish(key string, event Event)
}

// Hub manages SSE subscribers and event broadcasting
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	// channels maps every open stream to the keys it listens on
	channels map[chan Event][]string
	closed   bool
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		channels:    make(map[chan Event][]string),
	}
}

// Subscribe registers one channel under every key and returns it with its cleanup function.
// After Close the returned channel is already closed.
func (h *Hub) Subscribe(keys ...string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	for _, key := range keys {
		if h.subscribers[key] == nil {
			h.subscribers[key] = make(map[chan Event]struct{})
		}
		h.subscribers[key][ch] = struct{}{}
	}
	h.channels[ch] = keys
	metrics.SetSSESubscribers(len(h.channels))

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.remove(ch)
	}
	return ch, cleanup
}

// remove closes ch and forgets it. Callers hold mu; removing twice is a no-op.
func (h *Hub) remove(ch chan Event) {
	keys, ok := h.channels[ch]
	if !ok {
		return
	}
	for _, key := range keys {
		delete(h.subscribers[key], ch)
		if len(h.subscribers[key]) == 0 {
			delete(h.subscribers, key)
		}
	}
	delete(h.channels, ch)
	close(ch)
	metrics.SetSSESubscribers(len(h.channels))
}

// Close ends every open stream and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.channels {
		h.remove(ch)
	}
}

// Publish sends an event to all subscribers of a key without blocking
func (h *Hub) Publish(key string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[key] {
		select {
		case ch <- event:
		default:
			// Slow subscriber, drop
		}
	}
}

// SubscriberCount returns the number of active subscribers for a key
func (h *Hub) SubscriberCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[key])
}

// TotalSubscribers returns the number of open streams
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}
