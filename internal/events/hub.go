package events

import (
	"log/slog"
	"sync"
	"time"
)

// Event is one employment lifecycle notification.
type Event struct {
	Name    string    `json:"event"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Hub fans employment events out to websocket subscribers. Publishing
// never blocks: a subscriber that cannot keep up loses events rather
// than stalling the write path.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	logger *slog.Logger
}

const subscriberBuffer = 16

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   map[chan Event]struct{}{},
		logger: logger,
	}
}

// Publish broadcasts an event to all subscribers.
func (h *Hub) Publish(event string, payload any) {
	e := Event{Name: event, Payload: payload, At: time.Now().UTC()}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Debug("event dropped for slow subscriber", slog.String("event", event))
		}
	}
}

// Subscribe registers a new subscriber channel. Callers must call the
// returned cancel function when done.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
