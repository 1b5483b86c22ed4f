// Package notify fans scoring events out to connected observers.
package notify

import (
	"sync"

	"quizarena-service/internal/domain"
)

// Hub is an in-process broadcast channel for leaderboard-update events.
// Delivery is at-most-once and best-effort: observers that connect after an
// event never receive it, and publishing with no observers is a no-op.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan domain.ScoreEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan domain.ScoreEvent]struct{})}
}

// Subscribe registers an observer. The caller must invoke the returned cancel
// function to avoid leaks.
func (h *Hub) Subscribe() (<-chan domain.ScoreEvent, func()) {
	ch := make(chan domain.ScoreEvent, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish broadcasts one event to every current observer. Slow observers get
// their oldest pending event dropped rather than blocking the score path.
func (h *Hub) Publish(event domain.ScoreEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// SubscriberCount reports how many observers are currently connected.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
