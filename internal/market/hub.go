package market

import (
	"sync"

	"github.com/terra-clan/procure-sim/internal/models"
)

// Hub fans out market snapshots to in-process subscribers, primarily the
// websocket stream handler. Slow subscribers drop updates instead of
// blocking the ticker.
type Hub struct {
	mu   sync.Mutex
	subs map[chan *models.MarketData]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan *models.MarketData]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan *models.MarketData, func()) {
	ch := make(chan *models.MarketData, 16)

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

// Publish delivers a snapshot to every subscriber with room in its buffer.
func (h *Hub) Publish(data *models.MarketData) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- data:
		default:
		}
	}
}
