package audit

import (
	"context"
	"sync"

	"github.com/GoPolymarket/panelgate/internal/model"
)

// Hub broadcasts records to live subscribers. A subscriber that falls behind
// misses records rather than slowing the pipeline down.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan *model.AuditRecord]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[chan *model.AuditRecord]struct{}), buffer: buffer}
}

func (h *Hub) Append(_ context.Context, rec *model.AuditRecord) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- rec:
		default:
		}
	}
	return nil
}

// Subscribe returns a record channel and the function that releases it.
func (h *Hub) Subscribe() (<-chan *model.AuditRecord, func()) {
	ch := make(chan *model.AuditRecord, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
