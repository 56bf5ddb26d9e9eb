package streaming

import (
	"context"
	"slices"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity. A
// subscriber that falls this far behind starts losing events.
const subscriberBuffer = 64

// MemoryHub is the in-process EventHub. Delivery is fan-out over
// buffered channels; a full channel drops the event rather than
// stalling the publisher, so the run loop never blocks on a slow
// SSE client.
type MemoryHub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]memorySub
}

type memorySub struct {
	ch     chan StreamEvent
	filter EventFilter
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[uint64]memorySub)}
}

func (h *MemoryHub) Publish(ctx context.Context, event StreamEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.filter.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

func (h *MemoryHub) Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	ch := make(chan StreamEvent, subscriberBuffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = memorySub{ch: ch, filter: filter}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
	return ch, cancel, nil
}

// matches reports whether an event passes the filter. Empty fields
// match everything.
func (f EventFilter) matches(e StreamEvent) bool {
	if f.SessionID != "" && f.SessionID != e.SessionID {
		return false
	}
	if len(f.EventTypes) > 0 && !slices.Contains(f.EventTypes, e.EventType) {
		return false
	}
	return true
}
