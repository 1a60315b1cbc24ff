package server

import (
	"sync"

	slr "github.com/vivaneiona/genkit-slr"
)

// hub fans run snapshots out to SSE subscribers. Slow subscribers miss
// intermediate snapshots; the run loop never blocks on them. The terminal
// snapshot of a run always reaches every subscriber.
type hub struct {
	mu   sync.Mutex
	subs map[chan slr.Snapshot]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan slr.Snapshot]struct{})}
}

func (h *hub) subscribe() chan slr.Snapshot {
	ch := make(chan slr.Snapshot, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan slr.Snapshot) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// publish is registered as the extractor observer.
func (h *hub) publish(s slr.Snapshot) {
	terminal := s.State == slr.StateSucceeded || s.State == slr.StateFailed

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		if !terminal {
			continue
		}
		// make room by dropping the oldest pending snapshot; publish is the
		// only sender, so the retry cannot find the buffer full again
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
