package deploy

import "sync"

// Hub fans deploy output out to live subscribers, keyed by run id.
// Slow subscribers are skipped, never blocked on.
type Hub struct {
	mu      sync.RWMutex
	streams map[string][]chan string
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string][]chan string)}
}

// Subscribe returns a channel receiving the run's output lines.
func (h *Hub) Subscribe(runID string) chan string {
	ch := make(chan string, 100)

	h.mu.Lock()
	h.streams[runID] = append(h.streams[runID], ch)
	h.mu.Unlock()

	return ch
}

// Unsubscribe removes and closes a previously subscribed channel.
func (h *Hub) Unsubscribe(runID string, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channels := h.streams[runID]
	for i, c := range channels {
		if c == ch {
			h.streams[runID] = append(channels[:i], channels[i+1:]...)
			close(ch)
			break
		}
	}

	if len(h.streams[runID]) == 0 {
		delete(h.streams, runID)
	}
}

// BroadcastLine publishes one output line for a run.
func (h *Hub) BroadcastLine(runID, line string) {
	h.broadcast(runID, "output:"+line)
}

// BroadcastComplete publishes the run's terminal status.
func (h *Hub) BroadcastComplete(runID, status string) {
	h.broadcast(runID, "complete:"+status)
}

func (h *Hub) broadcast(runID, msg string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.streams[runID] {
		select {
		case ch <- msg:
		default:
		}
	}
}
