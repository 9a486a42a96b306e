package recorder

import (
	"sync"
	"time"
)

// Summary describes one finished recording.
type Summary struct {
	OutputPath string        `json:"output_path"`
	Target     string        `json:"target"`
	Quality    string        `json:"quality"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    time.Time     `json:"ended_at"`
	Duration   time.Duration `json:"duration_ns"`
	Frames     uint64        `json:"frames"`
	Bytes      uint64        `json:"bytes"`
	Audio      bool          `json:"audio"`
}

// History keeps recent recording summaries in memory.
type History struct {
	mu      sync.RWMutex
	entries []Summary
	maxSize int
}

// NewHistory creates a history bounded to maxEntries.
func NewHistory(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = 20
	}
	return &History{
		entries: make([]Summary, 0, maxEntries),
		maxSize: maxEntries,
	}
}

// Add stores a summary, dropping the oldest beyond capacity.
func (h *History) Add(s Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, s)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Recent returns a copy of the stored summaries, newest first.
func (h *History) Recent() []Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Summary, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}
