// Package history provides the bounded in-memory cache of recent tick
// points. It is a deliberate volatile cache, distinct from the durable
// store, and is lost on restart.
package history

import "energy-flow-monitor-go/internal/models"

// Window is a fixed-capacity FIFO of tick points. Insertion order equals
// arrival order equals time order. Pushing beyond capacity evicts the
// oldest entry. It is not safe for concurrent use; the tick loop is its
// only writer and reader.
type Window struct {
	capacity int
	entries  []models.TickPoint
}

// NewWindow creates a window that retains at most capacity entries.
func NewWindow(capacity int) *Window {
	return &Window{
		capacity: capacity,
		entries:  make([]models.TickPoint, 0, capacity),
	}
}

// Push appends a point, evicting the oldest entry when full.
func (w *Window) Push(p models.TickPoint) {
	if len(w.entries) == w.capacity {
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:w.capacity-1]
	}
	w.entries = append(w.entries, p)
}

// Latest returns a copy of the k most recent points in chronological
// order. k larger than the current length returns everything.
func (w *Window) Latest(k int) []models.TickPoint {
	if k > len(w.entries) {
		k = len(w.entries)
	}
	out := make([]models.TickPoint, k)
	copy(out, w.entries[len(w.entries)-k:])
	return out
}

// Len returns the number of retained points.
func (w *Window) Len() int {
	return len(w.entries)
}
