package strategy

import "github.com/ducminhle1904/regime-backtester/internal/regime"

// ring is a fixed-capacity FIFO buffer that overwrites its oldest entry
type ring[T any] struct {
	buf  []T
	head int // next write position
	size int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// at returns the i-th newest entry, 0 being the most recent
func (r *ring[T]) at(i int) T {
	idx := (r.head - 1 - i + 2*len(r.buf)) % len(r.buf)
	return r.buf[idx]
}

func (r *ring[T]) values() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[r.size-1-i] = r.at(i)
	}
	return out
}

func (r *ring[T]) clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.size = 0, 0
}

// RegimeHistory is the run-owned regime persistence buffer. A new
// classification becomes the persisted regime only after it was detected
// persistence times in a row; single-candle flips are ignored.
type RegimeHistory struct {
	classifications *ring[regime.RegimeType]
	changes         *ring[bool]
	persistence     int
	persisted       regime.RegimeType
}

// NewRegimeHistory creates a history holding capacity classifications and
// tracking persisted-regime changes over the last whipsawPeriods updates
func NewRegimeHistory(capacity, persistence, whipsawPeriods int) *RegimeHistory {
	if persistence > capacity {
		capacity = persistence
	}
	return &RegimeHistory{
		classifications: newRing[regime.RegimeType](capacity),
		changes:         newRing[bool](whipsawPeriods),
		persistence:     persistence,
		persisted:       regime.RegimeNeutral,
	}
}

// Update records a detection and returns the persisted regime and whether
// this detection switched it
func (h *RegimeHistory) Update(r regime.RegimeType) (regime.RegimeType, bool) {
	h.classifications.push(r)

	changed := false
	if r != h.persisted && h.streak() >= h.persistence {
		h.persisted = r
		changed = true
	}
	h.changes.push(changed)
	return h.persisted, changed
}

// streak counts how many of the newest classifications equal the newest one
func (h *RegimeHistory) streak() int {
	if h.classifications.size == 0 {
		return 0
	}
	newest := h.classifications.at(0)
	n := 0
	for i := 0; i < h.classifications.size; i++ {
		if h.classifications.at(i) != newest {
			break
		}
		n++
	}
	return n
}

// Persisted returns the current persisted regime
func (h *RegimeHistory) Persisted() regime.RegimeType {
	return h.persisted
}

// RecentChanges counts persisted-regime switches in the whipsaw window
func (h *RegimeHistory) RecentChanges() int {
	n := 0
	for i := 0; i < h.changes.size; i++ {
		if h.changes.at(i) {
			n++
		}
	}
	return n
}

// Classifications returns the buffered detections, oldest first
func (h *RegimeHistory) Classifications() []regime.RegimeType {
	return h.classifications.values()
}

// Len returns the number of buffered detections
func (h *RegimeHistory) Len() int {
	return h.classifications.size
}

// Reset empties the history
func (h *RegimeHistory) Reset() {
	h.classifications.clear()
	h.changes.clear()
	h.persisted = regime.RegimeNeutral
}
