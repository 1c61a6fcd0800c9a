// Package window provides a fixed-capacity rolling window of float64 values
// backed by a preallocated circular buffer. When the window is full, a push
// overwrites the oldest value — this is the only eviction rule. Values read
// out oldest-first.
package window

// Window is a bounded, oldest-first value history. Not safe for concurrent
// use; the indicator engine owns it from a single goroutine.
type Window struct {
	buf   []float64
	head  int // next write position
	count int // values currently held, <= cap(buf)
}

// New creates a window holding at most capacity values. capacity must be > 0.
func New(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value if the window is full.
func (w *Window) Push(v float64) {
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Len returns the number of values currently held.
func (w *Window) Len() int { return w.count }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Last returns the most recently pushed value. ok is false when empty.
func (w *Window) Last() (v float64, ok bool) {
	if w.count == 0 {
		return 0, false
	}
	idx := (w.head - 1 + len(w.buf)) % len(w.buf)
	return w.buf[idx], true
}

// Values returns the held values oldest-first as a fresh slice.
func (w *Window) Values() []float64 {
	out := make([]float64, w.count)
	start := (w.head - w.count + len(w.buf)) % len(w.buf)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(start+i)%len(w.buf)]
	}
	return out
}

// TailSum returns the sum of the newest n values. n must be <= Len().
func (w *Window) TailSum(n int) float64 {
	sum := 0.0
	for i := 0; i < n; i++ {
		idx := (w.head - 1 - i + 2*len(w.buf)) % len(w.buf)
		sum += w.buf[idx]
	}
	return sum
}

// Restore replaces the window contents with vals (oldest-first), keeping only
// the newest Cap() values if vals is longer.
func (w *Window) Restore(vals []float64) {
	w.head = 0
	w.count = 0
	start := 0
	if len(vals) > len(w.buf) {
		start = len(vals) - len(w.buf)
	}
	for _, v := range vals[start:] {
		w.Push(v)
	}
}
