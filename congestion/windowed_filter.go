package congestion

import "golang.org/x/exp/constraints"

// filterCapacity bounds the backing array of every windowed extremum filter
// used by BBR. It mirrors msquic's kBbrDefaultFilterCapacity: small and
// fixed, so a round of bandwidth or ack-aggregation sampling never
// allocates.
const filterCapacity = 16

type filterEntry[V constraints.Ordered] struct {
	value V
	time  uint64
}

// windowedExtremum is a fixed-capacity monotone deque over (value, time)
// pairs, tracking the running maximum (or minimum) of everything inserted
// within the last windowLen time units. Grounded on msquic's
// QUIC_SLIDING_WINDOW_EXTREMUM (src/core/bbr.c) and spec component C4; time
// here is always the BBR round-trip counter, never wall clock.
//
// It never allocates past construction: the backing array is sized once at
// filterCapacity and entries are evicted in place.
type windowedExtremum[V constraints.Ordered] struct {
	buf       [filterCapacity]filterEntry[V]
	start     int
	count     int
	windowLen uint64
	max       bool // true: track maximum, false: track minimum
}

func newWindowedMax[V constraints.Ordered](windowLen uint64) *windowedExtremum[V] {
	return &windowedExtremum[V]{windowLen: windowLen, max: true}
}

func newWindowedMin[V constraints.Ordered](windowLen uint64) *windowedExtremum[V] {
	return &windowedExtremum[V]{windowLen: windowLen, max: false}
}

// reset empties the filter.
func (w *windowedExtremum[V]) reset() {
	w.start = 0
	w.count = 0
}

func (w *windowedExtremum[V]) dominates(incumbent, candidate V) bool {
	if w.max {
		return incumbent <= candidate
	}
	return incumbent >= candidate
}

func (w *windowedExtremum[V]) backIndex() int {
	return (w.start + w.count - 1) % filterCapacity
}

func (w *windowedExtremum[V]) pushBack(e filterEntry[V]) {
	if w.count == filterCapacity {
		// Backing array is full (should only happen if windowLen vastly
		// exceeds filterCapacity insertions); drop the oldest to make room
		// rather than grow, preserving the fixed-capacity guarantee.
		w.start = (w.start + 1) % filterCapacity
		w.count--
	}
	idx := (w.start + w.count) % filterCapacity
	w.buf[idx] = e
	w.count++
}

// update inserts (value, time) and evicts everything outside the trailing
// window and everything the new value dominates.
func (w *windowedExtremum[V]) update(value V, time uint64) {
	for w.count > 0 {
		back := w.buf[w.backIndex()]
		if w.dominates(back.value, value) {
			w.count--
			continue
		}
		break
	}
	w.pushBack(filterEntry[V]{value: value, time: time})

	for w.count > 0 {
		front := w.buf[w.start]
		if time-front.time > w.windowLen {
			w.start = (w.start + 1) % filterCapacity
			w.count--
			continue
		}
		break
	}
}

// get returns the current extremum and its time, or ok=false if the filter
// is empty.
func (w *windowedExtremum[V]) get() (value V, time uint64, ok bool) {
	if w.count == 0 {
		return value, 0, false
	}
	e := w.buf[w.start]
	return e.value, e.time, true
}

// getValue returns the current extremum, or the zero value if empty.
func (w *windowedExtremum[V]) getValue() V {
	v, _, _ := w.get()
	return v
}
