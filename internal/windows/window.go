// Package windows implements the per-partition windowing state machine
// that decides when buffered writes are old enough to persist and which
// row-timestamp boundary to cut at. Windows track writes along three axes:
// wall-clock arrival time, row (event) timestamp, and per-sequencer
// position, and roll through three phases — open, closed, persistable —
// as they age.
package windows

import (
	"time"

	"github.com/driftdb/driftdb/internal/sequence"
)

// window is a contiguous group of writes bucketed by arrival time, with
// aggregate row-time and sequencer statistics. Zero value is not usable;
// construct with newWindow.
type window struct {
	// timeOfFirstWrite is the wall-clock instant this window was created.
	timeOfFirstWrite time.Time
	// timeOfLastWrite is the wall-clock instant of the most recent write
	// folded into this window.
	timeOfLastWrite time.Time

	// rowCount is the number of rows aggregated into this window. Always
	// > 0: a window is never created or merged into with zero rows.
	rowCount int

	// minTime, maxTime bound the row (event) timestamps contained.
	minTime time.Time
	maxTime time.Time

	// sequencerNumbers maps sequencer id to the min/max sequence number
	// observed for that sequencer within this window.
	sequencerNumbers map[uint32]sequence.MinMaxSequence
}

// newWindow creates a window seeded with a single add_range's worth of data.
func newWindow(arrivalTime time.Time, seq *sequence.Sequence, rowCount int, minTime, maxTime time.Time) *window {
	if rowCount <= 0 {
		panic("windows: newWindow called with rowCount <= 0") //nolint:forbidigo // intentional panic for precondition violation
	}
	if minTime.After(maxTime) {
		panic("windows: newWindow called with minTime > maxTime") //nolint:forbidigo // intentional panic for precondition violation
	}

	w := &window{
		timeOfFirstWrite: arrivalTime,
		timeOfLastWrite:  arrivalTime,
		rowCount:         rowCount,
		minTime:          minTime,
		maxTime:          maxTime,
		sequencerNumbers: make(map[uint32]sequence.MinMaxSequence),
	}
	if seq != nil {
		w.sequencerNumbers[seq.ID] = sequence.NewMinMaxSequence(seq.Number, seq.Number)
	}
	return w
}

// addRange folds one more batch of rows into the window. The caller
// guarantees arrivalTime >= w.timeOfLastWrite (PartitionWindows clamps this
// upstream via max(time_of_last_write, now())).
func (w *window) addRange(seq *sequence.Sequence, rowCount int, minTime, maxTime, arrivalTime time.Time) {
	if w.timeOfFirstWrite.After(arrivalTime) || w.timeOfLastWrite.After(arrivalTime) {
		panic("windows: addRange called with arrivalTime before window's last write") //nolint:forbidigo // intentional panic for precondition violation
	}
	w.timeOfLastWrite = arrivalTime

	newCount := w.rowCount + rowCount
	if newCount <= 0 {
		panic("windows: addRange resulted in non-positive row count") //nolint:forbidigo // intentional panic for precondition violation
	}
	w.rowCount = newCount

	if minTime.Before(w.minTime) {
		w.minTime = minTime
	}
	if maxTime.After(w.maxTime) {
		w.maxTime = maxTime
	}

	if seq != nil {
		if existing, ok := w.sequencerNumbers[seq.ID]; ok {
			if seq.Number <= existing.Max() {
				panic("windows: addRange sequence number did not increase for sequencer") //nolint:forbidigo // intentional panic for precondition violation
			}
			w.sequencerNumbers[seq.ID] = sequence.NewMinMaxSequence(existing.Min(), seq.Number)
		} else {
			w.sequencerNumbers[seq.ID] = sequence.NewMinMaxSequence(seq.Number, seq.Number)
		}
	}
}

// merge folds other into w, used to collapse a closed window into
// persistable. Requires w.timeOfLastWrite <= other.timeOfFirstWrite (and
// <= other.timeOfLastWrite, implied by window's own invariant).
func (w *window) merge(other *window) {
	if w.timeOfLastWrite.After(other.timeOfFirstWrite) {
		panic("windows: merge called with overlapping arrival-time ranges") //nolint:forbidigo // intentional panic for precondition violation
	}

	w.timeOfLastWrite = other.timeOfLastWrite

	newCount := w.rowCount + other.rowCount
	if newCount <= 0 {
		panic("windows: merge resulted in non-positive row count") //nolint:forbidigo // intentional panic for precondition violation
	}
	w.rowCount = newCount

	if other.minTime.Before(w.minTime) {
		w.minTime = other.minTime
	}
	if other.maxTime.After(w.maxTime) {
		w.maxTime = other.maxTime
	}

	for id, otherRange := range other.sequencerNumbers {
		if existing, ok := w.sequencerNumbers[id]; ok {
			if otherRange.Max() <= existing.Max() {
				panic("windows: merge sequence range did not increase for sequencer") //nolint:forbidigo // intentional panic for precondition violation
			}
			w.sequencerNumbers[id] = sequence.NewMinMaxSequence(existing.Min(), otherRange.Max())
		} else {
			w.sequencerNumbers[id] = otherRange
		}
	}
}

// checkedDurationSince returns now - t and true, or (0, false) if t is after
// now, so a clock regression relative to t is absorbed rather than
// producing a negative duration.
func checkedDurationSince(now, t time.Time) (time.Duration, bool) {
	if now.Before(t) {
		return 0, false
	}
	return now.Sub(t), true
}

// isCloseable reports whether this window has aged past closedWindowPeriod,
// as measured from its first write.
func (w *window) isCloseable(now time.Time, closedWindowPeriod time.Duration) bool {
	d, ok := checkedDurationSince(now, w.timeOfFirstWrite)
	return ok && d >= closedWindowPeriod
}

// isPersistable reports whether this window has aged past lateArrivalPeriod.
func (w *window) isPersistable(now time.Time, lateArrivalPeriod time.Duration) bool {
	d, ok := checkedDurationSince(now, w.timeOfFirstWrite)
	return ok && d >= lateArrivalPeriod
}

// clone returns a deep copy of w, with its own sequencerNumbers map. It has
// no callers in this module.
func (w *window) clone() *window {
	cp := *w
	cp.sequencerNumbers = make(map[uint32]sequence.MinMaxSequence, len(w.sequencerNumbers))
	for k, v := range w.sequencerNumbers {
		cp.sequencerNumbers[k] = v
	}
	return &cp
}
