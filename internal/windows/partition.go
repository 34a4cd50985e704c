package windows

import (
	"time"

	"github.com/driftdb/driftdb/internal/checkpoint"
	"github.com/driftdb/driftdb/internal/clock"
	"github.com/driftdb/driftdb/internal/freeze"
	"github.com/driftdb/driftdb/internal/logging"
	"github.com/driftdb/driftdb/internal/metrics"
	"github.com/driftdb/driftdb/internal/sequence"
)

// defaultClosedWindow is the ceiling on closedWindowPeriod: 30s, regardless
// of how large lateArrivalPeriod is. When lateArrivalPeriod is itself
// smaller than 30s, closedWindowPeriod tracks it instead, which collapses
// the open and closed phases into one — useful for tests running on a
// fast mock clock.
const defaultClosedWindow = 30 * time.Second

// Options configures a new PartitionWindows.
type Options struct {
	// Database, Table, PartitionKey identify the partition this instance
	// tracks. They are opaque to PartitionWindows except for being
	// forwarded into PartitionCheckpoint values it produces.
	Database, Table, PartitionKey string

	// LateArrivalPeriod (L) is the minimum age, by arrival time, before a
	// window may be persisted.
	LateArrivalPeriod time.Duration

	// TimeProvider supplies wall-clock time. Defaults to clock.System{}.
	TimeProvider clock.Provider

	// Logger receives diagnostic messages. Defaults to logging.Discard.
	Logger logging.Logger

	// Metrics receives lifecycle events. Defaults to metrics.NoopRecorder.
	Metrics metrics.Recorder
}

// PartitionWindows tracks ingested data within a single partition to
// determine when it can be persisted, allowing out-of-order row timestamps
// while persisting mostly non-overlapping files.
//
// PartitionWindows is a single-partition, single-writer structure: all
// mutating methods require the caller to hold its own exclusive lock.
// No method here blocks or suspends.
type PartitionWindows struct {
	persistable *freeze.Freezable[*window]
	closed      []*window
	open        *window

	database, table, partitionKey string

	lateArrivalPeriod  time.Duration
	closedWindowPeriod time.Duration

	timeOfFirstWrite time.Time
	timeOfLastWrite  time.Time

	maxSequenceNumbers map[uint32]uint64

	timeProvider clock.Provider
	logger       logging.Logger
	metrics      metrics.Recorder
}

// New constructs a PartitionWindows per opts.
func New(opts Options) *PartitionWindows {
	if opts.LateArrivalPeriod <= 0 {
		panic("windows: LateArrivalPeriod must be positive") //nolint:forbidigo // intentional panic for precondition violation
	}
	timeProvider := opts.TimeProvider
	if timeProvider == nil {
		timeProvider = clock.System{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder
	}

	closedWindowPeriod := opts.LateArrivalPeriod
	if closedWindowPeriod > defaultClosedWindow {
		closedWindowPeriod = defaultClosedWindow
	}

	now := timeProvider.Now()
	return &PartitionWindows{
		persistable:        freeze.New[*window](nil),
		database:           opts.Database,
		table:              opts.Table,
		partitionKey:       opts.PartitionKey,
		lateArrivalPeriod:  opts.LateArrivalPeriod,
		closedWindowPeriod: closedWindowPeriod,
		timeOfFirstWrite:   now,
		timeOfLastWrite:    now,
		maxSequenceNumbers: make(map[uint32]uint64),
		timeProvider:       timeProvider,
		logger:             logger,
		metrics:            rec,
	}
}

// SetLateArrivalPeriod updates the late-arrival period (and, derived from
// it, the closed-window period) of this instance.
func (p *PartitionWindows) SetLateArrivalPeriod(lateArrivalPeriod time.Duration) {
	if lateArrivalPeriod <= 0 {
		panic("windows: SetLateArrivalPeriod must be positive") //nolint:forbidigo // intentional panic for precondition violation
	}
	p.lateArrivalPeriod = lateArrivalPeriod
	if lateArrivalPeriod > defaultClosedWindow {
		p.closedWindowPeriod = defaultClosedWindow
	} else {
		p.closedWindowPeriod = lateArrivalPeriod
	}
}

// MarkSeenAndPersisted replays a checkpoint to keep max_sequence_numbers in
// sync with data already durably persisted, without creating any windows.
func (p *PartitionWindows) MarkSeenAndPersisted(ckpt checkpoint.PartitionCheckpoint) {
	for sequencerID, minMax := range ckpt.SequenceNumbers {
		if existing, ok := p.maxSequenceNumbers[sequencerID]; ok {
			if minMax.Max() > existing {
				p.maxSequenceNumbers[sequencerID] = minMax.Max()
			}
		} else {
			p.maxSequenceNumbers[sequencerID] = minMax.Max()
		}
	}
}

// AddRange updates the windows with one batch of rows from a single
// sequencer. minTime and maxTime are row (event) timestamps.
//
// Panics if minTime > maxTime, if rowCount <= 0, or if seq is non-nil and
// its Number does not strictly exceed the previous Number seen for
// seq.ID.
func (p *PartitionWindows) AddRange(seq *sequence.Sequence, rowCount int, minTime, maxTime time.Time) {
	if rowCount <= 0 {
		panic("windows: AddRange called with rowCount <= 0") //nolint:forbidigo // intentional panic for precondition violation
	}
	if minTime.After(maxTime) {
		panic("windows: AddRange called with minTime > maxTime") //nolint:forbidigo // intentional panic for precondition violation
	}

	// TimeProvider is not assumed monotone; clamp to the last observed time.
	arrivalTime := p.timeOfLastWrite
	if now := p.timeProvider.Now(); now.After(arrivalTime) {
		arrivalTime = now
	}
	p.timeOfLastWrite = arrivalTime

	if seq != nil {
		if existing, ok := p.maxSequenceNumbers[seq.ID]; ok {
			if seq.Number <= existing {
				panic("windows: AddRange sequence number did not increase for sequencer") //nolint:forbidigo // intentional panic for precondition violation
			}
		}
		p.maxSequenceNumbers[seq.ID] = seq.Number
	}

	p.rotate()

	if p.open != nil {
		p.open.addRange(seq, rowCount, minTime, maxTime, arrivalTime)
	} else {
		p.open = newWindow(arrivalTime, seq, rowCount, minTime, maxTime)
	}
}

// rotate moves the open window to closed once it ages past
// closedWindowPeriod, then folds closed windows into persistable once they
// age past lateArrivalPeriod — unless a flush handle is outstanding.
func (p *PartitionWindows) rotate() {
	p.rotateTo(p.timeProvider.Now())
}

func (p *PartitionWindows) rotateTo(now time.Time) {
	if p.open != nil && p.open.isCloseable(now, p.closedWindowPeriod) {
		p.closed = append(p.closed, p.open)
		p.open = nil
		p.metrics.WindowRotated(p.partitionKey)
	}

	// Only fold into persistable if no flush handle is outstanding.
	if p.persistable.Leased() {
		return
	}

	for len(p.closed) > 0 && p.closed[0].isPersistable(now, p.lateArrivalPeriod) {
		w := p.closed[0]
		p.closed = p.closed[1:]

		if current := p.persistable.Get(); current != nil {
			current.merge(w)
		} else {
			p.persistable.Set(w)
		}
		p.metrics.WindowRotated(p.partitionKey)
	}
}

// sequencerNumbersInner computes the unpersisted sequence number ranges,
// optionally skipping the persistable window (and any window whose max
// row-time is at or before the persistable window's, which covers windows
// entirely subsumed by an in-flight flush).
func (p *PartitionWindows) sequencerNumbersInner(skipPersistable bool) map[uint32]sequence.OptionalMinMaxSequence {
	if p.isEmpty() {
		return map[uint32]sequence.OptionalMinMaxSequence{}
	}

	all := p.windowsOldestFirst()

	skip := 0
	var flushTime time.Time
	haveFlushTime := false
	if skipPersistable {
		if persistable := p.persistable.Get(); persistable != nil {
			skip = 1
			flushTime = persistable.maxTime
			haveFlushTime = true
		}
	}
	if skip > len(all) {
		skip = len(all)
	}
	rest := all[skip:]

	result := make(map[uint32]sequence.OptionalMinMaxSequence, len(p.maxSequenceNumbers))
	for sequencerID, maxSeq := range p.maxSequenceNumbers {
		var min *uint64
		for _, w := range rest {
			if haveFlushTime && !w.maxTime.After(flushTime) {
				continue
			}
			if r, ok := w.sequencerNumbers[sequencerID]; ok {
				if r.Max() > maxSeq {
					panic("windows: window sequencer max exceeds partition max_sequence_numbers") //nolint:forbidigo // intentional panic for precondition violation
				}
				v := r.Min()
				min = &v
				break
			}
		}
		result[sequencerID] = sequence.NewOptionalMinMaxSequence(min, maxSeq)
	}
	return result
}

// SequencerNumbers returns the sequence number range of unpersisted writes
// described by this instance.
func (p *PartitionWindows) SequencerNumbers() map[uint32]sequence.OptionalMinMaxSequence {
	return p.sequencerNumbersInner(false)
}

// AcquireFlushHandle acquires a handle granting exclusive right to persist
// the current persistable window, as of now. Returns (nil, false) if a
// handle is already outstanding or there is nothing persistable.
func (p *PartitionWindows) AcquireFlushHandle() (*FlushHandle, bool) {
	return p.acquireFlushHandleImpl(p.timeProvider.Now())
}

// AcquireFlushAllHandle is like AcquireFlushHandle but first rotates
// everything (open and closed windows alike) into persistable, by rotating
// as of MaxTime.
func (p *PartitionWindows) AcquireFlushAllHandle() (*FlushHandle, bool) {
	return p.acquireFlushHandleImpl(MaxTime)
}

func (p *PartitionWindows) acquireFlushHandleImpl(now time.Time) (*FlushHandle, bool) {
	if p.persistable.Leased() {
		return nil, false
	}

	if p.open != nil {
		p.closed = append(p.closed, p.open)
		p.open = nil
	}

	p.rotateTo(now)

	persistable := p.persistable.Get()
	if persistable == nil {
		return nil, false
	}

	handle, ok := p.persistable.TryFreeze()
	if !ok {
		// Unreachable: Leased() was checked above and nothing else in this
		// single-writer type can acquire the lease concurrently.
		return nil, false
	}

	h := &FlushHandle{
		freezeHandle:    handle,
		closedCount:     len(p.closed),
		database:        p.database,
		table:           p.table,
		partitionKey:    p.partitionKey,
		timestamp:       persistable.maxTime,
		sequenceNumbers: p.sequencerNumbersInner(true),
	}
	p.metrics.FlushAcquired(p.partitionKey, persistable.rowCount)
	p.logger.Debugf("flush handle acquired: timestamp=%v closed_count=%d", h.timestamp, h.closedCount)
	return h, true
}

// CompleteFlush consumes handle, clearing the persistable window and
// truncating the min_time of closed windows that were present when the
// handle was created and now overlap with what was just persisted.
//
// Panics if closed windows were lost while the handle was held
// (len(closed) < handle.closedCount — should be impossible since nothing
// drops closed windows except this method), or if the persistable
// window's max_time no longer matches handle.timestamp.
func (p *PartitionWindows) CompleteFlush(h *FlushHandle) {
	if h.done {
		panic("windows: CompleteFlush called on an already-finished FlushHandle") //nolint:forbidigo // intentional panic for precondition violation
	}

	if len(p.closed) < h.closedCount {
		panic("windows: windows dropped from closed whilst flush handle was held") //nolint:forbidigo // intentional panic for precondition violation
	}

	persistable := h.freezeHandle.Value()
	if persistable == nil {
		panic("windows: CompleteFlush found no persistable window") //nolint:forbidigo // intentional panic for precondition violation
	}
	if !persistable.maxTime.Equal(h.timestamp) {
		panic("windows: persistable max_time does not match handle's timestamp") //nolint:forbidigo // intentional panic for precondition violation
	}

	p.persistable.Unfreeze(h.freezeHandle, nil)
	h.done = true

	if newMin, ok := checkedAddOneNano(h.timestamp); ok {
		for i := 0; i < h.closedCount && i < len(p.closed); i++ {
			w := p.closed[i]
			if w.minTime.Before(newMin) {
				w.minTime = newMin
			}
		}

		kept := p.closed[:0:0]
		for i, w := range p.closed {
			if i < h.closedCount && w.maxTime.Before(newMin) {
				continue
			}
			kept = append(kept, w)
		}
		p.closed = kept
	} else {
		// Adding 1ns overflowed: handle.timestamp is the end of
		// representable time, so everything is persisted.
		p.closed = p.closed[:0]
	}

	p.metrics.FlushCompleted(p.partitionKey, persistable.rowCount)
	p.logger.Debugf("flush completed: timestamp=%v", h.timestamp)
}

// windowsOldestFirst returns persistable (if any), then closed oldest-first,
// then open (if any).
func (p *PartitionWindows) windowsOldestFirst() []*window {
	result := make([]*window, 0, len(p.closed)+2)
	if persistable := p.persistable.Get(); persistable != nil {
		result = append(result, persistable)
	}
	result = append(result, p.closed...)
	if p.open != nil {
		result = append(result, p.open)
	}
	return result
}

func (p *PartitionWindows) minimumWindow() *window {
	all := p.windowsOldestFirst()
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// IsEmpty reports whether this PartitionWindows holds no data at all.
func (p *PartitionWindows) IsEmpty() bool {
	return p.isEmpty()
}

func (p *PartitionWindows) isEmpty() bool {
	return p.minimumWindow() == nil
}

// MinimumUnpersistedSequence returns the sequencer ranges of the oldest
// unpersisted window, if any.
func (p *PartitionWindows) MinimumUnpersistedSequence() (map[uint32]sequence.MinMaxSequence, bool) {
	w := p.minimumWindow()
	if w == nil {
		return nil, false
	}
	out := make(map[uint32]sequence.MinMaxSequence, len(w.sequencerNumbers))
	for k, v := range w.sequencerNumbers {
		out[k] = v
	}
	return out, true
}

// MinimumUnpersistedAge returns the arrival time of the oldest unpersisted
// window's first write, if any.
func (p *PartitionWindows) MinimumUnpersistedAge() (time.Time, bool) {
	w := p.minimumWindow()
	if w == nil {
		return time.Time{}, false
	}
	return w.timeOfFirstWrite, true
}

// MinimumUnpersistedTimestamp returns the minimum row timestamp across all
// unpersisted windows, if any.
func (p *PartitionWindows) MinimumUnpersistedTimestamp() (time.Time, bool) {
	all := p.windowsOldestFirst()
	if len(all) == 0 {
		return time.Time{}, false
	}
	min := all[0].minTime
	for _, w := range all[1:] {
		if w.minTime.Before(min) {
			min = w.minTime
		}
	}
	return min, true
}

// MaximumUnpersistedTimestamp returns the maximum row timestamp across all
// unpersisted windows, if any.
func (p *PartitionWindows) MaximumUnpersistedTimestamp() (time.Time, bool) {
	all := p.windowsOldestFirst()
	if len(all) == 0 {
		return time.Time{}, false
	}
	max := all[0].maxTime
	for _, w := range all[1:] {
		if w.maxTime.After(max) {
			max = w.maxTime
		}
	}
	return max, true
}

// PersistableRowCount returns the number of rows currently in windows that
// satisfy is_persistable(now, lateArrivalPeriod), regardless of whether
// they have actually been folded into the persistable window yet.
func (p *PartitionWindows) PersistableRowCount() int {
	now := p.timeProvider.Now()
	total := 0
	for _, w := range p.windowsOldestFirst() {
		if !w.isPersistable(now, p.lateArrivalPeriod) {
			break
		}
		total += w.rowCount
	}
	return total
}

// WriteSummary is a plain, approximate summary of one window's contents,
// consumed by observability endpoints. Approximate because a partial
// flush raises a window's min_time without decreasing its row count.
type WriteSummary struct {
	TimeOfFirstWrite time.Time
	TimeOfLastWrite  time.Time
	MinTimestamp     time.Time
	MaxTimestamp     time.Time
	RowCount         int
}

// Summaries returns approximate summaries of unpersisted writes, oldest
// first across persistable, closed, and open.
func (p *PartitionWindows) Summaries() []WriteSummary {
	all := p.windowsOldestFirst()
	out := make([]WriteSummary, len(all))
	for i, w := range all {
		out[i] = WriteSummary{
			TimeOfFirstWrite: w.timeOfFirstWrite,
			TimeOfLastWrite:  w.timeOfLastWrite,
			MinTimestamp:     w.minTime,
			MaxTimestamp:     w.maxTime,
			RowCount:         w.rowCount,
		}
	}
	return out
}
