package driftdb

import (
	"time"

	"github.com/driftdb/driftdb/internal/windows"
)

// PartitionWindows tracks buffered writes for a single partition and
// decides when they are old enough to persist. See the package
// documentation for an overview.
type PartitionWindows struct {
	inner                         *windows.PartitionWindows
	database, table, partitionKey string
}

// New constructs a PartitionWindows per opts. It panics if
// opts.LateArrivalPeriod is not positive.
func New(opts Options) *PartitionWindows {
	return &PartitionWindows{
		inner: windows.New(windows.Options{
			Database:          opts.Database,
			Table:             opts.Table,
			PartitionKey:      opts.PartitionKey,
			LateArrivalPeriod: opts.LateArrivalPeriod,
			TimeProvider:      opts.TimeProvider,
			Logger:            opts.Logger,
			Metrics:           opts.Metrics,
		}),
		database:     opts.Database,
		table:        opts.Table,
		partitionKey: opts.PartitionKey,
	}
}

// SetLateArrivalPeriod updates the late-arrival period used to decide when
// a window becomes persistable.
func (p *PartitionWindows) SetLateArrivalPeriod(d time.Duration) {
	p.inner.SetLateArrivalPeriod(d)
}

// MarkSeenAndPersisted replays a checkpoint to keep the partition's
// high-watermark sequence numbers in sync with data already durably
// persisted, without creating any windows.
func (p *PartitionWindows) MarkSeenAndPersisted(ckpt PartitionCheckpoint) {
	p.inner.MarkSeenAndPersisted(ckpt)
}

// AddRange updates the windows with one batch of rows from a single
// sequencer. minTime and maxTime are row (event) timestamps, not
// wall-clock arrival times.
//
// Panics if minTime > maxTime, if rowCount <= 0, or if seq is non-nil and
// its Number does not strictly exceed the previous Number seen for
// seq.ID.
func (p *PartitionWindows) AddRange(seq *Sequence, rowCount int, minTime, maxTime time.Time) {
	p.inner.AddRange(seq, rowCount, minTime, maxTime)
}

// FlushHandle grants its holder the exclusive right to persist the
// partition's persistable window as it existed at the moment the handle
// was acquired.
type FlushHandle struct {
	inner                         *windows.FlushHandle
	database, table, partitionKey string
}

// Timestamp returns the maximum row timestamp covered by this flush.
func (h *FlushHandle) Timestamp() time.Time { return h.inner.Timestamp() }

// Checkpoint returns a PartitionCheckpoint describing the partition's
// unpersisted sequence ranges as they will stand once this flush
// completes, stamped with the handle's own timestamp.
func (h *FlushHandle) Checkpoint() PartitionCheckpoint {
	return NewPartitionCheckpoint(h.database, h.table, h.partitionKey, h.inner.SequencerNumbers(), h.inner.Timestamp())
}

// Discard abandons the flush without persisting anything, releasing the
// lease so a future AcquireFlushHandle can try again. Safe to call more
// than once.
func (h *FlushHandle) Discard() { h.inner.Discard() }

// AcquireFlushHandle acquires a handle granting exclusive right to persist
// the current persistable window. Returns (nil, false) if a handle is
// already outstanding or there is nothing persistable.
func (p *PartitionWindows) AcquireFlushHandle() (*FlushHandle, bool) {
	h, ok := p.inner.AcquireFlushHandle()
	if !ok {
		return nil, false
	}
	return p.wrapHandle(h), true
}

// AcquireFlushAllHandle is like AcquireFlushHandle but first rotates
// everything, open and closed windows alike, into persistable.
func (p *PartitionWindows) AcquireFlushAllHandle() (*FlushHandle, bool) {
	h, ok := p.inner.AcquireFlushAllHandle()
	if !ok {
		return nil, false
	}
	return p.wrapHandle(h), true
}

func (p *PartitionWindows) wrapHandle(h *windows.FlushHandle) *FlushHandle {
	return &FlushHandle{
		inner:        h,
		database:     p.database,
		table:        p.table,
		partitionKey: p.partitionKey,
	}
}

// CompleteFlush consumes h, clearing the persistable window and
// truncating closed windows that overlap what was just persisted.
func (p *PartitionWindows) CompleteFlush(h *FlushHandle) {
	p.inner.CompleteFlush(h.inner)
}

// SequencerNumbers returns the sequence number range of unpersisted
// writes.
func (p *PartitionWindows) SequencerNumbers() map[uint32]OptionalMinMaxSequence {
	return p.inner.SequencerNumbers()
}

// IsEmpty reports whether this PartitionWindows holds no data at all.
func (p *PartitionWindows) IsEmpty() bool { return p.inner.IsEmpty() }

// MinimumUnpersistedAge returns the arrival time of the oldest
// unpersisted window's first write, if any.
func (p *PartitionWindows) MinimumUnpersistedAge() (time.Time, bool) {
	return p.inner.MinimumUnpersistedAge()
}

// MinimumUnpersistedTimestamp returns the minimum row timestamp across
// all unpersisted windows, if any.
func (p *PartitionWindows) MinimumUnpersistedTimestamp() (time.Time, bool) {
	return p.inner.MinimumUnpersistedTimestamp()
}

// MaximumUnpersistedTimestamp returns the maximum row timestamp across
// all unpersisted windows, if any.
func (p *PartitionWindows) MaximumUnpersistedTimestamp() (time.Time, bool) {
	return p.inner.MaximumUnpersistedTimestamp()
}

// PersistableRowCount returns the number of rows currently old enough to
// be persisted, regardless of whether they have been folded into the
// persistable window yet.
func (p *PartitionWindows) PersistableRowCount() int {
	return p.inner.PersistableRowCount()
}

// Summaries returns approximate summaries of unpersisted writes, oldest
// first.
func (p *PartitionWindows) Summaries() []WriteSummary {
	return p.inner.Summaries()
}
