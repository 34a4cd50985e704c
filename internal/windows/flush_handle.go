package windows

import (
	"time"

	"github.com/driftdb/driftdb/internal/freeze"
	"github.com/driftdb/driftdb/internal/sequence"
)

// FlushHandle grants its holder the exclusive right to persist the
// persistable window as it existed at the moment the handle was acquired.
// A partition has at most one outstanding FlushHandle at a time: while one
// exists, new writes keep accumulating in open and closed windows but
// nothing new is folded into persistable.
//
// The zero value is not usable; obtain one from
// PartitionWindows.AcquireFlushHandle or AcquireFlushAllHandle.
type FlushHandle struct {
	freezeHandle *freeze.FreezeHandle[*window]
	done         bool

	closedCount int

	database, table, partitionKey string
	timestamp                     time.Time
	sequenceNumbers               map[uint32]sequence.OptionalMinMaxSequence
}

// Timestamp returns the maximum row timestamp covered by this flush.
func (h *FlushHandle) Timestamp() time.Time {
	return h.timestamp
}

// SequencerNumbers returns the sequence ranges that will remain unpersisted
// once this flush completes, computed when the handle was acquired and
// suitable for writing into a persisted checkpoint.
func (h *FlushHandle) SequencerNumbers() map[uint32]sequence.OptionalMinMaxSequence {
	return h.sequenceNumbers
}

// Discard abandons the flush without persisting anything, releasing the
// lease so a future AcquireFlushHandle can try again. Safe to call more
// than once.
func (h *FlushHandle) Discard() {
	if h.done {
		return
	}
	h.done = true
	h.freezeHandle.Release()
}
