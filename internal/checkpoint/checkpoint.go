// Package checkpoint models the per-partition replay record produced by a
// flush and consumed on restart to re-establish the high-watermark of seen
// sequence numbers. It is a plain value type; serializing it to a durable
// log is a concern of its caller, not this package.
package checkpoint

import (
	"time"

	"github.com/driftdb/driftdb/internal/sequence"
)

// PartitionCheckpoint is the speculative (or, on replay, actual) state of a
// partition as of a given flush.
type PartitionCheckpoint struct {
	Database        string
	Table           string
	PartitionKey    string
	SequenceNumbers map[uint32]sequence.OptionalMinMaxSequence
	FlushTimestamp  time.Time
}

// New constructs a PartitionCheckpoint. sequenceNumbers is not copied;
// callers must not mutate it afterward.
func New(
	database, table, partitionKey string,
	sequenceNumbers map[uint32]sequence.OptionalMinMaxSequence,
	flushTimestamp time.Time,
) PartitionCheckpoint {
	return PartitionCheckpoint{
		Database:        database,
		Table:           table,
		PartitionKey:    partitionKey,
		SequenceNumbers: sequenceNumbers,
		FlushTimestamp:  flushTimestamp,
	}
}

// SequenceNumbersFor returns the recorded range for sequencerID, if any.
func (c PartitionCheckpoint) SequenceNumbersFor(sequencerID uint32) (sequence.OptionalMinMaxSequence, bool) {
	v, ok := c.SequenceNumbers[sequencerID]
	return v, ok
}
