package checkpoint

import (
	"testing"
	"time"

	"github.com/driftdb/driftdb/internal/sequence"
)

func TestSequenceNumbersForKnownAndUnknown(t *testing.T) {
	min := uint64(2)
	ckpt := New("db", "table_name", "partition_key",
		map[uint32]sequence.OptionalMinMaxSequence{
			1: sequence.NewOptionalMinMaxSequence(&min, 9),
		},
		time.Unix(0, 100),
	)

	got, ok := ckpt.SequenceNumbersFor(1)
	if !ok {
		t.Fatal("expected sequencer 1 to be present")
	}
	if got.Max() != 9 {
		t.Fatalf("Max() = %d, want 9", got.Max())
	}

	if _, ok := ckpt.SequenceNumbersFor(2); ok {
		t.Fatal("expected sequencer 2 to be absent")
	}
}
