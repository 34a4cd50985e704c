package kafkaseq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	messages []kafka.Message
	i        int
	closed   bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if f.i >= len(f.messages) {
		return kafka.Message{}, errors.New("no more messages")
	}
	m := f.messages[f.i]
	f.i++
	return m, nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestNextTranslatesPartitionAndOffset(t *testing.T) {
	rowTime := time.Unix(0, 12345)
	fr := &fakeReader{messages: []kafka.Message{
		{Partition: 3, Offset: 41, Time: rowTime, Value: []byte("row")},
	}}
	src := NewWithReader(fr)

	rec, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec.Sequence.ID != 3 {
		t.Fatalf("Sequence.ID = %d, want 3", rec.Sequence.ID)
	}
	if rec.Sequence.Number != 42 {
		t.Fatalf("Sequence.Number = %d, want 42 (offset+1)", rec.Sequence.Number)
	}
	if !rec.RowTime.Equal(rowTime) {
		t.Fatalf("RowTime = %v, want %v", rec.RowTime, rowTime)
	}
}

func TestNextRejectsNegativePartition(t *testing.T) {
	fr := &fakeReader{messages: []kafka.Message{{Partition: -1, Offset: 0}}}
	src := NewWithReader(fr)

	if _, err := src.Next(context.Background()); err == nil {
		t.Fatal("expected error for negative partition")
	}
}

func TestCloseDelegatesToReader(t *testing.T) {
	fr := &fakeReader{}
	src := NewWithReader(fr)
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fr.closed {
		t.Fatal("expected underlying reader to be closed")
	}
}
