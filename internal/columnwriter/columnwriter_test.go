package columnwriter

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeStore struct {
	mu    sync.Mutex
	puts  int
	failN int
	data  map[string][]byte
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failN > 0 {
		f.failN--
		return errors.New("transient failure")
	}
	if f.data == nil {
		f.data = make(map[string][]byte)
	}
	cp := append([]byte(nil), data...)
	f.data[key] = cp
	return nil
}

func TestWriteRoundTripsThroughEachCodec(t *testing.T) {
	payload := bytes.Repeat([]byte("row-data"), 100)

	for _, codec := range []Codec{CodecSnappy, CodecZstd, CodecLZ4} {
		store := &fakeStore{}
		w, err := New(store, codec, 16)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		chunk, err := w.Write(context.Background(), "k", payload)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}

		got, err := Decompress(codec, chunk.Data)
		if err != nil {
			t.Fatalf("Decompress: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round trip mismatch for codec %d", codec)
		}
	}
}

func TestWriteRetriesTransientFailures(t *testing.T) {
	store := &fakeStore{failN: 2}
	w, err := New(store, CodecSnappy, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := w.Write(context.Background(), "k", []byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if store.puts != 3 {
		t.Fatalf("puts = %d, want 3 (2 failures + 1 success)", store.puts)
	}
}

func TestWriteSkipsDuplicateChunk(t *testing.T) {
	store := &fakeStore{}
	w, err := New(store, CodecSnappy, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := w.Write(context.Background(), "k", []byte("same")); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if _, err := w.Write(context.Background(), "k", []byte("same")); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if store.puts != 1 {
		t.Fatalf("puts = %d, want 1 (second write deduped)", store.puts)
	}
}
