// Package columnwriter persists a flushed window's row data to a backing
// store, compressing the payload and guarding against transient write
// failures. It is the kind of collaborator a FlushHandle hands its row
// data to once PartitionWindows has agreed the window is ready.
package columnwriter

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/avast/retry-go/v4"
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/xxh3"
)

// Codec selects the compression applied to a written column chunk.
type Codec int

const (
	// CodecSnappy favors decompression speed over ratio.
	CodecSnappy Codec = iota
	// CodecZstd favors compression ratio.
	CodecZstd
	// CodecLZ4 is a middle ground, commonly used for hot data.
	CodecLZ4
)

// Chunk is one compressed unit of flushed row data, keyed by the
// partition and the flush timestamp that produced it.
type Chunk struct {
	Key      string
	Codec    Codec
	Checksum uint64
	Data     []byte
}

// Store is the durable sink a Writer persists chunks to. A real
// implementation would be object storage or a local file tree; tests
// supply an in-memory fake.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Writer compresses and persists column chunks, retrying transient Store
// failures and deduplicating identical chunks it has already written
// within its cache horizon.
type Writer struct {
	store Store
	codec Codec
	seen  *lru.Cache[string, uint64]
}

// New constructs a Writer backed by store, using codec for new chunks and
// remembering the last cacheSize written checksums to skip redundant
// writes (e.g. a retried flush whose chunk already landed).
func New(store Store, codec Codec, cacheSize int) (*Writer, error) {
	cache, err := lru.New[string, uint64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("columnwriter: create cache: %w", err)
	}
	return &Writer{store: store, codec: codec, seen: cache}, nil
}

// Write compresses data under key and persists it, making up to 3 attempts
// in all on a Store error with exponential backoff between them. If an identical chunk (same
// key and checksum) was already written and is still in the dedup cache,
// Write returns without touching the store again.
func (w *Writer) Write(ctx context.Context, key string, data []byte) (Chunk, error) {
	sum := xxh3.Hash(data)
	if cached, ok := w.seen.Get(key); ok && cached == sum {
		return Chunk{Key: key, Codec: w.codec, Checksum: sum, Data: nil}, nil
	}

	compressed, err := compress(w.codec, data)
	if err != nil {
		return Chunk{}, fmt.Errorf("columnwriter: compress %s: %w", key, err)
	}

	err = retry.Do(
		func() error { return w.store.Put(ctx, key, compressed) },
		retry.Context(ctx),
		retry.Attempts(3),
	)
	if err != nil {
		return Chunk{}, fmt.Errorf("columnwriter: put %s: %w", key, err)
	}

	w.seen.Add(key, sum)
	return Chunk{Key: key, Codec: w.codec, Checksum: sum, Data: compressed}, nil
}

func compress(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecSnappy:
		return snappy.Encode(nil, data), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case CodecLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("columnwriter: unknown codec %d", codec)
	}
}

// Decompress reverses compress for the given codec, used by readers and
// by tests that round-trip a Chunk.
func Decompress(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecSnappy:
		return snappy.Decode(nil, data)
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case CodecLZ4:
		zr := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(zr)
	default:
		return nil, fmt.Errorf("columnwriter: unknown codec %d", codec)
	}
}
