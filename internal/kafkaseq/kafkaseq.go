// Package kafkaseq adapts a Kafka-shaped input stream into the sequencer
// identifiers the windowing core understands: a Kafka partition becomes a
// sequencer id, and a Kafka offset becomes that sequencer's position.
package kafkaseq

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/driftdb/driftdb/internal/sequence"
)

// Config describes the Kafka reader backing a Source.
type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
}

// Reader is the subset of *kafka.Reader a Source needs, extracted so tests
// can supply a fake without a running broker.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Source reads records from Kafka and attaches a Sequence and a row time
// to each, ready for PartitionWindows.AddRange.
type Source struct {
	reader Reader
}

// New constructs a Source from cfg, backed by a real *kafka.Reader.
func New(cfg Config) *Source {
	minBytes := cfg.MinBytes
	if minBytes <= 0 {
		minBytes = 1
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: minBytes,
		MaxBytes: maxBytes,
	})
	return &Source{reader: reader}
}

// NewWithReader wraps an arbitrary Reader, for tests.
func NewWithReader(r Reader) *Source {
	return &Source{reader: r}
}

// Record is a single ingested row batch, translated from a Kafka message
// into windowing terms.
type Record struct {
	Sequence   sequence.Sequence
	ArrivalAt  time.Time
	RowTime    time.Time
	Value      []byte
}

// Next blocks until the next message is available and translates it into
// a Record. The sequencer id is the Kafka partition number; the sequence
// number is the Kafka offset, made 1-based so offset 0 compares greater
// than a zero-value "nothing seen yet" sentinel some callers use.
func (s *Source) Next(ctx context.Context) (Record, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("kafkaseq: read message: %w", err)
	}
	if msg.Partition < 0 {
		return Record{}, fmt.Errorf("kafkaseq: negative partition %d", msg.Partition)
	}
	return Record{
		Sequence: sequence.Sequence{
			ID:     uint32(msg.Partition),
			Number: uint64(msg.Offset) + 1,
		},
		ArrivalAt: time.Now(),
		RowTime:   msg.Time,
		Value:     msg.Value,
	}, nil
}

// Close releases the underlying reader.
func (s *Source) Close() error {
	return s.reader.Close()
}
