package driftdb

import (
	"io"
	"time"

	"github.com/driftdb/driftdb/internal/checkpoint"
	"github.com/driftdb/driftdb/internal/clock"
	"github.com/driftdb/driftdb/internal/logging"
	"github.com/driftdb/driftdb/internal/metrics"
	"github.com/driftdb/driftdb/internal/sequence"
	"github.com/driftdb/driftdb/internal/windows"
)

// Logger is an alias for the logging.Logger interface, so callers can
// supply their own implementation without importing an internal package.
type Logger = logging.Logger

// LogLevel is an alias for the logging.Level enum.
type LogLevel = logging.Level

// Log level constants.
const (
	LogLevelError = logging.LevelError
	LogLevelWarn  = logging.LevelWarn
	LogLevelInfo  = logging.LevelInfo
	LogLevelDebug = logging.LevelDebug
)

// NewLogger returns a Logger that writes level and above to w.
func NewLogger(w io.Writer, level LogLevel, component string) Logger {
	return logging.New(w, level, component)
}

// DiscardLogger drops every message. It is the default when no Logger is
// supplied to Options.
var DiscardLogger = logging.Discard

// TimeProvider is an alias for clock.Provider.
type TimeProvider = clock.Provider

// MetricsRecorder is an alias for metrics.Recorder.
type MetricsRecorder = metrics.Recorder

// NoopMetrics discards every event. It is the default when no
// MetricsRecorder is supplied to Options.
var NoopMetrics = metrics.NoopRecorder

// Sequence is an alias for sequence.Sequence.
type Sequence = sequence.Sequence

// OptionalMinMaxSequence is an alias for sequence.OptionalMinMaxSequence.
type OptionalMinMaxSequence = sequence.OptionalMinMaxSequence

// MinMaxSequence is an alias for sequence.MinMaxSequence.
type MinMaxSequence = sequence.MinMaxSequence

// PartitionCheckpoint is an alias for checkpoint.PartitionCheckpoint.
type PartitionCheckpoint = checkpoint.PartitionCheckpoint

// NewPartitionCheckpoint is an alias for checkpoint.New.
var NewPartitionCheckpoint = checkpoint.New

// WriteSummary is an alias for windows.WriteSummary.
type WriteSummary = windows.WriteSummary

// Options configures a new PartitionWindows.
type Options struct {
	// Database, Table, PartitionKey identify the partition this instance
	// tracks.
	Database, Table, PartitionKey string

	// LateArrivalPeriod is the minimum age, by arrival time, a window must
	// reach before it may be persisted. Required, must be positive.
	LateArrivalPeriod time.Duration

	// TimeProvider supplies wall-clock time. Defaults to the system clock.
	TimeProvider TimeProvider

	// Logger receives diagnostic messages. Defaults to DiscardLogger.
	Logger Logger

	// Metrics receives lifecycle events. Defaults to NoopMetrics.
	Metrics MetricsRecorder
}
