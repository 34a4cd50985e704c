package windows

import (
	"math"
	"time"
)

// MaxTime is a sentinel representing "the end of time", used to force a
// flush-everything request (AcquireFlushAllHandle) to rotate every window,
// open and closed alike, into persistable regardless of age. Go's
// time.Time has no built-in maximum value, so this pins one to the edge of
// the int64 nanosecond range.
var MaxTime = time.Unix(0, math.MaxInt64)

// checkedAddOneNano returns t+1ns and true, or the zero time and false if
// doing so would overflow the int64 nanosecond range. Used by
// PartitionWindows.CompleteFlush to compute the exclusive lower bound of
// what remains unpersisted after a flush.
func checkedAddOneNano(t time.Time) (time.Time, bool) {
	if t.UnixNano() == math.MaxInt64 {
		return time.Time{}, false
	}
	return t.Add(time.Nanosecond), true
}
