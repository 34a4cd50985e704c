/*
Package driftdb provides the windowing layer of an ingest path: it tracks
buffered writes for a single partition and decides when they have aged
enough, by arrival time, to be safely persisted.

A PartitionWindows groups incoming writes into windows bucketed by the
wall-clock time they arrived, not by the timestamp column in the row data
itself. This lets the partition tolerate out-of-order row timestamps while
still producing mostly non-overlapping output files: a window only becomes
eligible for persistence once a configurable late-arrival period has passed
since its first write arrived.

# Usage

Construct a PartitionWindows with New, feed it batches with AddRange as
they arrive, and periodically call AcquireFlushHandle to claim whatever is
currently persistable. Once the claimed data has been durably written,
call CompleteFlush to release the claim and advance the partition's
checkpoint; call Discard instead to abandon the attempt.

# Concurrency

A PartitionWindows is not safe for concurrent use. Callers are expected to
serialize access per partition, the same way a single ingest worker owns
exactly one partition's buffer at a time.
*/
package driftdb
