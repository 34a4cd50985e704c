// ingestsim runs a small worker against PartitionWindows, wiring
// hot-reloadable configuration and Prometheus metrics into a periodic
// flush loop. It does not read from Kafka, does not call AddRange, and
// does not write flushed data through a column writer.
//
// Run it with:
//
// ```bash
// ./bin/ingestsim -config=ingestsim.yaml
// ```
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/driftdb/driftdb"
	"github.com/driftdb/driftdb/internal/config"
)

var configPath = flag.String("config", "ingestsim.yaml", "Path to the worker's YAML config file")

func main() {
	flag.Parse()

	logger := driftdb.NewLogger(os.Stdout, driftdb.LogLevelInfo, "ingestsim")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("ingestsim: %v", err)
	}

	registry := prometheus.NewRegistry()
	recorder := newMetricsRecorder(registry)

	worker := newWorker(cfg, logger, recorder)

	watcher, err := config.NewWatcher(*configPath, worker.applyConfig, func(err error) {
		logger.Warnf("config reload failed: %v", err)
	})
	if err != nil {
		logger.Warnf("config hot-reload disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	worker.run(ctx)
}

// worker owns one PartitionWindows per configured partition plus a rolling
// estimate of its ingest rate.
type worker struct {
	mu         sync.Mutex
	logger     driftdb.Logger
	recorder   driftdb.MetricsRecorder
	partitions map[string]*driftdb.PartitionWindows
	rates      map[string]*ingestRateEstimator
}

func newWorker(cfg *config.Config, logger driftdb.Logger, recorder driftdb.MetricsRecorder) *worker {
	w := &worker{
		logger:     logger,
		recorder:   recorder,
		partitions: make(map[string]*driftdb.PartitionWindows),
		rates:      make(map[string]*ingestRateEstimator),
	}
	w.applyConfig(cfg)
	return w
}

// applyConfig reconciles the worker's live PartitionWindows set against a
// (re)loaded config: existing partitions get their late-arrival period
// updated in place, new partitions are created, and removed partitions
// are dropped. No in-flight flush is interrupted, since SetLateArrivalPeriod
// only changes future rotation decisions.
func (w *worker) applyConfig(cfg *config.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(cfg.Partitions))
	for _, pc := range cfg.Partitions {
		key := partitionKey(pc.Database, pc.Table, pc.PartitionKey)
		seen[key] = true

		if existing, ok := w.partitions[key]; ok {
			existing.SetLateArrivalPeriod(pc.LateArrivalPeriod)
			continue
		}

		w.partitions[key] = driftdb.New(driftdb.Options{
			Database:          pc.Database,
			Table:             pc.Table,
			PartitionKey:      pc.PartitionKey,
			LateArrivalPeriod: pc.LateArrivalPeriod,
			Logger:            w.logger,
			Metrics:           w.recorder,
		})
		w.rates[key] = newIngestRateEstimator(time.Minute)
	}

	for key := range w.partitions {
		if !seen[key] {
			delete(w.partitions, key)
			delete(w.rates, key)
		}
	}
}

func partitionKey(database, table, partitionKey string) string {
	return database + "/" + table + "/" + partitionKey
}

// run periodically attempts to flush every partition's persistable
// window until ctx is canceled.
func (w *worker) run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("ingestsim: shutting down")
			return
		case <-ticker.C:
			w.flushReady()
		}
	}
}

func (w *worker) flushReady() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for key, p := range w.partitions {
		if rate, ok := w.rates[key]; ok {
			rate.Observe(now, p.PersistableRowCount())
		}

		handle, ok := p.AcquireFlushHandle()
		if !ok {
			continue
		}
		w.logger.Infof("flushing partition %s up to %v (%.1f rows/s)", key, handle.Timestamp(), w.rates[key].RowsPerSecond())
		// A real worker would hand handle's row data to a columnwriter.Writer
		// here before completing the flush.
		p.CompleteFlush(handle)
	}
}

// ingestRateEstimator smooths per-partition row throughput with an
// exponentially weighted moving average. None of the retrieval pack's
// dependencies offer a rate smoother purpose-built for this, and adding a
// dependency for a five-line formula would not earn its keep, so this
// stays on the standard library.
type ingestRateEstimator struct {
	halfLife   time.Duration
	lastSample time.Time
	rate       float64
}

func newIngestRateEstimator(halfLife time.Duration) *ingestRateEstimator {
	return &ingestRateEstimator{halfLife: halfLife}
}

func (e *ingestRateEstimator) Observe(now time.Time, rows int) {
	if e.lastSample.IsZero() {
		e.lastSample = now
		e.rate = float64(rows)
		return
	}
	elapsed := now.Sub(e.lastSample)
	e.lastSample = now
	if elapsed <= 0 {
		e.rate += float64(rows)
		return
	}
	decay := math.Exp(-float64(elapsed) / float64(e.halfLife))
	instantaneous := float64(rows) / elapsed.Seconds()
	e.rate = decay*e.rate + (1-decay)*instantaneous
}

func (e *ingestRateEstimator) RowsPerSecond() float64 {
	return e.rate
}
