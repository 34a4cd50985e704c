// Package config loads and validates the YAML configuration for an ingest
// worker, and can watch the backing file for changes so a running worker
// can pick up a new late-arrival period without a restart.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// PartitionConfig configures one partition's windowing behavior.
type PartitionConfig struct {
	Database          string        `yaml:"database"`
	Table             string        `yaml:"table"`
	PartitionKey      string        `yaml:"partition_key"`
	LateArrivalPeriod time.Duration `yaml:"late_arrival_period"`
}

// Validate checks PartitionConfig against the constraints required for a
// usable PartitionWindows.
func (p PartitionConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Database, validation.Required),
		validation.Field(&p.Table, validation.Required),
		validation.Field(&p.PartitionKey, validation.Required),
		validation.Field(&p.LateArrivalPeriod,
			validation.Min(time.Second).Error("must be no less than 1s"),
			validation.Max(24*time.Hour).Error("must be no greater than 24h")),
	)
}

// KafkaConfig configures the Kafka-backed sequencer source.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id,omitempty"`
}

// Validate checks KafkaConfig.
func (k KafkaConfig) Validate() error {
	return validation.ValidateStruct(&k,
		validation.Field(&k.Brokers, validation.Required, validation.Length(1, 0)),
		validation.Field(&k.Topic, validation.Required),
	)
}

// Config is the top-level configuration for an ingest worker.
type Config struct {
	Partitions []PartitionConfig `yaml:"partitions"`
	Kafka      KafkaConfig       `yaml:"kafka"`
}

// Validate checks every nested section.
func (c Config) Validate() error {
	if len(c.Partitions) == 0 {
		return fmt.Errorf("config: at least one partition is required")
	}
	for i, p := range c.Partitions {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("config: partitions[%d]: %w", i, err)
		}
	}
	return c.Kafka.Validate()
}

// Load reads and validates a Config from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watcher reloads a Config from disk whenever its file changes and
// invokes onReload with the new, already-validated value. A reload that
// fails validation or parsing is dropped, leaving the previous config in
// effect.
type Watcher struct {
	path        string
	watcher     *fsnotify.Watcher
	onReload    func(*Config)
	onError     func(error)
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastModTime time.Time
}

// NewWatcher starts watching path's containing directory for changes.
func NewWatcher(path string, onReload func(*Config), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config: watch directory of %s: %w", path, err)
	}

	w := &Watcher{
		path:        path,
		watcher:     fw,
		onReload:    onReload,
		onError:     onError,
		stopCh:      make(chan struct{}),
		lastModTime: info.ModTime(),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Stop halts the watch goroutine and releases the underlying fsnotify
// watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(fmt.Errorf("config: watcher: %w", err))
			}
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.path)
	if err != nil {
		if w.onError != nil {
			w.onError(fmt.Errorf("config: stat %s: %w", w.path, err))
		}
		return
	}
	if info.ModTime().Equal(w.lastModTime) {
		return
	}
	w.lastModTime = info.ModTime()

	cfg, err := Load(w.path)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.onReload(cfg)
}
