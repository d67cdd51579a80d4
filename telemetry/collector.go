package telemetry

import (
	"os"
	"sync"
	"time"
)

// PathProvider exposes the database path to sample
type PathProvider interface {
	Path() string
}

// MetricsCollector periodically samples the database files and updates
// StoreFileBytes. It only stats files, so it never touches the poller's
// connection.
type MetricsCollector struct {
	store    PathProvider
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(store PathProvider, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector
func (mc *MetricsCollector) Stop() {
	mc.stopOnce.Do(func() { close(mc.stopCh) })
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	mc.collect()

	for {
		select {
		case <-ticker.C:
			mc.collect()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MetricsCollector) collect() {
	if mc.store == nil {
		return
	}

	path := mc.store.Path()
	StoreFileBytes.With("db").Set(float64(fileSize(path)))
	StoreFileBytes.With("wal").Set(float64(fileSize(path + "-wal")))
}

// fileSize returns 0 for files that don't exist
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
