package learning

import (
	"log"
	"sync"
	"time"

	"github.com/toolsmith-ai/advisor/internal/storage"
)

const (
	// metricQueueSize is the buffer size for the metric queue.
	// If full, samples are dropped (non-blocking).
	metricQueueSize = 1000

	// metricFlushSize is the number of samples that triggers an immediate flush.
	metricFlushSize = 10

	// metricFlushInterval is how often buffered samples are flushed.
	metricFlushInterval = 50 * time.Millisecond
)

// metricSample is one queued diagnostic sample.
type metricSample struct {
	name  string
	value float64
}

// MetricsTracker records learning diagnostics in the background with
// non-blocking writes, so metric persistence can never slow down or fail
// the request path.
type MetricsTracker struct {
	store    storage.Storage
	queue    chan metricSample
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMetricsTracker creates a tracker with background flushing.
func NewMetricsTracker(store storage.Storage) *MetricsTracker {
	t := &MetricsTracker{
		store:    store,
		queue:    make(chan metricSample, metricQueueSize),
		stopChan: make(chan struct{}),
	}

	t.wg.Add(1)
	go t.processQueue()

	return t
}

// Record queues one metric sample (non-blocking). If the queue is full,
// the sample is dropped and a warning is logged.
func (t *MetricsTracker) Record(name string, value float64) {
	select {
	case t.queue <- metricSample{name: name, value: value}:
	default:
		log.Printf("Warning: metric queue full, dropping sample for %s", name)
	}
}

// Stop gracefully shuts down the tracker, flushing remaining samples.
func (t *MetricsTracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// Summary reports count, mean, min, max, and latest over the most recent
// window samples of a metric.
func (t *MetricsTracker) Summary(name string, window int) (count int, mean, min, max, latest float64) {
	points, err := t.store.RecentMetrics(name, window)
	if err != nil {
		log.Printf("Warning: failed to read metrics for %s: %v", name, err)
		return 0, 0, 0, 0, 0
	}
	if len(points) == 0 {
		return 0, 0, 0, 0, 0
	}

	min = points[0].Value
	max = points[0].Value
	latest = points[0].Value
	sum := 0.0
	for _, p := range points {
		sum += p.Value
		if p.Value < min {
			min = p.Value
		}
		if p.Value > max {
			max = p.Value
		}
	}

	return len(points), sum / float64(len(points)), min, max, latest
}

// processQueue runs in the background, batching and flushing samples.
func (t *MetricsTracker) processQueue() {
	defer t.wg.Done()

	ticker := time.NewTicker(metricFlushInterval)
	defer ticker.Stop()

	batch := make([]metricSample, 0, metricFlushSize)

	for {
		select {
		case sample := <-t.queue:
			batch = append(batch, sample)
			if len(batch) >= metricFlushSize {
				t.flush(batch)
				batch = make([]metricSample, 0, metricFlushSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = make([]metricSample, 0, metricFlushSize)
			}

		case <-t.stopChan:
			// Drain whatever is still queued, then flush and exit.
			for {
				select {
				case sample := <-t.queue:
					batch = append(batch, sample)
					if len(batch) >= metricFlushSize {
						t.flush(batch)
						batch = make([]metricSample, 0, metricFlushSize)
					}
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of samples to storage.
func (t *MetricsTracker) flush(batch []metricSample) {
	for _, sample := range batch {
		if err := t.store.RecordMetric(sample.name, sample.value); err != nil {
			log.Printf("Warning: failed to record metric %s: %v", sample.name, err)
		}
	}
}
