// Package metrics buffers per-request samples and writes them to a sink in
// batches, so the hot path never waits on sink I/O.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pricehunt-engine/internal/domain"
)

// Sink receives batched samples. Implementations live in internal/store.
type Sink interface {
	WriteSamples(ctx context.Context, samples []domain.MetricsSample) error
}

// Batcher accumulates samples and flushes them asynchronously once the
// buffer reaches the configured size, or immediately on a failure sample.
// Flush errors are logged and never surface to callers.
type Batcher struct {
	sink      Sink
	batchSize int
	timeout   time.Duration

	mu  sync.Mutex
	buf []domain.MetricsSample

	flushCh chan []domain.MetricsSample
	done    chan struct{}
	once    sync.Once
}

// NewBatcher starts the flush worker. batchSize <= 0 defaults to 10.
func NewBatcher(sink Sink, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = 10
	}
	b := &Batcher{
		sink:      sink,
		batchSize: batchSize,
		timeout:   10 * time.Second,
		buf:       make([]domain.MetricsSample, 0, batchSize),
		flushCh:   make(chan []domain.MetricsSample, 8),
		done:      make(chan struct{}),
	}
	go b.worker()
	return b
}

// Record appends a sample. A failure sample triggers an immediate flush.
func (b *Batcher) Record(s domain.MetricsSample) {
	if b == nil {
		return
	}
	if s.At.IsZero() {
		s.At = time.Now().UTC()
	}

	b.mu.Lock()
	b.buf = append(b.buf, s)
	var batch []domain.MetricsSample
	if len(b.buf) >= b.batchSize || !s.Success {
		batch = b.buf
		b.buf = make([]domain.MetricsSample, 0, b.batchSize)
	}
	b.mu.Unlock()

	if batch == nil {
		return
	}
	select {
	case b.flushCh <- batch:
	default:
		// Worker backed up; drop rather than block the scrape path.
		slog.Warn("metrics flush queue full, dropping batch", slog.Int("samples", len(batch)))
	}
}

// Flush forces any buffered samples out. Safe to call concurrently.
func (b *Batcher) Flush() {
	b.mu.Lock()
	batch := b.buf
	b.buf = make([]domain.MetricsSample, 0, b.batchSize)
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	select {
	case b.flushCh <- batch:
	default:
		b.write(batch)
	}
}

// Close flushes remaining samples and waits for in-flight writes.
func (b *Batcher) Close() {
	b.once.Do(func() {
		b.Flush()
		close(b.flushCh)
		<-b.done
	})
}

func (b *Batcher) worker() {
	defer close(b.done)
	for batch := range b.flushCh {
		b.write(batch)
	}
}

func (b *Batcher) write(batch []domain.MetricsSample) {
	if b.sink == nil || len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.sink.WriteSamples(ctx, batch); err != nil {
		slog.Warn("metrics flush failed",
			slog.Int("samples", len(batch)),
			slog.Any("error", err),
		)
	}
}

// Pending returns the number of unflushed samples. Test helper.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}
