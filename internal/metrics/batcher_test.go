package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"pricehunt-engine/internal/domain"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]domain.MetricsSample
}

func (s *recordingSink) WriteSamples(_ context.Context, samples []domain.MetricsSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]domain.MetricsSample, len(samples))
	copy(cp, samples)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *recordingSink) snapshot() [][]domain.MetricsSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]domain.MetricsSample, len(s.batches))
	copy(out, s.batches)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestBatcherFlushesAtSize(t *testing.T) {
	sink := &recordingSink{}
	b := NewBatcher(sink, 3)
	defer b.Close()

	for i := 0; i < 2; i++ {
		b.Record(domain.MetricsSample{Marketplace: domain.Amazon, Success: true})
	}
	if got := len(sink.snapshot()); got != 0 {
		t.Fatalf("batches before threshold = %d, want 0", got)
	}
	if b.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", b.Pending())
	}

	b.Record(domain.MetricsSample{Marketplace: domain.Amazon, Success: true})
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })

	if got := len(sink.snapshot()[0]); got != 3 {
		t.Fatalf("batch size = %d, want 3", got)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending after flush = %d, want 0", b.Pending())
	}
}

func TestFailureSampleFlushesImmediately(t *testing.T) {
	sink := &recordingSink{}
	b := NewBatcher(sink, 10)
	defer b.Close()

	b.Record(domain.MetricsSample{Marketplace: domain.EBay, Success: true})
	b.Record(domain.MetricsSample{Marketplace: domain.EBay, Success: false, Error: "timeout"})

	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })
	batch := sink.snapshot()[0]
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	if batch[1].Error != "timeout" {
		t.Fatalf("error = %q, want timeout", batch[1].Error)
	}
}

func TestCloseDrainsBuffer(t *testing.T) {
	sink := &recordingSink{}
	b := NewBatcher(sink, 100)

	for i := 0; i < 7; i++ {
		b.Record(domain.MetricsSample{Marketplace: domain.Walmart, Success: true})
	}
	b.Close()

	batches := sink.snapshot()
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	if total != 7 {
		t.Fatalf("samples written = %d, want 7", total)
	}
}

func TestNilSinkIsNoop(t *testing.T) {
	b := NewBatcher(nil, 1)
	b.Record(domain.MetricsSample{Marketplace: domain.Amazon, Success: false})
	b.Close()
}
