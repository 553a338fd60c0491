package store

import (
	"context"

	"simexec/internal/schema"
)

// Sink buffers reports and writes them in batches. It is not safe for
// concurrent use; feed it from a single consumer such as a bus.Queue.
type Sink struct {
	store   *Store
	pending []schema.ExecutionReport
	limit   int
	saved   int
}

func NewSink(s *Store, batch int) *Sink {
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Sink{store: s, limit: batch, pending: make([]schema.ExecutionReport, 0, batch)}
}

// Add buffers a report and flushes once the batch is full.
func (s *Sink) Add(ctx context.Context, r schema.ExecutionReport) error {
	s.pending = append(s.pending, r)
	if len(s.pending) < s.limit {
		return nil
	}
	return s.Flush(ctx)
}

// Flush writes every buffered report. Reports stay buffered on failure.
func (s *Sink) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.store.SaveReports(ctx, s.pending); err != nil {
		return err
	}
	s.saved += len(s.pending)
	s.pending = s.pending[:0]
	return nil
}

func (s *Sink) Pending() int {
	return len(s.pending)
}

func (s *Sink) Saved() int {
	return s.saved
}
