package storage

import (
	"context"

	"github.com/papyrus-app/papyrus/internal/document"
	"github.com/papyrus-app/papyrus/pkg/metrics"
)

// Instrumented counts storage operations per collection. One GetBatch call
// counts once regardless of how many identifiers it carries, which makes
// the resolver's batching visible on the dashboard.
type Instrumented struct {
	next Storage
}

// NewInstrumented wraps next with prometheus counters.
func NewInstrumented(next Storage) *Instrumented {
	return &Instrumented{next: next}
}

func (s *Instrumented) GetByID(ctx context.Context, collection, id string) (document.Document, error) {
	metrics.StorageLookups.WithLabelValues(collection, "get").Inc()
	return s.next.GetByID(ctx, collection, id)
}

func (s *Instrumented) GetBatch(ctx context.Context, collection string, ids []string) (map[string]document.Document, error) {
	metrics.StorageLookups.WithLabelValues(collection, "batch").Inc()
	return s.next.GetBatch(ctx, collection, ids)
}

func (s *Instrumented) Insert(ctx context.Context, collection string, doc document.Document) (string, error) {
	metrics.StorageLookups.WithLabelValues(collection, "insert").Inc()
	return s.next.Insert(ctx, collection, doc)
}

func (s *Instrumented) Update(ctx context.Context, collection, id string, set document.Document) error {
	metrics.StorageLookups.WithLabelValues(collection, "update").Inc()
	return s.next.Update(ctx, collection, id, set)
}

func (s *Instrumented) Delete(ctx context.Context, collection, id string) error {
	metrics.StorageLookups.WithLabelValues(collection, "delete").Inc()
	return s.next.Delete(ctx, collection, id)
}
