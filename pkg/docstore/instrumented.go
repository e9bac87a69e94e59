package docstore

import (
	"context"
	"time"

	"github.com/schedario/schedario/pkg/observability/metrics"
)

// InstrumentedStore wraps a Store and records a Prometheus counter and
// duration histogram per operation, labelled by collection, operation and
// status, plus an in-flight gauge.
type InstrumentedStore struct {
	inner Store
}

// NewInstrumentedStore wraps inner with Prometheus instrumentation.
func NewInstrumentedStore(inner Store) *InstrumentedStore {
	return &InstrumentedStore{inner: inner}
}

func (s *InstrumentedStore) Collection() string { return s.inner.Collection() }

func (s *InstrumentedStore) record(operation string, start time.Time, err error) {
	metrics.RecordStoreOperation(s.Collection(), operation, err, time.Since(start))
	metrics.DecrementInFlight()
}

func (s *InstrumentedStore) List(ctx context.Context, limit int, orderBy string, continuation *Cursor) (ListResult, error) {
	metrics.IncrementInFlight()
	start := time.Now()
	res, err := s.inner.List(ctx, limit, orderBy, continuation)
	s.record("list", start, err)
	return res, err
}

func (s *InstrumentedStore) GetAll(ctx context.Context) (ResultMap, error) {
	metrics.IncrementInFlight()
	start := time.Now()
	docs, err := s.inner.GetAll(ctx)
	s.record("get_all", start, err)
	return docs, err
}

func (s *InstrumentedStore) Find(ctx context.Context, opts FindOptions) (ResultMap, error) {
	metrics.IncrementInFlight()
	start := time.Now()
	docs, err := s.inner.Find(ctx, opts)
	s.record("find", start, err)
	return docs, err
}

func (s *InstrumentedStore) FindByID(ctx context.Context, id string) (Document, error) {
	metrics.IncrementInFlight()
	start := time.Now()
	doc, err := s.inner.FindByID(ctx, id)
	s.record("find_by_id", start, err)
	return doc, err
}

func (s *InstrumentedStore) FindByIDs(ctx context.Context, ids []string) (ResultMap, error) {
	metrics.IncrementInFlight()
	start := time.Now()
	docs, err := s.inner.FindByIDs(ctx, ids)
	s.record("find_by_ids", start, err)
	return docs, err
}

func (s *InstrumentedStore) Create(ctx context.Context, entity Document) (Document, error) {
	metrics.IncrementInFlight()
	start := time.Now()
	doc, err := s.inner.Create(ctx, entity)
	s.record("create", start, err)
	return doc, err
}

func (s *InstrumentedStore) Update(ctx context.Context, id string, values Document) (Document, error) {
	metrics.IncrementInFlight()
	start := time.Now()
	doc, err := s.inner.Update(ctx, id, values)
	s.record("update", start, err)
	return doc, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, id string) (Document, error) {
	metrics.IncrementInFlight()
	start := time.Now()
	doc, err := s.inner.Delete(ctx, id)
	s.record("delete", start, err)
	return doc, err
}

var _ Store = (*InstrumentedStore)(nil)
