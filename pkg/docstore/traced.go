package docstore

import (
	"context"

	"github.com/schedario/schedario/pkg/observability/tracing"
)

// TracedStore wraps a Store and opens an OpenTelemetry span around every
// operation, recording the collection, the targeted document id where there
// is one, and the outcome.
type TracedStore struct {
	inner   Store
	backend string
}

// NewTracedStore wraps inner with tracing. backend names the underlying
// system (e.g. "mongodb") and may be empty.
func NewTracedStore(inner Store, backend string) *TracedStore {
	return &TracedStore{inner: inner, backend: backend}
}

func (s *TracedStore) Collection() string { return s.inner.Collection() }

func (s *TracedStore) start(ctx context.Context, op tracing.SpanOperation, extra ...tracing.StoreSpanOption) (context.Context, func(error)) {
	opts := append([]tracing.StoreSpanOption{
		tracing.WithStoreCollection(s.Collection()),
	}, extra...)
	if s.backend != "" {
		opts = append(opts, tracing.WithStoreBackend(s.backend))
	}

	ctx, span := tracing.StartStoreSpan(ctx, op, opts...)
	return ctx, func(err error) {
		if err != nil {
			tracing.RecordError(span, err)
		} else {
			tracing.RecordSuccess(span)
		}
		span.End()
	}
}

func (s *TracedStore) List(ctx context.Context, limit int, orderBy string, continuation *Cursor) (ListResult, error) {
	ctx, end := s.start(ctx, tracing.SpanOperationStoreList, tracing.WithStoreLimit(limit))
	res, err := s.inner.List(ctx, limit, orderBy, continuation)
	end(err)
	return res, err
}

func (s *TracedStore) GetAll(ctx context.Context) (ResultMap, error) {
	ctx, end := s.start(ctx, tracing.SpanOperationStoreGetAll)
	docs, err := s.inner.GetAll(ctx)
	end(err)
	return docs, err
}

func (s *TracedStore) Find(ctx context.Context, opts FindOptions) (ResultMap, error) {
	ctx, end := s.start(ctx, tracing.SpanOperationStoreFind, tracing.WithStoreLimit(opts.Limit))
	docs, err := s.inner.Find(ctx, opts)
	end(err)
	return docs, err
}

func (s *TracedStore) FindByID(ctx context.Context, id string) (Document, error) {
	ctx, end := s.start(ctx, tracing.SpanOperationStoreGet, tracing.WithStoreDocumentID(id))
	doc, err := s.inner.FindByID(ctx, id)
	end(err)
	return doc, err
}

func (s *TracedStore) FindByIDs(ctx context.Context, ids []string) (ResultMap, error) {
	ctx, end := s.start(ctx, tracing.SpanOperationStoreFind, tracing.WithStoreLimit(len(ids)))
	docs, err := s.inner.FindByIDs(ctx, ids)
	end(err)
	return docs, err
}

func (s *TracedStore) Create(ctx context.Context, entity Document) (Document, error) {
	ctx, end := s.start(ctx, tracing.SpanOperationStoreCreate, tracing.WithStoreDocumentID(entity.ID()))
	doc, err := s.inner.Create(ctx, entity)
	end(err)
	return doc, err
}

func (s *TracedStore) Update(ctx context.Context, id string, values Document) (Document, error) {
	ctx, end := s.start(ctx, tracing.SpanOperationStoreUpdate, tracing.WithStoreDocumentID(id))
	doc, err := s.inner.Update(ctx, id, values)
	end(err)
	return doc, err
}

func (s *TracedStore) Delete(ctx context.Context, id string) (Document, error) {
	ctx, end := s.start(ctx, tracing.SpanOperationStoreDelete, tracing.WithStoreDocumentID(id))
	doc, err := s.inner.Delete(ctx, id)
	end(err)
	return doc, err
}

var _ Store = (*TracedStore)(nil)
