package docstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/schedario/schedario/pkg/observability/logger"
	"github.com/schedario/schedario/pkg/observability/metrics"
	"github.com/schedario/schedario/pkg/observability/tracing"
)

// Cache is the key-value surface the cached store reads through. The redis
// store adapter implements it; tests use an in-memory fake. A missing key is
// reported as found == false, not as an error.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheConfig configures the cached store decorator.
type CacheConfig struct {
	// Prefix namespaces cache keys, so several deployments can share one
	// cache instance. Defaults to "docstore".
	Prefix string
	// TTL bounds how long a cached document may be served. Defaults to five
	// minutes.
	TTL time.Duration
}

// CachedStore wraps a Store with a read-through document cache: FindByID
// serves from the cache when it can, and every mutation invalidates the
// touched document. Cache failures degrade to the backend and are logged,
// never surfaced to the caller.
type CachedStore struct {
	inner Store
	cache Cache
	cfg   CacheConfig
	log   logger.Logger
}

// NewCachedStore wraps inner with the read-through cache.
func NewCachedStore(inner Store, cache Cache, cfg CacheConfig, log logger.Logger) *CachedStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "docstore"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedStore{inner: inner, cache: cache, cfg: cfg, log: log}
}

func (s *CachedStore) Collection() string { return s.inner.Collection() }

func (s *CachedStore) key(id string) string {
	return s.cfg.Prefix + ":" + s.inner.Collection() + ":" + id
}

// FindByID serves the document from the cache when present, falling back to
// the backend and filling the cache on a miss. Not-found results are never
// cached.
func (s *CachedStore) FindByID(ctx context.Context, id string) (Document, error) {
	key := s.key(id)

	ctx, span := tracing.StartCacheSpan(ctx, tracing.SpanOperationCacheGet,
		tracing.WithCacheKey(key),
	)

	raw, found, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		tracing.RecordError(span, err)
		span.End()
		metrics.RecordCacheEvent(s.Collection(), metrics.CacheEventError)
		s.log.Warn("document cache read failed, falling back to backend",
			"collection", s.Collection(), "id", id, "error", err)
	case found:
		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			tracing.RecordError(span, err)
			span.End()
			metrics.RecordCacheEvent(s.Collection(), metrics.CacheEventError)
			s.log.Warn("document cache entry is corrupt, falling back to backend",
				"collection", s.Collection(), "id", id, "error", err)
		} else {
			tracing.RecordSuccess(span)
			span.End()
			metrics.RecordCacheEvent(s.Collection(), metrics.CacheEventHit)
			return doc, nil
		}
	default:
		tracing.RecordSuccess(span)
		span.End()
		metrics.RecordCacheEvent(s.Collection(), metrics.CacheEventMiss)
	}

	doc, err := s.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, key, id, doc)
	return doc, nil
}

func (s *CachedStore) fill(ctx context.Context, key, id string, doc Document) {
	payload, err := json.Marshal(doc)
	if err != nil {
		s.log.Warn("failed to encode document for cache",
			"collection", s.Collection(), "id", id, "error", err)
		return
	}
	if err := s.cache.SetWithTTL(ctx, key, string(payload), s.cfg.TTL); err != nil {
		metrics.RecordCacheEvent(s.Collection(), metrics.CacheEventError)
		s.log.Warn("failed to fill document cache",
			"collection", s.Collection(), "id", id, "error", err)
	}
}

func (s *CachedStore) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, s.key(id)); err != nil {
		metrics.RecordCacheEvent(s.Collection(), metrics.CacheEventError)
		s.log.Warn("failed to invalidate document cache",
			"collection", s.Collection(), "id", id, "error", err)
		return
	}
	metrics.RecordCacheEvent(s.Collection(), metrics.CacheEventInvalidate)
}

// Create writes through to the backend and invalidates the cached document.
func (s *CachedStore) Create(ctx context.Context, entity Document) (Document, error) {
	doc, err := s.inner.Create(ctx, entity)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, doc.ID())
	return doc, nil
}

// Update writes through to the backend and invalidates the cached document.
func (s *CachedStore) Update(ctx context.Context, id string, values Document) (Document, error) {
	doc, err := s.inner.Update(ctx, id, values)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return doc, nil
}

// Delete removes the document from the backend and the cache.
func (s *CachedStore) Delete(ctx context.Context, id string) (Document, error) {
	doc, err := s.inner.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return doc, nil
}

// Multi-document reads bypass the cache; only per-id lookups are cached.

func (s *CachedStore) List(ctx context.Context, limit int, orderBy string, continuation *Cursor) (ListResult, error) {
	return s.inner.List(ctx, limit, orderBy, continuation)
}

func (s *CachedStore) GetAll(ctx context.Context) (ResultMap, error) {
	return s.inner.GetAll(ctx)
}

func (s *CachedStore) Find(ctx context.Context, opts FindOptions) (ResultMap, error) {
	return s.inner.Find(ctx, opts)
}

func (s *CachedStore) FindByIDs(ctx context.Context, ids []string) (ResultMap, error) {
	return s.inner.FindByIDs(ctx, ids)
}

var _ Store = (*CachedStore)(nil)
