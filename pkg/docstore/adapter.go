package docstore

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/schedario/schedario/pkg/config"
	"github.com/schedario/schedario/pkg/observability/logger"
)

// Owner declares the collection a service operates on. Init fails when the
// declared name is empty.
type Owner interface {
	CollectionName() string
}

// CollectionOwner adapts a plain collection name to the Owner interface.
type CollectionOwner string

// CollectionName returns the collection name.
func (o CollectionOwner) CollectionName() string { return string(o) }

// Options configures a CollectionAdapter.
type Options struct {
	// Config selects and configures the backend.
	Config config.DatabaseConfig
	// Factory builds the backend client. Required; pkg/store provides one.
	Factory ClientFactory
	// Registry deduplicates clients across adapters. DefaultRegistry when nil.
	Registry *ClientRegistry
	// Logger defaults to a no-op logger.
	Logger logger.Logger
}

// CollectionAdapter translates collection CRUD and pagination calls into the
// backend capability interfaces. Lifecycle: New stores configuration, Init
// ensures a shared client, Connect acquires the collection handle, and
// Disconnect releases it. Operations are valid only while connected and fail
// fast with ErrNotConnected otherwise.
type CollectionAdapter struct {
	cfg      config.DatabaseConfig
	factory  ClientFactory
	registry *ClientRegistry
	log      logger.Logger

	mu         sync.RWMutex
	collection string
	client     Client
	db         Database
	coll       CollectionRef
}

// New creates an adapter. No side effects until Init.
func New(opts Options) *CollectionAdapter {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &CollectionAdapter{
		cfg:      opts.Config,
		factory:  opts.Factory,
		registry: registry,
		log:      log,
	}
}

// Init validates the owner's collection name and ensures a process-wide
// client exists for the configuration, reusing one registered earlier.
// Idempotent across repeated calls with the same configuration.
func (a *CollectionAdapter) Init(ctx context.Context, owner Owner) error {
	if owner == nil || strings.TrimSpace(owner.CollectionName()) == "" {
		return NewConfigurationError("owner does not declare a collection name")
	}
	if a.factory == nil {
		return NewConfigurationError("no client factory configured")
	}

	client, err := a.registry.GetOrCreate(ctx, a.cfg, a.log, a.factory)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.collection = owner.CollectionName()
	a.client = client
	a.mu.Unlock()

	a.log.Debug("collection adapter initialized",
		"collection", owner.CollectionName(),
		"backend", a.cfg.Type)
	return nil
}

// Connect acquires the database and collection handles. Callable again after
// Disconnect.
func (a *CollectionAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return NewConfigurationError("adapter is not initialized")
	}

	a.db = a.client.Database()
	a.coll = a.db.Collection(a.collection)

	a.log.Debug("collection adapter connected", "collection", a.collection)
	return nil
}

// Disconnect clears the stored handles. No error if already disconnected.
// The shared client stays registered; closing it is the registry's job.
func (a *CollectionAdapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.db = nil
	a.coll = nil

	a.log.Debug("collection adapter disconnected", "collection", a.collection)
	return nil
}

// Collection returns the collection name declared at Init.
func (a *CollectionAdapter) Collection() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.collection
}

func (a *CollectionAdapter) handle() (CollectionRef, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.coll == nil {
		return nil, ErrNotConnected
	}
	return a.coll, nil
}

// List is polymorphic on its arguments. With a continuation it executes the
// next page; with an orderBy it starts an ordered, limited listing; with
// neither it fetches the entire collection and returns the bare mapping
// (limit is ignored on that branch). Paged calls return Page, bare calls
// return All.
func (a *CollectionAdapter) List(ctx context.Context, limit int, orderBy string, continuation *Cursor) (ListResult, error) {
	coll, err := a.handle()
	if err != nil {
		return nil, err
	}

	switch {
	case continuation != nil:
		order := continuation.OrderBy
		if orderBy != "" {
			order = orderBy
		}
		if order == "" {
			return nil, NewConfigurationError("continuation cursor carries no ordering criterion")
		}
		n := continuation.Limit
		if limit > 0 {
			n = limit
		}
		anchor := continuation.anchor()
		return a.page(ctx, coll, n, order, &anchor)
	case orderBy != "":
		return a.page(ctx, coll, limit, orderBy, nil)
	default:
		docs, err := a.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return All{Docs: docs}, nil
	}
}

func (a *CollectionAdapter) page(ctx context.Context, coll CollectionRef, limit int, orderBy string, after *Anchor) (ListResult, error) {
	var q Query = coll.OrderBy(orderBy)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if after != nil {
		q = q.StartAfter(*after)
	}

	snap, err := q.Get(ctx)
	if err != nil {
		return nil, &BackendError{Op: "list", Err: err}
	}

	docs, last := flatten(snap)
	if last == nil {
		return Page{Docs: docs}, nil
	}
	next := &Cursor{
		OrderBy:   orderBy,
		Limit:     limit,
		LastValue: last.Data()[orderBy],
		LastID:    last.ID(),
	}
	return Page{Docs: docs, Next: next}, nil
}

// GetAll fetches every document, unfiltered, unordered, unlimited. An empty
// collection yields an empty map.
func (a *CollectionAdapter) GetAll(ctx context.Context) (ResultMap, error) {
	coll, err := a.handle()
	if err != nil {
		return nil, err
	}

	snap, err := coll.Get(ctx)
	if err != nil {
		return nil, &BackendError{Op: "get all", Err: err}
	}

	docs, _ := flatten(snap)
	return docs, nil
}

// Find composes conditions, limit and ascending orderings into one query and
// executes it once. A limited ordered query returns the first documents of
// the sorted filtered set.
func (a *CollectionAdapter) Find(ctx context.Context, opts FindOptions) (ResultMap, error) {
	coll, err := a.handle()
	if err != nil {
		return nil, err
	}

	var q Query = coll
	for _, c := range opts.Conditions {
		q = q.Where(c.Field, c.Op, c.Value)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	for _, field := range opts.OrderBy {
		q = q.OrderBy(field)
	}

	snap, err := q.Get(ctx)
	if err != nil {
		return nil, &BackendError{Op: "find", Err: err}
	}

	docs, _ := flatten(snap)
	return docs, nil
}

// FindByID fetches one document, returning a NotFoundError when absent.
func (a *CollectionAdapter) FindByID(ctx context.Context, id string) (Document, error) {
	coll, err := a.handle()
	if err != nil {
		return nil, err
	}

	snap, err := coll.Doc(id).Get(ctx)
	if err != nil {
		return nil, &BackendError{Op: "find by id", Err: err}
	}
	if !snap.Exists() {
		return nil, &NotFoundError{Collection: a.Collection(), ID: id}
	}
	return snap.Data(), nil
}

// FindByIDs fetches the documents whose ids are in ids. Only existing ids
// appear as keys.
func (a *CollectionAdapter) FindByIDs(ctx context.Context, ids []string) (ResultMap, error) {
	if len(ids) == 0 {
		return ResultMap{}, nil
	}
	return a.Find(ctx, FindOptions{
		Conditions: []Condition{Where(IDField, OpIn, ids)},
	})
}

// Create writes the full document at its "_id", overwriting any existing
// document, then re-reads and returns it. Two round trips.
func (a *CollectionAdapter) Create(ctx context.Context, entity Document) (Document, error) {
	coll, err := a.handle()
	if err != nil {
		return nil, err
	}

	id := entity.ID()
	if id == "" {
		return nil, NewConfigurationError("document is missing required field %q", IDField)
	}

	if err := coll.Doc(id).Set(ctx, entity); err != nil {
		return nil, &BackendError{Op: "create", Err: err}
	}
	return a.FindByID(ctx, id)
}

// Update merges values into the document at id using the backend's partial
// update, then returns the full document via re-read. A missing document
// surfaces as a NotFoundError.
func (a *CollectionAdapter) Update(ctx context.Context, id string, values Document) (Document, error) {
	coll, err := a.handle()
	if err != nil {
		return nil, err
	}

	if err := coll.Doc(id).Update(ctx, values); err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, err
		}
		return nil, &BackendError{Op: "update", Err: err}
	}
	return a.FindByID(ctx, id)
}

// Delete captures the current document body, deletes it, and returns the
// captured body. A missing document surfaces as a NotFoundError.
func (a *CollectionAdapter) Delete(ctx context.Context, id string) (Document, error) {
	coll, err := a.handle()
	if err != nil {
		return nil, err
	}

	prior, err := a.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := coll.Doc(id).Delete(ctx); err != nil {
		return nil, &BackendError{Op: "delete", Err: err}
	}
	return prior, nil
}

func flatten(snap QuerySnapshot) (ResultMap, DocSnapshot) {
	snaps := snap.Docs()
	out := make(ResultMap, len(snaps))
	var last DocSnapshot
	for _, s := range snaps {
		out[s.ID()] = s.Data()
		last = s
	}
	return out, last
}
