package docstore

import "context"

// Store is the operation surface of a connected collection adapter. The
// decorators in this package wrap it to add caching, metrics, tracing and
// change notifications without touching the adapter itself.
type Store interface {
	Collection() string
	List(ctx context.Context, limit int, orderBy string, continuation *Cursor) (ListResult, error)
	GetAll(ctx context.Context) (ResultMap, error)
	Find(ctx context.Context, opts FindOptions) (ResultMap, error)
	FindByID(ctx context.Context, id string) (Document, error)
	FindByIDs(ctx context.Context, ids []string) (ResultMap, error)
	Create(ctx context.Context, entity Document) (Document, error)
	Update(ctx context.Context, id string, values Document) (Document, error)
	Delete(ctx context.Context, id string) (Document, error)
}

var _ Store = (*CollectionAdapter)(nil)
