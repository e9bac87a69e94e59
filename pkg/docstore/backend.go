package docstore

import "context"

// The interfaces below are the capability surface a document-store backend
// exposes to the adapter. Implementations live under pkg/store; the adapter
// never imports a driver directly.

// Client is a process-wide backend client. Its lifecycle is owned by the
// ClientRegistry that created it.
type Client interface {
	Database() Database
	Close() error
}

// Database hands out collection references by name.
type Database interface {
	Collection(name string) CollectionRef
}

// CollectionRef is a handle to one logical collection: a query root plus
// per-document references.
type CollectionRef interface {
	Query
	Doc(id string) DocRef
}

// Query builds and executes a read. Builder methods return derived queries
// and never fail; invalid compositions surface as errors at Get. Ordering is
// ascending, and ordered results tiebreak on "_id" ascending so anchored
// continuation is deterministic under duplicate sort values.
type Query interface {
	Where(field string, op Op, value any) Query
	OrderBy(field string) Query
	Limit(n int) Query
	StartAfter(anchor Anchor) Query
	Get(ctx context.Context) (QuerySnapshot, error)
}

// Anchor marks the position an ordered query resumes after: the last-seen
// value of the primary order field and the last-seen id.
type Anchor struct {
	SortValue any
	ID        string
}

// DocRef is a handle to one document slot.
type DocRef interface {
	// Get returns a snapshot; a missing document is a snapshot with
	// Exists() == false, not an error.
	Get(ctx context.Context) (DocSnapshot, error)
	// Set writes the full document, overwriting any existing one.
	Set(ctx context.Context, doc Document) error
	// Update merges values field-by-field into the existing document and
	// returns a NotFoundError when no document exists.
	Update(ctx context.Context, values Document) error
	Delete(ctx context.Context) error
}

// DocSnapshot is the state of one document slot at read time.
type DocSnapshot interface {
	ID() string
	Exists() bool
	Data() Document
}

// QuerySnapshot is the result of an executed query, in result order.
type QuerySnapshot interface {
	Docs() []DocSnapshot
}
