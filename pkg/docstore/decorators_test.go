package docstore_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/schedario/schedario/pkg/docstore"
)

// The instrumented and traced decorators must forward every operation
// unchanged; metrics and spans are side channels.

func TestInstrumentedStore_ForwardsOperations(t *testing.T) {
	ctx := context.Background()
	adapter := newConnectedAdapter(t)
	store := docstore.NewInstrumentedStore(adapter)

	if store.Collection() != "books" {
		t.Errorf("expected collection books, got %q", store.Collection())
	}

	created, err := store.Create(ctx, docstore.Document{"_id": "book-1", "name": "Dune"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := store.FindByID(ctx, "book-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if !reflect.DeepEqual(created, got) {
		t.Errorf("expected %v, got %v", created, got)
	}

	if _, err := store.FindByID(ctx, "ghost"); !docstore.IsNotFound(err) {
		t.Errorf("expected NotFoundError through decorator, got %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll returned error: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 document, got %d", len(all))
	}

	if _, err := store.Delete(ctx, "book-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}

func TestTracedStore_ForwardsOperations(t *testing.T) {
	ctx := context.Background()
	adapter := newConnectedAdapter(t)
	store := docstore.NewTracedStore(adapter, "memory")

	if store.Collection() != "books" {
		t.Errorf("expected collection books, got %q", store.Collection())
	}

	if _, err := store.Create(ctx, docstore.Document{"_id": "book-1", "name": "Dune", "status": "active"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := store.Create(ctx, docstore.Document{"_id": "book-2", "name": "Hyperion", "status": "active"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	docs, err := store.Find(ctx, docstore.FindOptions{
		Conditions: []docstore.Condition{docstore.Where("status", docstore.OpEqual, "active")},
		OrderBy:    []string{"name"},
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if _, ok := docs["book-1"]; !ok {
		t.Errorf("expected first document by name, got %v", docs.IDs())
	}

	res, err := store.List(ctx, 1, "name", nil)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	page, ok := res.(docstore.Page)
	if !ok {
		t.Fatalf("expected Page result, got %T", res)
	}
	if page.Next == nil {
		t.Error("expected a continuation cursor")
	}

	if _, err := store.Update(ctx, "book-1", docstore.Document{"status": "archived"}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if _, err := store.Delete(ctx, "book-2"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}

func TestDecoratorsCompose(t *testing.T) {
	ctx := context.Background()
	adapter := newConnectedAdapter(t)

	cache := newFakeCache()
	var store docstore.Store = adapter
	store = docstore.NewCachedStore(store, cache, docstore.CacheConfig{}, nil)
	store = docstore.NewInstrumentedStore(store)
	store = docstore.NewTracedStore(store, "memory")

	if _, err := store.Create(ctx, docstore.Document{"_id": "book-1", "name": "Dune"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	doc, err := store.FindByID(ctx, "book-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if doc["name"] != "Dune" {
		t.Errorf("expected Dune, got %v", doc["name"])
	}
	if cache.len() != 1 {
		t.Errorf("expected cache fill through the stack, got %d entries", cache.len())
	}
}
