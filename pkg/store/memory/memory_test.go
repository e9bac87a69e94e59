package memory

import (
	"context"
	"testing"

	"github.com/schedario/schedario/pkg/docstore"
)

func seed(t *testing.T, client *Client, collection string, docs ...docstore.Document) {
	t.Helper()
	coll := client.Database().Collection(collection)
	for _, doc := range docs {
		if err := coll.Doc(doc.ID()).Set(context.Background(), doc); err != nil {
			t.Fatalf("failed to seed document %q: %v", doc.ID(), err)
		}
	}
}

func docIDs(t *testing.T, snap docstore.QuerySnapshot) []string {
	t.Helper()
	snaps := snap.Docs()
	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ID()
	}
	return ids
}

func TestDocRef_SetAndGet(t *testing.T) {
	client := NewClient()
	coll := client.Database().Collection("books")

	doc := docstore.Document{"_id": "b1", "title": "Il Gattopardo", "year": 1958}
	if err := coll.Doc("b1").Set(context.Background(), doc); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	snap, err := coll.Doc("b1").Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !snap.Exists() {
		t.Fatal("expected document to exist")
	}
	if snap.ID() != "b1" {
		t.Errorf("expected id b1, got %q", snap.ID())
	}
	if snap.Data()["title"] != "Il Gattopardo" {
		t.Errorf("unexpected title: %v", snap.Data()["title"])
	}
}

func TestDocRef_GetMissing(t *testing.T) {
	client := NewClient()
	coll := client.Database().Collection("books")

	snap, err := coll.Doc("nope").Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if snap.Exists() {
		t.Fatal("expected missing document")
	}
}

func TestDocRef_SetForcesID(t *testing.T) {
	client := NewClient()
	coll := client.Database().Collection("books")

	if err := coll.Doc("b1").Set(context.Background(), docstore.Document{"title": "x"}); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	snap, err := coll.Doc("b1").Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if snap.Data().ID() != "b1" {
		t.Errorf("expected stored _id b1, got %q", snap.Data().ID())
	}
}

func TestDocRef_Update_MergesFields(t *testing.T) {
	client := NewClient()
	coll := client.Database().Collection("books")
	seed(t, client, "books", docstore.Document{"_id": "b1", "title": "old", "year": 1958})

	if err := coll.Doc("b1").Update(context.Background(), docstore.Document{"title": "new"}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	snap, err := coll.Doc("b1").Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if snap.Data()["title"] != "new" {
		t.Errorf("expected updated title, got %v", snap.Data()["title"])
	}
	if snap.Data()["year"] != 1958 {
		t.Errorf("expected untouched year, got %v", snap.Data()["year"])
	}
}

func TestDocRef_Update_MissingReturnsNotFound(t *testing.T) {
	client := NewClient()
	coll := client.Database().Collection("books")

	err := coll.Doc("ghost").Update(context.Background(), docstore.Document{"title": "x"})
	if !docstore.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDocRef_Delete_MissingIsNoop(t *testing.T) {
	client := NewClient()
	coll := client.Database().Collection("books")

	if err := coll.Doc("ghost").Delete(context.Background()); err != nil {
		t.Fatalf("expected no error deleting missing document, got %v", err)
	}
}

func TestQuery_EqualityFilter(t *testing.T) {
	client := NewClient()
	seed(t, client, "books",
		docstore.Document{"_id": "b1", "status": "active"},
		docstore.Document{"_id": "b2", "status": "archived"},
		docstore.Document{"_id": "b3", "status": "active"},
	)
	coll := client.Database().Collection("books")

	snap, err := coll.Where("status", docstore.OpEqual, "active").Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(snap.Docs()) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(snap.Docs()))
	}
}

func TestQuery_ComparisonFilters(t *testing.T) {
	client := NewClient()
	seed(t, client, "books",
		docstore.Document{"_id": "b1", "year": 1950},
		docstore.Document{"_id": "b2", "year": 1960},
		docstore.Document{"_id": "b3", "year": 1970},
	)
	coll := client.Database().Collection("books")

	tests := []struct {
		name string
		op   docstore.Op
		want int
	}{
		{"less", docstore.OpLess, 1},
		{"less or equal", docstore.OpLessOrEqual, 2},
		{"greater", docstore.OpGreater, 1},
		{"greater or equal", docstore.OpGreaterOrEqual, 2},
		{"not equal", docstore.OpNotEqual, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := coll.Where("year", tt.op, 1960).Get(context.Background())
			if err != nil {
				t.Fatalf("Get returned error: %v", err)
			}
			if len(snap.Docs()) != tt.want {
				t.Errorf("expected %d documents, got %d", tt.want, len(snap.Docs()))
			}
		})
	}
}

func TestQuery_MembershipFilter(t *testing.T) {
	client := NewClient()
	seed(t, client, "books",
		docstore.Document{"_id": "b1"},
		docstore.Document{"_id": "b2"},
		docstore.Document{"_id": "b3"},
	)
	coll := client.Database().Collection("books")

	snap, err := coll.Where("_id", docstore.OpIn, []string{"b1", "b3", "missing"}).Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	got := docIDs(t, snap)
	if len(got) != 2 {
		t.Fatalf("expected 2 documents, got %v", got)
	}

	snap, err = coll.Where("_id", docstore.OpNotIn, []string{"b1"}).Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(snap.Docs()) != 2 {
		t.Fatalf("expected 2 documents, got %v", docIDs(t, snap))
	}
}

func TestQuery_NumericCrossTypeComparison(t *testing.T) {
	client := NewClient()
	seed(t, client, "books",
		docstore.Document{"_id": "b1", "year": int64(1950)},
		docstore.Document{"_id": "b2", "year": float64(1960)},
	)
	coll := client.Database().Collection("books")

	snap, err := coll.Where("year", docstore.OpLess, 1960).Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(snap.Docs()) != 1 || snap.Docs()[0].ID() != "b1" {
		t.Fatalf("expected only b1, got %v", docIDs(t, snap))
	}
}

func TestQuery_OrderBy_AscendingWithIDTiebreak(t *testing.T) {
	client := NewClient()
	seed(t, client, "books",
		docstore.Document{"_id": "b3", "name": "alpha"},
		docstore.Document{"_id": "b1", "name": "beta"},
		docstore.Document{"_id": "b2", "name": "alpha"},
	)
	coll := client.Database().Collection("books")

	snap, err := coll.OrderBy("name").Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	got := docIDs(t, snap)
	want := []string{"b2", "b3", "b1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v want %v", got, want)
		}
	}
}

func TestQuery_LimitAppliesAfterSort(t *testing.T) {
	client := NewClient()
	seed(t, client, "books",
		docstore.Document{"_id": "b1", "status": "active", "name": "delta"},
		docstore.Document{"_id": "b2", "status": "active", "name": "alpha"},
		docstore.Document{"_id": "b3", "status": "active", "name": "echo"},
		docstore.Document{"_id": "b4", "status": "active", "name": "bravo"},
		docstore.Document{"_id": "b5", "status": "active", "name": "charlie"},
		docstore.Document{"_id": "b6", "status": "archived", "name": "aardvark"},
		docstore.Document{"_id": "b7", "status": "archived", "name": "abacus"},
		docstore.Document{"_id": "b8", "status": "archived", "name": "abbey"},
	)
	coll := client.Database().Collection("books")

	snap, err := coll.
		Where("status", docstore.OpEqual, "active").
		Limit(2).
		OrderBy("name").
		Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	got := docIDs(t, snap)
	if len(got) != 2 || got[0] != "b2" || got[1] != "b4" {
		t.Fatalf("expected the two alphabetically-first active documents, got %v", got)
	}
}

func TestQuery_StartAfter_ResumesAfterAnchor(t *testing.T) {
	client := NewClient()
	seed(t, client, "books",
		docstore.Document{"_id": "b1", "name": "alpha"},
		docstore.Document{"_id": "b2", "name": "bravo"},
		docstore.Document{"_id": "b3", "name": "charlie"},
	)
	coll := client.Database().Collection("books")

	snap, err := coll.OrderBy("name").StartAfter(docstore.Anchor{SortValue: "alpha", ID: "b1"}).Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	got := docIDs(t, snap)
	if len(got) != 2 || got[0] != "b2" || got[1] != "b3" {
		t.Fatalf("expected b2,b3 after anchor, got %v", got)
	}
}

func TestQuery_StartAfter_DuplicateSortValues(t *testing.T) {
	client := NewClient()
	seed(t, client, "books",
		docstore.Document{"_id": "b1", "name": "same"},
		docstore.Document{"_id": "b2", "name": "same"},
		docstore.Document{"_id": "b3", "name": "same"},
	)
	coll := client.Database().Collection("books")

	snap, err := coll.OrderBy("name").StartAfter(docstore.Anchor{SortValue: "same", ID: "b2"}).Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	got := docIDs(t, snap)
	if len(got) != 1 || got[0] != "b3" {
		t.Fatalf("expected only b3 after anchor id b2, got %v", got)
	}
}

func TestQuery_StartAfterWithoutOrderFails(t *testing.T) {
	client := NewClient()
	coll := client.Database().Collection("books")

	_, err := coll.StartAfter(docstore.Anchor{ID: "b1"}).Get(context.Background())
	if err == nil {
		t.Fatal("expected error for start after without ordering")
	}
}

func TestQuery_UnsupportedOperator(t *testing.T) {
	client := NewClient()
	seed(t, client, "books", docstore.Document{"_id": "b1"})
	coll := client.Database().Collection("books")

	_, err := coll.Where("x", docstore.Op("~"), 1).Get(context.Background())
	if err == nil {
		t.Fatal("expected error for unsupported operator")
	}
}

func TestClient_CloseRejectsOperations(t *testing.T) {
	client := NewClient()
	coll := client.Database().Collection("books")

	if err := client.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check failure on closed client")
	}
	if _, err := coll.Get(context.Background()); err == nil {
		t.Fatal("expected query failure on closed client")
	}
	if err := coll.Doc("b1").Set(context.Background(), docstore.Document{"_id": "b1"}); err == nil {
		t.Fatal("expected write failure on closed client")
	}
}

func TestClient_CallersNeverShareStoredMemory(t *testing.T) {
	client := NewClient()
	original := docstore.Document{"_id": "b1", "tags": []any{"one"}}
	seed(t, client, "books", original)
	coll := client.Database().Collection("books")

	snap, err := coll.Doc("b1").Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	snap.Data()["title"] = "mutated"
	original["injected"] = true

	again, err := coll.Doc("b1").Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if _, ok := again.Data()["title"]; ok {
		t.Error("mutation of a returned document leaked into the store")
	}
	if _, ok := again.Data()["injected"]; ok {
		t.Error("mutation of the seeded document leaked into the store")
	}
}

func TestQuery_CanceledContext(t *testing.T) {
	client := NewClient()
	coll := client.Database().Collection("books")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := coll.Get(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
