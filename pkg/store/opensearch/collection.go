package opensearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/schedario/schedario/pkg/docstore"
)

type database struct {
	adapter *OpenSearchAdapter
}

func (d *database) Collection(name string) docstore.CollectionRef {
	return &collection{adapter: d.adapter, index: name}
}

type collection struct {
	adapter *OpenSearchAdapter
	index   string
}

func (c *collection) Doc(id string) docstore.DocRef {
	return &docRef{adapter: c.adapter, index: c.index, id: id}
}

func (c *collection) query() *query {
	return &query{adapter: c.adapter, index: c.index}
}

func (c *collection) Where(field string, op docstore.Op, value any) docstore.Query {
	return c.query().Where(field, op, value)
}

func (c *collection) OrderBy(field string) docstore.Query {
	return c.query().OrderBy(field)
}

func (c *collection) Limit(n int) docstore.Query {
	return c.query().Limit(n)
}

func (c *collection) StartAfter(anchor docstore.Anchor) docstore.Query {
	return c.query().StartAfter(anchor)
}

func (c *collection) Get(ctx context.Context) (docstore.QuerySnapshot, error) {
	return c.query().Get(ctx)
}

type query struct {
	adapter     *OpenSearchAdapter
	index       string
	conds       []docstore.Condition
	orderFields []string
	anchor      *docstore.Anchor
	limit       int
}

func (q *query) clone() *query {
	out := *q
	out.conds = append([]docstore.Condition(nil), q.conds...)
	out.orderFields = append([]string(nil), q.orderFields...)
	return &out
}

func (q *query) Where(field string, op docstore.Op, value any) docstore.Query {
	out := q.clone()
	out.conds = append(out.conds, docstore.Condition{Field: field, Op: op, Value: value})
	return out
}

func (q *query) OrderBy(field string) docstore.Query {
	out := q.clone()
	out.orderFields = append(out.orderFields, field)
	return out
}

func (q *query) Limit(n int) docstore.Query {
	out := q.clone()
	out.limit = n
	return out
}

func (q *query) StartAfter(anchor docstore.Anchor) docstore.Query {
	out := q.clone()
	out.anchor = &anchor
	return out
}

func (q *query) Get(ctx context.Context) (docstore.QuerySnapshot, error) {
	if q.anchor != nil && len(q.orderFields) == 0 {
		return nil, fmt.Errorf("start after requires an order field")
	}
	// The anchor carries one sort value, matching the single-field ordered
	// walk that produced it.
	if q.anchor != nil && len(q.orderFields) > 1 {
		return nil, fmt.Errorf("start after supports a single order field")
	}

	clauses, matchNone, err := q.buildClauses(ctx)
	if err != nil {
		return nil, err
	}
	if matchNone {
		return &querySnapshot{}, nil
	}

	sortSpec, err := q.sortSpec(ctx)
	if err != nil {
		return nil, err
	}

	var searchAfter []any
	if q.anchor != nil {
		searchAfter = []any{q.anchor.SortValue, q.anchor.ID}
	}

	if q.limit > 0 {
		hits, err := q.search(ctx, q.limit, clauses, sortSpec, searchAfter)
		if err != nil {
			return nil, err
		}
		return snapshotFromHits(hits), nil
	}

	// Unlimited queries drain the index page by page.
	var all []searchHit
	for {
		hits, err := q.search(ctx, searchPageSize, clauses, sortSpec, searchAfter)
		if err != nil {
			return nil, err
		}
		all = append(all, hits...)
		if len(hits) < searchPageSize {
			break
		}
		searchAfter = hits[len(hits)-1].Sort
	}
	return snapshotFromHits(all), nil
}

// buildClauses translates conditions into bool query clauses. The second
// return value reports a filter that can never match, such as membership in
// an empty list.
func (q *query) buildClauses(ctx context.Context) (boolClauses, bool, error) {
	var clauses boolClauses
	for _, cond := range q.conds {
		if cond.Field == docstore.IDField {
			matchNone, err := appendIDClause(&clauses, cond)
			if err != nil {
				return boolClauses{}, false, err
			}
			if matchNone {
				return boolClauses{}, true, nil
			}
			continue
		}

		field, err := q.adapter.resolveFieldName(ctx, q.index, cond.Field)
		if err != nil {
			return boolClauses{}, false, err
		}
		matchNone, err := appendFieldClause(&clauses, field, cond)
		if err != nil {
			return boolClauses{}, false, err
		}
		if matchNone {
			return boolClauses{}, true, nil
		}
	}
	return clauses, false, nil
}

func (q *query) sortSpec(ctx context.Context) ([]any, error) {
	tiebreak := map[string]any{shadowIDSort: map[string]any{"order": "asc", "unmapped_type": "keyword"}}

	if len(q.orderFields) > 0 {
		spec := make([]any, 0, len(q.orderFields)+1)
		for _, orderField := range q.orderFields {
			field, err := q.adapter.resolveFieldName(ctx, q.index, orderField)
			if err != nil {
				return nil, err
			}
			spec = append(spec, map[string]any{field: map[string]any{"order": "asc", "unmapped_type": "keyword"}})
		}
		return append(spec, tiebreak), nil
	}
	if q.limit == 0 {
		// Draining without an order still needs a stable walk.
		return []any{tiebreak}, nil
	}
	return nil, nil
}

func (q *query) search(ctx context.Context, size int, clauses boolClauses, sortSpec []any, searchAfter []any) ([]searchHit, error) {
	body := map[string]any{
		"size":  size,
		"query": clauses.query(),
	}
	if len(sortSpec) > 0 {
		body["sort"] = sortSpec
	}
	if searchAfter != nil {
		body["search_after"] = searchAfter
	}

	raw, err := q.adapter.Search(ctx, q.index, body)
	if err != nil {
		if errors.Is(err, errIndexNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var out searchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return out.Hits.Hits, nil
}

type boolClauses struct {
	filter  []any
	mustNot []any
}

func (b boolClauses) query() map[string]any {
	if len(b.filter) == 0 && len(b.mustNot) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	inner := map[string]any{}
	if len(b.filter) > 0 {
		inner["filter"] = b.filter
	}
	if len(b.mustNot) > 0 {
		inner["must_not"] = b.mustNot
	}
	return map[string]any{"bool": inner}
}

func appendIDClause(clauses *boolClauses, cond docstore.Condition) (bool, error) {
	switch cond.Op {
	case docstore.OpEqual:
		clauses.filter = append(clauses.filter, idsQuery([]any{cond.Value}))
	case docstore.OpNotEqual:
		clauses.mustNot = append(clauses.mustNot, idsQuery([]any{cond.Value}))
	case docstore.OpIn:
		values, err := toAnyList(cond.Value)
		if err != nil {
			return false, err
		}
		if len(values) == 0 {
			return true, nil
		}
		clauses.filter = append(clauses.filter, idsQuery(values))
	case docstore.OpNotIn:
		values, err := toAnyList(cond.Value)
		if err != nil {
			return false, err
		}
		if len(values) > 0 {
			clauses.mustNot = append(clauses.mustNot, idsQuery(values))
		}
	default:
		return false, fmt.Errorf("operator %s is not supported on %s", cond.Op, docstore.IDField)
	}
	return false, nil
}

func appendFieldClause(clauses *boolClauses, field string, cond docstore.Condition) (bool, error) {
	switch cond.Op {
	case docstore.OpEqual:
		clauses.filter = append(clauses.filter, map[string]any{
			"term": map[string]any{field: map[string]any{"value": cond.Value}},
		})
	case docstore.OpNotEqual:
		clauses.mustNot = append(clauses.mustNot, map[string]any{
			"term": map[string]any{field: map[string]any{"value": cond.Value}},
		})
	case docstore.OpLess:
		clauses.filter = append(clauses.filter, rangeQuery(field, "lt", cond.Value))
	case docstore.OpLessOrEqual:
		clauses.filter = append(clauses.filter, rangeQuery(field, "lte", cond.Value))
	case docstore.OpGreater:
		clauses.filter = append(clauses.filter, rangeQuery(field, "gt", cond.Value))
	case docstore.OpGreaterOrEqual:
		clauses.filter = append(clauses.filter, rangeQuery(field, "gte", cond.Value))
	case docstore.OpIn:
		values, err := toAnyList(cond.Value)
		if err != nil {
			return false, err
		}
		if len(values) == 0 {
			return true, nil
		}
		clauses.filter = append(clauses.filter, map[string]any{
			"terms": map[string]any{field: values},
		})
	case docstore.OpNotIn:
		values, err := toAnyList(cond.Value)
		if err != nil {
			return false, err
		}
		if len(values) > 0 {
			clauses.mustNot = append(clauses.mustNot, map[string]any{
				"terms": map[string]any{field: values},
			})
		}
	default:
		return false, fmt.Errorf("unsupported operator: %s", cond.Op)
	}
	return false, nil
}

func idsQuery(values []any) map[string]any {
	return map[string]any{"ids": map[string]any{"values": values}}
}

func rangeQuery(field, op string, value any) map[string]any {
	return map[string]any{"range": map[string]any{field: map[string]any{op: value}}}
}

func toAnyList(value any) ([]any, error) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("membership filter needs a list value, got %T", value)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
	Sort   []any          `json:"sort"`
}

func snapshotFromHits(hits []searchHit) *querySnapshot {
	snaps := make([]docstore.DocSnapshot, 0, len(hits))
	for _, hit := range hits {
		snaps = append(snaps, &docSnapshot{id: hit.ID, exists: true, data: documentFromSource(hit.ID, hit.Source)})
	}
	return &querySnapshot{docs: snaps}
}

func documentFromSource(id string, source map[string]any) docstore.Document {
	doc := docstore.Document{}
	for k, v := range source {
		if k == shadowIDField {
			continue
		}
		doc[k] = v
	}
	doc[docstore.IDField] = id
	return doc
}

type docRef struct {
	adapter *OpenSearchAdapter
	index   string
	id      string
}

func (d *docRef) Get(ctx context.Context) (docstore.DocSnapshot, error) {
	source, found, err := d.adapter.GetDocument(ctx, d.index, d.id)
	if err != nil {
		return nil, err
	}
	if !found {
		return &docSnapshot{id: d.id}, nil
	}
	return &docSnapshot{id: d.id, exists: true, data: documentFromSource(d.id, source)}, nil
}

func (d *docRef) Set(ctx context.Context, doc docstore.Document) error {
	body := doc.Clone()
	delete(body, docstore.IDField)
	body[shadowIDField] = d.id
	return d.adapter.IndexDocument(ctx, d.index, d.id, map[string]any(body))
}

func (d *docRef) Update(ctx context.Context, values docstore.Document) error {
	fields := values.Clone()
	delete(fields, docstore.IDField)
	delete(fields, shadowIDField)

	if len(fields) == 0 {
		snap, err := d.Get(ctx)
		if err != nil {
			return err
		}
		if !snap.Exists() {
			return &docstore.NotFoundError{Collection: d.index, ID: d.id}
		}
		return nil
	}

	err := d.adapter.UpdateDocument(ctx, d.index, d.id, map[string]any(fields))
	if errors.Is(err, ErrDocumentMissing) {
		return &docstore.NotFoundError{Collection: d.index, ID: d.id}
	}
	return err
}

func (d *docRef) Delete(ctx context.Context) error {
	return d.adapter.DeleteDocument(ctx, d.index, d.id)
}

type docSnapshot struct {
	id     string
	exists bool
	data   docstore.Document
}

func (s *docSnapshot) ID() string              { return s.id }
func (s *docSnapshot) Exists() bool            { return s.exists }
func (s *docSnapshot) Data() docstore.Document { return s.data }

type querySnapshot struct {
	docs []docstore.DocSnapshot
}

func (s *querySnapshot) Docs() []docstore.DocSnapshot { return s.docs }
