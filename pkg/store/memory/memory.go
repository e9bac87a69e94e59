package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schedario/schedario/pkg/docstore"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("memory client is closed")

// Client is an in-process document store implementing the backend capability
// interfaces. It backs unit tests, property tests and local runs; data lives
// in maps guarded by one lock, with copies on every read and write so callers
// never share memory with the store.
type Client struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Document
	closed      bool
}

// NewClient creates an empty in-process store.
func NewClient() *Client {
	return &Client{collections: make(map[string]map[string]docstore.Document)}
}

// Database returns the single database of this client.
func (c *Client) Database() docstore.Database {
	return &database{client: c}
}

// HealthCheck reports whether the client is usable.
func (c *Client) HealthCheck(_ context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the client closed. Subsequent operations fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Len returns the number of documents in a collection.
func (c *Client) Len(collection string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.collections[collection])
}

func (c *Client) snapshotCollection(name string) ([]docstore.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	coll := c.collections[name]
	out := make([]docstore.Document, 0, len(coll))
	for _, doc := range coll {
		out = append(out, doc.Clone())
	}
	return out, nil
}

type database struct {
	client *Client
}

func (d *database) Collection(name string) docstore.CollectionRef {
	return &collection{client: d.client, name: name}
}

type collection struct {
	client *Client
	name   string
}

func (c *collection) Doc(id string) docstore.DocRef {
	return &docRef{client: c.client, coll: c.name, id: id}
}

func (c *collection) query() *query {
	return &query{client: c.client, coll: c.name}
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
	client *Client
	coll   string
	conds  []docstore.Condition
	orders []string
	limit  int
	after  *docstore.Anchor
}

func (q *query) clone() *query {
	out := *q
	out.conds = append([]docstore.Condition(nil), q.conds...)
	out.orders = append([]string(nil), q.orders...)
	return &out
}

func (q *query) Where(field string, op docstore.Op, value any) docstore.Query {
	out := q.clone()
	out.conds = append(out.conds, docstore.Condition{Field: field, Op: op, Value: value})
	return out
}

func (q *query) OrderBy(field string) docstore.Query {
	out := q.clone()
	out.orders = append(out.orders, field)
	return out
}

func (q *query) Limit(n int) docstore.Query {
	out := q.clone()
	out.limit = n
	return out
}

func (q *query) StartAfter(anchor docstore.Anchor) docstore.Query {
	out := q.clone()
	out.after = &anchor
	return out
}

// Get evaluates the query as filter, then sort, then anchor skip, then limit.
// Ordered results tiebreak on "_id" ascending.
func (q *query) Get(ctx context.Context) (docstore.QuerySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.after != nil && len(q.orders) == 0 {
		return nil, fmt.Errorf("start after requires an ordering")
	}

	docs, err := q.client.snapshotCollection(q.coll)
	if err != nil {
		return nil, err
	}

	filtered := docs[:0]
	for _, doc := range docs {
		ok, err := matches(doc, q.conds)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, doc)
		}
	}

	if len(q.orders) > 0 {
		sortDocs(filtered, q.orders)
	}

	if q.after != nil {
		filtered = skipPastAnchor(filtered, q.orders[0], *q.after)
	}

	if q.limit > 0 && len(filtered) > q.limit {
		filtered = filtered[:q.limit]
	}

	snaps := make([]docstore.DocSnapshot, len(filtered))
	for i, doc := range filtered {
		snaps[i] = &docSnapshot{id: doc.ID(), exists: true, data: doc}
	}
	return &querySnapshot{docs: snaps}, nil
}

func matches(doc docstore.Document, conds []docstore.Condition) (bool, error) {
	for _, cond := range conds {
		ok, err := matchCondition(doc, cond)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchCondition(doc docstore.Document, cond docstore.Condition) (bool, error) {
	value, present := doc[cond.Field]

	switch cond.Op {
	case docstore.OpEqual:
		return present && equalValues(value, cond.Value), nil
	case docstore.OpNotEqual:
		return present && !equalValues(value, cond.Value), nil
	case docstore.OpLess, docstore.OpLessOrEqual, docstore.OpGreater, docstore.OpGreaterOrEqual:
		if !present {
			return false, nil
		}
		c, comparable := compareValues(value, cond.Value)
		if !comparable {
			return false, nil
		}
		switch cond.Op {
		case docstore.OpLess:
			return c < 0, nil
		case docstore.OpLessOrEqual:
			return c <= 0, nil
		case docstore.OpGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case docstore.OpIn:
		return present && containsValue(cond.Value, value), nil
	case docstore.OpNotIn:
		return present && !containsValue(cond.Value, value), nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", cond.Op)
	}
}

func containsValue(list any, value any) bool {
	rv := reflect.ValueOf(list)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if equalValues(rv.Index(i).Interface(), value) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if c, comparable := compareValues(a, b); comparable {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// sortDocs orders ascending by each field in turn, with "_id" as the final
// tiebreak. Values of different types order by type rank so the order is
// total.
func sortDocs(docs []docstore.Document, fields []string) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, field := range fields {
			if c := compareTotal(docs[i][field], docs[j][field]); c != 0 {
				return c < 0
			}
		}
		return docs[i].ID() < docs[j].ID()
	})
}

func skipPastAnchor(docs []docstore.Document, orderField string, anchor docstore.Anchor) []docstore.Document {
	out := docs[:0]
	for _, doc := range docs {
		c := compareTotal(doc[orderField], anchor.SortValue)
		if c > 0 || (c == 0 && doc.ID() > anchor.ID) {
			out = append(out, doc)
		}
	}
	return out
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return 2
	case string:
		return 3
	case time.Time:
		return 4
	default:
		return 5
	}
}

// compareTotal orders any two values: by type rank first, then within type.
func compareTotal(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if c, comparable := compareValues(a, b); comparable {
		return c
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// compareValues compares two values of the same family. The second result is
// false when the values are not mutually comparable.
func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

type docRef struct {
	client *Client
	coll   string
	id     string
}

func (d *docRef) Get(ctx context.Context) (docstore.DocSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.client.mu.RLock()
	defer d.client.mu.RUnlock()
	if d.client.closed {
		return nil, ErrClosed
	}
	doc, ok := d.client.collections[d.coll][d.id]
	if !ok {
		return &docSnapshot{id: d.id}, nil
	}
	return &docSnapshot{id: d.id, exists: true, data: doc.Clone()}, nil
}

func (d *docRef) Set(ctx context.Context, doc docstore.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.client.mu.Lock()
	defer d.client.mu.Unlock()
	if d.client.closed {
		return ErrClosed
	}
	coll, ok := d.client.collections[d.coll]
	if !ok {
		coll = make(map[string]docstore.Document)
		d.client.collections[d.coll] = coll
	}
	stored := doc.Clone()
	stored[docstore.IDField] = d.id
	coll[d.id] = stored
	return nil
}

func (d *docRef) Update(ctx context.Context, values docstore.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.client.mu.Lock()
	defer d.client.mu.Unlock()
	if d.client.closed {
		return ErrClosed
	}
	existing, ok := d.client.collections[d.coll][d.id]
	if !ok {
		return &docstore.NotFoundError{Collection: d.coll, ID: d.id}
	}
	merged := existing.Clone()
	for k, v := range values.Clone() {
		merged[k] = v
	}
	merged[docstore.IDField] = d.id
	d.client.collections[d.coll][d.id] = merged
	return nil
}

func (d *docRef) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.client.mu.Lock()
	defer d.client.mu.Unlock()
	if d.client.closed {
		return ErrClosed
	}
	delete(d.client.collections[d.coll], d.id)
	return nil
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
