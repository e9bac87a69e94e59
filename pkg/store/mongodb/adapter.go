package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/schedario/schedario/pkg/docstore"
	"github.com/schedario/schedario/pkg/observability/logger"
)

// MongoDBAdapter provides MongoDB connectivity and implements the document
// store capability interfaces on top of the official driver.
type MongoDBAdapter struct {
	client   *mongo.Client
	database string
	logger   logger.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	closed   bool
}

// Config holds MongoDB adapter configuration.
type Config struct {
	URL              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// NewMongoDBAdapter connects to MongoDB and verifies connectivity via ping.
func NewMongoDBAdapter(cfg Config, log logger.Logger) (*MongoDBAdapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongodb URL is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("MongoDB connection established", "database", cfg.Database)
	return &MongoDBAdapter{
		client:   client,
		database: cfg.Database,
		logger:   log,
		timeout:  cfg.OperationTimeout,
	}, nil
}

// Client returns the underlying driver client for callers that need to drop
// below the document-store facade.
func (a *MongoDBAdapter) Client() *mongo.Client {
	return a.client
}

// Database returns the capability-interface view of the configured database.
func (a *MongoDBAdapter) Database() docstore.Database {
	return &database{adapter: a}
}

func (a *MongoDBAdapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return fmt.Errorf("mongodb adapter is closed")
	}
	return a.client.Ping(ctx, readpref.Primary())
}

func (a *MongoDBAdapter) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Ping(hcCtx); err != nil {
		a.logger.Error("MongoDB health check failed", "error", err)
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

func (a *MongoDBAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close mongodb connection: %w", err)
	}
	return nil
}

// opContext rejects operations on a closed adapter and applies the operation
// timeout unless the caller already set a deadline.
func (a *MongoDBAdapter) opContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return nil, nil, fmt.Errorf("mongodb adapter is closed")
	}
	if a.timeout <= 0 {
		return ctx, func() {}, nil
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	opCtx, cancel := context.WithTimeout(ctx, a.timeout)
	return opCtx, cancel, nil
}

func (a *MongoDBAdapter) collection(name string) *mongo.Collection {
	return a.client.Database(a.database).Collection(name)
}

type database struct {
	adapter *MongoDBAdapter
}

func (d *database) Collection(name string) docstore.CollectionRef {
	return &collection{adapter: d.adapter, name: name}
}

type collection struct {
	adapter *MongoDBAdapter
	name    string
}

func (c *collection) Doc(id string) docstore.DocRef {
	return &docRef{adapter: c.adapter, coll: c.name, id: id}
}

func (c *collection) query() *query {
	return &query{adapter: c.adapter, coll: c.name}
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
	adapter *MongoDBAdapter
	coll    string
	filter  bson.D
	orders  []string
	limit   int64
	after   *docstore.Anchor
	err     error
}

func (q *query) clone() *query {
	out := *q
	out.filter = append(bson.D(nil), q.filter...)
	out.orders = append([]string(nil), q.orders...)
	return &out
}

func (q *query) Where(field string, op docstore.Op, value any) docstore.Query {
	out := q.clone()
	clause, err := filterClause(field, op, value)
	if err != nil {
		out.err = err
		return out
	}
	out.filter = append(out.filter, clause)
	return out
}

func (q *query) OrderBy(field string) docstore.Query {
	out := q.clone()
	out.orders = append(out.orders, field)
	return out
}

func (q *query) Limit(n int) docstore.Query {
	out := q.clone()
	out.limit = int64(n)
	return out
}

func (q *query) StartAfter(anchor docstore.Anchor) docstore.Query {
	out := q.clone()
	out.after = &anchor
	return out
}

func (q *query) Get(ctx context.Context) (docstore.QuerySnapshot, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.after != nil && len(q.orders) == 0 {
		return nil, fmt.Errorf("start after requires an ordering")
	}

	opCtx, cancel, err := q.adapter.opContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	filter := q.buildFilter()
	findOpts := options.Find()
	if len(q.orders) > 0 {
		findOpts.SetSort(sortDocument(q.orders))
	}
	if q.limit > 0 {
		findOpts.SetLimit(q.limit)
	}

	cur, err := q.adapter.collection(q.coll).Find(opCtx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute mongodb query: %w", err)
	}
	defer cur.Close(opCtx)

	var snaps []docstore.DocSnapshot
	for cur.Next(opCtx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode mongodb document: %w", err)
		}
		doc := normalizeDocument(raw)
		snaps = append(snaps, &docSnapshot{id: doc.ID(), exists: true, data: doc})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mongodb cursor: %w", err)
	}
	return &querySnapshot{docs: snaps}, nil
}

func (q *query) buildFilter() bson.D {
	if q.after == nil {
		if len(q.filter) == 0 {
			return bson.D{}
		}
		return q.filter
	}

	anchor := anchorFilter(q.orders[0], *q.after)
	if len(q.filter) == 0 {
		return anchor
	}
	return bson.D{{Key: "$and", Value: bson.A{q.filter, anchor}}}
}

// sortDocument builds an ascending sort specification with an "_id" tiebreak
// so anchored continuation stays deterministic under duplicate sort values.
func sortDocument(orders []string) bson.D {
	sort := make(bson.D, 0, len(orders)+1)
	hasID := false
	for _, field := range orders {
		sort = append(sort, bson.E{Key: field, Value: 1})
		if field == docstore.IDField {
			hasID = true
		}
	}
	if !hasID {
		sort = append(sort, bson.E{Key: docstore.IDField, Value: 1})
	}
	return sort
}

// anchorFilter selects documents strictly after (sortValue, id) in ascending
// order. MongoDB sorts missing fields together with nulls first, so a null
// anchor resumes with the remaining null group and every non-null value.
func anchorFilter(field string, anchor docstore.Anchor) bson.D {
	if anchor.SortValue == nil {
		return bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: field, Value: bson.D{{Key: "$ne", Value: nil}}}},
			bson.D{
				{Key: field, Value: nil},
				{Key: docstore.IDField, Value: bson.D{{Key: "$gt", Value: anchor.ID}}},
			},
		}}}
	}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: field, Value: bson.D{{Key: "$gt", Value: anchor.SortValue}}}},
		bson.D{
			{Key: field, Value: anchor.SortValue},
			{Key: docstore.IDField, Value: bson.D{{Key: "$gt", Value: anchor.ID}}},
		},
	}}}
}

func filterClause(field string, op docstore.Op, value any) (bson.E, error) {
	switch op {
	case docstore.OpEqual:
		return bson.E{Key: field, Value: value}, nil
	case docstore.OpNotEqual:
		return bson.E{Key: field, Value: bson.D{{Key: "$ne", Value: value}}}, nil
	case docstore.OpLess:
		return bson.E{Key: field, Value: bson.D{{Key: "$lt", Value: value}}}, nil
	case docstore.OpLessOrEqual:
		return bson.E{Key: field, Value: bson.D{{Key: "$lte", Value: value}}}, nil
	case docstore.OpGreater:
		return bson.E{Key: field, Value: bson.D{{Key: "$gt", Value: value}}}, nil
	case docstore.OpGreaterOrEqual:
		return bson.E{Key: field, Value: bson.D{{Key: "$gte", Value: value}}}, nil
	case docstore.OpIn:
		return bson.E{Key: field, Value: bson.D{{Key: "$in", Value: value}}}, nil
	case docstore.OpNotIn:
		return bson.E{Key: field, Value: bson.D{{Key: "$nin", Value: value}}}, nil
	default:
		return bson.E{}, fmt.Errorf("unsupported operator: %s", op)
	}
}

// normalizeDocument converts driver-native types into the plain shapes the
// rest of the module works with.
func normalizeDocument(raw bson.M) docstore.Document {
	doc := make(docstore.Document, len(raw))
	for k, v := range raw {
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = normalizeValue(inner)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case int32:
		return int(val)
	default:
		return v
	}
}

type docRef struct {
	adapter *MongoDBAdapter
	coll    string
	id      string
}

func (d *docRef) Get(ctx context.Context) (docstore.DocSnapshot, error) {
	opCtx, cancel, err := d.adapter.opContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var raw bson.M
	err = d.adapter.collection(d.coll).FindOne(opCtx, bson.M{docstore.IDField: d.id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &docSnapshot{id: d.id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mongodb document: %w", err)
	}
	return &docSnapshot{id: d.id, exists: true, data: normalizeDocument(raw)}, nil
}

func (d *docRef) Set(ctx context.Context, doc docstore.Document) error {
	opCtx, cancel, err := d.adapter.opContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	body := doc.Clone()
	body[docstore.IDField] = d.id

	_, err = d.adapter.collection(d.coll).ReplaceOne(opCtx,
		bson.M{docstore.IDField: d.id},
		bson.M(body),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write mongodb document: %w", err)
	}
	return nil
}

func (d *docRef) Update(ctx context.Context, values docstore.Document) error {
	opCtx, cancel, err := d.adapter.opContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	fields := values.Clone()
	fields[docstore.IDField] = d.id

	res, err := d.adapter.collection(d.coll).UpdateOne(opCtx,
		bson.M{docstore.IDField: d.id},
		bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("failed to update mongodb document: %w", err)
	}
	if res.MatchedCount == 0 {
		return &docstore.NotFoundError{Collection: d.coll, ID: d.id}
	}
	return nil
}

func (d *docRef) Delete(ctx context.Context) error {
	opCtx, cancel, err := d.adapter.opContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := d.adapter.collection(d.coll).DeleteOne(opCtx, bson.M{docstore.IDField: d.id}); err != nil {
		return fmt.Errorf("failed to delete mongodb document: %w", err)
	}
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

var _ docstore.Client = (*MongoDBAdapter)(nil)
