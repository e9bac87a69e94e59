package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/schedario/schedario/pkg/docstore"
	"github.com/schedario/schedario/pkg/observability/logger"
)

// batchGetChunk is the DynamoDB BatchGetItem key limit.
const batchGetChunk = 100

// DynamoDBAdapter provides DynamoDB connectivity and implements the document
// store capability interfaces. Each collection maps to a table keyed by the
// "_id" partition key. DynamoDB cannot order a filtered scan server-side, so
// OrderBy and StartAfter surface ErrOrderingUnsupported at query execution.
type DynamoDBAdapter struct {
	client  *dynamodb.Client
	logger  logger.Logger
	timeout time.Duration
	mu      sync.RWMutex
	closed  bool
}

// Config holds DynamoDB adapter configuration.
type Config struct {
	Region           string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	SessionToken     string
	OperationTimeout time.Duration
}

// NewDynamoDBAdapter builds a DynamoDB client (AWS SDK v2) with custom
// endpoint support and verifies connectivity.
func NewDynamoDBAdapter(cfg Config, log logger.Logger) (*DynamoDBAdapter, error) {
	if cfg.Region == "" && cfg.Endpoint == "" {
		return nil, fmt.Errorf("aws region or endpoint is required")
	}
	if cfg.Region == "" {
		// Local endpoints still need a region for signing.
		cfg.Region = "us-east-1"
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var opts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	client := dynamodb.NewFromConfig(awsCfg, opts...)
	adapter := &DynamoDBAdapter{client: client, logger: log, timeout: cfg.OperationTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OperationTimeout)
	defer cancel()
	if err := adapter.Ping(ctx); err != nil {
		return nil, err
	}

	log.Info("DynamoDB adapter initialized", "region", cfg.Region, "endpoint", cfg.Endpoint)
	return adapter, nil
}

// Client returns the underlying SDK client.
func (a *DynamoDBAdapter) Client() *dynamodb.Client {
	return a.client
}

// Database returns the capability-interface view of this adapter.
func (a *DynamoDBAdapter) Database() docstore.Database {
	return &database{adapter: a}
}

func (a *DynamoDBAdapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return fmt.Errorf("dynamodb adapter is closed")
	}

	opCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if _, err := a.client.ListTables(opCtx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		return fmt.Errorf("dynamodb ping failed: %w", err)
	}
	return nil
}

func (a *DynamoDBAdapter) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Ping(hcCtx); err != nil {
		a.logger.Error("DynamoDB health check failed", "error", err)
		return fmt.Errorf("dynamodb health check failed: %w", err)
	}
	return nil
}

func (a *DynamoDBAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *DynamoDBAdapter) opContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return nil, nil, fmt.Errorf("dynamodb adapter is closed")
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

type database struct {
	adapter *DynamoDBAdapter
}

func (d *database) Collection(name string) docstore.CollectionRef {
	return &collection{adapter: d.adapter, table: name}
}

type collection struct {
	adapter *DynamoDBAdapter
	table   string
}

func (c *collection) Doc(id string) docstore.DocRef {
	return &docRef{adapter: c.adapter, table: c.table, id: id}
}

func (c *collection) query() *query {
	return &query{adapter: c.adapter, table: c.table}
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
	adapter  *DynamoDBAdapter
	table    string
	conds    []docstore.Condition
	ordered  bool
	anchored bool
	limit    int
}

func (q *query) clone() *query {
	out := *q
	out.conds = append([]docstore.Condition(nil), q.conds...)
	return &out
}

func (q *query) Where(field string, op docstore.Op, value any) docstore.Query {
	out := q.clone()
	out.conds = append(out.conds, docstore.Condition{Field: field, Op: op, Value: value})
	return out
}

func (q *query) OrderBy(string) docstore.Query {
	out := q.clone()
	out.ordered = true
	return out
}

func (q *query) Limit(n int) docstore.Query {
	out := q.clone()
	out.limit = n
	return out
}

func (q *query) StartAfter(docstore.Anchor) docstore.Query {
	out := q.clone()
	out.anchored = true
	return out
}

func (q *query) Get(ctx context.Context) (docstore.QuerySnapshot, error) {
	if q.ordered || q.anchored {
		return nil, fmt.Errorf("%w: dynamodb scans cannot sort server-side", docstore.ErrOrderingUnsupported)
	}

	opCtx, cancel, err := q.adapter.opContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if ids, ok := q.membershipOnID(); ok {
		return q.batchGet(opCtx, ids)
	}

	return q.scan(opCtx)
}

// membershipOnID reports whether the query is a single "_id in [...]" filter,
// which BatchGetItem serves without a full scan.
func (q *query) membershipOnID() ([]string, bool) {
	if len(q.conds) != 1 || q.limit > 0 {
		return nil, false
	}
	cond := q.conds[0]
	if cond.Field != docstore.IDField || cond.Op != docstore.OpIn {
		return nil, false
	}
	rv := reflect.ValueOf(cond.Value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	ids := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		id, ok := rv.Index(i).Interface().(string)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func (q *query) batchGet(ctx context.Context, ids []string) (docstore.QuerySnapshot, error) {
	var snaps []docstore.DocSnapshot
	for start := 0; start < len(ids); start += batchGetChunk {
		end := start + batchGetChunk
		if end > len(ids) {
			end = len(ids)
		}

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, map[string]types.AttributeValue{
				docstore.IDField: &types.AttributeValueMemberS{Value: id},
			})
		}

		request := map[string]types.KeysAndAttributes{q.table: {Keys: keys}}
		for len(request) > 0 {
			out, err := q.adapter.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("failed to batch get dynamodb items: %w", err)
			}
			for _, item := range out.Responses[q.table] {
				doc, err := unmarshalDocument(item)
				if err != nil {
					return nil, err
				}
				snaps = append(snaps, &docSnapshot{id: doc.ID(), exists: true, data: doc})
			}
			request = out.UnprocessedKeys
		}
	}
	return &querySnapshot{docs: snaps}, nil
}

// scan pages through the table until the limit is met or the table is
// exhausted. The limit counts matching documents, so filtering happens before
// truncation even though DynamoDB applies Limit to examined items.
func (q *query) scan(ctx context.Context) (docstore.QuerySnapshot, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(q.table)}
	if len(q.conds) > 0 {
		filter, matchNone, err := buildFilter(q.conds)
		if err != nil {
			return nil, err
		}
		if matchNone {
			return &querySnapshot{}, nil
		}
		expr, err := expression.NewBuilder().WithFilter(filter).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build dynamodb filter expression: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	var snaps []docstore.DocSnapshot
	for {
		out, err := q.adapter.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dynamodb table: %w", err)
		}
		for _, item := range out.Items {
			doc, err := unmarshalDocument(item)
			if err != nil {
				return nil, err
			}
			snaps = append(snaps, &docSnapshot{id: doc.ID(), exists: true, data: doc})
			if q.limit > 0 && len(snaps) == q.limit {
				return &querySnapshot{docs: snaps}, nil
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return &querySnapshot{docs: snaps}, nil
}

func buildFilter(conds []docstore.Condition) (expression.ConditionBuilder, bool, error) {
	var filter expression.ConditionBuilder
	for i, cond := range conds {
		clause, matchNone, err := conditionClause(cond)
		if err != nil {
			return expression.ConditionBuilder{}, false, err
		}
		if matchNone {
			return expression.ConditionBuilder{}, true, nil
		}
		if i == 0 {
			filter = clause
		} else {
			filter = filter.And(clause)
		}
	}
	return filter, false, nil
}

func conditionClause(cond docstore.Condition) (expression.ConditionBuilder, bool, error) {
	name := expression.Name(cond.Field)
	switch cond.Op {
	case docstore.OpEqual:
		return name.Equal(expression.Value(cond.Value)), false, nil
	case docstore.OpNotEqual:
		return name.NotEqual(expression.Value(cond.Value)), false, nil
	case docstore.OpLess:
		return name.LessThan(expression.Value(cond.Value)), false, nil
	case docstore.OpLessOrEqual:
		return name.LessThanEqual(expression.Value(cond.Value)), false, nil
	case docstore.OpGreater:
		return name.GreaterThan(expression.Value(cond.Value)), false, nil
	case docstore.OpGreaterOrEqual:
		return name.GreaterThanEqual(expression.Value(cond.Value)), false, nil
	case docstore.OpIn:
		operands, err := operandList(cond.Value)
		if err != nil {
			return expression.ConditionBuilder{}, false, err
		}
		if len(operands) == 0 {
			return expression.ConditionBuilder{}, true, nil
		}
		return name.In(operands[0], operands[1:]...), false, nil
	case docstore.OpNotIn:
		operands, err := operandList(cond.Value)
		if err != nil {
			return expression.ConditionBuilder{}, false, err
		}
		if len(operands) == 0 {
			// Nothing to exclude.
			return name.AttributeExists(), false, nil
		}
		return expression.Not(name.In(operands[0], operands[1:]...)), false, nil
	default:
		return expression.ConditionBuilder{}, false, fmt.Errorf("unsupported operator: %s", cond.Op)
	}
}

func operandList(value any) ([]expression.OperandBuilder, error) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("membership filter needs a list value, got %T", value)
	}
	operands := make([]expression.OperandBuilder, rv.Len())
	for i := range operands {
		operands[i] = expression.Value(rv.Index(i).Interface())
	}
	return operands, nil
}

func marshalDocument(doc docstore.Document) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(map[string]any(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dynamodb item: %w", err)
	}
	return item, nil
}

func unmarshalDocument(item map[string]types.AttributeValue) (docstore.Document, error) {
	var doc map[string]any
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dynamodb item: %w", err)
	}
	return docstore.Document(doc), nil
}

type docRef struct {
	adapter *DynamoDBAdapter
	table   string
	id      string
}

func (d *docRef) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		docstore.IDField: &types.AttributeValueMemberS{Value: d.id},
	}
}

func (d *docRef) Get(ctx context.Context) (docstore.DocSnapshot, error) {
	opCtx, cancel, err := d.adapter.opContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	out, err := d.adapter.client.GetItem(opCtx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       d.key(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get dynamodb item: %w", err)
	}
	if out.Item == nil {
		return &docSnapshot{id: d.id}, nil
	}
	doc, err := unmarshalDocument(out.Item)
	if err != nil {
		return nil, err
	}
	return &docSnapshot{id: d.id, exists: true, data: doc}, nil
}

func (d *docRef) Set(ctx context.Context, doc docstore.Document) error {
	opCtx, cancel, err := d.adapter.opContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	body := doc.Clone()
	body[docstore.IDField] = d.id
	item, err := marshalDocument(body)
	if err != nil {
		return err
	}

	if _, err := d.adapter.client.PutItem(opCtx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put dynamodb item: %w", err)
	}
	return nil
}

func (d *docRef) Update(ctx context.Context, values docstore.Document) error {
	opCtx, cancel, err := d.adapter.opContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	// Key attributes cannot appear in a SET expression.
	fields := values.Clone()
	delete(fields, docstore.IDField)

	if len(fields) == 0 {
		snap, err := d.Get(ctx)
		if err != nil {
			return err
		}
		if !snap.Exists() {
			return &docstore.NotFoundError{Collection: d.table, ID: d.id}
		}
		return nil
	}

	update := expression.UpdateBuilder{}
	for k, v := range fields {
		update = update.Set(expression.Name(k), expression.Value(v))
	}
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name(docstore.IDField).AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build dynamodb update expression: %w", err)
	}

	_, err = d.adapter.client.UpdateItem(opCtx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.table),
		Key:                       d.key(),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return &docstore.NotFoundError{Collection: d.table, ID: d.id}
		}
		return fmt.Errorf("failed to update dynamodb item: %w", err)
	}
	return nil
}

func (d *docRef) Delete(ctx context.Context) error {
	opCtx, cancel, err := d.adapter.opContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := d.adapter.client.DeleteItem(opCtx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       d.key(),
	}); err != nil {
		return fmt.Errorf("failed to delete dynamodb item: %w", err)
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

var _ docstore.Client = (*DynamoDBAdapter)(nil)
