// Package tracing provides OpenTelemetry distributed tracing for document
// store operations, cache access and change-event publishing.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOperation represents a traced operation type.
type SpanOperation string

// Span operation constants for different operation types
const (
	// SpanOperationStoreList represents an ordered or bare collection listing
	SpanOperationStoreList SpanOperation = "store.list"
	// SpanOperationStoreGetAll represents an unfiltered full-collection read
	SpanOperationStoreGetAll SpanOperation = "store.get_all"
	// SpanOperationStoreFind represents a composed query
	SpanOperationStoreFind SpanOperation = "store.find"
	// SpanOperationStoreGet represents a single-document read
	SpanOperationStoreGet SpanOperation = "store.get"
	// SpanOperationStoreCreate represents a full-document write
	SpanOperationStoreCreate SpanOperation = "store.create"
	// SpanOperationStoreUpdate represents a partial-document merge
	SpanOperationStoreUpdate SpanOperation = "store.update"
	// SpanOperationStoreDelete represents a document deletion
	SpanOperationStoreDelete SpanOperation = "store.delete"

	// SpanOperationMsgPublish represents publishing a message
	SpanOperationMsgPublish SpanOperation = "messaging.publish"
	// SpanOperationMsgConsume represents consuming a message
	SpanOperationMsgConsume SpanOperation = "messaging.consume"

	// SpanOperationCacheGet represents a cache get operation
	SpanOperationCacheGet SpanOperation = "cache.get"
	// SpanOperationCacheSet represents a cache set operation
	SpanOperationCacheSet SpanOperation = "cache.set"
	// SpanOperationCacheDel represents a cache delete operation
	SpanOperationCacheDel SpanOperation = "cache.delete"
)

// StartStoreSpan creates a new span for a document store operation. It
// includes store-specific attributes like the collection name, backend and
// document id.
func StartStoreSpan(ctx context.Context, operation SpanOperation, opts ...StoreSpanOption) (context.Context, trace.Span) {
	tracer := otel.Tracer("docstore")

	spanOpts := &storeSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("db.operation", string(operation)),
		},
	}

	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("STORE %s", operation)
	if spanOpts.collection != "" {
		spanName = fmt.Sprintf("STORE %s %s", operation, spanOpts.collection)
	}

	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(spanOpts.attributes...)

	return ctx, span
}

// StoreSpanOption configures a store span.
type StoreSpanOption func(*storeSpanOptions)

type storeSpanOptions struct {
	collection string
	attributes []attribute.KeyValue
}

// WithStoreCollection sets the collection name for the span.
func WithStoreCollection(collection string) StoreSpanOption {
	return func(opts *storeSpanOptions) {
		opts.collection = collection
		opts.attributes = append(opts.attributes, attribute.String("db.collection", collection))
	}
}

// WithStoreBackend sets the backend system (e.g., "mongodb", "dynamodb").
func WithStoreBackend(system string) StoreSpanOption {
	return func(opts *storeSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.system", system))
	}
}

// WithStoreDocumentID sets the document id the operation targets.
func WithStoreDocumentID(id string) StoreSpanOption {
	return func(opts *storeSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.document_id", id))
	}
}

// WithStoreLimit sets the requested result limit.
func WithStoreLimit(limit int) StoreSpanOption {
	return func(opts *storeSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.Int("db.limit", limit))
	}
}

// StartMessagingSpan creates a new span for a message broker operation. It
// includes messaging-specific attributes like operation type, topic, and
// message ID.
func StartMessagingSpan(ctx context.Context, operation SpanOperation, opts ...MessagingSpanOption) (context.Context, trace.Span) {
	tracer := otel.Tracer("messaging")

	spanOpts := &messagingSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("messaging.operation", string(operation)),
		},
	}

	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("MSG %s", operation)
	if spanOpts.destination != "" {
		spanName = fmt.Sprintf("MSG %s %s", operation, spanOpts.destination)
	}

	spanKind := trace.SpanKindProducer
	if operation == SpanOperationMsgConsume {
		spanKind = trace.SpanKindConsumer
	}

	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(spanKind))
	span.SetAttributes(spanOpts.attributes...)

	return ctx, span
}

// MessagingSpanOption configures a messaging span.
type MessagingSpanOption func(*messagingSpanOptions)

type messagingSpanOptions struct {
	destination string
	attributes  []attribute.KeyValue
}

// WithMessagingSystem sets the messaging system (e.g., "kafka").
func WithMessagingSystem(system string) MessagingSpanOption {
	return func(opts *messagingSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("messaging.system", system))
	}
}

// WithMessagingDestination sets the destination (topic, queue) name.
func WithMessagingDestination(destination string) MessagingSpanOption {
	return func(opts *messagingSpanOptions) {
		opts.destination = destination
		opts.attributes = append(opts.attributes, attribute.String("messaging.destination", destination))
	}
}

// WithMessagingMessageID sets the message ID.
func WithMessagingMessageID(messageID string) MessagingSpanOption {
	return func(opts *messagingSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("messaging.message_id", messageID))
	}
}

// WithMessagingPayloadSize sets the message payload size in bytes.
func WithMessagingPayloadSize(size int) MessagingSpanOption {
	return func(opts *messagingSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.Int("messaging.payload_size_bytes", size))
	}
}

// StartCacheSpan creates a new span for a cache operation. It includes
// cache-specific attributes like operation type and key.
func StartCacheSpan(ctx context.Context, operation SpanOperation, opts ...CacheSpanOption) (context.Context, trace.Span) {
	tracer := otel.Tracer("cache")

	spanOpts := &cacheSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("cache.operation", string(operation)),
		},
	}

	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("CACHE %s", operation)
	if spanOpts.key != "" {
		spanName = fmt.Sprintf("CACHE %s %s", operation, spanOpts.key)
	}

	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(spanOpts.attributes...)

	return ctx, span
}

// CacheSpanOption configures a cache span.
type CacheSpanOption func(*cacheSpanOptions)

type cacheSpanOptions struct {
	key        string
	attributes []attribute.KeyValue
}

// WithCacheSystem sets the cache system (e.g., "redis").
func WithCacheSystem(system string) CacheSpanOption {
	return func(opts *cacheSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("cache.system", system))
	}
}

// WithCacheKey sets the cache key.
func WithCacheKey(key string) CacheSpanOption {
	return func(opts *cacheSpanOptions) {
		opts.key = key
		opts.attributes = append(opts.attributes, attribute.String("cache.key", key))
	}
}

// WithCacheHit sets whether the cache operation was a hit or miss.
func WithCacheHit(hit bool) CacheSpanOption {
	return func(opts *cacheSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.Bool("cache.hit", hit))
	}
}

// RecordError records an error in the current span and sets the span status
// to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordSuccess sets the span status to OK.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
