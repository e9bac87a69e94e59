package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	spanRecorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(spanRecorder),
	)
	otel.SetTracerProvider(provider)

	return spanRecorder
}

func assertSpan(t *testing.T, recorder *tracetest.SpanRecorder, expectedName string, expectedAttrs map[string]interface{}) {
	t.Helper()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	recordedSpan := spans[0]
	if recordedSpan.Name() != expectedName {
		t.Errorf("expected span name %q, got %q", expectedName, recordedSpan.Name())
	}

	attrs := recordedSpan.Attributes()
	for key, expectedValue := range expectedAttrs {
		found := false
		for _, attr := range attrs {
			if string(attr.Key) == key {
				found = true
				if attr.Value.AsInterface() != expectedValue {
					t.Errorf("expected attribute %s=%v, got %v", key, expectedValue, attr.Value.AsInterface())
				}
				break
			}
		}
		if !found {
			t.Errorf("expected attribute %s not found", key)
		}
	}
}

func TestStartStoreSpan(t *testing.T) {
	recorder := setupTestTracer(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		operation     SpanOperation
		opts          []StoreSpanOption
		expectedName  string
		expectedAttrs map[string]interface{}
	}{
		{
			name:         "find without options",
			operation:    SpanOperationStoreFind,
			opts:         nil,
			expectedName: "STORE store.find",
			expectedAttrs: map[string]interface{}{
				"db.operation": "store.find",
			},
		},
		{
			name:      "list with collection",
			operation: SpanOperationStoreList,
			opts: []StoreSpanOption{
				WithStoreCollection("books"),
			},
			expectedName: "STORE store.list books",
			expectedAttrs: map[string]interface{}{
				"db.operation":  "store.list",
				"db.collection": "books",
			},
		},
		{
			name:      "get with all options",
			operation: SpanOperationStoreGet,
			opts: []StoreSpanOption{
				WithStoreCollection("books"),
				WithStoreBackend("mongodb"),
				WithStoreDocumentID("book-1"),
				WithStoreLimit(1),
			},
			expectedName: "STORE store.get books",
			expectedAttrs: map[string]interface{}{
				"db.operation":   "store.get",
				"db.collection":  "books",
				"db.system":      "mongodb",
				"db.document_id": "book-1",
				"db.limit":       int64(1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder.Reset()

			_, span := StartStoreSpan(ctx, tt.operation, tt.opts...)
			if span == nil {
				t.Fatal("expected span to be non-nil")
			}
			span.End()

			assertSpan(t, recorder, tt.expectedName, tt.expectedAttrs)
		})
	}
}

func TestStartMessagingSpan(t *testing.T) {
	recorder := setupTestTracer(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		operation     SpanOperation
		opts          []MessagingSpanOption
		expectedName  string
		expectedAttrs map[string]interface{}
	}{
		{
			name:         "publish without options",
			operation:    SpanOperationMsgPublish,
			opts:         nil,
			expectedName: "MSG messaging.publish",
			expectedAttrs: map[string]interface{}{
				"messaging.operation": "messaging.publish",
			},
		},
		{
			name:      "publish with destination",
			operation: SpanOperationMsgPublish,
			opts: []MessagingSpanOption{
				WithMessagingDestination("documents.changed"),
			},
			expectedName: "MSG messaging.publish documents.changed",
			expectedAttrs: map[string]interface{}{
				"messaging.operation":   "messaging.publish",
				"messaging.destination": "documents.changed",
			},
		},
		{
			name:      "consume with all options",
			operation: SpanOperationMsgConsume,
			opts: []MessagingSpanOption{
				WithMessagingSystem("kafka"),
				WithMessagingDestination("documents.changed"),
				WithMessagingMessageID("msg-123"),
				WithMessagingPayloadSize(1024),
			},
			expectedName: "MSG messaging.consume documents.changed",
			expectedAttrs: map[string]interface{}{
				"messaging.operation":          "messaging.consume",
				"messaging.system":             "kafka",
				"messaging.destination":        "documents.changed",
				"messaging.message_id":         "msg-123",
				"messaging.payload_size_bytes": int64(1024),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder.Reset()

			_, span := StartMessagingSpan(ctx, tt.operation, tt.opts...)
			if span == nil {
				t.Fatal("expected span to be non-nil")
			}
			span.End()

			assertSpan(t, recorder, tt.expectedName, tt.expectedAttrs)
		})
	}
}

func TestStartCacheSpan(t *testing.T) {
	recorder := setupTestTracer(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		operation     SpanOperation
		opts          []CacheSpanOption
		expectedName  string
		expectedAttrs map[string]interface{}
	}{
		{
			name:         "get without options",
			operation:    SpanOperationCacheGet,
			opts:         nil,
			expectedName: "CACHE cache.get",
			expectedAttrs: map[string]interface{}{
				"cache.operation": "cache.get",
			},
		},
		{
			name:      "get with key",
			operation: SpanOperationCacheGet,
			opts: []CacheSpanOption{
				WithCacheKey("docstore:books:book-1"),
			},
			expectedName: "CACHE cache.get docstore:books:book-1",
			expectedAttrs: map[string]interface{}{
				"cache.operation": "cache.get",
				"cache.key":       "docstore:books:book-1",
			},
		},
		{
			name:      "set with all options",
			operation: SpanOperationCacheSet,
			opts: []CacheSpanOption{
				WithCacheSystem("redis"),
				WithCacheKey("docstore:books:book-2"),
				WithCacheHit(true),
			},
			expectedName: "CACHE cache.set docstore:books:book-2",
			expectedAttrs: map[string]interface{}{
				"cache.operation": "cache.set",
				"cache.system":    "redis",
				"cache.key":       "docstore:books:book-2",
				"cache.hit":       true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder.Reset()

			_, span := StartCacheSpan(ctx, tt.operation, tt.opts...)
			if span == nil {
				t.Fatal("expected span to be non-nil")
			}
			span.End()

			assertSpan(t, recorder, tt.expectedName, tt.expectedAttrs)
		})
	}
}

func TestRecordError(t *testing.T) {
	recorder := setupTestTracer(t)
	ctx := context.Background()

	tracer := otel.Tracer("test")
	_, span := tracer.Start(ctx, "test-span")

	testErr := errors.New("test error")
	RecordError(span, testErr)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	recordedSpan := spans[0]

	events := recordedSpan.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event (error), got %d", len(events))
	}

	if events[0].Name != "exception" {
		t.Errorf("expected event name 'exception', got %q", events[0].Name)
	}

	if recordedSpan.Status().Code != codes.Error {
		t.Errorf("expected span status Error, got %v", recordedSpan.Status().Code)
	}

	if recordedSpan.Status().Description != testErr.Error() {
		t.Errorf("expected span status description %q, got %q", testErr.Error(), recordedSpan.Status().Description)
	}
}

func TestRecordSuccess(t *testing.T) {
	recorder := setupTestTracer(t)
	ctx := context.Background()

	tracer := otel.Tracer("test")
	_, span := tracer.Start(ctx, "test-span")

	RecordSuccess(span)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected span status Ok, got %v", spans[0].Status().Code)
	}
}
