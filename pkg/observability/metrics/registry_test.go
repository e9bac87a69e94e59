package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewRegistry verifies that a new registry is created with default collectors.
func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	if registry == nil {
		t.Fatal("NewRegistry returned nil")
	}

	if registry.registry == nil {
		t.Fatal("registry.registry is nil")
	}
}

// TestRegistry_Handler verifies that the Handler returns a valid HTTP handler.
func TestRegistry_Handler(t *testing.T) {
	registry := NewRegistry()
	handler := registry.Handler()

	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if body == "" {
		t.Error("expected non-empty response body")
	}

	contentType := rec.Header().Get("Content-Type")
	if !strings.Contains(contentType, "text/plain") && !strings.Contains(contentType, "application/openmetrics-text") {
		t.Errorf("unexpected content type: %s", contentType)
	}
}

// TestRegistry_StoreMetricsExposed verifies that document store metrics are exposed.
func TestRegistry_StoreMetricsExposed(t *testing.T) {
	// Label vectors only show up once a sample has been recorded.
	RecordStoreOperation("books", "create", nil, 5*time.Millisecond)
	RecordCacheEvent("books", CacheEventHit)

	registry := NewRegistry()
	handler := registry.Handler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	expectedMetrics := []string{
		"docstore_operation_duration_seconds",
		"docstore_operations_total",
		"docstore_operations_in_flight",
		"docstore_cache_events_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("expected metric %s not found in output", metric)
		}
	}
}

// TestRegistry_GoRuntimeMetricsExposed verifies that Go runtime metrics are exposed.
func TestRegistry_GoRuntimeMetricsExposed(t *testing.T) {
	registry := NewRegistry()
	handler := registry.Handler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	expectedMetrics := []string{
		"go_goroutines",
		"go_threads",
		"go_memstats",
		"go_gc_duration_seconds",
		"process_cpu_seconds_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("expected Go runtime metric %s not found in output", metric)
		}
	}
}

// TestRegistry_RegisterCustomMetric verifies custom metric registration.
func TestRegistry_RegisterCustomMetric(t *testing.T) {
	registry := NewRegistry()

	customCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_custom_counter",
		Help: "A test custom counter",
	})

	err := registry.Register(customCounter)
	if err != nil {
		t.Fatalf("failed to register custom metric: %v", err)
	}

	customCounter.Inc()

	handler := registry.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "test_custom_counter") {
		t.Error("custom metric not found in output")
	}

	if !strings.Contains(body, "test_custom_counter 1") {
		t.Error("custom metric value not correct")
	}
}

// TestRegistry_MustRegisterCustomMetric verifies MustRegister for custom metrics.
func TestRegistry_MustRegisterCustomMetric(t *testing.T) {
	registry := NewRegistry()

	customGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_custom_gauge",
		Help: "A test custom gauge",
	})

	customHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "test_custom_histogram",
		Help: "A test custom histogram",
	})

	registry.MustRegister(customGauge, customHistogram)

	customGauge.Set(42.5)
	customHistogram.Observe(1.23)

	handler := registry.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	if !strings.Contains(body, "test_custom_gauge") {
		t.Error("custom gauge not found in output")
	}

	if !strings.Contains(body, "test_custom_histogram") {
		t.Error("custom histogram not found in output")
	}
}

// TestRegistry_MustRegisterPanicsOnDuplicate verifies that MustRegister panics on duplicate registration.
func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	registry := NewRegistry()

	customCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_duplicate_counter",
		Help: "A test counter for duplicate registration",
	})

	registry.MustRegister(customCounter)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate registration, but didn't panic")
		}
	}()

	registry.MustRegister(customCounter)
}

// TestRegistry_Unregister verifies that metrics can be unregistered.
func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()

	customCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_unregister_counter",
		Help: "A test counter for unregistration",
	})

	err := registry.Register(customCounter)
	if err != nil {
		t.Fatalf("failed to register metric: %v", err)
	}

	handler := registry.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "test_unregister_counter") {
		t.Error("metric not found after registration")
	}

	ok := registry.Unregister(customCounter)
	if !ok {
		t.Error("Unregister returned false")
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body = rec.Body.String()
	if strings.Contains(body, "test_unregister_counter") {
		t.Error("metric still found after unregistration")
	}
}

// TestRegistry_Gatherer verifies that the Gatherer method returns a valid gatherer.
func TestRegistry_Gatherer(t *testing.T) {
	registry := NewRegistry()
	gatherer := registry.Gatherer()

	if gatherer == nil {
		t.Fatal("Gatherer returned nil")
	}

	metricFamilies, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Error("expected non-zero metric families")
	}
}

// TestRegistry_StoreMetricsUpdated verifies that store metrics are updated correctly.
func TestRegistry_StoreMetricsUpdated(t *testing.T) {
	registry := NewRegistry()

	RecordStoreOperation("books", "find", nil, 100*time.Millisecond)
	RecordStoreOperation("books", "create", nil, 150*time.Millisecond)
	RecordStoreOperation("books", "find", errors.New("timeout"), 50*time.Millisecond)
	RecordCacheEvent("books", CacheEventMiss)

	IncrementInFlight()
	IncrementInFlight()
	DecrementInFlight()

	handler := registry.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	// Label values are checked for presence rather than exact counts because
	// the underlying vectors are shared across tests.
	expectedLabels := []string{
		`collection="books",operation="find",status="ok"`,
		`collection="books",operation="create",status="ok"`,
		`collection="books",operation="find",status="error"`,
		`collection="books",event="miss"`,
	}

	for _, labels := range expectedLabels {
		if !strings.Contains(body, labels) {
			t.Errorf("expected labels %s not found in metrics", labels)
		}
	}

	if !strings.Contains(body, "docstore_operations_in_flight") {
		t.Error("docstore_operations_in_flight not found")
	}

	if !strings.Contains(body, "docstore_operation_duration_seconds_count") {
		t.Error("docstore_operation_duration_seconds histogram not found")
	}
}

// TestRegistry_MultipleInstances verifies that multiple registry instances are independent.
func TestRegistry_MultipleInstances(t *testing.T) {
	registry1 := NewRegistry()
	registry2 := NewRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_registry1_counter",
		Help: "Counter for registry 1",
	})

	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_registry2_counter",
		Help: "Counter for registry 2",
	})

	registry1.MustRegister(counter1)
	registry2.MustRegister(counter2)

	handler1 := registry1.Handler()
	req1 := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec1 := httptest.NewRecorder()
	handler1.ServeHTTP(rec1, req1)
	body1 := rec1.Body.String()

	if !strings.Contains(body1, "test_registry1_counter") {
		t.Error("registry1 missing its own counter")
	}
	if strings.Contains(body1, "test_registry2_counter") {
		t.Error("registry1 has registry2's counter")
	}

	handler2 := registry2.Handler()
	req2 := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec2 := httptest.NewRecorder()
	handler2.ServeHTTP(rec2, req2)
	body2 := rec2.Body.String()

	if !strings.Contains(body2, "test_registry2_counter") {
		t.Error("registry2 missing its own counter")
	}
	if strings.Contains(body2, "test_registry1_counter") {
		t.Error("registry2 has registry1's counter")
	}
}

// TestRegistry_HandlerContentType verifies the content type of the metrics endpoint.
func TestRegistry_HandlerContentType(t *testing.T) {
	registry := NewRegistry()
	handler := registry.Handler()

	tests := []struct {
		name           string
		acceptHeader   string
		wantStatusCode int
	}{
		{
			name:           "no accept header",
			acceptHeader:   "",
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "accept text/plain",
			acceptHeader:   "text/plain",
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "accept application/openmetrics-text",
			acceptHeader:   "application/openmetrics-text",
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.acceptHeader != "" {
				req.Header.Set("Accept", tt.acceptHeader)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("expected status %d, got %d", tt.wantStatusCode, rec.Code)
			}

			body, err := io.ReadAll(rec.Body)
			if err != nil {
				t.Fatalf("failed to read response body: %v", err)
			}

			if len(body) == 0 {
				t.Error("expected non-empty response body")
			}
		})
	}
}
