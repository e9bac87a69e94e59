package store

import (
	"context"
	"strings"
	"testing"

	"github.com/schedario/schedario/pkg/config"
	"github.com/schedario/schedario/pkg/observability/logger"
	"github.com/schedario/schedario/pkg/store/memory"
)

type mockLogger struct{}

func (m *mockLogger) Debug(string, ...any)                      {}
func (m *mockLogger) Info(string, ...any)                       {}
func (m *mockLogger) Warn(string, ...any)                       {}
func (m *mockLogger) Error(string, ...any)                      {}
func (m *mockLogger) With(...any) logger.Logger                 { return m }
func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

func TestOpenClient_Memory(t *testing.T) {
	client, err := OpenClient(context.Background(), config.DatabaseConfig{Type: config.DatabaseTypeMemory}, &mockLogger{})
	if err != nil {
		t.Fatalf("expected memory client, got error %v", err)
	}
	if _, ok := client.(*memory.Client); !ok {
		t.Fatalf("expected *memory.Client, got %T", client)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenClient_TypeIsNormalized(t *testing.T) {
	client, err := OpenClient(context.Background(), config.DatabaseConfig{Type: "  Memory  "}, &mockLogger{})
	if err != nil {
		t.Fatalf("expected type normalization, got error %v", err)
	}
	client.Close()
}

func TestOpenClient_UnsupportedType(t *testing.T) {
	_, err := OpenClient(context.Background(), config.DatabaseConfig{Type: "couchdb"}, &mockLogger{})
	if err == nil {
		t.Fatal("expected unsupported type error")
	}
	if !strings.Contains(err.Error(), "couchdb") {
		t.Errorf("expected error to name the offending type, got %q", err)
	}
	if !strings.Contains(err.Error(), "mongodb") {
		t.Errorf("expected error to list supported types, got %q", err)
	}
}

func TestOpenClient_EmptyType(t *testing.T) {
	client, err := OpenClient(context.Background(), config.DatabaseConfig{}, &mockLogger{})
	if err == nil {
		t.Fatal("expected error for empty type")
	}
	if client != nil {
		t.Fatal("expected nil client")
	}
}

func TestOpenClient_MongoDBRequiresURL(t *testing.T) {
	_, err := OpenClient(context.Background(), config.DatabaseConfig{Type: config.DatabaseTypeMongoDB}, &mockLogger{})
	if err == nil {
		t.Fatal("expected validation error without URL")
	}
}

func TestOpenClient_OpenSearchRequiresURL(t *testing.T) {
	_, err := OpenClient(context.Background(), config.DatabaseConfig{Type: config.DatabaseTypeOpenSearch}, &mockLogger{})
	if err == nil {
		t.Fatal("expected validation error without URL")
	}
}

func TestNewDocumentCache_Disabled(t *testing.T) {
	cache, err := NewDocumentCache(config.CacheConfig{Enabled: false}, &mockLogger{})
	if err != nil {
		t.Fatalf("expected no error when disabled, got %v", err)
	}
	if cache != nil {
		t.Fatal("expected nil cache when disabled")
	}
}

func TestNewDocumentCache_RequiresURL(t *testing.T) {
	_, err := NewDocumentCache(config.CacheConfig{Enabled: true}, &mockLogger{})
	if err == nil {
		t.Fatal("expected validation error without URL")
	}
}
