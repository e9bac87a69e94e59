package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/schedario/schedario/pkg/config"
	"github.com/schedario/schedario/pkg/observability/logger"
)

// ClientFactory builds a backend client from configuration. pkg/store
// provides the production factory; tests supply their own.
type ClientFactory func(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (Client, error)

// ClientRegistry holds one backend client per configuration, shared across
// every adapter in the process. Creation is guarded by the mutex, so two
// adapters initializing concurrently with the same configuration still end up
// with a single client.
type ClientRegistry struct {
	mu      sync.Mutex
	clients map[uint64]Client
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[uint64]Client)}
}

// GetOrCreate returns the client registered for cfg, building it with factory
// on first use.
func (r *ClientRegistry) GetOrCreate(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger, factory ClientFactory) (Client, error) {
	key, err := fingerprint(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[key]; ok {
		return client, nil
	}

	client, err := factory(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	r.clients[key] = client
	return client, nil
}

// Len returns the number of registered clients.
func (r *ClientRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// CloseAll closes every registered client and empties the registry. Intended
// for process shutdown and test teardown.
func (r *ClientRegistry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, client := range r.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close client: %w", err))
		}
		delete(r.clients, key)
	}
	return errors.Join(errs...)
}

func fingerprint(cfg config.DatabaseConfig) (uint64, error) {
	key, err := hashstructure.Hash(cfg, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fingerprint database config: %w", err)
	}
	return key, nil
}

var defaultRegistry = NewClientRegistry()

// DefaultRegistry returns the process-wide registry used when an adapter is
// built without an explicit one.
func DefaultRegistry() *ClientRegistry {
	return defaultRegistry
}
