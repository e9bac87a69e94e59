// Package store provides the document-store backends and the factory that
// selects one from configuration. Every backend implements the docstore
// capability interfaces plus the Adapter lifecycle contract below.
package store

import "context"

// Adapter is the minimal lifecycle and health contract for storage adapters.
// The health registry bridges it into periodic checks.
type Adapter interface {
	HealthCheck(ctx context.Context) error
	Close() error
}
