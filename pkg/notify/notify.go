// Package notify publishes document change events to a message broker.
package notify

import (
	"context"
	"time"
)

// Action describes what happened to a document.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event is one document change. Entity is the document id within the
// collection.
type Event struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Entity     string    `json:"entity"`
	Action     Action    `json:"action"`
	At         time.Time `json:"at"`
}

// Notifier publishes document change events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
