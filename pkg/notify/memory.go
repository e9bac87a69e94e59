package notify

import (
	"context"
	"fmt"
	"sync"
)

// MemoryNotifier collects change events in memory. It backs development and
// test configurations where no broker is available.
type MemoryNotifier struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

// NewMemoryNotifier creates an empty in-memory notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (n *MemoryNotifier) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return fmt.Errorf("memory notifier is closed")
	}
	n.events = append(n.events, event)
	return nil
}

// Events returns a copy of all published events in publish order.
func (n *MemoryNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.events))
	copy(out, n.events)
	return out
}

func (n *MemoryNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

var _ Notifier = (*MemoryNotifier)(nil)
