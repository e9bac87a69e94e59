package health

import (
	"context"
	"fmt"
	"time"
)

// Checkable is implemented by every component that can report its own
// health: store adapters, backend clients, the cache and the kafka notifier.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker bridges a Checkable component into the registry with a
// bounded per-check timeout.
type AdapterChecker struct {
	name    string
	adapter Checkable
	timeout time.Duration
}

// NewAdapterChecker wraps a Checkable. A zero timeout means 5 seconds.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &AdapterChecker{name: name, adapter: adapter, timeout: timeout}
}

func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.adapter.HealthCheck(checkCtx)

	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = ""
		result.Error = err.Error()
	}
	return result
}

func (c *AdapterChecker) Name() string {
	return c.name
}

// PingChecker always reports healthy. Registered as the liveness probe.
type PingChecker struct {
	name string
}

func NewPingChecker(name string) *PingChecker {
	return &PingChecker{name: name}
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "Service is alive",
		Timestamp: time.Now(),
	}
}

func (c *PingChecker) Name() string {
	return c.name
}

// CompositeChecker reports one result for a group of checks, such as the
// whole data layer. The group takes the worst sub-check status.
type CompositeChecker struct {
	name     string
	checkers []Checker
}

func NewCompositeChecker(name string, checkers ...Checker) *CompositeChecker {
	return &CompositeChecker{name: name, checkers: checkers}
}

func (c *CompositeChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	status := StatusHealthy
	var failures []string

	for _, checker := range c.checkers {
		sub := checker.Check(ctx)
		status = worse(status, sub.Status)
		if sub.Status == StatusUnhealthy && sub.Error != "" {
			failures = append(failures, fmt.Sprintf("%s: %s", sub.Name, sub.Error))
		}
	}

	result := CheckResult{
		Name:      c.name,
		Status:    status,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
	if len(failures) > 0 {
		result.Error = fmt.Sprintf("sub-checks failed: %v", failures)
	} else if status == StatusHealthy {
		result.Message = "All sub-checks passed"
	}
	return result
}

func (c *CompositeChecker) Name() string {
	return c.name
}

// NewDatabaseChecker builds the checker for the document-store client.
func NewDatabaseChecker(name string, db Checkable) *AdapterChecker {
	return NewAdapterChecker(name, db, 5*time.Second)
}

// NewCacheChecker builds the checker for the document cache. Cache probes
// get a shorter budget than the primary store.
func NewCacheChecker(name string, cache Checkable) *AdapterChecker {
	return NewAdapterChecker(name, cache, 3*time.Second)
}

// NewMessageBrokerChecker builds the checker for the change-event notifier.
func NewMessageBrokerChecker(name string, broker Checkable) *AdapterChecker {
	return NewAdapterChecker(name, broker, 5*time.Second)
}
