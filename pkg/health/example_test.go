package health_test

import (
	"context"
	"fmt"
	"time"

	"github.com/schedario/schedario/pkg/health"
	"github.com/schedario/schedario/pkg/store/memory"
)

// mockCache simulates a document cache with health check support
type mockCache struct {
	available bool
}

func (c *mockCache) HealthCheck(ctx context.Context) error {
	if !c.available {
		return fmt.Errorf("cache unavailable")
	}
	return nil
}

// mockBroker simulates a change-event notifier with health check support
type mockBroker struct {
	reachable bool
}

func (b *mockBroker) HealthCheck(ctx context.Context) error {
	if !b.reachable {
		return fmt.Errorf("broker unreachable")
	}
	return nil
}

// Example_basicUsage demonstrates basic health check registry usage
func Example_basicUsage() {
	registry := health.NewRegistry()

	// Register a simple ping check (always healthy)
	registry.Register(health.NewPingChecker("liveness"))

	ctx := context.Background()
	result := registry.Check(ctx)

	fmt.Printf("Overall Status: %s\n", result.Status)
	fmt.Printf("Number of Checks: %d\n", len(result.Checks))
	fmt.Printf("Is Healthy: %v\n", result.IsHealthy())

	// Output:
	// Overall Status: healthy
	// Number of Checks: 1
	// Is Healthy: true
}

// Example_adapterChecks demonstrates registering backend health checks
func Example_adapterChecks() {
	registry := health.NewRegistry()

	// The in-process store client satisfies Checkable, like every backend.
	client := memory.NewClient()
	cache := &mockCache{available: true}

	registry.Register(health.NewAdapterChecker("docstore", client, 5*time.Second))
	registry.Register(health.NewAdapterChecker("cache", cache, 5*time.Second))

	ctx := context.Background()
	result := registry.Check(ctx)

	fmt.Printf("Overall Status: %s\n", result.Status)
	fmt.Printf("Number of Checks: %d\n", len(result.Checks))

	// Output:
	// Overall Status: healthy
	// Number of Checks: 2
}

// Example_customCheck demonstrates registering a custom health check
func Example_customCheck() {
	registry := health.NewRegistry()

	registry.RegisterFunc("disk-space", func(ctx context.Context) health.CheckResult {
		freeSpacePercent := 75

		if freeSpacePercent < 10 {
			return health.CheckResult{
				Name:      "disk-space",
				Status:    health.StatusUnhealthy,
				Error:     "disk space critically low",
				Timestamp: time.Now(),
			}
		} else if freeSpacePercent < 20 {
			return health.CheckResult{
				Name:      "disk-space",
				Status:    health.StatusDegraded,
				Message:   "disk space running low",
				Timestamp: time.Now(),
			}
		}

		return health.CheckResult{
			Name:      "disk-space",
			Status:    health.StatusHealthy,
			Message:   fmt.Sprintf("%d%% free", freeSpacePercent),
			Timestamp: time.Now(),
		}
	})

	ctx := context.Background()
	result := registry.Check(ctx)

	fmt.Printf("Overall Status: %s\n", result.Status)

	// Output:
	// Overall Status: healthy
}

// Example_compositeCheck demonstrates using composite health checks
func Example_compositeCheck() {
	client := memory.NewClient()
	cache := &mockCache{available: true}

	storeChecker := health.NewAdapterChecker("docstore", client, 5*time.Second)
	cacheChecker := health.NewAdapterChecker("cache", cache, 5*time.Second)

	// One check covering the whole data layer.
	composite := health.NewCompositeChecker("data-layer", storeChecker, cacheChecker)

	registry := health.NewRegistry()
	registry.Register(composite)

	ctx := context.Background()
	result := registry.Check(ctx)

	fmt.Printf("Overall Status: %s\n", result.Status)

	// Output:
	// Overall Status: healthy
}

// Example_checkOne demonstrates checking a specific health check
func Example_checkOne() {
	registry := health.NewRegistry()

	registry.Register(health.NewPingChecker("liveness"))
	registry.Register(health.NewAdapterChecker("docstore", memory.NewClient(), 5*time.Second))

	ctx := context.Background()
	result, err := registry.CheckOne(ctx, "docstore")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Check Name: %s\n", result.Name)
	fmt.Printf("Status: %s\n", result.Status)

	// Output:
	// Check Name: docstore
	// Status: healthy
}

// Example_listChecks demonstrates listing registered health checks
func Example_listChecks() {
	registry := health.NewRegistry()

	registry.Register(health.NewPingChecker("liveness"))
	registry.Register(health.NewAdapterChecker("docstore", memory.NewClient(), 5*time.Second))
	registry.Register(health.NewAdapterChecker("cache", &mockCache{available: true}, 5*time.Second))

	checks := registry.List()

	fmt.Printf("Number of registered checks: %d\n", len(checks))

	// Output:
	// Number of registered checks: 3
}

// Example_unhealthyCheck demonstrates handling unhealthy checks
func Example_unhealthyCheck() {
	registry := health.NewRegistry()

	registry.Register(health.NewAdapterChecker("docstore", memory.NewClient(), 5*time.Second))
	registry.Register(health.NewAdapterChecker("cache", &mockCache{available: false}, 5*time.Second))

	ctx := context.Background()
	result := registry.Check(ctx)

	fmt.Printf("Overall Status: %s\n", result.Status)
	fmt.Printf("Is Healthy: %v\n", result.IsHealthy())

	for _, check := range result.Checks {
		if check.Status == health.StatusUnhealthy {
			fmt.Printf("Unhealthy Check: %s - %s\n", check.Name, check.Error)
		}
	}

	// Output:
	// Overall Status: unhealthy
	// Is Healthy: false
	// Unhealthy Check: cache - cache unavailable
}

// Example_dependencyChecks demonstrates the convenience constructors
func Example_dependencyChecks() {
	registry := health.NewRegistry()

	registry.Register(health.NewDatabaseChecker("mongodb", memory.NewClient()))
	registry.Register(health.NewCacheChecker("redis", &mockCache{available: true}))
	registry.Register(health.NewMessageBrokerChecker("kafka", &mockBroker{reachable: true}))

	ctx := context.Background()
	result := registry.Check(ctx)

	fmt.Printf("Overall Status: %s\n", result.Status)
	fmt.Printf("Number of Checks: %d\n", len(result.Checks))

	// Output:
	// Overall Status: healthy
	// Number of Checks: 3
}
