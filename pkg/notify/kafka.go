package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/schedario/schedario/pkg/observability/logger"
	"github.com/schedario/schedario/pkg/observability/tracing"
)

// kafkaWriter is the subset of *kafka.Writer the notifier uses. Tests swap in
// a fake.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes change events to a single Kafka topic. Events for
// the same document share a message key, so per-document ordering survives
// partitioning.
type KafkaNotifier struct {
	writer kafkaWriter
	logger logger.Logger
	config KafkaConfig
	mu     sync.RWMutex
	closed bool
}

// KafkaConfig holds the configuration for the Kafka notifier.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses (e.g., ["localhost:9092"])
	Brokers []string

	// Topic is the topic change events are published to
	Topic string

	// OperationTimeout is the timeout for publish operations
	OperationTimeout time.Duration
}

// NewKafkaNotifier creates a Kafka notifier with a shared producer.
func NewKafkaNotifier(cfg KafkaConfig, log logger.Logger) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = 30 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.OperationTimeout,
		ReadTimeout:  cfg.OperationTimeout,
		Async:        false,
	}

	log.Info("kafka notifier initialized",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"operation_timeout", cfg.OperationTimeout,
	)

	return &KafkaNotifier{
		writer: writer,
		logger: log,
		config: cfg,
	}, nil
}

// Publish sends one change event to the configured topic.
func (n *KafkaNotifier) Publish(ctx context.Context, event Event) error {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return fmt.Errorf("kafka notifier is closed")
	}
	n.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.config.OperationTimeout)
	defer cancel()

	ctx, span := tracing.StartMessagingSpan(ctx, tracing.SpanOperationMsgPublish,
		tracing.WithMessagingSystem("kafka"),
		tracing.WithMessagingDestination(n.config.Topic),
		tracing.WithMessagingMessageID(event.ID),
		tracing.WithMessagingPayloadSize(len(payload)),
	)
	defer span.End()

	msg := kafka.Message{
		Key:   []byte(event.Collection + ":" + event.Entity),
		Value: payload,
		Time:  event.At,
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		tracing.RecordError(span, err)
		n.logger.Error("failed to publish change event",
			"topic", n.config.Topic,
			"event_id", event.ID,
			"error", err,
		)
		return fmt.Errorf("failed to publish event to topic %s: %w", n.config.Topic, err)
	}

	tracing.RecordSuccess(span)
	n.logger.Debug("change event published",
		"topic", n.config.Topic,
		"event_id", event.ID,
		"collection", event.Collection,
		"entity", event.Entity,
		"action", event.Action,
	)
	return nil
}

// HealthCheck verifies connectivity to the Kafka brokers.
func (n *KafkaNotifier) HealthCheck(ctx context.Context) error {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return fmt.Errorf("kafka notifier is closed")
	}
	n.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", n.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to kafka broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("failed to fetch broker metadata: %w", err)
	}
	return nil
}

// Close gracefully shuts down the notifier.
func (n *KafkaNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if err := n.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}

	n.logger.Info("kafka notifier closed")
	return nil
}

var _ Notifier = (*KafkaNotifier)(nil)
