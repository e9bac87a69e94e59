package config

import "time"

// Database type constants
const (
	// DatabaseTypeMongoDB represents MongoDB
	DatabaseTypeMongoDB = "mongodb"
	// DatabaseTypeDynamoDB represents AWS DynamoDB
	DatabaseTypeDynamoDB = "dynamodb"
	// DatabaseTypeOpenSearch represents OpenSearch
	DatabaseTypeOpenSearch = "opensearch"
	// DatabaseTypeMemory represents the in-process store
	DatabaseTypeMemory = "memory"
)

// Notifier type constants
const (
	// NotifyTypeKafka publishes change events to Apache Kafka
	NotifyTypeKafka = "kafka"
	// NotifyTypeMemory buffers change events in process
	NotifyTypeMemory = "memory"
)

// Config is the root configuration structure for the library and its tooling.
type Config struct {
	Service       ServiceConfig       `mapstructure:"service"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig configures the document-store backend. Fields are flat
// across backends; each backend reads the ones it needs.
type DatabaseConfig struct {
	Type             string        `mapstructure:"type"` // mongodb, dynamodb, opensearch, memory
	URL              string        `mapstructure:"url"`
	DatabaseName     string        `mapstructure:"database_name"`
	Collection       string        `mapstructure:"collection"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`

	// DynamoDB
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`

	// OpenSearch
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig configures the optional read-through cache.
type CacheConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	URL              string        `mapstructure:"url"`
	Prefix           string        `mapstructure:"prefix"`
	TTL              time.Duration `mapstructure:"ttl"`
	MaxConns         int           `mapstructure:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// NotifyConfig configures change-event publishing.
type NotifyConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Type             string        `mapstructure:"type"` // kafka, memory
	Brokers          []string      `mapstructure:"brokers"`
	Topic            string        `mapstructure:"topic"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// ObservabilityConfig configures logging and tracing.
type ObservabilityConfig struct {
	LogLevel          string  `mapstructure:"log_level"`
	LogFormat         string  `mapstructure:"log_format"` // json, text
	TracingEnabled    bool    `mapstructure:"tracing_enabled"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate"`
	TracingEndpoint   string  `mapstructure:"tracing_endpoint"`
}

// DefaultConfig returns the configuration used when nothing is provided.
// The memory backend keeps tooling usable without external services.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "schedario",
			Environment: "development",
		},
		Database: DatabaseConfig{
			Type:             DatabaseTypeMemory,
			ConnectTimeout:   5 * time.Second,
			OperationTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:          false,
			Prefix:           "schedario",
			TTL:              5 * time.Minute,
			OperationTimeout: 3 * time.Second,
		},
		Notify: NotifyConfig{
			Enabled:          false,
			Type:             NotifyTypeMemory,
			OperationTimeout: 5 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			TracingEnabled:    false,
			TracingSampleRate: 1.0,
		},
	}
}
