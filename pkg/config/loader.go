package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile         string
	secretsFile        string
	envPrefix          string
	serviceNameDefault string

	v *viper.Viper
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "APP")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// WithServiceNameDefault sets the default service.name used when no config/env override is provided.
func (l *ViperLoader) WithServiceNameDefault(serviceName string) *ViperLoader {
	if l == nil {
		return l
	}
	l.serviceNameDefault = strings.TrimSpace(serviceName)
	return l
}

// WithSecretsFile sets an explicit secrets file merged over the main config file.
// When empty, the loader falls back to the <PREFIX>_SECRETS_FILE environment variable.
func (l *ViperLoader) WithSecretsFile(secretsFile string) *ViperLoader {
	if l == nil {
		return l
	}
	l.secretsFile = strings.TrimSpace(secretsFile)
	return l
}

// Load reads configuration from defaults, the optional config and secrets
// files and environment variables, in increasing order of precedence.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	if l.serviceNameDefault != "" {
		cfg.Service.Name = l.serviceNameDefault
	}
	l.setDefaults(v, cfg)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if secretsFile := l.resolveSecretsFile(); secretsFile != "" {
		if _, err := os.Stat(secretsFile); err != nil {
			return nil, fmt.Errorf("failed to read secrets file: %w", err)
		}
		v.SetConfigFile(secretsFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge secrets file: %w", err)
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l.v = v
	return cfg, nil
}

// Settings returns the effective settings map from the last successful Load.
func (l *ViperLoader) Settings() map[string]any {
	if l == nil || l.v == nil {
		return nil
	}
	return l.v.AllSettings()
}

func (l *ViperLoader) resolveSecretsFile() string {
	if l.secretsFile != "" {
		return l.secretsFile
	}
	for _, key := range l.prefixedEnv("SECRETS_FILE") {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// prefixedEnv returns the environment variable names for a suffix, trying the
// configured prefix first and falling back to the generic APP prefix.
func (l *ViperLoader) prefixedEnv(suffix string) []string {
	prefix := strings.ToUpper(strings.TrimSpace(l.envPrefix))
	if prefix == "" || prefix == "APP" {
		return []string{"APP_" + suffix}
	}
	return []string{prefix + "_" + suffix, "APP_" + suffix}
}

func (l *ViperLoader) bindEnv(v *viper.Viper, key, suffix string) {
	input := append([]string{key}, l.prefixedEnv(suffix)...)
	_ = v.BindEnv(input...)
}

func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	l.bindEnv(v, "service.name", "SERVICE_NAME")
	l.bindEnv(v, "service.environment", "SERVICE_ENVIRONMENT")

	l.bindEnv(v, "database.type", "DB_TYPE")
	l.bindEnv(v, "database.url", "DB_URL")
	l.bindEnv(v, "database.database_name", "DB_NAME")
	l.bindEnv(v, "database.collection", "DB_COLLECTION")
	l.bindEnv(v, "database.connect_timeout", "DB_CONNECT_TIMEOUT")
	l.bindEnv(v, "database.operation_timeout", "DB_OPERATION_TIMEOUT")
	l.bindEnv(v, "database.region", "DB_REGION")
	l.bindEnv(v, "database.endpoint", "DB_ENDPOINT")
	l.bindEnv(v, "database.access_key_id", "DB_ACCESS_KEY_ID")
	l.bindEnv(v, "database.secret_access_key", "DB_SECRET_ACCESS_KEY")
	l.bindEnv(v, "database.session_token", "DB_SESSION_TOKEN")
	l.bindEnv(v, "database.username", "DB_USERNAME")
	l.bindEnv(v, "database.password", "DB_PASSWORD")

	l.bindEnv(v, "cache.enabled", "CACHE_ENABLED")
	l.bindEnv(v, "cache.url", "CACHE_URL")
	l.bindEnv(v, "cache.prefix", "CACHE_PREFIX")
	l.bindEnv(v, "cache.ttl", "CACHE_TTL")
	l.bindEnv(v, "cache.max_conns", "CACHE_MAX_CONNS")
	l.bindEnv(v, "cache.operation_timeout", "CACHE_OPERATION_TIMEOUT")

	l.bindEnv(v, "notify.enabled", "NOTIFY_ENABLED")
	l.bindEnv(v, "notify.type", "NOTIFY_TYPE")
	l.bindEnv(v, "notify.brokers", "NOTIFY_BROKERS")
	l.bindEnv(v, "notify.topic", "NOTIFY_TOPIC")
	l.bindEnv(v, "notify.operation_timeout", "NOTIFY_OPERATION_TIMEOUT")

	l.bindEnv(v, "observability.log_level", "LOG_LEVEL")
	l.bindEnv(v, "observability.log_format", "LOG_FORMAT")
	l.bindEnv(v, "observability.tracing_enabled", "TRACING_ENABLED")
	l.bindEnv(v, "observability.tracing_sample_rate", "TRACING_SAMPLE_RATE")
	l.bindEnv(v, "observability.tracing_endpoint", "TRACING_ENDPOINT")
}

func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("database.type", cfg.Database.Type)
	v.SetDefault("database.connect_timeout", cfg.Database.ConnectTimeout)
	v.SetDefault("database.operation_timeout", cfg.Database.OperationTimeout)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.prefix", cfg.Cache.Prefix)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.operation_timeout", cfg.Cache.OperationTimeout)

	v.SetDefault("notify.enabled", cfg.Notify.Enabled)
	v.SetDefault("notify.type", cfg.Notify.Type)
	v.SetDefault("notify.operation_timeout", cfg.Notify.OperationTimeout)

	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
}
