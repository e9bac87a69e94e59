package config

import "fmt"

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Type {
	case DatabaseTypeMongoDB:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for MongoDB")
		}
		if c.Database.DatabaseName == "" {
			return fmt.Errorf("database.database_name is required for MongoDB")
		}
	case DatabaseTypeDynamoDB:
		if c.Database.Region == "" && c.Database.Endpoint == "" {
			return fmt.Errorf("database.region or database.endpoint is required for DynamoDB")
		}
	case DatabaseTypeOpenSearch:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for OpenSearch")
		}
	case DatabaseTypeMemory, "":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Database.ConnectTimeout < 0 {
		return fmt.Errorf("database.connect_timeout cannot be negative")
	}
	if c.Database.OperationTimeout < 0 {
		return fmt.Errorf("database.operation_timeout cannot be negative")
	}

	if c.Cache.Enabled && c.Cache.URL == "" {
		return fmt.Errorf("cache.url is required when cache is enabled")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}

	if c.Notify.Enabled {
		switch c.Notify.Type {
		case NotifyTypeKafka:
			if len(c.Notify.Brokers) == 0 {
				return fmt.Errorf("notify.brokers is required for Kafka")
			}
			if c.Notify.Topic == "" {
				return fmt.Errorf("notify.topic is required for Kafka")
			}
		case NotifyTypeMemory, "":
		default:
			return fmt.Errorf("unsupported notifier type: %s", c.Notify.Type)
		}
	}

	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		return fmt.Errorf("observability.tracing_sample_rate must be between 0 and 1")
	}

	return nil
}
