package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/schedario/schedario/pkg/config"
	"github.com/schedario/schedario/pkg/docstore"
	"github.com/schedario/schedario/pkg/observability/logger"
	"github.com/schedario/schedario/pkg/store/dynamodb"
	"github.com/schedario/schedario/pkg/store/memory"
	"github.com/schedario/schedario/pkg/store/mongodb"
	"github.com/schedario/schedario/pkg/store/opensearch"
	"github.com/schedario/schedario/pkg/store/redis"
)

// OpenClient selects and initializes the document-store backend named by
// cfg.Type. Its signature matches docstore.ClientFactory, so it plugs
// straight into a collection adapter:
//
//	adapter := docstore.New(docstore.Options{
//		Config:  cfg.Database,
//		Factory: store.OpenClient,
//		Logger:  log,
//	})
func OpenClient(_ context.Context, cfg config.DatabaseConfig, log logger.Logger) (docstore.Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case config.DatabaseTypeMongoDB:
		return mongodb.NewMongoDBAdapter(mongodb.Config{
			URL:              cfg.URL,
			Database:         cfg.DatabaseName,
			ConnectTimeout:   cfg.ConnectTimeout,
			OperationTimeout: cfg.OperationTimeout,
		}, log)
	case config.DatabaseTypeDynamoDB:
		return dynamodb.NewDynamoDBAdapter(dynamodb.Config{
			Region:           cfg.Region,
			Endpoint:         cfg.Endpoint,
			AccessKeyID:      cfg.AccessKeyID,
			SecretAccessKey:  cfg.SecretAccessKey,
			SessionToken:     cfg.SessionToken,
			OperationTimeout: cfg.OperationTimeout,
		}, log)
	case config.DatabaseTypeOpenSearch:
		return opensearch.NewOpenSearchAdapter(opensearch.Config{
			URL:              cfg.URL,
			Username:         cfg.Username,
			Password:         cfg.Password,
			OperationTimeout: cfg.OperationTimeout,
		}, log)
	case config.DatabaseTypeMemory:
		return memory.NewClient(), nil
	default:
		return nil, fmt.Errorf("unsupported database.type %q (supported: mongodb, dynamodb, opensearch, memory)", cfg.Type)
	}
}

// NewDocumentCache builds the redis-backed document cache for the cached
// store decorator. A disabled configuration yields a nil cache.
func NewDocumentCache(cfg config.CacheConfig, log logger.Logger) (docstore.Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return redis.NewRedisAdapter(redis.Config{
		URL:              cfg.URL,
		MaxConns:         cfg.MaxConns,
		OperationTimeout: cfg.OperationTimeout,
	}, log)
}

var _ docstore.ClientFactory = OpenClient
