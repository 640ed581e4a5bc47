// internal/common/taskstore/resolver.go
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"applysync/internal/common/logger"
	"applysync/internal/common/metrics"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
)

// KeyResolver discovers the partition key attribute name of a table.
type KeyResolver interface {
	Resolve(ctx context.Context, table string) (string, error)
}

type DescribeTableAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

var ErrNoHashKey = errors.New("table declares no HASH key")

// DescribeResolver asks DynamoDB for the key schema and memoizes successful
// answers for the life of the process. Failures are not memoized.
type DescribeResolver struct {
	client DescribeTableAPI

	mu   sync.RWMutex
	memo map[string]string
}

func NewDescribeResolver(client DescribeTableAPI) *DescribeResolver {
	return &DescribeResolver{client: client, memo: make(map[string]string)}
}

func (r *DescribeResolver) Resolve(ctx context.Context, table string) (string, error) {
	r.mu.RLock()
	key, ok := r.memo[table]
	r.mu.RUnlock()
	if ok {
		metrics.TaskStoreKeyResolution.WithLabelValues("memo").Inc()
		return key, nil
	}

	out, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: awssdk.String(table)})
	if err != nil {
		return "", fmt.Errorf("describe table %s: %w", table, err)
	}
	if out.Table == nil {
		return "", fmt.Errorf("describe table %s: %w", table, ErrNoHashKey)
	}
	for _, el := range out.Table.KeySchema {
		if el.KeyType == types.KeyTypeHash && el.AttributeName != nil {
			key = *el.AttributeName
			break
		}
	}
	if key == "" {
		return "", fmt.Errorf("describe table %s: %w", table, ErrNoHashKey)
	}

	r.mu.Lock()
	r.memo[table] = key
	r.mu.Unlock()
	metrics.TaskStoreKeyResolution.WithLabelValues("describe").Inc()
	return key, nil
}

// CachedResolver shares resolved key names between processes through Redis.
// Redis being unavailable only costs a DescribeTable call.
type CachedResolver struct {
	next   KeyResolver
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedResolver(next KeyResolver, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedResolver {
	return &CachedResolver{next: next, rdb: rdb, ttl: ttl, logger: log}
}

func cacheKey(table string) string {
	return "taskstore:key:" + table
}

func (r *CachedResolver) Resolve(ctx context.Context, table string) (string, error) {
	key, err := r.rdb.Get(ctx, cacheKey(table)).Result()
	if err == nil && key != "" {
		metrics.TaskStoreKeyResolution.WithLabelValues("cache").Inc()
		return key, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("key cache read failed", map[string]interface{}{"table": table, "error": err})
	}

	key, err = r.next.Resolve(ctx, table)
	if err != nil {
		return "", err
	}

	if err := r.rdb.Set(ctx, cacheKey(table), key, r.ttl).Err(); err != nil {
		r.logger.Warn("key cache write failed", map[string]interface{}{"table": table, "error": err})
	}
	return key, nil
}
