// Package dispatch delivers follow-up intents to the scheduler without
// waiting for it. AWS-backed dispatchers live in the aws package.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"applysync/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisDispatcher pushes intents onto a list consumed by the worker-manager.
type RedisDispatcher struct {
	rdb   redis.Cmdable
	queue string
}

func NewRedisDispatcher(rdb redis.Cmdable, queue string) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb, queue: queue}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, inv models.FollowUpInvocation) error {
	body, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal follow-up invocation: %w", err)
	}
	if err := d.rdb.LPush(ctx, d.queue, body).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", d.queue, err)
	}
	return nil
}

// InstanceCreator starts a process instance and returns its key.
type InstanceCreator interface {
	CreateInstance(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// ZeebeDispatcher starts one follow-up process instance per intent; the
// process's service task is handled by the follow-up worker.
type ZeebeDispatcher struct {
	creator   InstanceCreator
	processID string
}

func NewZeebeDispatcher(creator InstanceCreator, processID string) *ZeebeDispatcher {
	return &ZeebeDispatcher{creator: creator, processID: processID}
}

func (d *ZeebeDispatcher) Dispatch(ctx context.Context, inv models.FollowUpInvocation) error {
	if _, err := d.creator.CreateInstance(ctx, d.processID, inv); err != nil {
		return fmt.Errorf("create %s instance: %w", d.processID, err)
	}
	return nil
}
