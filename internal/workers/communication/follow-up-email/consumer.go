// internal/workers/communication/follow-up-email/consumer.go
package followupemail

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"applysync/internal/common/logger"
	"applysync/internal/models"

	"github.com/redis/go-redis/v9"
)

// Consumer drains invocation envelopes pushed onto a Redis list by the
// intake server.
type Consumer struct {
	rdb         redis.Cmdable
	service     Executor
	queue       string
	pollTimeout time.Duration
	logger      logger.Logger
}

func NewConsumer(rdb redis.Cmdable, service Executor, config *Config, log logger.Logger) *Consumer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Consumer{
		rdb:         rdb,
		service:     service,
		queue:       config.QueueKey,
		pollTimeout: config.PollTimeout,
		logger:      log.WithFields(map[string]interface{}{"queue": config.QueueKey}),
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("follow-up consumer started", nil)
	for {
		if ctx.Err() != nil {
			c.logger.Info("follow-up consumer stopped", nil)
			return nil
		}
		if _, err := c.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("queue read failed", map[string]interface{}{"error": err})
			if err := sleepContext(ctx, time.Second); err != nil {
				continue
			}
		}
	}
}

// ProcessOne waits up to the poll timeout for one envelope and runs it. It
// reports whether a message was taken; only queue errors are returned.
func (c *Consumer) ProcessOne(ctx context.Context) (bool, error) {
	res, err := c.rdb.BRPop(ctx, c.pollTimeout, c.queue).Result()
	if stderrors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(res) < 2 {
		return false, nil
	}

	var inv models.FollowUpInvocation
	if err := json.Unmarshal([]byte(res[1]), &inv); err != nil {
		c.logger.Warn("dropping malformed follow-up message", map[string]interface{}{
			"error":   err,
			"payload": res[1],
		})
		return true, nil
	}

	result, err := c.service.Execute(ctx, inv)
	if err != nil {
		c.logger.Error("follow-up invocation failed", map[string]interface{}{
			"error":     err,
			"recipient": inv.RecipientEmail,
			"taskId":    inv.TaskID,
		})
		return true, nil
	}
	c.logger.Info("follow-up invocation handled", map[string]interface{}{
		"status":    result.Status,
		"taskId":    result.TaskID,
		"recipient": inv.RecipientEmail,
	})
	return true, nil
}
