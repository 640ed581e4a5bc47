// Package taskstore persists scheduled follow-up email tasks in DynamoDB
// without assuming the table's partition key attribute name.
package taskstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"applysync/internal/common/errors"
	"applysync/internal/common/logger"
	"applysync/internal/common/metrics"
	"applysync/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoDBAPI is the subset of the DynamoDB client the store needs.
type DynamoDBAPI interface {
	DescribeTableAPI
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

var ErrTaskNotFound = stderrors.New("scheduled email task not found")

const idPrefix = "email_"

// Config holds the table layout assumptions.
type Config struct {
	Table      string
	KeyAliases []string
	DefaultKey string
}

type Store struct {
	client   DynamoDBAPI
	resolver KeyResolver
	cfg      Config
	logger   logger.Logger
	now      func() time.Time
	newID    func() string
}

func New(client DynamoDBAPI, resolver KeyResolver, cfg Config, log logger.Logger) *Store {
	if cfg.DefaultKey == "" {
		cfg.DefaultKey = "id"
	}
	if len(cfg.KeyAliases) == 0 {
		cfg.KeyAliases = []string{"id", "taskId", "task_id", "emailId"}
	}
	return &Store{
		client:   client,
		resolver: resolver,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"table": cfg.Table}),
		now:      time.Now,
		newID:    func() string { return idPrefix + uuid.NewString() },
	}
}

// keyName returns the declared key attribute, or "" with a logged warning
// when discovery fails.
func (s *Store) keyName(ctx context.Context) string {
	key, err := s.resolver.Resolve(ctx, s.cfg.Table)
	if err != nil {
		metrics.TaskStoreKeyResolution.WithLabelValues("fallback").Inc()
		s.logger.Warn("key schema discovery failed, using alias fallback", map[string]interface{}{
			"error":      err,
			"defaultKey": s.cfg.DefaultKey,
		})
		return ""
	}
	return key
}

// Create writes a new SCHEDULED task and returns its id. The id is written
// under every alias plus the discovered key so the put succeeds whichever
// alias the table actually uses.
func (s *Store) Create(ctx context.Context, task models.ScheduledEmailTask) (string, error) {
	if task.ID == "" {
		task.ID = s.newID()
	}
	now := s.now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	if task.Status == "" {
		task.Status = models.TaskStatusScheduled
	}

	item := encodeTask(task)
	for _, alias := range s.cfg.KeyAliases {
		item[alias] = str(task.ID)
	}

	conditionKey := s.cfg.DefaultKey
	if key := s.keyName(ctx); key != "" {
		item[key] = str(task.ID)
		conditionKey = key
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                awssdk.String(s.cfg.Table),
		Item:                     item,
		ConditionExpression:      awssdk.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": conditionKey},
	})
	if err != nil {
		return "", errors.NewTaskPersistFailedError(err).WithMetadata("taskId", task.ID)
	}

	s.logger.Info("scheduled email task created", map[string]interface{}{
		"taskId":        task.ID,
		"scheduledTime": formatTime(task.ScheduledTime),
	})
	return task.ID, nil
}

// UpdateStatus moves a SCHEDULED task to a terminal status. A task that has
// already left SCHEDULED is never overwritten; that case is reported as
// TASK_STATUS_CONFLICT.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.TaskStatus, errorMessage string) error {
	key := s.keyName(ctx)
	if key == "" {
		key = s.cfg.DefaultKey
	}

	update := "SET #status = :status, updatedAt = :updatedAt"
	values := map[string]types.AttributeValue{
		":status":    str(string(status)),
		":updatedAt": str(formatTime(s.now())),
		":scheduled": str(string(models.TaskStatusScheduled)),
	}
	if errorMessage != "" {
		update += ", errorMessage = :errorMessage"
		values[":errorMessage"] = str(errorMessage)
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 awssdk.String(s.cfg.Table),
		Key:                       map[string]types.AttributeValue{key: str(id)},
		UpdateExpression:          awssdk.String(update),
		ConditionExpression:       awssdk.String("#status = :scheduled"),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if stderrors.As(err, &ccf) {
			return errors.NewTaskStatusConflictError(id, err)
		}
		return errors.NewTaskUpdateFailedError(id, err)
	}

	s.logger.Info("scheduled email task updated", map[string]interface{}{
		"taskId": id,
		"status": string(status),
	})
	return nil
}

// Get reads a task with a strongly consistent read.
func (s *Store) Get(ctx context.Context, id string) (*models.ScheduledEmailTask, error) {
	key := s.keyName(ctx)
	if key == "" {
		key = s.cfg.DefaultKey
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      awssdk.String(s.cfg.Table),
		Key:            map[string]types.AttributeValue{key: str(id)},
		ConsistentRead: awssdk.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("get task %s: %w", id, ErrTaskNotFound)
	}

	task := decodeTask(out.Item, append([]string{key}, s.cfg.KeyAliases...))
	if task.ID == "" {
		task.ID = id
	}
	return &task, nil
}
