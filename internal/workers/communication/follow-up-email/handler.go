// internal/workers/communication/follow-up-email/handler.go
package followupemail

import (
	"context"
	"encoding/json"
	"time"

	"applysync/internal/common/errors"
	"applysync/internal/common/logger"
	"applysync/internal/common/metrics"
	"applysync/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Executor runs one invocation envelope.
type Executor interface {
	Execute(ctx context.Context, inv models.FollowUpInvocation) (*models.FollowUpResult, error)
}

// Handler adapts the scheduler to Zeebe jobs. Job variables are the
// invocation envelope; the result envelope becomes the completion variables.
type Handler struct {
	config       *Config
	service      Executor
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, service Executor, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Handler{
		config:       config,
		service:      service,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": config.JobType}),
	}
}

func (h *Handler) GetTaskType() string { return h.config.JobType }

func (h *Handler) IsEnabled() bool { return h.config.Enabled }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	result, err := h.process(ctx, job.Variables)
	metrics.WorkerJobDuration.WithLabelValues(h.config.JobType).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(h.config.JobType, string(errors.AsStandardError(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, result)
}

func (h *Handler) process(ctx context.Context, variables string) (*models.FollowUpResult, error) {
	var inv models.FollowUpInvocation
	if err := json.Unmarshal([]byte(variables), &inv); err != nil {
		return nil, errors.NewInvalidInvocationError("parse variables: " + err.Error())
	}
	return h.service.Execute(ctx, inv)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, result *models.FollowUpResult) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(result)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(h.config.JobType).Inc()
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
		"status": result.Status,
		"taskId": result.TaskID,
	})
}
