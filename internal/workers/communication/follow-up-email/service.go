// internal/workers/communication/follow-up-email/service.go
package followupemail

import (
	"context"
	"fmt"
	"time"

	"applysync/internal/common/errors"
	"applysync/internal/common/logger"
	"applysync/internal/common/metrics"
	"applysync/internal/common/observability"
	"applysync/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// Service decides when a follow-up goes out, records the intent, and sends
// it when a continuation arrives.
type Service struct {
	config    *Config
	store     TaskStore
	transport MailTransport
	obs       *observability.Observability
	logger    logger.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		config:    config,
		store:     deps.Store,
		transport: deps.Transport,
		obs:       deps.Observability,
		logger:    log.WithFields(map[string]interface{}{"component": "follow-up"}),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Execute validates an invocation envelope and runs it. The result is
// non-nil whenever the envelope was valid, including on error.
func (s *Service) Execute(ctx context.Context, inv models.FollowUpInvocation) (*models.FollowUpResult, error) {
	start := s.now()
	if err := ValidateInvocation(inv); err != nil {
		metrics.FollowUpResults.WithLabelValues("invalid").Inc()
		return nil, err
	}
	req, err := RequestFromInvocation(inv, start)
	if err != nil {
		metrics.FollowUpResults.WithLabelValues("invalid").Inc()
		return nil, err
	}

	ctx, span := s.obs.StartSpan(ctx, "followup.schedule",
		attribute.Bool("followup.continuation", inv.TaskID != ""))
	result, err := s.Schedule(ctx, req)
	observability.EndSpan(span, err)

	metrics.FollowUpResults.WithLabelValues(result.Status).Inc()
	s.obs.RecordRun(ctx, "follow_up", result.Status, s.now().Sub(start))
	return result, err
}

// Schedule dispatches on the request variant.
func (s *Service) Schedule(ctx context.Context, req Request) (*models.FollowUpResult, error) {
	switch r := req.(type) {
	case Initial:
		return s.scheduleInitial(ctx, r)
	case Continuation:
		return s.continueTask(ctx, r)
	default:
		err := errors.NewInvalidInvocationError(fmt.Sprintf("unknown request %T", req))
		return s.errorResult("", err), err
	}
}

func (s *Service) scheduleInitial(ctx context.Context, r Initial) (*models.FollowUpResult, error) {
	now := s.now()
	loc, err := resolveLocation(r.Timezone, s.config.DefaultTimezone)
	if err != nil {
		s.logger.Warn("unknown timezone, using default", map[string]interface{}{
			"timezone": r.Timezone,
			"default":  loc.String(),
			"error":    err,
		})
	}

	target := NextSendTime(r.SubmittedAt, loc, s.config.SendHour, now)
	if !target.After(now) {
		s.logger.Info("send time already elapsed, sending now", map[string]interface{}{
			"recipient":     r.RecipientEmail,
			"scheduledTime": formatTime(target),
		})
		return s.sendNow(ctx, "", r.RecipientEmail, r.RecipientName)
	}

	id, err := s.store.Create(ctx, models.ScheduledEmailTask{
		RecipientEmail: r.RecipientEmail,
		RecipientName:  r.RecipientName,
		ScheduledTime:  target,
		Timezone:       loc.String(),
		Status:         models.TaskStatusScheduled,
	})
	if err != nil {
		s.logger.Error("failed to persist follow-up task", map[string]interface{}{
			"recipient": r.RecipientEmail,
			"error":     err,
		})
		return s.errorResult("", err), err
	}

	s.logger.Info("follow-up email scheduled", map[string]interface{}{
		"taskId":        id,
		"recipient":     r.RecipientEmail,
		"scheduledTime": formatTime(target),
		"timezone":      loc.String(),
	})
	return &models.FollowUpResult{
		Status:        models.FollowUpStatusScheduled,
		TaskID:        id,
		Message:       fmt.Sprintf("Email to %s scheduled for %s", r.RecipientEmail, formatTime(target)),
		ScheduledTime: formatTime(target),
		Timestamp:     formatTime(now),
	}, nil
}

func (s *Service) continueTask(ctx context.Context, r Continuation) (*models.FollowUpResult, error) {
	log := s.logger.WithFields(map[string]interface{}{"taskId": r.TaskID})

	task, err := s.store.Get(ctx, r.TaskID)
	if err != nil {
		log.Warn("could not read task before sending", map[string]interface{}{"error": err})
	} else {
		switch task.Status {
		case models.TaskStatusSent:
			log.Info("follow-up already sent, skipping", nil)
			return &models.FollowUpResult{
				Status:    models.FollowUpStatusSent,
				TaskID:    r.TaskID,
				Message:   "Follow-up email already sent",
				Timestamp: formatTime(s.now()),
			}, nil
		case models.TaskStatusFailed:
			log.Warn("follow-up previously failed, not retrying", map[string]interface{}{
				"errorMessage": task.ErrorMessage,
			})
			return &models.FollowUpResult{
				Status:    models.FollowUpStatusError,
				TaskID:    r.TaskID,
				Message:   "Follow-up email previously failed: " + task.ErrorMessage,
				Timestamp: formatTime(s.now()),
			}, nil
		}
		if r.RecipientEmail == "" {
			r.RecipientEmail = task.RecipientEmail
		}
		if r.RecipientName == "" {
			r.RecipientName = task.RecipientName
		}
	}

	if r.RecipientEmail == "" {
		err := errors.NewInvalidInvocationError("recipientEmail unknown for task " + r.TaskID)
		return s.errorResult(r.TaskID, err), err
	}
	return s.sendNow(ctx, r.TaskID, r.RecipientEmail, r.RecipientName)
}

// sendNow sends and, when taskID is known, records the terminal status. A
// failed status write after a successful send is logged only; reporting it
// as an error would invite a second send.
func (s *Service) sendNow(ctx context.Context, taskID, email, name string) (*models.FollowUpResult, error) {
	messageID, sendErr := s.send(ctx, BuildFollowUpMessage(email, name))
	if sendErr != nil {
		if taskID != "" {
			if err := s.store.UpdateStatus(ctx, taskID, models.TaskStatusFailed, errors.AsStandardError(sendErr).Details); err != nil {
				s.logger.Error("failed to mark task failed", map[string]interface{}{"taskId": taskID, "error": err})
			}
		}
		return s.errorResult(taskID, sendErr), sendErr
	}

	if taskID != "" {
		if err := s.store.UpdateStatus(ctx, taskID, models.TaskStatusSent, ""); err != nil {
			fields := map[string]interface{}{"taskId": taskID, "error": err}
			if errors.HasCode(err, errors.ErrCodeTaskStatusConflict) {
				s.logger.Warn("task already terminal, status left unchanged", fields)
			} else {
				s.logger.Error("failed to mark task sent", fields)
			}
		}
	}

	s.logger.Info("follow-up email sent", map[string]interface{}{
		"taskId":    taskID,
		"recipient": email,
		"messageId": messageID,
	})
	return &models.FollowUpResult{
		Status:    models.FollowUpStatusSent,
		TaskID:    taskID,
		Message:   "Follow-up email sent to " + email,
		Timestamp: formatTime(s.now()),
	}, nil
}

// send tries the transport up to MaxAttempts times, but only while the
// failure is signature expiry. Waits are BaseBackoff, then doubled.
func (s *Service) send(ctx context.Context, msg models.EmailMessage) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		id, err := s.transport.Send(ctx, msg)
		if err == nil {
			metrics.FollowUpSendAttempts.WithLabelValues("sent").Inc()
			return id, nil
		}
		lastErr = err

		if !IsSignatureExpired(err) {
			metrics.FollowUpSendAttempts.WithLabelValues("failed").Inc()
			return "", errors.NewEmailSendFailedError(err)
		}
		metrics.FollowUpSendAttempts.WithLabelValues("signature_expired").Inc()
		if attempt == s.config.MaxAttempts {
			break
		}

		wait := backoff(s.config.BaseBackoff, attempt)
		s.logger.Warn("signature expired, retrying send", map[string]interface{}{
			"attempt":   attempt,
			"backoffMs": wait.Milliseconds(),
			"recipient": msg.To,
		})
		if err := s.sleep(ctx, wait); err != nil {
			return "", errors.NewSignatureExpiredError(attempt, lastErr)
		}
	}
	return "", errors.NewSignatureExpiredError(s.config.MaxAttempts, lastErr)
}

func (s *Service) errorResult(taskID string, err error) *models.FollowUpResult {
	stdErr := errors.AsStandardError(err)
	msg := stdErr.Message
	if stdErr.Details != "" {
		msg += ": " + stdErr.Details
	}
	return &models.FollowUpResult{
		Status:    models.FollowUpStatusError,
		TaskID:    taskID,
		Message:   msg,
		Timestamp: formatTime(s.now()),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
