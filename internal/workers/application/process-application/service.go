// internal/workers/application/process-application/service.go
package processapplication

import (
	"context"
	"fmt"
	"time"

	"applysync/internal/common/errors"
	"applysync/internal/common/logger"
	"applysync/internal/common/metrics"
	"applysync/internal/common/observability"
	"applysync/internal/common/webhook"
	"applysync/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const (
	stepStore    = "store"
	stepParse    = "parse"
	stepRecord   = "record"
	stepNotify   = "notify"
	stepFollowUp = "follow_up"
)

// Service runs one submission through store, parse, record, notify and
// follow-up, in that order. Only the store step can reject a submission.
type Service struct {
	config   *Config
	store    ArtifactStore
	parser   ParsingInvoker
	records  RecordSink
	notifier NotificationSink
	followUp FollowUpDispatcher
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
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
		config:   config,
		store:    deps.Store,
		parser:   deps.Parser,
		records:  deps.Records,
		notifier: deps.Notifier,
		followUp: deps.FollowUp,
		obs:      deps.Observability,
		logger:   log.WithFields(map[string]interface{}{"component": "intake"}),
		now:      time.Now,
	}
}

func (s *Service) Process(ctx context.Context, sub models.Submission) (*Result, error) {
	start := s.now()
	log := s.logger.WithFields(map[string]interface{}{
		"email":    sub.Email,
		"fileName": sub.FileName,
	})
	log.Info("processing submission", map[string]interface{}{
		"contentType": sub.ContentType,
		"size":        len(sub.Document),
	})

	var locator, documentURL string
	err := s.runStep(ctx, stepStore, 0, func(ctx context.Context) error {
		var err error
		locator, err = s.store.Store(ctx, sub.Document, sub.ContentType, models.ArtifactMetadata{
			OriginalName:  sub.FileName,
			ApplicantName: sub.Name,
		})
		if err != nil {
			return err
		}
		documentURL, err = s.store.SignedURL(ctx, locator, s.config.SignedURLTTL)
		return err
	})
	if err != nil {
		stdErr := errors.NewArtifactStoreFailedError(err)
		metrics.IntakeStepFailures.WithLabelValues(stepStore).Inc()
		s.finish(ctx, "rejected", start)
		log.Error("document store failed, rejecting submission", map[string]interface{}{
			"error":     err,
			"errorCode": string(stdErr.Code),
		})
		return nil, stdErr
	}

	parsed := s.parse(ctx, log, locator, sub.ContentType)

	submittedAt := s.now().UTC()
	if s.records != nil {
		record := buildRecord(sub, documentURL, parsed, submittedAt)
		if err := s.runStep(ctx, stepRecord, 0, func(ctx context.Context) error {
			return s.records.Append(ctx, record)
		}); err != nil {
			s.swallow(log, stepRecord, errors.NewRecordSinkFailedError(s.records.Name(), err))
		}
	}

	if s.notifier != nil {
		payload := webhook.BuildPayload(sub, documentURL, parsed, submittedAt)
		if err := s.runStep(ctx, stepNotify, 0, func(ctx context.Context) error {
			return s.notifier.Notify(ctx, payload)
		}); err != nil {
			s.swallow(log, stepNotify, errors.NewNotificationFailedError(err))
		}
	}

	if s.followUp != nil {
		inv := models.FollowUpInvocation{
			RecipientEmail:  sub.Email,
			RecipientName:   sub.Name,
			ApplicationDate: submittedAt.Format(time.RFC3339),
		}
		if err := s.runStep(ctx, stepFollowUp, 0, func(ctx context.Context) error {
			return s.followUp.Dispatch(ctx, inv)
		}); err != nil {
			s.swallow(log, stepFollowUp, errors.NewFollowUpDispatchFailedError(s.config.DispatchMode, err))
		}
	}

	summary := models.SummarizeParsed(parsed)
	s.finish(ctx, "accepted", start)
	log.Info("submission accepted", map[string]interface{}{
		"locator":        locator,
		"educationCount": summary.EducationCount,
		"durationMs":     s.now().Sub(start).Milliseconds(),
	})

	return &Result{
		DocumentURL: documentURL,
		Summary:     summary,
		Locator:     locator,
	}, nil
}

// parse never fails: any error, panic or timeout yields empty fields.
func (s *Service) parse(ctx context.Context, log logger.Logger, locator, contentType string) models.ParsedDocumentFields {
	if s.parser == nil {
		return models.EmptyParsedDocumentFields()
	}
	var parsed models.ParsedDocumentFields
	err := s.runStep(ctx, stepParse, s.config.ParseTimeout, func(ctx context.Context) error {
		p, err := s.parser.Parse(ctx, locator, contentType)
		if err != nil {
			return err
		}
		parsed = p.Normalized()
		return nil
	})
	if err != nil {
		s.swallow(log, stepParse, errors.NewDocumentParseFailedError(err))
		return models.EmptyParsedDocumentFields()
	}
	return parsed
}

// runStep isolates one step: a panic inside fn becomes an error and never
// crosses into the next step.
func (s *Service) runStep(ctx context.Context, step string, timeout time.Duration, fn func(context.Context) error) (err error) {
	ctx, span := s.obs.StartSpan(ctx, "intake."+step, attribute.String("intake.step", step))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s step: %v", step, r)
		}
		observability.EndSpan(span, err)
	}()

	if timeout <= 0 {
		timeout = s.config.StepTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (s *Service) swallow(log logger.Logger, step string, stdErr *errors.StandardError) {
	metrics.IntakeStepFailures.WithLabelValues(step).Inc()
	log.Warn("intake step failed, continuing", map[string]interface{}{
		"step":      step,
		"errorCode": string(stdErr.Code),
		"error":     stdErr.Details,
		"metadata":  stdErr.Metadata,
	})
}

func (s *Service) finish(ctx context.Context, outcome string, start time.Time) {
	elapsed := s.now().Sub(start)
	metrics.IntakeSubmissions.WithLabelValues(outcome).Inc()
	metrics.IntakeDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	s.obs.RecordRun(ctx, "intake", outcome, elapsed)
}

// buildRecord copies the parsed lists so a sink cannot alter what later
// steps receive.
func buildRecord(sub models.Submission, documentURL string, parsed models.ParsedDocumentFields, at time.Time) models.ApplicationRecord {
	return models.ApplicationRecord{
		Name:           sub.Name,
		Email:          sub.Email,
		Phone:          sub.Phone,
		DocumentURL:    documentURL,
		Education:      append([]string{}, parsed.Education...),
		Qualifications: append([]string{}, parsed.Qualifications...),
		Projects:       append([]string{}, parsed.Projects...),
		SubmittedAt:    at,
	}
}
