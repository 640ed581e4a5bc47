// internal/workers/application/process-application/models.go
package processapplication

import (
	"context"
	"time"

	"applysync/internal/common/logger"
	"applysync/internal/common/observability"
	"applysync/internal/common/webhook"
	"applysync/internal/models"
)

// ArtifactStore keeps the uploaded document and hands out time-limited links.
type ArtifactStore interface {
	Store(ctx context.Context, document []byte, contentType string, meta models.ArtifactMetadata) (string, error)
	SignedURL(ctx context.Context, locator string, ttl time.Duration) (string, error)
}

type ParsingInvoker interface {
	Parse(ctx context.Context, locator, contentType string) (models.ParsedDocumentFields, error)
}

type RecordSink interface {
	Name() string
	Append(ctx context.Context, rec models.ApplicationRecord) error
}

type NotificationSink interface {
	Notify(ctx context.Context, payload webhook.Payload) error
}

// FollowUpDispatcher hands a follow-up intent to the scheduler without
// waiting for it to run.
type FollowUpDispatcher interface {
	Dispatch(ctx context.Context, inv models.FollowUpInvocation) error
}

// Result is what an accepted submission reports back.
type Result struct {
	DocumentURL string                   `json:"cvUrl"`
	Summary     models.ParsedDataSummary `json:"parsed_data_summary"`
	Locator     string                   `json:"-"`
}

// ServiceDependencies wires the collaborators. Records, Notifier and
// FollowUp may be nil, in which case the step is skipped.
type ServiceDependencies struct {
	Store         ArtifactStore
	Parser        ParsingInvoker
	Records       RecordSink
	Notifier      NotificationSink
	FollowUp      FollowUpDispatcher
	Observability *observability.Observability
	Logger        logger.Logger
}

type successResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Data    *Result `json:"data"`
}

type errorResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Stack   string   `json:"stack,omitempty"`
}
