// internal/workers/communication/follow-up-email/models.go
package followupemail

import (
	"context"
	"strings"
	"time"

	"applysync/internal/common/errors"
	"applysync/internal/common/logger"
	"applysync/internal/common/observability"
	"applysync/internal/models"
)

type TaskStore interface {
	Create(ctx context.Context, task models.ScheduledEmailTask) (string, error)
	UpdateStatus(ctx context.Context, id string, status models.TaskStatus, errorMessage string) error
	Get(ctx context.Context, id string) (*models.ScheduledEmailTask, error)
}

type MailTransport interface {
	Send(ctx context.Context, msg models.EmailMessage) (string, error)
}

type ServiceDependencies struct {
	Store         TaskStore
	Transport     MailTransport
	Observability *observability.Observability
	Logger        logger.Logger
}

// Request is either Initial or Continuation.
type Request interface {
	recipient() (email, name string)
}

// Initial decides when to send and, if that is in the future, records the
// intent.
type Initial struct {
	RecipientEmail string
	RecipientName  string
	SubmittedAt    time.Time
	Timezone       string
}

// Continuation sends now for a task recorded by an earlier Initial.
// Recipient fields may be empty; the stored task fills them in.
type Continuation struct {
	TaskID         string
	RecipientEmail string
	RecipientName  string
}

func (r Initial) recipient() (string, string)      { return r.RecipientEmail, r.RecipientName }
func (r Continuation) recipient() (string, string) { return r.RecipientEmail, r.RecipientName }

// RequestFromInvocation picks the variant: an envelope carrying a task id is
// a continuation, anything else is an initial request. A missing
// applicationDate means now.
func RequestFromInvocation(inv models.FollowUpInvocation, now time.Time) (Request, error) {
	if id := strings.TrimSpace(inv.TaskID); id != "" {
		return Continuation{
			TaskID:         id,
			RecipientEmail: inv.RecipientEmail,
			RecipientName:  inv.RecipientName,
		}, nil
	}
	if inv.Retry {
		return nil, errors.NewInvalidInvocationError("retry requires taskId")
	}

	submittedAt := now
	if inv.ApplicationDate != "" {
		t, err := time.Parse(time.RFC3339, inv.ApplicationDate)
		if err != nil {
			return nil, errors.NewInvalidInvocationError("applicationDate must be RFC 3339: " + err.Error())
		}
		submittedAt = t
	}
	return Initial{
		RecipientEmail: inv.RecipientEmail,
		RecipientName:  inv.RecipientName,
		SubmittedAt:    submittedAt,
		Timezone:       inv.Timezone,
	}, nil
}
