// internal/workers/communication/follow-up-email/lambda.go
package followupemail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"applysync/internal/common/errors"
	"applysync/internal/common/logger"
	"applysync/internal/models"

	"github.com/aws/aws-lambda-go/events"
)

const snsEventSource = "aws:sns"

// LambdaHandler runs the scheduler as a Lambda function. The payload is the
// invocation envelope itself (Event invokes from the intake server and
// continuation triggers) or an SNS notification whose message is the envelope.
type LambdaHandler struct {
	service Executor
	logger  logger.Logger
}

func NewLambdaHandler(service Executor, log logger.Logger) *LambdaHandler {
	return &LambdaHandler{
		service: service,
		logger:  log.WithFields(map[string]interface{}{"entrypoint": "lambda"}),
	}
}

// Invoke returns an error only when the failure is worth an asynchronous
// Lambda retry. Anything else is answered with the error result so the
// platform does not replay a message that cannot succeed.
func (h *LambdaHandler) Invoke(ctx context.Context, payload json.RawMessage) (*models.FollowUpResult, error) {
	invocations, err := decodeLambdaPayload(payload)
	if err != nil {
		stdErr := errors.NewInvalidInvocationError(err.Error())
		h.logger.Warn("rejecting follow-up payload", map[string]interface{}{"error": err})
		return &models.FollowUpResult{
			Status:    models.FollowUpStatusError,
			Message:   stdErr.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, nil
	}

	var last *models.FollowUpResult
	for _, inv := range invocations {
		result, err := h.service.Execute(ctx, inv)
		if err != nil {
			stdErr := errors.AsStandardError(err)
			fields := map[string]interface{}{
				"error":     err,
				"errorCode": stdErr.Code,
				"recipient": inv.RecipientEmail,
				"taskId":    inv.TaskID,
			}
			if errors.IsRetryableErrorCode(stdErr.Code) {
				h.logger.Error("follow-up invocation failed, handing back for retry", fields)
				return result, err
			}
			h.logger.Warn("follow-up invocation failed", fields)
			if result == nil {
				result = &models.FollowUpResult{
					Status:    models.FollowUpStatusError,
					TaskID:    inv.TaskID,
					Message:   stdErr.Error(),
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				}
			}
		}
		last = result
	}
	return last, nil
}

// decodeLambdaPayload unwraps SNS deliveries. SNS hands a subscribed function
// one record per invocation, so a retry never replays a sibling record.
func decodeLambdaPayload(payload json.RawMessage) ([]models.FollowUpInvocation, error) {
	var shape struct {
		Records []json.RawMessage `json:"Records"`
	}
	if err := json.Unmarshal(payload, &shape); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if len(shape.Records) == 0 {
		var inv models.FollowUpInvocation
		if err := json.Unmarshal(payload, &inv); err != nil {
			return nil, fmt.Errorf("decode invocation: %w", err)
		}
		return []models.FollowUpInvocation{inv}, nil
	}

	var event events.SNSEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode sns event: %w", err)
	}
	out := make([]models.FollowUpInvocation, 0, len(event.Records))
	for _, record := range event.Records {
		if record.EventSource != snsEventSource {
			return nil, fmt.Errorf("unsupported event source %q", record.EventSource)
		}
		var inv models.FollowUpInvocation
		if err := json.Unmarshal([]byte(record.SNS.Message), &inv); err != nil {
			return nil, fmt.Errorf("decode sns message %s: %w", record.SNS.MessageID, err)
		}
		out = append(out, inv)
	}
	return out, nil
}
