// Package errors provides the standardized error taxonomy for the intake
// pipeline and the follow-up workers, plus the mapping onto Zeebe job errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Intake: fatal
	ErrCodeArtifactStoreFailed ErrorCode = "ARTIFACT_STORE_FAILED"

	// Intake: recoverable and swallowed
	ErrCodeDocumentParseFailed    ErrorCode = "DOCUMENT_PARSE_FAILED"
	ErrCodeRecordSinkFailed       ErrorCode = "RECORD_SINK_FAILED"
	ErrCodeNotificationFailed     ErrorCode = "NOTIFICATION_FAILED"
	ErrCodeFollowUpDispatchFailed ErrorCode = "FOLLOWUP_DISPATCH_FAILED"

	// Input
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidInvocation ErrorCode = "INVALID_INVOCATION"

	// Follow-up scheduler
	ErrCodeTaskPersistFailed  ErrorCode = "TASK_PERSIST_FAILED"
	ErrCodeTaskUpdateFailed   ErrorCode = "TASK_UPDATE_FAILED"
	ErrCodeTaskStatusConflict ErrorCode = "TASK_STATUS_CONFLICT"
	ErrCodeEmailSendFailed    ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodeSignatureExpired   ErrorCode = "SIGNATURE_EXPIRED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is/As see through the wrapper.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	stdErr := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		stdErr.Details = cause.Error()
	}
	return stdErr
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewArtifactStoreFailedError is the only intake failure that rejects a submission.
func NewArtifactStoreFailedError(err error) *StandardError {
	return newError(ErrCodeArtifactStoreFailed, "Failed to store application document", err, true)
}

func NewDocumentParseFailedError(err error) *StandardError {
	return newError(ErrCodeDocumentParseFailed, "Document parsing failed", err, false)
}

func NewRecordSinkFailedError(sink string, err error) *StandardError {
	return newError(ErrCodeRecordSinkFailed, "Application record append failed", err, true).
		WithMetadata("sink", sink)
}

func NewNotificationFailedError(err error) *StandardError {
	return newError(ErrCodeNotificationFailed, "Notification delivery failed", err, true)
}

func NewFollowUpDispatchFailedError(mode string, err error) *StandardError {
	return newError(ErrCodeFollowUpDispatchFailed, "Follow-up dispatch failed", err, true).
		WithMetadata("mode", mode)
}

// NewValidationFailedError carries one message per invalid field in Metadata["errors"].
func NewValidationFailedError(messages []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Validation failed",
		Retryable: false,
		Metadata:  map[string]interface{}{"errors": messages},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInvocationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInvocation,
		Message:   "Invalid follow-up invocation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewTaskPersistFailedError(err error) *StandardError {
	return newError(ErrCodeTaskPersistFailed, "Failed to persist scheduled email task", err, true)
}

func NewTaskUpdateFailedError(taskID string, err error) *StandardError {
	return newError(ErrCodeTaskUpdateFailed, "Failed to update scheduled email task", err, true).
		WithMetadata("taskId", taskID)
}

func NewTaskStatusConflictError(taskID string, err error) *StandardError {
	return newError(ErrCodeTaskStatusConflict, "Scheduled email task already reached a terminal status", err, false).
		WithMetadata("taskId", taskID)
}

func NewEmailSendFailedError(err error) *StandardError {
	return newError(ErrCodeEmailSendFailed, "Failed to send follow-up email", err, false)
}

func NewSignatureExpiredError(attempts int, err error) *StandardError {
	return newError(ErrCodeSignatureExpired, "Mail transport signature expired", err, true).
		WithMetadata("attempts", attempts)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeArtifactStoreFailed:    "ARTIFACT_STORE_FAILED",
	ErrCodeDocumentParseFailed:    "DOCUMENT_PARSE_FAILED",
	ErrCodeRecordSinkFailed:       "RECORD_SINK_FAILED",
	ErrCodeNotificationFailed:     "NOTIFICATION_FAILED",
	ErrCodeFollowUpDispatchFailed: "FOLLOWUP_DISPATCH_FAILED",
	ErrCodeValidationFailed:       "VALIDATION_FAILED",
	ErrCodeInvalidInvocation:      "INVALID_INVOCATION",
	ErrCodeTaskPersistFailed:      "TASK_PERSIST_FAILED",
	ErrCodeTaskUpdateFailed:       "TASK_UPDATE_FAILED",
	ErrCodeTaskStatusConflict:     "TASK_STATUS_CONFLICT",
	ErrCodeEmailSendFailed:        "EMAIL_SEND_FAILED",
	ErrCodeSignatureExpired:       "SIGNATURE_EXPIRED",
}

// GetRetryCount returns the number of engine-level retries for a code.
// SIGNATURE_EXPIRED has already been retried inside the scheduler, so the
// engine does not retry it again.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeTaskPersistFailed, ErrCodeTaskUpdateFailed:
		return 3
	case ErrCodeArtifactStoreFailed, ErrCodeFollowUpDispatchFailed, ErrCodeNotificationFailed, ErrCodeRecordSinkFailed:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	code, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		code = string(stdErr.Code)
	}
	return &BPMNError{
		Code:           code,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        GetRetryCount(stdErr.Code),
		ErrorVariables: stdErr.Metadata,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError finds a StandardError in err's chain, or wraps err as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// IsRetryableErrorCode reports whether a failure with this code is handed
// back to the caller (Zeebe or the Lambda platform) for another attempt.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeArtifactStoreFailed:
		return "FATAL"
	case ErrCodeDocumentParseFailed, ErrCodeRecordSinkFailed, ErrCodeNotificationFailed, ErrCodeFollowUpDispatchFailed:
		return "SWALLOWED"
	case ErrCodeValidationFailed, ErrCodeInvalidInvocation:
		return "INPUT"
	case ErrCodeSignatureExpired:
		return "TRANSIENT"
	case ErrCodeTaskPersistFailed, ErrCodeTaskUpdateFailed, ErrCodeTaskStatusConflict:
		return "PERSISTENCE"
	case ErrCodeEmailSendFailed:
		return "DELIVERY"
	default:
		return "UNKNOWN"
	}
}
