// internal/models/followup.go
package models

import "time"

// TaskStatus is the lifecycle state of a ScheduledEmailTask.
// Transitions are SCHEDULED -> SENT or SCHEDULED -> FAILED only.
type TaskStatus string

const (
	TaskStatusScheduled TaskStatus = "scheduled"
	TaskStatusSent      TaskStatus = "sent"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSent || s == TaskStatusFailed
}

// ScheduledEmailTask is the durable intent to send one follow-up email.
type ScheduledEmailTask struct {
	ID             string
	RecipientEmail string
	RecipientName  string
	ScheduledTime  time.Time
	Timezone       string
	Status         TaskStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ErrorMessage   string
}

// FollowUpInvocation is the wire envelope accepted by the follow-up scheduler,
// whichever transport delivered it.
type FollowUpInvocation struct {
	RecipientEmail  string `json:"recipientEmail"`
	RecipientName   string `json:"recipientName"`
	Timezone        string `json:"timezone,omitempty"`
	ApplicationDate string `json:"applicationDate,omitempty"`
	Retry           bool   `json:"retry,omitempty"`
	TaskID          string `json:"taskId,omitempty"`
}

// Follow-up result statuses as they appear on the wire.
const (
	FollowUpStatusScheduled = "scheduled"
	FollowUpStatusSent      = "sent"
	FollowUpStatusError     = "error"
)

// FollowUpResult is the scheduler's response envelope.
type FollowUpResult struct {
	Status        string `json:"status"`
	TaskID        string `json:"taskId,omitempty"`
	Message       string `json:"message"`
	ScheduledTime string `json:"scheduledTime,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// EmailMessage is one outbound message handed to a mail transport.
type EmailMessage struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}
