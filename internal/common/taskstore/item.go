// internal/common/taskstore/item.go
package taskstore

import (
	"time"

	"applysync/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func str(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func encodeTask(t models.ScheduledEmailTask) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"recipientEmail": str(t.RecipientEmail),
		"recipientName":  str(t.RecipientName),
		"scheduledTime":  str(formatTime(t.ScheduledTime)),
		"timezone":       str(t.Timezone),
		"status":         str(string(t.Status)),
		"createdAt":      str(formatTime(t.CreatedAt)),
		"updatedAt":      str(formatTime(t.UpdatedAt)),
	}
	if t.ErrorMessage != "" {
		item["errorMessage"] = str(t.ErrorMessage)
	}
	return item
}

func getString(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func getTime(item map[string]types.AttributeValue, name string) time.Time {
	t, err := time.Parse(time.RFC3339, getString(item, name))
	if err != nil {
		return time.Time{}
	}
	return t
}

func decodeTask(item map[string]types.AttributeValue, idAttrs []string) models.ScheduledEmailTask {
	task := models.ScheduledEmailTask{
		RecipientEmail: getString(item, "recipientEmail"),
		RecipientName:  getString(item, "recipientName"),
		ScheduledTime:  getTime(item, "scheduledTime"),
		Timezone:       getString(item, "timezone"),
		Status:         models.TaskStatus(getString(item, "status")),
		CreatedAt:      getTime(item, "createdAt"),
		UpdatedAt:      getTime(item, "updatedAt"),
		ErrorMessage:   getString(item, "errorMessage"),
	}
	for _, alias := range idAttrs {
		if id := getString(item, alias); id != "" {
			task.ID = id
			break
		}
	}
	return task
}
