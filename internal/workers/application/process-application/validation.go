// internal/workers/application/process-application/validation.go
package processapplication

import (
	"fmt"

	"applysync/internal/common/validation"
	"applysync/internal/models"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

const (
	msgNameRequired   = "Name is required"
	msgEmailInvalid   = "Valid email is required"
	msgPhoneInvalid   = "Valid phone number is required"
	msgFileRequired   = "CV file is required"
	msgFileType       = "Only PDF and DOCX files are allowed"
	msgFileTooLargeFn = "File size must not exceed %d MB"
)

// GetInputSchema describes the intake form fields.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"name", "email", "phone"},
		Properties: map[string]validation.Property{
			"name": {
				Type:      "string",
				MaxLength: intPtr(200),
				Message:   msgNameRequired,
			},
			"email": {
				Type:      "string",
				Format:    "email",
				MaxLength: intPtr(254),
				Message:   msgEmailInvalid,
			},
			"phone": {
				Type:    "string",
				Format:  "phone",
				Message: msgPhoneInvalid,
			},
		},
		AdditionalProperties: true,
	}
}

// IsAllowedContentType reports whether the upload is a PDF or DOCX.
func IsAllowedContentType(contentType string) bool {
	return contentType == ContentTypePDF || contentType == ContentTypeDOCX
}

// ValidateSubmission returns one message per invalid field, form fields
// first, then the document.
func ValidateSubmission(sub models.Submission, hasFile bool, maxBytes int64) []string {
	result := validation.ValidateInput(map[string]interface{}{
		"name":  sub.Name,
		"email": sub.Email,
		"phone": sub.Phone,
	}, GetInputSchema())
	messages := []string{}
	for _, field := range []string{"name", "email", "phone"} {
		for _, e := range result.Errors {
			if e.Field == field {
				messages = append(messages, e.Message)
			}
		}
	}

	switch {
	case !hasFile:
		messages = append(messages, msgFileRequired)
	case !IsAllowedContentType(sub.ContentType):
		messages = append(messages, msgFileType)
	case maxBytes > 0 && int64(len(sub.Document)) > maxBytes:
		messages = append(messages, fmt.Sprintf(msgFileTooLargeFn, maxBytes>>20))
	}
	return messages
}

func intPtr(i int) *int {
	return &i
}
