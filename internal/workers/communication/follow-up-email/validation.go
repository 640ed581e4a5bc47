// internal/workers/communication/follow-up-email/validation.go
package followupemail

import (
	"strings"
	"sync"

	"applysync/internal/common/errors"
	"applysync/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// invocationSchema accepts an initial envelope (recipientEmail set) or a
// continuation envelope (taskId set).
const invocationSchema = `{
  "type": "object",
  "properties": {
    "recipientEmail":  {"type": "string", "maxLength": 254, "pattern": "^$|^[^\\s@]+@[^\\s@]+\\.[^\\s@]+$"},
    "recipientName":   {"type": "string", "maxLength": 200},
    "timezone":        {"type": "string", "maxLength": 64},
    "applicationDate": {"type": "string", "format": "date-time"},
    "retry":           {"type": "boolean"},
    "taskId":          {"type": "string", "maxLength": 128}
  },
  "anyOf": [
    {"required": ["recipientEmail"], "properties": {"recipientEmail": {"minLength": 1}}},
    {"required": ["taskId"], "properties": {"taskId": {"minLength": 1}}}
  ]
}`

var (
	compileOnce    sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

func schema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(invocationSchema))
	})
	return compiledSchema, compileErr
}

// ValidateInvocation checks the envelope shape. Violations come back as
// INVALID_INVOCATION.
func ValidateInvocation(inv models.FollowUpInvocation) error {
	s, err := schema()
	if err != nil {
		return errors.NewInvalidInvocationError("schema: " + err.Error())
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(inv))
	if err != nil {
		return errors.NewInvalidInvocationError(err.Error())
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return errors.NewInvalidInvocationError(strings.Join(errs, "; "))
	}
	return nil
}
