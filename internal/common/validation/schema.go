// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// JSONSchema is a flat object schema for form and job inputs.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type      string   `json:"type"`
	Enum      []string `json:"enum,omitempty"`
	Pattern   *string  `json:"pattern,omitempty"`
	Format    string   `json:"format,omitempty"` // email | phone
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	// Message replaces every generated message for this field.
	Message string `json:"message,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigit     = regexp.MustCompile(`[^\d]`)
)

// ValidateInput validates input against the schema. Required fields are
// checked in schema order so messages come out in a stable order; a blank
// string counts as missing. At most one error is reported per field.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	errors := []ValidationError{}
	reported := map[string]bool{}

	for _, field := range schema.Required {
		v, exists := input[field]
		if s, ok := v.(string); !exists || v == nil || (ok && strings.TrimSpace(s) == "") {
			errors = append(errors, withMessage(schema.Properties[field], ValidationError{
				Field:   field,
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			}))
			reported[field] = true
		}
	}

	for _, field := range sortedKeys(input) {
		if reported[field] {
			continue
		}
		prop, exists := schema.Properties[field]
		if !exists {
			if !schema.AdditionalProperties {
				errors = append(errors, ValidationError{
					Field:   field,
					Message: "field not allowed in schema",
					Code:    "EXTRA_FIELD",
				})
			}
			continue
		}
		if fieldErr := validateField(field, input[field], prop); fieldErr != nil {
			errors = append(errors, withMessage(prop, *fieldErr))
		}
	}

	return &ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func withMessage(prop Property, e ValidationError) ValidationError {
	if prop.Message != "" {
		e.Message = prop.Message
	}
	return e
}

func validateField(field string, value interface{}, prop Property) *ValidationError {
	if err := validateType(value, prop.Type); err != nil {
		return &ValidationError{Field: field, Message: err.Error(), Code: "INVALID_TYPE"}
	}

	if strVal, ok := value.(string); ok {
		if prop.MinLength != nil && len(strings.TrimSpace(strVal)) < *prop.MinLength {
			return &ValidationError{Field: field, Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength), Code: "MIN_LENGTH_VIOLATION"}
		}
		if prop.MaxLength != nil && len(strVal) > *prop.MaxLength {
			return &ValidationError{Field: field, Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength), Code: "MAX_LENGTH_VIOLATION"}
		}
		if prop.Pattern != nil {
			if matched, err := regexp.MatchString(*prop.Pattern, strVal); err != nil || !matched {
				return &ValidationError{Field: field, Message: fmt.Sprintf("value must match pattern %s", *prop.Pattern), Code: "PATTERN_MISMATCH"}
			}
		}
		switch prop.Format {
		case "email":
			if !ValidateEmail(strVal) {
				return &ValidationError{Field: field, Message: "invalid email address", Code: "INVALID_FORMAT"}
			}
		case "phone":
			if !ValidatePhone(strVal) {
				return &ValidationError{Field: field, Message: "phone number must have 10 to 15 digits", Code: "INVALID_FORMAT"}
			}
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, strVal) {
			return &ValidationError{Field: field, Message: fmt.Sprintf("value must be one of %v", prop.Enum), Code: "INVALID_ENUM_VALUE"}
		}
	}

	if prop.Maximum != nil {
		if n, ok := toFloat(value); ok && n > *prop.Maximum {
			return &ValidationError{Field: field, Message: fmt.Sprintf("value must be <= %.0f", *prop.Maximum), Code: "MAXIMUM_VIOLATION"}
		}
	}
	return nil
}

func validateType(value interface{}, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "integer", "number":
		if _, ok := toFloat(value); !ok {
			return fmt.Errorf("expected %s, got %T", expectedType, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetErrorMessages returns the messages in reporting order.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = err.Message
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ValidateEmail accepts anything shaped local@domain.tld without whitespace.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone counts digits only, ignoring separators and a leading +.
func ValidatePhone(phone string) bool {
	n := len(nonDigit.ReplaceAllString(phone, ""))
	return n >= 10 && n <= 15
}
