package api

import (
	"sort"
	"strings"
)

// ErrorResponse represents a generic error response structure.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse represents validation error responses with field-level details.
type ValidationErrorResponse struct {
	Message string              `json:"error"`
	Details map[string][]string `json:"details,omitempty"`
}

// Error implements the error interface for ValidationErrorResponse.
func (v *ValidationErrorResponse) Error() string {
	if len(v.Details) == 0 {
		return v.Message
	}
	fields := make([]string, 0, len(v.Details))
	for field := range v.Details {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(v.Message)
	for i, field := range fields {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(field)
		b.WriteString(" ")
		b.WriteString(strings.Join(v.Details[field], ","))
	}
	return b.String()
}

// Add records a failed rule for field.
func (v *ValidationErrorResponse) Add(field, rule string) {
	if v.Details == nil {
		v.Details = map[string][]string{}
	}
	v.Details[field] = append(v.Details[field], rule)
}

// Merge copies the details of other into v under prefix.
func (v *ValidationErrorResponse) Merge(prefix string, other *ValidationErrorResponse) {
	if other == nil {
		return
	}
	for field, rules := range other.Details {
		for _, rule := range rules {
			v.Add(joinFieldPath(prefix, field), rule)
		}
	}
}

// errOrNil returns v as an error when it carries details.
func (v *ValidationErrorResponse) errOrNil() error {
	if len(v.Details) == 0 {
		return nil
	}
	return v
}

func joinFieldPath(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	}
	return prefix + "." + field
}
