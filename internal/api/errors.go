package api

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 512

// ErrUnsupported is returned when an operation is not available in the
// current configuration (e.g. bibliographies with remote synthesis).
var ErrUnsupported = errors.New("operation not supported by this configuration")

// StatusError reports a non-2xx response from an upstream service.
type StatusError struct {
	// Service names the upstream (embedding, search, synthesis, kscan).
	Service string
	// Code is the upstream HTTP status code.
	Code int
	// Body is the (truncated) upstream response body.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream returned HTTP %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: upstream returned HTTP %d: %s", e.Service, e.Code, e.Body)
}

// NewStatusError builds a StatusError, trimming and truncating body.
func NewStatusError(service string, code int, body []byte) *StatusError {
	b := strings.TrimSpace(string(body))
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody] + "..."
	}
	return &StatusError{Service: service, Code: code, Body: b}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidationError lists per-field validation failures for a request body.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, msg := range e.Fields {
		parts = append(parts, msg)
	}
	slices.Sort(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks v against its `validate` struct tags.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("api: validate: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s element(s)", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "eq":
		return fmt.Sprintf("%s must be %q", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on the '%s' tag", field, fe.Tag())
	}
}
