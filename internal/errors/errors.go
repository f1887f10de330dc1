// Package errors provides the typed error taxonomy shared across the
// orchestrator core (spec §7). It mirrors the teacher's AppError shape
// but keys ErrorType on this module's error kinds rather than HTTP
// status semantics.
package errors

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrorType is the closed set of error kinds from spec.md §7.
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypePlanningLLM       ErrorType = "planning_llm"
	ErrorTypeSchemaUnknown     ErrorType = "schema_unknown"
	ErrorTypeAdapterConnection ErrorType = "adapter_connection"
	ErrorTypeAdapterSyntax     ErrorType = "adapter_syntax"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeDependencyFailed  ErrorType = "dependency_failed"
	ErrorTypeAggregation       ErrorType = "aggregation"
	ErrorTypeInternal          ErrorType = "internal"
)

// Retryable reports whether errors of this kind may be retried by the
// executor's backoff policy (spec.md §4.5 / §7).
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeAdapterConnection, ErrorTypePlanningLLM:
		return true
	default:
		return false
	}
}

// AppError is a structured error carrying a kind, a human message,
// optional details, and an optional wrapped cause.
type AppError struct {
	Type    ErrorType
	Message string
	Details string
	Cause   error
}

func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message}
}

func Newf(t ErrorType, format string, args ...any) *AppError {
	return New(t, fmt.Sprintf(format, args...))
}

func Wrap(cause error, t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, Cause: cause}
}

func Wrapf(cause error, t ErrorType, format string, args ...any) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// IsType reports whether err is an *AppError of the given kind.
func IsType(err error, t ErrorType) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Type == t
	}
	return false
}

// GetType returns the error's kind, or ErrorTypeInternal if err is not
// an *AppError.
func GetType(err error) ErrorType {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Type
	}
	return ErrorTypeInternal
}

// LogFields renders err as zap fields suitable for structured logging.
func LogFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var ae *AppError
	if !errors.As(err, &ae) {
		return fields
	}
	fields = append(fields, zap.String("error_type", string(ae.Type)))
	if ae.Details != "" {
		fields = append(fields, zap.String("error_details", ae.Details))
	}
	if ae.Cause != nil {
		fields = append(fields, zap.String("underlying_error", ae.Cause.Error()))
	}
	return fields
}

// Chain returns the first non-nil error, or nil if none are set. It is
// used where multiple independent checks can each fail but only one
// error can be surfaced to a caller expecting a single `error`.
func Chain(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// Predefined constructors, mirroring the teacher's convenience helpers.

func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

func NewSchemaUnknownError(kind, id string) *AppError {
	return Newf(ErrorTypeSchemaUnknown, "unknown %s: %s", kind, id)
}

func NewTimeoutError(operation string) *AppError {
	return Newf(ErrorTypeTimeout, "operation timed out: %s", operation)
}

func NewDependencyFailedError(opID, depID string) *AppError {
	return Newf(ErrorTypeDependencyFailed, "operation %s failed: dependency %s did not complete", opID, depID)
}

func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message)
}
