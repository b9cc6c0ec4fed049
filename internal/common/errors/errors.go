// internal/common/errors/errors.go

// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Matching run errors.
	ErrCodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	ErrCodeStudentNotFound  ErrorCode = "STUDENT_NOT_FOUND"
	ErrCodeUnknownAlgorithm ErrorCode = "UNKNOWN_ALGORITHM"

	// Storage errors.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeResultPersistFailed      ErrorCode = "RESULT_PERSIST_FAILED"

	// Downstream errors.
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeIndexingFailed         ErrorCode = "INDEXING_FAILED"
)

// StandardError is a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// New builds a StandardError with the given code.
func New(code ErrorCode, message string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidArgument reports a caller mistake; never retryable.
func NewInvalidArgument(format string, args ...interface{}) *StandardError {
	return New(ErrCodeInvalidArgument, fmt.Sprintf(format, args...), false)
}

// NewStudentNotFound reports a missing student referenced by a run request.
func NewStudentNotFound(studentID int64) *StandardError {
	return New(ErrCodeStudentNotFound, fmt.Sprintf("student not found: %d", studentID), false)
}

// NewUnknownAlgorithm reports an algorithm identifier outside the registry.
func NewUnknownAlgorithm(algorithm string) *StandardError {
	return New(ErrCodeUnknownAlgorithm, fmt.Sprintf("unknown algorithm: %s", algorithm), false)
}

// Wrap attaches a code to an underlying error, keeping its text as details.
func Wrap(code ErrorCode, message string, retryable bool, cause error) *StandardError {
	e := New(code, message, retryable)
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// CodeOf extracts the ErrorCode from err, or empty if it is not a StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsInvalidArgument reports whether err is any of the caller-fault codes.
func IsInvalidArgument(err error) bool {
	switch CodeOf(err) {
	case ErrCodeInvalidArgument, ErrCodeStudentNotFound, ErrCodeUnknownAlgorithm:
		return true
	}
	return false
}

// IsRetryable reports whether err may be retried by the workflow engine.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
