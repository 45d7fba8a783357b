// Package errors provides standardized error handling for the screening
// pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Client-side, never reaches the network.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeFileRejected     ErrorCode = "FILE_REJECTED"
	ErrCodeInvalidTrialType ErrorCode = "INVALID_TRIAL_TYPE"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"

	// Single-flight and stale-response guards.
	ErrCodeSubmissionInFlight  ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeUploadInFlight      ErrorCode = "UPLOAD_IN_FLIGHT"
	ErrCodeSelectionSuperseded ErrorCode = "SELECTION_SUPERSEDED"

	// Transport / service failures.
	ErrCodeSchemaUnavailable ErrorCode = "SCHEMA_UNAVAILABLE"
	ErrCodeSubmissionFailed  ErrorCode = "SUBMISSION_FAILED"
	ErrCodeUploadFailed      ErrorCode = "UPLOAD_FAILED"
	ErrCodeServiceError      ErrorCode = "SERVICE_ERROR"

	ErrCodeSessionUnavailable ErrorCode = "SESSION_UNAVAILABLE"
)

// StandardError represents a structured application error.
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

// CodeOf extracts the error code, or empty for foreign errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsRetryable reports whether the caller may retry the failed operation.
// Foreign errors are treated as non-retryable.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// NewValidationFailed wraps locally detected form violations. Recoverable in
// place; no request was issued.
func NewValidationFailed(messages []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Application data failed validation",
		Retryable: true,
		Metadata:  map[string]interface{}{"violations": messages},
		Timestamp: time.Now().UTC(),
	}
}

// NewFileRejected reports a file that failed the local acceptance gate.
func NewFileRejected(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileRejected,
		Message:   "File was rejected by the local acceptance gate",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTrialType creates a non-retryable error for an unknown tag.
func NewInvalidTrialType(tag string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTrialType,
		Message:   "Unknown trial type",
		Details:   fmt.Sprintf("trialType: %s", tag),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidState reports an operation attempted outside its valid state.
func NewInvalidState(op, state string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidState,
		Message:   "Operation not valid in current state",
		Details:   fmt.Sprintf("op: %s, state: %s", op, state),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionInFlight marks a duplicate submit while one is pending.
func NewSubmissionInFlight() *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInFlight,
		Message:   "A submission is already in flight",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadInFlight marks a duplicate upload while one is pending.
func NewUploadInFlight() *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadInFlight,
		Message:   "An upload is already in flight",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSelectionSuperseded marks a response discarded because the selection
// moved on before it arrived.
func NewSelectionSuperseded() *StandardError {
	return &StandardError{
		Code:      ErrCodeSelectionSuperseded,
		Message:   "Response discarded, selection has changed",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaUnavailable creates a retryable schema fetch error.
func NewSchemaUnavailable(trialType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaUnavailable,
		Message:   "Failed to load trial field schema",
		Details:   fmt.Sprintf("trialType: %s, error: %v", trialType, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionFailed creates a retryable single-submission error.
func NewSubmissionFailed(trialType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionFailed,
		Message:   "Failed to submit application",
		Details:   fmt.Sprintf("trialType: %s, error: %v", trialType, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadFailed creates a retryable bulk upload error.
func NewUploadFailed(trialType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadFailed,
		Message:   "Failed to upload cohort file",
		Details:   fmt.Sprintf("trialType: %s, error: %v", trialType, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewServiceError wraps a non-2xx response from the evaluation service.
func NewServiceError(op string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeServiceError,
		Message:   "Evaluation service returned an error",
		Details:   fmt.Sprintf("op: %s, status: %d, body: %s", op, status, body),
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionUnavailable creates a retryable session store error.
func NewSessionUnavailable(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionUnavailable,
		Message:   "Session store error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
