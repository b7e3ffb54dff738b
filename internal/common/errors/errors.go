// Package errors provides the typed failure taxonomy for the monitoring
// pipeline. Failures at the fetch/classify/store/send layers are contained
// to their clinic or subscriber; only configuration errors abort a run.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeFetchFailed          ErrorCode = "FETCH_FAILED"
	ErrCodeFetchTimeout         ErrorCode = "FETCH_TIMEOUT"
	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodeStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeChannelSendFailed    ErrorCode = "CHANNEL_SEND_FAILED"
	ErrCodeConfigMissing        ErrorCode = "CONFIG_MISSING"
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

// Code extracts the ErrorCode from err, or empty when err is not a
// StandardError.
func Code(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsFatal reports whether err must abort the whole batch run. Everything
// but missing configuration degrades to a per-clinic or per-subscriber skip.
func IsFatal(err error) bool {
	return Code(err) == ErrCodeConfigMissing
}

// ==========================
// Error Constructors
// ==========================

// NewFetchFailedError marks a clinic page that could not be retrieved. The
// clinic is skipped for the cycle with no state mutation.
func NewFetchFailedError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchFailed,
		Message:   "Failed to fetch rendered page",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"url": url},
		Timestamp: time.Now().UTC(),
	}
}

// NewFetchTimeoutError marks a page fetch that exceeded its budget.
func NewFetchTimeoutError(url string, budget time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchTimeout,
		Message:   "Page fetch exceeded timeout budget",
		Details:   fmt.Sprintf("budget: %s", budget),
		Retryable: true,
		Metadata:  map[string]interface{}{"url": url},
		Timestamp: time.Now().UTC(),
	}
}

// NewClassificationFailedError marks a classification call or parse failure.
// The clinic is recorded with status ERROR; no transition is evaluated.
func NewClassificationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationFailed,
		Message:   "Status classification failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreUnavailableError marks a store read/write failure. Persistence is
// skipped for the clinic and the batch continues.
func NewStoreUnavailableError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "Document store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": op},
		Timestamp: time.Now().UTC(),
	}
}

// NewChannelSendFailedError marks a per-subscriber send failure. The phone
// number is retained for operator follow-up.
func NewChannelSendFailedError(phone string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelSendFailed,
		Message:   "Message channel send failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"phone": phone},
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigMissingError marks a missing resource at batch start. This is the
// only fatal class.
func NewConfigMissingError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigMissing,
		Message:   fmt.Sprintf("Required configuration missing: %s", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
