package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

/**
 * Custom error types for the extraction worker
 *
 * Design Pattern: Factory Pattern for error creation
 * Each failure class carries a stable code so queue handlers and the
 * documents table can record why extraction stopped.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input validation errors
	ErrorUnsupportedMimeType ErrorCode = "UNSUPPORTED_MIME_TYPE"
	ErrorInvalidHeader       ErrorCode = "INVALID_HEADER"
	ErrorFileTooLarge        ErrorCode = "FILE_TOO_LARGE"

	// External tool errors
	ErrorToolUnavailable ErrorCode = "TOOL_UNAVAILABLE"
	ErrorToolTimeout     ErrorCode = "TOOL_TIMEOUT"
	ErrorToolFailed      ErrorCode = "TOOL_FAILED"

	// Extraction errors
	ErrorNoExtractableText ErrorCode = "NO_EXTRACTABLE_TEXT"
	ErrorIOFailure         ErrorCode = "IO_FAILURE"
)

// ExtractionError represents a structured extraction failure
type ExtractionError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// CodeOf returns the structured code of err, or empty when err was not
// produced by this package.
func CodeOf(err error) ErrorCode {
	var ee *ExtractionError
	if stderrors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// Factory functions for common errors

func NewUnsupportedMimeTypeError(jobID string, mimeType string) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorUnsupportedMimeType,
		Message:   fmt.Sprintf("Unsupported file format: %s", mimeType),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"mime_type": mimeType,
		},
	}
}

func NewInvalidHeaderError(jobID string, expected string, fileSize int64) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorInvalidHeader,
		Message:   fmt.Sprintf("Missing or corrupted %s header", expected),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"expected_header": expected,
			"file_size":       fileSize,
		},
	}
}

func NewFileTooLargeError(jobID string, fileSize, limit int64) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorFileTooLarge,
		Message:   fmt.Sprintf("File size %d bytes exceeds limit of %d bytes", fileSize, limit),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"file_size":  fileSize,
			"size_limit": limit,
		},
	}
}

func NewToolUnavailableError(jobID string, tool string, installHint string) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorToolUnavailable,
		Message:   fmt.Sprintf("%s is not available on this system. %s", tool, installHint),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"tool": tool,
		},
	}
}

func NewToolTimeoutError(jobID string, tool string, duration time.Duration) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorToolTimeout,
		Message:   fmt.Sprintf("%s timed out after %v", tool, duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"tool":             tool,
			"timeout_duration": duration.String(),
		},
	}
}

func NewToolFailedError(jobID string, tool string, cause error) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorToolFailed,
		Message:   fmt.Sprintf("%s failed", tool),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"tool": tool,
		},
		Cause: cause,
	}
}

func NewNoExtractableTextError(jobID string, filePath string) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorNoExtractableText,
		Message:   fmt.Sprintf("No extractable text found in %s", filePath),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"file_path": filePath,
		},
	}
}

func NewIOFailureError(jobID string, operation string, cause error) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorIOFailure,
		Message:   fmt.Sprintf("I/O failure during %s", operation),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause: cause,
	}
}

// ToMap converts error to map for database storage
func (e *ExtractionError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
