package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestExtractionErrorMessage(t *testing.T) {
	cause := fmt.Errorf("exit status 2")
	err := NewToolFailedError("job-1", "ocrmypdf", cause)

	if !strings.Contains(err.Error(), "TOOL_FAILED") {
		t.Errorf("error string %q missing code", err.Error())
	}
	if !strings.Contains(err.Error(), "exit status 2") {
		t.Errorf("error string %q missing cause", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
}

func TestCodeOf(t *testing.T) {
	err := NewFileTooLargeError("job-2", 200, 100)
	wrapped := fmt.Errorf("handling job: %w", err)

	if got := CodeOf(wrapped); got != ErrorFileTooLarge {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, ErrorFileTooLarge)
	}
	if got := CodeOf(fmt.Errorf("plain error")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}
}

func TestToMap(t *testing.T) {
	err := NewToolTimeoutError("job-3", "ocrmypdf", 5*time.Minute)
	m := err.ToMap()

	if m["error_code"] != string(ErrorToolTimeout) {
		t.Errorf("error_code = %v, want %v", m["error_code"], ErrorToolTimeout)
	}
	if m["tool"] != "ocrmypdf" {
		t.Errorf("tool = %v, want ocrmypdf", m["tool"])
	}
	if m["timeout_duration"] != "5m0s" {
		t.Errorf("timeout_duration = %v, want 5m0s", m["timeout_duration"])
	}
	if _, ok := m["timestamp"]; !ok {
		t.Error("timestamp missing from map")
	}
}

func TestFactoryCodes(t *testing.T) {
	tests := []struct {
		err  *ExtractionError
		want ErrorCode
	}{
		{NewUnsupportedMimeTypeError("j", "video/mp4"), ErrorUnsupportedMimeType},
		{NewInvalidHeaderError("j", "PDF", 123), ErrorInvalidHeader},
		{NewFileTooLargeError("j", 2, 1), ErrorFileTooLarge},
		{NewToolUnavailableError("j", "ocrmypdf", "install it"), ErrorToolUnavailable},
		{NewToolTimeoutError("j", "ocrmypdf", time.Minute), ErrorToolTimeout},
		{NewToolFailedError("j", "tesseract", nil), ErrorToolFailed},
		{NewNoExtractableTextError("j", "/tmp/f.pdf"), ErrorNoExtractableText},
		{NewIOFailureError("j", "read", nil), ErrorIOFailure},
	}

	for _, tt := range tests {
		if tt.err.Code != tt.want {
			t.Errorf("factory produced code %q, want %q", tt.err.Code, tt.want)
		}
		if tt.err.JobID != "j" {
			t.Errorf("factory dropped job ID for %q", tt.want)
		}
	}
}
