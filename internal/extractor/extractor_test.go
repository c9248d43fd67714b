package extractor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	extracterrors "github.com/docvault/extract-worker/internal/errors"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractPlainText(t *testing.T) {
	svc := newTestService(t)
	path := writeTempFile(t, svc.tempDir, "note.txt", []byte("Hello World"))

	result, err := svc.extractPlainText("job-1", path)
	if err != nil {
		t.Fatalf("extractPlainText failed: %v", err)
	}

	if result.Text != "Hello World" {
		t.Errorf("text = %q, want %q", result.Text, "Hello World")
	}
	if result.Confidence != 100.0 {
		t.Errorf("confidence = %v, want 100", result.Confidence)
	}
	if result.WordCount != 2 {
		t.Errorf("word count = %d, want 2", result.WordCount)
	}
	if len(result.PreprocessingApplied) != 1 || result.PreprocessingApplied[0] != "Plain text read" {
		t.Errorf("steps = %v, want [Plain text read]", result.PreprocessingApplied)
	}
}

func TestExtractPlainTextTruncation(t *testing.T) {
	svc := newTestService(t)
	content := strings.Repeat("a", maxTextBytesInMemory+1000)
	path := writeTempFile(t, svc.tempDir, "big.txt", []byte(content))

	result, err := svc.extractPlainText("job-2", path)
	if err != nil {
		t.Fatalf("extractPlainText failed: %v", err)
	}

	if !strings.HasSuffix(result.Text, truncationMarker) {
		t.Error("truncated text missing the truncation marker")
	}
	if len(result.Text) != maxTextBytesInMemory+len(truncationMarker) {
		t.Errorf("truncated length = %d, want %d",
			len(result.Text), maxTextBytesInMemory+len(truncationMarker))
	}
}

func TestExtractTextUnsupportedMime(t *testing.T) {
	svc := newTestService(t)
	path := writeTempFile(t, svc.tempDir, "data.bin", []byte("arbitrary"))

	settings := DefaultSettings()
	_, err := svc.ExtractText(context.Background(), "job-3", path, "data.bin", "video/mp4", &settings)
	if err == nil {
		t.Fatal("expected error for unsupported mime type")
	}
	if code := extracterrors.CodeOf(err); code != extracterrors.ErrorUnsupportedMimeType {
		t.Errorf("error code = %q, want %q", code, extracterrors.ErrorUnsupportedMimeType)
	}
}

func TestExtractTextDispatchesPlainText(t *testing.T) {
	svc := newTestService(t)
	path := writeTempFile(t, svc.tempDir, "doc.txt", []byte("dispatch check"))

	settings := DefaultSettings()
	result, err := svc.ExtractText(context.Background(), "job-4", path, "doc.txt", "text/plain", &settings)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if result.WordCount != 2 {
		t.Errorf("word count = %d, want 2", result.WordCount)
	}
}

func TestSniffMimeType(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"pdf", []byte("%PDF-1.5 rest"), "application/pdf"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}, "image/png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0}, "image/jpeg"},
		{"gif", []byte("GIF89a......"), "image/gif"},
		{"tiff little endian", []byte{0x49, 0x49, 0x2A, 0x00, 0, 0}, "image/tiff"},
		{"bmp", []byte("BM......"), "image/bmp"},
		{"unknown", []byte("plain old text here"), ""},
		{"too short", []byte{0x01}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, svc.tempDir, "sniff_"+strings.ReplaceAll(tt.name, " ", "_"), tt.content)
			if got := svc.sniffMimeType(path); got != tt.want {
				t.Errorf("sniffMimeType() = %q, want %q", got, tt.want)
			}
		})
	}
}
