package tools

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTempPath(t *testing.T) {
	client := NewOcrMyPdf("/tmp/work")

	path := client.tempPath("quick_text", "txt")

	if filepath.Dir(path) != "/tmp/work" {
		t.Errorf("temp path %q not under configured temp dir", path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "quick_text_") || !strings.HasSuffix(base, ".txt") {
		t.Errorf("temp path base %q has wrong shape", base)
	}
}

func TestTruncateOutput(t *testing.T) {
	short := []byte("  some tool output\n")
	if got := truncateOutput(short); got != "some tool output" {
		t.Errorf("truncateOutput(short) = %q", got)
	}

	long := []byte(strings.Repeat("x", 600))
	got := truncateOutput(long)
	if len(got) != 503 {
		t.Errorf("truncated length = %d, want 503", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated output missing ellipsis")
	}
}
