package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsTextQualitySufficient(t *testing.T) {
	goodText := strings.Repeat("invoice total amount ", 50)

	tests := []struct {
		name      string
		text      string
		wordCount int
		fileSize  int64
		want      bool
	}{
		{"no words", "", 0, 1000, false},
		{"tiny file single word", "hi", 1, 10_000, true},
		{"tiny file boundary", "hi", 1, 49_999, true},
		{"large file few words", "a b c", 3, 500_000, false},
		{"large file dense text", goodText, 150, 60_000, true},
		{"garbled text", strings.Repeat("?!., ", 200), 100, 60_000, false},
		{"sparse but many words", goodText, 150, 10_000_000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isTextQualitySufficient(tt.text, tt.wordCount, tt.fileSize)
			if got != tt.want {
				t.Errorf("isTextQualitySufficient(%d words, %d bytes) = %v, want %v",
					tt.wordCount, tt.fileSize, got, tt.want)
			}
		})
	}
}

func TestIsTextQualitySufficientMonotonic(t *testing.T) {
	// For fixed text quality and file size, adding words must never turn a
	// sufficient result insufficient.
	text := strings.Repeat("ledger entry ", 100)
	wasSufficient := false
	for wc := 0; wc <= 200; wc++ {
		got := isTextQualitySufficient(text, wc, 100_000)
		if wasSufficient && !got {
			t.Fatalf("gate flipped sufficient->insufficient at word count %d", wc)
		}
		if got {
			wasSufficient = true
		}
	}
	if !wasSufficient {
		t.Fatal("gate never accepted dense readable text")
	}
}

func TestCheckPdfHeader(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, content []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name    string
		content []byte
		wantErr bool
	}{
		{"clean header", []byte("%PDF-1.7\nrest of file"), false},
		{"leading junk", append(make([]byte, 100), []byte("%PDF-1.4")...), false},
		{"no header", []byte("this is not a pdf at all"), true},
		{"header beyond first kilobyte", append(make([]byte, 2048), []byte("%PDF-1.4")...), true},
		{"empty file", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(strings.ReplaceAll(tt.name, " ", "_"), tt.content)
			err := checkPdfHeader(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkPdfHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScanPdfBytes(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		contains []string
		absent   []string
	}{
		{
			name:     "text object literals",
			data:     "junk\x00\x01 BT (Hello) Tj (World) Tj ET \x02junk",
			contains: []string{"Hello", "World"},
		},
		{
			name:     "escaped parenthesis",
			data:     "BT (balance \\(net\\)) Tj ET",
			contains: []string{"balance", "(net)"},
		},
		{
			name:   "single characters dropped",
			data:   "BT (a) Tj (b) Tj ET",
			absent: []string{"a", "b"},
		},
		{
			name:     "ascii run harvesting",
			data:     "\x00\x01annual report 2023\x02\x03ab\x04",
			contains: []string{"annual", "report", "2023"},
			absent:   []string{"ab"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scanPdfBytes([]byte(tt.data))
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("scanPdfBytes() = %q, missing %q", got, want)
				}
			}
			for _, unwanted := range tt.absent {
				for _, token := range strings.Fields(got) {
					if token == unwanted {
						t.Errorf("scanPdfBytes() = %q, should not contain token %q", got, unwanted)
					}
				}
			}
		})
	}
}

func TestScanPdfBytesEmpty(t *testing.T) {
	if got := scanPdfBytes([]byte{0x00, 0x01, 0x02}); got != "" {
		t.Errorf("scanPdfBytes(binary noise) = %q, want empty", got)
	}
}
