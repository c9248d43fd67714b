package extractor

import (
	"strings"
	"testing"
)

func TestValidateResult(t *testing.T) {
	svc := newTestService(t)
	settings := DefaultSettings() // MinConfidence 30

	goodText := strings.Repeat("quarterly report ", 20)

	tests := []struct {
		name   string
		result OcrResult
		want   bool
	}{
		{"good result", OcrResult{Text: goodText, Confidence: 80, WordCount: 40}, true},
		{"at confidence floor", OcrResult{Text: goodText, Confidence: 30, WordCount: 40}, true},
		{"below confidence floor", OcrResult{Text: goodText, Confidence: 29.9, WordCount: 40}, false},
		{"zero words", OcrResult{Text: "", Confidence: 90, WordCount: 0}, false},
		{"garbled text", OcrResult{Text: strings.Repeat("?!., ", 50), Confidence: 90, WordCount: 50}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.ValidateResult(&tt.result, &settings); got != tt.want {
				t.Errorf("ValidateResult() = %v, want %v", got, tt.want)
			}
		})
	}
}
