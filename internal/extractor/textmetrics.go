package extractor

import (
	"strings"
	"unicode"
)

const (
	// Texts above this size are estimated from a sample instead of counted
	// exactly.
	wordCountSampleThreshold = 1_000_000
	wordCountSampleSize      = 100_000
	wordCountCap             = 10_000_000
)

// CountWordsSafely counts whitespace-delimited words, estimating from the
// first 100KB for very large texts and capping the extrapolation so a
// pathological input cannot blow up downstream display or storage.
func CountWordsSafely(text string) int {
	if len(text) > wordCountSampleThreshold {
		sample := text
		if len(sample) > wordCountSampleSize {
			sample = sample[:wordCountSampleSize]
		}
		sampleWords := countWordsInText(sample)
		estimated := int(float64(sampleWords) * (float64(len(text)) / float64(wordCountSampleSize)))
		if estimated > wordCountCap {
			estimated = wordCountCap
		}
		return estimated
	}
	return countWordsInText(text)
}

// countWordsInText handles the common case plus whitespace-free text where
// OCR collapsed the word boundaries. A single token longer than 15 chars, or
// zero tokens on non-empty text, triggers the continuous-text heuristic:
// letter/digit and lowercase/uppercase transitions approximate boundaries,
// falling back to max(1, alnum/5) when no transitions exist.
func countWordsInText(text string) int {
	whitespaceWords := len(strings.Fields(text))

	isContinuous := whitespaceWords == 1 && len(text) > 15
	isNoWords := whitespaceWords == 0 && strings.TrimSpace(text) != ""
	if !isContinuous && !isNoWords {
		return whitespaceWords
	}

	alphanumeric := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			alphanumeric++
		}
	}
	if alphanumeric == 0 {
		return 0
	}

	runes := []rune(text)
	transitions := 0
	for i := 1; i < len(runes); i++ {
		prev, curr := runes[i-1], runes[i]
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(curr):
			transitions++
		case unicode.IsLetter(prev) && unicode.IsNumber(curr),
			unicode.IsNumber(prev) && unicode.IsLetter(curr):
			transitions++
		}
	}

	if transitions > 0 {
		return transitions + 1
	}
	count := alphanumeric / 5
	if count < 1 {
		count = 1
	}
	return count
}

// alphanumericRatio returns the share of alphanumeric bytes in text, used by
// the quality gates to detect garbled extraction output.
func alphanumericRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	alphanumeric := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			alphanumeric++
		}
	}
	return float64(alphanumeric) / float64(len(text))
}
