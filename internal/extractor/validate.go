package extractor

// ValidateResult checks an extraction result against the configured minimum
// confidence and basic text sanity. Advisory: callers log and persist failing
// results anyway, the flag only marks them for review.
func (s *Service) ValidateResult(result *OcrResult, settings *Settings) bool {
	if result.Confidence < settings.MinConfidence {
		s.logger.Warn("extraction confidence below threshold",
			"confidence", result.Confidence, "minimum", settings.MinConfidence)
		return false
	}

	if result.WordCount == 0 {
		s.logger.Warn("extraction produced no words")
		return false
	}

	if ratio := alphanumericRatio(result.Text); ratio < 0.3 {
		s.logger.Warn("extracted text has low alphanumeric content", "ratio", ratio)
		return false
	}

	return true
}
