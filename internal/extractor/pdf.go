package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	extracterrors "github.com/docvault/extract-worker/internal/errors"
)

const (
	maxPdfSizeBytes = 100 * 1024 * 1024

	fullOcrTimeout = 5 * time.Minute

	ocrMyPdfInstallHint = "To extract text from PDFs, please install ocrmypdf. " +
		"On Ubuntu/Debian: 'apt-get install ocrmypdf'. On macOS: 'brew install ocrmypdf'."
)

// extractPdf runs the PDF extraction ladder: quick embedded-text extraction,
// full OCR when the quick text is missing or junk, and a raw byte scan as
// the last resort for structurally broken files.
func (s *Service) extractPdf(ctx context.Context, jobID, filePath string, settings *Settings) (*OcrResult, error) {
	startTime := time.Now()
	s.logger.Info("extracting text from pdf", "job_id", jobID, "file", filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, extracterrors.NewIOFailureError(jobID, "stat pdf", err)
	}
	fileSize := info.Size()
	if fileSize > maxPdfSizeBytes {
		return nil, extracterrors.NewFileTooLargeError(jobID, fileSize, maxPdfSizeBytes)
	}

	if err := checkPdfHeader(filePath); err != nil {
		return nil, extracterrors.NewInvalidHeaderError(jobID, "PDF", fileSize)
	}

	if !s.pdfTool.Available(ctx) {
		return nil, extracterrors.NewToolUnavailableError(jobID, "ocrmypdf", ocrMyPdfInstallHint)
	}

	// Quick path: embedded text without OCR.
	text, err := s.pdfTool.ExtractTextQuick(ctx, filePath)
	if err == nil {
		wordCount := CountWordsSafely(text)
		if isTextQualitySufficient(text, wordCount, fileSize) {
			s.logger.Info("quick pdf extraction succeeded",
				"job_id", jobID, "words", wordCount)
			return &OcrResult{
				Text:                 text,
				Confidence:           95.0,
				ProcessingTimeMs:     time.Since(startTime).Milliseconds(),
				WordCount:            wordCount,
				PreprocessingApplied: []string{"PDF text extraction (ocrmypdf --skip-text)"},
			}, nil
		}
		s.logger.Info("quick pdf extraction insufficient, using full ocr",
			"job_id", jobID, "words", wordCount)
	} else {
		s.logger.Warn("quick pdf extraction failed, using full ocr",
			"job_id", jobID, "error", err)
	}

	result, ocrErr := s.fullOcr(ctx, jobID, filePath, settings, startTime)
	if ocrErr == nil {
		return result, nil
	}
	s.logger.Warn("full ocr failed, trying raw byte scan", "job_id", jobID, "error", ocrErr)

	result, scanErr := s.rawByteScan(jobID, filePath, startTime, ocrErr)
	if scanErr == nil {
		return result, nil
	}
	// A clean scan that found nothing means the ladder is exhausted; that
	// code is more useful on the document row than the OCR failure, which
	// rides along as the cause. Scan read errors keep the OCR failure.
	if extracterrors.CodeOf(scanErr) == extracterrors.ErrorNoExtractableText {
		return nil, scanErr
	}
	return nil, ocrErr
}

func (s *Service) fullOcr(ctx context.Context, jobID, filePath string, settings *Settings, startTime time.Time) (*OcrResult, error) {
	ocrCtx, cancel := context.WithTimeout(ctx, fullOcrTimeout)
	defer cancel()

	language := settings.OCRLanguage
	if language == "" {
		language = "eng"
	}

	text, err := s.pdfTool.ExtractTextFullOcr(ocrCtx, filePath, language)
	if err != nil {
		if ocrCtx.Err() == context.DeadlineExceeded {
			return nil, extracterrors.NewToolTimeoutError(jobID, "ocrmypdf", fullOcrTimeout)
		}
		return nil, extracterrors.NewToolFailedError(jobID, "ocrmypdf", err)
	}

	wordCount := CountWordsSafely(text)
	s.logger.Info("full ocr completed", "job_id", jobID, "words", wordCount,
		"duration_ms", time.Since(startTime).Milliseconds())

	return &OcrResult{
		Text:                 text,
		Confidence:           85.0,
		ProcessingTimeMs:     time.Since(startTime).Milliseconds(),
		WordCount:            wordCount,
		PreprocessingApplied: []string{"OCR via ocrmypdf"},
	}, nil
}

func (s *Service) rawByteScan(jobID, filePath string, startTime time.Time, ocrErr error) (*OcrResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, extracterrors.NewIOFailureError(jobID, "read pdf bytes", err)
	}

	text := scanPdfBytes(data)
	if text == "" {
		scanErr := extracterrors.NewNoExtractableTextError(jobID, filePath)
		scanErr.Cause = ocrErr
		return nil, scanErr
	}

	s.logger.Info("raw byte scan recovered text", "job_id", jobID)
	return &OcrResult{
		Text:                 text,
		Confidence:           50.0,
		ProcessingTimeMs:     time.Since(startTime).Milliseconds(),
		WordCount:            CountWordsSafely(text),
		PreprocessingApplied: []string{"Direct PDF text extraction (last resort)"},
	}, nil
}

// checkPdfHeader accepts a "%PDF-" magic anywhere in the first kilobyte,
// tolerating junk bytes some producers prepend.
func checkPdfHeader(filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, 1024)
	n, err := f.Read(header)
	if n == 0 && err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if !bytes.Contains(header[:n], []byte("%PDF-")) {
		return fmt.Errorf("missing %%PDF- marker in first %d bytes", n)
	}
	return nil
}

// isTextQualitySufficient decides whether embedded text is trustworthy or
// the file needs OCR. Small files pass on any text at all; larger files must
// show a plausible word density and mostly alphanumeric content.
func isTextQualitySufficient(text string, wordCount int, fileSize int64) bool {
	if wordCount == 0 {
		return false
	}

	if fileSize < 50_000 && wordCount >= 1 {
		return true
	}

	fileSizeKB := float64(fileSize) / 1024.0
	if fileSizeKB > 0 {
		density := float64(wordCount) / fileSizeKB
		if density < 5.0 && wordCount < 10 {
			return false
		}
	}

	if alphanumericRatio(text) < 0.3 {
		return false
	}

	return true
}
