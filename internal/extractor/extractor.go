/**
 * Text extraction service
 *
 * Entry point for all extraction work. Dispatches by MIME type (with
 * magic-byte correction for octet-stream inputs) to the image OCR
 * pipeline, the PDF extraction ladder, or the plain-text reader. A
 * semaphore bounds the CPU-heavy decode/preprocess/recognize phase so a
 * burst of image jobs cannot starve the host.
 */

package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	extracterrors "github.com/docvault/extract-worker/internal/errors"
	"github.com/docvault/extract-worker/internal/logging"
	"github.com/docvault/extract-worker/internal/tools"
)

const (
	maxTextFileSizeBytes = 50 * 1024 * 1024
	maxTextBytesInMemory = 10 * 1024 * 1024

	truncationMarker = "... [TEXT TRUNCATED DUE TO SIZE]"
)

// PdfTool is the external PDF extraction collaborator.
type PdfTool interface {
	Available(ctx context.Context) bool
	ExtractTextQuick(ctx context.Context, pdfPath string) (string, error)
	ExtractTextFullOcr(ctx context.Context, pdfPath, language string) (string, error)
}

// Service runs text extraction for the worker.
type Service struct {
	tempDir string
	logger  *logging.Logger
	engine  Engine
	pdfTool PdfTool
	slots   chan struct{}
}

// NewService creates an extraction service. concurrency bounds how many
// image jobs may occupy the CPU-heavy phase at once.
func NewService(tempDir string, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		tempDir: tempDir,
		logger:  logging.NewLogger("extractor"),
		engine:  NewEngine(),
		pdfTool: tools.NewOcrMyPdf(tempDir),
		slots:   make(chan struct{}, concurrency),
	}
}

// OcrAvailable reports whether the OCR engine can run image jobs.
func (s *Service) OcrAvailable() bool {
	return s.engine.Available()
}

// ExtractText extracts text from the file at filePath. mimeType may be empty
// or application/octet-stream; magic bytes correct it before dispatch.
func (s *Service) ExtractText(ctx context.Context, jobID, filePath, filename, mimeType string, settings *Settings) (*OcrResult, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, extracterrors.NewIOFailureError(jobID, "stat input file", err)
	}

	if mimeType == "" || mimeType == "application/octet-stream" {
		if detected := s.sniffMimeType(filePath); detected != "" {
			s.logger.Info("corrected mime type from magic bytes",
				"job_id", jobID, "reported", mimeType, "detected", detected)
			mimeType = detected
		}
	}

	s.logger.Info("starting extraction", "job_id", jobID, "file", filename,
		"mime_type", mimeType, "size_mb", float64(info.Size())/(1024*1024))

	switch {
	case mimeType == "application/pdf":
		return s.extractPdf(ctx, jobID, filePath, settings)
	case strings.HasPrefix(mimeType, "image/"):
		return s.extractImage(ctx, jobID, filePath, settings)
	case mimeType == "text/plain":
		return s.extractPlainText(jobID, filePath)
	default:
		return nil, extracterrors.NewUnsupportedMimeTypeError(jobID, mimeType)
	}
}

// extractImage runs preprocess + OCR inside a worker-pool slot. The
// processed temp image is removed on every exit path unless the settings
// ask for it to be kept, in which case its path transfers to the caller.
func (s *Service) extractImage(ctx context.Context, jobID, filePath string, settings *Settings) (*OcrResult, error) {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return nil, fmt.Errorf("extraction cancelled: %w", ctx.Err())
	}

	if !s.engine.Available() {
		return nil, extracterrors.NewToolUnavailableError(jobID, "tesseract",
			"To OCR images, please install tesseract and its language data.")
	}

	startTime := time.Now()
	ocrPath := filePath
	var applied []string

	if settings.EnableImagePreprocessing {
		processedPath, steps, err := s.preprocessImage(filePath, settings)
		if err != nil {
			return nil, extracterrors.NewIOFailureError(jobID, "image preprocessing", err)
		}
		ocrPath = processedPath
		applied = steps
		if !settings.SaveProcessedImages {
			defer os.Remove(processedPath)
		}
	}

	text, confidence, err := s.engine.Recognize(ocrPath, settings)
	if err != nil {
		if settings.SaveProcessedImages && ocrPath != filePath {
			os.Remove(ocrPath)
		}
		return nil, extracterrors.NewToolFailedError(jobID, "tesseract", err)
	}

	result := &OcrResult{
		Text:                 text,
		Confidence:           confidence,
		ProcessingTimeMs:     time.Since(startTime).Milliseconds(),
		WordCount:            CountWordsSafely(text),
		PreprocessingApplied: applied,
	}
	if settings.SaveProcessedImages && ocrPath != filePath {
		result.ProcessedImagePath = ocrPath
	}

	s.logger.Info("image extraction completed", "job_id", jobID,
		"words", result.WordCount, "confidence", result.Confidence,
		"duration_ms", result.ProcessingTimeMs)
	return result, nil
}

// extractPlainText reads a text file straight through. Oversized files are
// rejected; oversized content is truncated with a visible marker so the
// stored text explains itself.
func (s *Service) extractPlainText(jobID, filePath string) (*OcrResult, error) {
	startTime := time.Now()

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, extracterrors.NewIOFailureError(jobID, "stat text file", err)
	}
	if info.Size() > maxTextFileSizeBytes {
		return nil, extracterrors.NewFileTooLargeError(jobID, info.Size(), maxTextFileSizeBytes)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, extracterrors.NewIOFailureError(jobID, "read text file", err)
	}

	text := string(data)
	if len(text) > maxTextBytesInMemory {
		s.logger.Warn("text content truncated", "job_id", jobID,
			"original_bytes", len(text), "limit", maxTextBytesInMemory)
		text = text[:maxTextBytesInMemory] + truncationMarker
	}

	return &OcrResult{
		Text:                 text,
		Confidence:           100.0,
		ProcessingTimeMs:     time.Since(startTime).Milliseconds(),
		WordCount:            CountWordsSafely(text),
		PreprocessingApplied: []string{"Plain text read"},
	}, nil
}

// sniffMimeType detects the real type of generic uploads from magic bytes.
// Sources like cloud-drive exports often report application/octet-stream for
// everything.
func (s *Service) sniffMimeType(filePath string) string {
	f, err := os.Open(filePath)
	if err != nil {
		return ""
	}
	defer f.Close()

	header := make([]byte, 16)
	n, _ := f.Read(header)
	header = header[:n]
	if len(header) < 4 {
		return ""
	}

	switch {
	case bytes.HasPrefix(header, []byte("%PDF")):
		return "application/pdf"
	case len(header) >= 8 && bytes.HasPrefix(header, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png"
	case bytes.HasPrefix(header, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(header, []byte("GIF87a")) || bytes.HasPrefix(header, []byte("GIF89a")):
		return "image/gif"
	case len(header) >= 12 && bytes.HasPrefix(header, []byte("RIFF")) && string(header[8:12]) == "WEBP":
		return "image/webp"
	case bytes.HasPrefix(header, []byte{0x49, 0x49, 0x2A, 0x00}) || bytes.HasPrefix(header, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return "image/tiff"
	case bytes.HasPrefix(header, []byte("BM")):
		return "image/bmp"
	default:
		return ""
	}
}
