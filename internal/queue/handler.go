/**
 * Shared job handling for both queue consumers
 *
 * A job names a document; the handler resolves its file from the
 * database, runs extraction, and writes the outcome back to the
 * documents table. Both the asynq consumer and the plain Redis list
 * consumer delegate here.
 */

package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	extracterrors "github.com/docvault/extract-worker/internal/errors"
	"github.com/docvault/extract-worker/internal/extractor"
	"github.com/docvault/extract-worker/internal/storage"
)

// Job is the queue payload: a document to extract. File details are
// optional; missing ones come from the documents table.
type Job struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename,omitempty"`
	FilePath   string `json:"filePath,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	FileSize   int64  `json:"fileSize,omitempty"`
}

// Handler runs one extraction job end to end.
type Handler struct {
	extractor *extractor.Service
	store     *storage.PostgresClient
	settings  extractor.Settings
	timeout   time.Duration
}

// NewHandler wires the handler. timeout bounds one whole job; zero means
// 10 minutes.
func NewHandler(svc *extractor.Service, store *storage.PostgresClient, settings extractor.Settings, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Handler{
		extractor: svc,
		store:     store,
		settings:  settings,
		timeout:   timeout,
	}
}

// Handle processes one job. Errors are recorded on the document row before
// they are returned to the consumer for its retry logic.
func (h *Handler) Handle(ctx context.Context, job *Job) error {
	if job.DocumentID == "" {
		return fmt.Errorf("job is missing documentId")
	}

	startTime := time.Now()
	log.Printf("[Job %s] Processing document: filename=%s, size=%d bytes",
		job.DocumentID, job.Filename, job.FileSize)

	jobCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if job.FilePath == "" || job.Filename == "" {
		doc, err := h.store.GetDocument(jobCtx, job.DocumentID)
		if err != nil {
			return fmt.Errorf("failed to resolve document: %w", err)
		}
		job.Filename = doc.Filename
		job.FilePath = doc.FilePath
		if job.MimeType == "" {
			job.MimeType = doc.MimeType
		}
		job.FileSize = doc.FileSize
	}

	if err := h.store.MarkOcrProcessing(jobCtx, job.DocumentID); err != nil {
		log.Printf("[Job %s] Warning: failed to mark processing: %v", job.DocumentID, err)
	}

	result, err := h.extractor.ExtractText(jobCtx, job.DocumentID, job.FilePath, job.Filename, job.MimeType, &h.settings)
	duration := time.Since(startTime)

	if err != nil {
		log.Printf("[Job %s] Extraction failed after %v: %v", job.DocumentID, duration, err)
		code := string(extracterrors.CodeOf(err))
		if markErr := h.store.MarkOcrFailed(ctx, job.DocumentID, code, err.Error()); markErr != nil {
			log.Printf("[Job %s] Warning: failed to record failure: %v", job.DocumentID, markErr)
		}
		return fmt.Errorf("extraction failed: %w", err)
	}

	if !h.extractor.ValidateResult(result, &h.settings) {
		log.Printf("[Job %s] Result flagged by validation (confidence=%.2f, words=%d), storing anyway",
			job.DocumentID, result.Confidence, result.WordCount)
	}

	if err := h.store.SaveOcrResult(jobCtx, &storage.OcrUpdate{
		DocumentID:       job.DocumentID,
		Text:             result.Text,
		Confidence:       float64(result.Confidence),
		WordCount:        result.WordCount,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}); err != nil {
		return fmt.Errorf("failed to save extraction result: %w", err)
	}

	log.Printf("[Job %s] Completed in %v: confidence=%.2f, words=%d, steps=%v",
		job.DocumentID, duration, result.Confidence, result.WordCount, result.PreprocessingApplied)
	if result.ProcessedImagePath != "" {
		log.Printf("[Job %s] Processed image retained at %s", job.DocumentID, result.ProcessedImagePath)
	}

	return nil
}
