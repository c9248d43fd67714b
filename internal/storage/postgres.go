/**
 * PostgreSQL client for the extraction worker
 *
 * Persists per-document OCR state on the documents table: the extracted
 * text, confidence, word count, timing, and a status column that moves
 * pending -> processing -> completed/failed as the worker runs.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// OCR status values stored on documents.ocr_status
const (
	OcrStatusPending    = "pending"
	OcrStatusProcessing = "processing"
	OcrStatusCompleted  = "completed"
	OcrStatusFailed     = "failed"
)

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// Document is the subset of the documents row the worker needs to run a job.
type Document struct {
	ID       string
	Filename string
	FilePath string
	MimeType string
	FileSize int64
}

// OcrUpdate carries a completed extraction result for persistence.
type OcrUpdate struct {
	DocumentID       string
	Text             string
	Confidence       float64
	WordCount        int
	ProcessingTimeMs int64
}

// sanitizeConfidence rounds confidence to 2 decimal places and clamps to
// [0, 100]. Float64 artifacts like 96.32000000000001 trip NUMERIC casts on
// some column definitions.
func sanitizeConfidence(confidence float64) float64 {
	if confidence < 0.0 {
		return 0.0
	}
	if confidence > 100.0 {
		return 100.0
	}
	return float64(int(confidence*100+0.5)) / 100
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// GetDocument loads the fields the worker needs to extract a document.
func (p *PostgresClient) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document ID is required")
	}

	query := `
		SELECT id, filename, file_path, COALESCE(mime_type, ''), COALESCE(file_size, 0)
		FROM documents
		WHERE id = $1::uuid
	`

	var doc Document
	err := p.db.QueryRowContext(ctx, query, documentID).Scan(
		&doc.ID, &doc.Filename, &doc.FilePath, &doc.MimeType, &doc.FileSize,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", documentID, err)
	}

	return &doc, nil
}

// MarkOcrProcessing flags the document as being worked on.
func (p *PostgresClient) MarkOcrProcessing(ctx context.Context, documentID string) error {
	query := `
		UPDATE documents
		SET ocr_status = $2, updated_at = NOW()
		WHERE id = $1::uuid
	`
	return p.execStatus(ctx, query, documentID, OcrStatusProcessing)
}

// SaveOcrResult stores a completed extraction on the document row.
func (p *PostgresClient) SaveOcrResult(ctx context.Context, update *OcrUpdate) error {
	if update.DocumentID == "" {
		return fmt.Errorf("document ID is required")
	}

	query := `
		UPDATE documents
		SET ocr_text = $2,
		    ocr_confidence = $3,
		    ocr_word_count = $4,
		    ocr_processing_time_ms = $5,
		    ocr_status = $6,
		    ocr_error = NULL,
		    ocr_completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1::uuid
	`

	result, err := p.db.ExecContext(ctx, query,
		update.DocumentID,
		update.Text,
		sanitizeConfidence(update.Confidence),
		update.WordCount,
		update.ProcessingTimeMs,
		OcrStatusCompleted,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("failed to save ocr result for %s (pg code %s): %w",
				update.DocumentID, pqErr.Code, err)
		}
		return fmt.Errorf("failed to save ocr result for %s: %w", update.DocumentID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check ocr result update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document not found: %s", update.DocumentID)
	}

	return nil
}

// MarkOcrFailed records a failed extraction with its structured code and
// message so the documents UI can explain what went wrong.
func (p *PostgresClient) MarkOcrFailed(ctx context.Context, documentID, errorCode, errorMessage string) error {
	query := `
		UPDATE documents
		SET ocr_status = $2,
		    ocr_error = NULLIF($3 || ': ' || $4, ': '),
		    ocr_completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1::uuid
	`

	result, err := p.db.ExecContext(ctx, query, documentID, OcrStatusFailed, errorCode, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to mark ocr failed for %s: %w", documentID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check ocr failure update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document not found: %s", documentID)
	}

	return nil
}

func (p *PostgresClient) execStatus(ctx context.Context, query, documentID, status string) error {
	result, err := p.db.ExecContext(ctx, query, documentID, status)
	if err != nil {
		return fmt.Errorf("failed to set ocr status %s for %s: %w", status, documentID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document not found: %s", documentID)
	}

	return nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}
