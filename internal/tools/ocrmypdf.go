/**
 * ocrmypdf client for PDF text extraction
 *
 * Drives the ocrmypdf CLI through two modes:
 * - Quick: --skip-text pulls embedded text into a sidecar file without
 *   running OCR, with metadata-repair and background-removal retries for
 *   damaged files.
 * - Full OCR: --force-ocr renders and recognizes every page, stepping
 *   down through progressively more forgiving strategies, then reads the
 *   recognized text back via a sidecar pass over the OCR'd PDF.
 *
 * All intermediate files live in the configured temp directory and are
 * removed on every exit path.
 */

package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/docvault/extract-worker/internal/logging"
)

// OcrMyPdf wraps the ocrmypdf command-line tool.
type OcrMyPdf struct {
	binary  string
	tempDir string
	logger  *logging.Logger
}

// NewOcrMyPdf creates a client writing intermediates under tempDir.
func NewOcrMyPdf(tempDir string) *OcrMyPdf {
	return &OcrMyPdf{
		binary:  "ocrmypdf",
		tempDir: tempDir,
		logger:  logging.NewLogger("ocrmypdf"),
	}
}

// Available reports whether the ocrmypdf binary responds to --version.
func (o *OcrMyPdf) Available(ctx context.Context) bool {
	err := exec.CommandContext(ctx, o.binary, "--version").Run()
	return err == nil
}

// ExtractTextQuick pulls embedded text out of pdfPath without OCR. The first
// attempt uses --skip-text alone; failures fall through to a metadata-repair
// pass and then a background-removal pass, both of which also write a
// repaired PDF that is discarded.
func (o *OcrMyPdf) ExtractTextQuick(ctx context.Context, pdfPath string) (string, error) {
	sidecarPath := o.tempPath("quick_text", "txt")
	defer os.Remove(sidecarPath)

	attempt := func(args ...string) (string, error) {
		cmd := exec.CommandContext(ctx, o.binary, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("ocrmypdf %s failed: %w: %s",
				args[0], err, truncateOutput(out))
		}
		text, err := os.ReadFile(sidecarPath)
		if err != nil {
			return "", fmt.Errorf("failed to read sidecar: %w", err)
		}
		return strings.TrimSpace(string(text)), nil
	}

	// Fast path: existing text only, dummy stdout output.
	text, err := attempt("--skip-text", "--sidecar", sidecarPath, pdfPath, "-")
	if err == nil {
		return text, nil
	}
	o.logger.Info("quick extraction failed, trying recovery strategies", "file", pdfPath, "error", err)

	repairedPath := o.tempPath("fixed", "pdf")
	defer os.Remove(repairedPath)

	text, err = attempt("--fix-metadata", "--skip-text", "--sidecar", sidecarPath, pdfPath, repairedPath)
	if err == nil {
		return text, nil
	}

	text, err = attempt("--remove-background", "--skip-text", "--sidecar", sidecarPath, pdfPath, repairedPath)
	if err == nil {
		return text, nil
	}

	return "", fmt.Errorf("all quick extraction strategies failed: %w", err)
}

// ExtractTextFullOcr renders and OCRs every page of pdfPath, trying three
// strategies from highest quality to most forgiving, and returns the
// recognized text. The caller bounds the whole operation through ctx.
func (o *OcrMyPdf) ExtractTextFullOcr(ctx context.Context, pdfPath, language string) (string, error) {
	ocrPdfPath := o.tempPath("ocr", "pdf")
	defer os.Remove(ocrPdfPath)

	strategies := [][]string{
		// Standard OCR with page cleanup.
		{"--force-ocr", "-O2", "--deskew", "--clean", "--language", language, pdfPath, ocrPdfPath},
		// Recovery mode for files with broken metadata or noisy backgrounds.
		{"--force-ocr", "--fix-metadata", "--remove-background", "-O1", "--language", language, pdfPath, ocrPdfPath},
		// Minimal processing, skipping oversized pages.
		{"--force-ocr", "--skip-big", "--language", language, pdfPath, ocrPdfPath},
	}

	var lastErr error
	for i, args := range strategies {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ocrmypdf cancelled: %w", ctx.Err())
		}
		cmd := exec.CommandContext(ctx, o.binary, args...)
		out, err := cmd.CombinedOutput()
		if err == nil {
			return o.extractSidecar(ctx, ocrPdfPath)
		}
		lastErr = fmt.Errorf("strategy %d failed: %w: %s", i+1, err, truncateOutput(out))
		o.logger.Warn("ocrmypdf strategy failed", "strategy", i+1, "file", pdfPath, "error", err)
	}

	return "", fmt.Errorf("all ocr strategies failed for %q: %w", pdfPath, lastErr)
}

// extractSidecar reads the text layer of an already-OCR'd PDF through a
// sidecar-only pass.
func (o *OcrMyPdf) extractSidecar(ctx context.Context, ocrPdfPath string) (string, error) {
	sidecarPath := ocrPdfPath + ".txt"
	defer os.Remove(sidecarPath)

	cmd := exec.CommandContext(ctx, o.binary, "--sidecar", sidecarPath, ocrPdfPath, "-")
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("sidecar text extraction failed: %w: %s", err, truncateOutput(out))
	}

	text, err := os.ReadFile(sidecarPath)
	if err != nil {
		return "", fmt.Errorf("failed to read sidecar: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}

func (o *OcrMyPdf) tempPath(prefix, ext string) string {
	return filepath.Join(o.tempDir, fmt.Sprintf("%s_%d_%d.%s",
		prefix, os.Getpid(), time.Now().UnixMilli(), ext))
}

// truncateOutput keeps tool output in errors readable.
func truncateOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 500 {
		s = s[:500] + "..."
	}
	return s
}
