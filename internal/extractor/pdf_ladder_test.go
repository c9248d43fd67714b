package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	extracterrors "github.com/docvault/extract-worker/internal/errors"
)

// stubPdfTool scripts the external tool for ladder tests.
type stubPdfTool struct {
	available bool
	quickText string
	quickErr  error
	fullText  string
	fullErr   error
}

func (s *stubPdfTool) Available(context.Context) bool { return s.available }

func (s *stubPdfTool) ExtractTextQuick(context.Context, string) (string, error) {
	return s.quickText, s.quickErr
}

func (s *stubPdfTool) ExtractTextFullOcr(context.Context, string, string) (string, error) {
	return s.fullText, s.fullErr
}

func newPdfTestService(t *testing.T, tool PdfTool) (*Service, string) {
	t.Helper()
	svc := newTestService(t)
	svc.pdfTool = tool
	path := writeTempFile(t, svc.tempDir, "doc.pdf", []byte("%PDF-1.4\nBT (embedded words) Tj ET"))
	return svc, path
}

func TestExtractPdfQuickPath(t *testing.T) {
	tool := &stubPdfTool{
		available: true,
		quickText: strings.Repeat("invoice line item ", 30),
	}
	svc, path := newPdfTestService(t, tool)
	settings := DefaultSettings()

	result, err := svc.extractPdf(context.Background(), "job-q", path, &settings)
	if err != nil {
		t.Fatalf("extractPdf failed: %v", err)
	}
	if result.Confidence != 95.0 {
		t.Errorf("confidence = %v, want 95 for quick extraction", result.Confidence)
	}
	if result.PreprocessingApplied[0] != "PDF text extraction (ocrmypdf --skip-text)" {
		t.Errorf("steps = %v", result.PreprocessingApplied)
	}
}

func TestExtractPdfEscalatesToFullOcr(t *testing.T) {
	tool := &stubPdfTool{
		available: true,
		quickErr:  fmt.Errorf("all quick extraction strategies failed"),
		fullText:  strings.Repeat("scanned page content ", 30),
	}
	svc, path := newPdfTestService(t, tool)
	settings := DefaultSettings()

	result, err := svc.extractPdf(context.Background(), "job-f", path, &settings)
	if err != nil {
		t.Fatalf("extractPdf failed: %v", err)
	}
	if result.Confidence != 85.0 {
		t.Errorf("confidence = %v, want 85 for full ocr", result.Confidence)
	}
	if result.PreprocessingApplied[0] != "OCR via ocrmypdf" {
		t.Errorf("steps = %v", result.PreprocessingApplied)
	}
}

func TestExtractPdfInsufficientQuickTextEscalates(t *testing.T) {
	// Quick extraction succeeds but returns junk; the gate must reject it
	// and the ladder continue to full OCR.
	tool := &stubPdfTool{
		available: true,
		quickText: strings.Repeat("?!., ", 100),
		fullText:  strings.Repeat("real recognized text ", 30),
	}
	svc := newTestService(t)
	svc.pdfTool = tool
	// Big enough that the small-file leniency of the gate does not apply.
	padding := append([]byte("%PDF-1.4\n"), make([]byte, 80_000)...)
	path := writeTempFile(t, svc.tempDir, "big.pdf", padding)
	settings := DefaultSettings()

	result, err := svc.extractPdf(context.Background(), "job-g", path, &settings)
	if err != nil {
		t.Fatalf("extractPdf failed: %v", err)
	}
	if result.Confidence != 85.0 {
		t.Errorf("confidence = %v, want 85 after gate rejection", result.Confidence)
	}
}

func TestExtractPdfRawScanLastResort(t *testing.T) {
	tool := &stubPdfTool{
		available: true,
		quickErr:  fmt.Errorf("quick failed"),
		fullErr:   fmt.Errorf("ocr failed"),
	}
	svc, path := newPdfTestService(t, tool)
	settings := DefaultSettings()

	result, err := svc.extractPdf(context.Background(), "job-r", path, &settings)
	if err != nil {
		t.Fatalf("extractPdf failed: %v", err)
	}
	if result.Confidence != 50.0 {
		t.Errorf("confidence = %v, want 50 for raw scan", result.Confidence)
	}
	if !strings.Contains(result.Text, "embedded") {
		t.Errorf("raw scan missed embedded literal, got %q", result.Text)
	}
	if result.PreprocessingApplied[0] != "Direct PDF text extraction (last resort)" {
		t.Errorf("steps = %v", result.PreprocessingApplied)
	}
}

func TestRawByteScanEmptyReportsNoExtractableText(t *testing.T) {
	svc := newTestService(t)
	// Nothing readable: no text objects and no printable run longer than 3.
	path := writeTempFile(t, svc.tempDir, "noise.pdf", []byte{0x00, 0x01, 0xFE, 0x02, 0xFF})
	ocrErr := fmt.Errorf("exit status 6")

	_, err := svc.rawByteScan("job-e", path, time.Now(), ocrErr)
	if code := extracterrors.CodeOf(err); code != extracterrors.ErrorNoExtractableText {
		t.Errorf("error code = %q, want %q", code, extracterrors.ErrorNoExtractableText)
	}
	if !errors.Is(err, ocrErr) {
		t.Error("ocr failure not preserved as the cause")
	}
}

func TestExtractPdfToolUnavailable(t *testing.T) {
	svc, path := newPdfTestService(t, &stubPdfTool{available: false})
	settings := DefaultSettings()

	_, err := svc.extractPdf(context.Background(), "job-u", path, &settings)
	if code := extracterrors.CodeOf(err); code != extracterrors.ErrorToolUnavailable {
		t.Errorf("error code = %q, want %q", code, extracterrors.ErrorToolUnavailable)
	}
}

func TestExtractPdfRejectsBadHeader(t *testing.T) {
	svc := newTestService(t)
	svc.pdfTool = &stubPdfTool{available: true}
	path := writeTempFile(t, svc.tempDir, "fake.pdf", []byte("not a pdf"))
	settings := DefaultSettings()

	_, err := svc.extractPdf(context.Background(), "job-h", path, &settings)
	if code := extracterrors.CodeOf(err); code != extracterrors.ErrorInvalidHeader {
		t.Errorf("error code = %q, want %q", code, extracterrors.ErrorInvalidHeader)
	}
}
