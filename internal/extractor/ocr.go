/**
 * Tesseract OCR engine adapter
 *
 * Wraps gosseract with the language, segmentation, and character-set
 * controls the extraction pipeline needs. When the Tesseract runtime is
 * not present a disabled engine stands in and fails image requests with
 * a clear error instead of crashing the worker.
 */

package extractor

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine performs OCR on a prepared image file.
type Engine interface {
	// Recognize OCRs the image at path and returns the text together with
	// the mean word-level confidence in [0, 100].
	Recognize(path string, settings *Settings) (string, float32, error)
	// Available reports whether the engine can actually run.
	Available() bool
}

// NewEngine probes for a usable Tesseract installation and returns the
// matching engine. The worker keeps running without OCR support when the
// binary is missing; image jobs then fail individually.
func NewEngine() Engine {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return &disabledEngine{reason: "tesseract binary not found in PATH"}
	}
	return &tesseractEngine{}
}

type tesseractEngine struct{}

func (e *tesseractEngine) Available() bool { return true }

func (e *tesseractEngine) Recognize(path string, settings *Settings) (string, float32, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(path); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}

	langs := languageCombination(settings)
	if len(langs) > 0 {
		if err := client.SetLanguage(langs...); err != nil {
			return "", 0, fmt.Errorf("failed to set language %q: %w", strings.Join(langs, "+"), err)
		}
	}

	if err := client.SetPageSegMode(pageSegMode(settings.PageSegmentationMode)); err != nil {
		return "", 0, fmt.Errorf("failed to set page segmentation mode %d: %w", settings.PageSegmentationMode, err)
	}

	if settings.WhitelistChars != "" {
		if err := client.SetVariable(gosseract.TESSEDIT_CHAR_WHITELIST, settings.WhitelistChars); err != nil {
			return "", 0, fmt.Errorf("failed to set character whitelist: %w", err)
		}
	}
	if settings.BlacklistChars != "" {
		if err := client.SetVariable(gosseract.TESSEDIT_CHAR_BLACKLIST, settings.BlacklistChars); err != nil {
			return "", 0, fmt.Errorf("failed to set character blacklist: %w", err)
		}
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("tesseract recognition failed: %w", err)
	}

	confidence := meanWordConfidence(client)
	return text, confidence, nil
}

// pageSegMode maps the configured integer onto a Tesseract segmentation
// mode. Values outside 0-13 fall back to fully automatic segmentation.
func pageSegMode(mode int) gosseract.PageSegMode {
	if mode < int(gosseract.PSM_OSD_ONLY) || mode > int(gosseract.PSM_RAW_LINE) {
		return gosseract.PSM_AUTO
	}
	return gosseract.PageSegMode(mode)
}

// meanWordConfidence averages per-word recognition confidence. A failed
// bounding-box query or an empty page yields zero rather than an error; the
// caller still has the text.
func meanWordConfidence(client *gosseract.Client) float32 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}

	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	mean := float32(sum / float64(len(boxes)))
	if mean < 0 {
		mean = 0
	}
	if mean > 100 {
		mean = 100
	}
	return mean
}

// languageCombination orders the configured languages for Tesseract: the
// primary language first, then the remaining preferred languages, then the
// base OCR language, with duplicates removed.
func languageCombination(settings *Settings) []string {
	var ordered []string
	seen := make(map[string]bool)

	add := func(lang string) {
		lang = strings.TrimSpace(lang)
		if lang == "" || seen[lang] {
			return
		}
		seen[lang] = true
		ordered = append(ordered, lang)
	}

	add(settings.PrimaryLanguage)
	for _, lang := range settings.PreferredLanguages {
		add(lang)
	}
	add(settings.OCRLanguage)

	return ordered
}

type disabledEngine struct {
	reason string
}

func (e *disabledEngine) Available() bool { return false }

func (e *disabledEngine) Recognize(string, *Settings) (string, float32, error) {
	return "", 0, fmt.Errorf("ocr unavailable: %s", e.reason)
}
