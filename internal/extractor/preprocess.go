package extractor

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	xdraw "golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Resize bounds for the corrected image. Anything larger than maxOcrDimension
// on its longest side is scaled down; anything smaller than minOcrDimension
// on its shortest side is scaled up to upscaleTargetDimension.
const (
	maxOcrDimension        = 2048
	minOcrDimension        = 300
	upscaleTargetDimension = 600
)

// Pixel-count ceiling for the integral-image adaptive threshold; above it the
// computation is skipped entirely in favor of histogram equalization.
const adaptiveThresholdPixelLimit = 1_500_000

// preprocessImage loads the image at inputPath, applies the corrections the
// measured quality and settings call for, and writes the corrected grayscale
// image to a temp PNG. Returns the temp path and the ordered list of steps
// actually executed.
func (s *Service) preprocessImage(inputPath string, settings *Settings) (string, []string, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open image: %w", err)
	}
	decoded, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image: %w", err)
	}

	gray := toGray(decoded)
	var applied []string

	s.logger.Debug("image loaded", "path", inputPath,
		"width", gray.Bounds().Dx(), "height", gray.Bounds().Dy())

	if settings.DetectOrientation {
		if rotated, ok := correctOrientation(gray); ok {
			gray = rotated
			applied = append(applied, "Orientation correction")
		}
	}

	if resized, ok := smartResize(gray); ok {
		gray = resized
		applied = append(applied, "Resize")
	}

	stats := AnalyzeImageQuality(gray)
	s.logger.Debug("image quality analysis",
		"brightness", stats.AverageBrightness, "contrast", stats.ContrastRatio,
		"noise", stats.NoiseLevel, "sharpness", stats.Sharpness)

	if !needsEnhancement(&stats, settings) {
		s.logger.Debug("image quality is good, skipping enhancement")
	} else {
		gray, applied = s.enhance(gray, &stats, settings, applied)
	}

	tempPath := filepath.Join(s.tempDir, fmt.Sprintf("processed_%d_%d.png",
		os.Getpid(), time.Now().UnixMilli()))
	out, err := os.Create(tempPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create processed image: %w", err)
	}
	if err := png.Encode(out, gray); err != nil {
		out.Close()
		os.Remove(tempPath)
		return "", nil, fmt.Errorf("failed to encode processed image: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return "", nil, fmt.Errorf("failed to write processed image: %w", err)
	}

	return tempPath, applied, nil
}

// enhance runs the individual correction steps gated by measured quality and
// explicit configuration, recording each step that actually mutated the
// image.
func (s *Service) enhance(gray *image.Gray, stats *ImageQualityStats, settings *Settings, applied []string) (*image.Gray, []string) {
	if stats.AverageBrightness < 50.0 || settings.BrightnessBoost > 0 {
		gray = enhanceBrightnessContrast(gray, stats, settings)
		applied = append(applied, "Brightness/contrast correction")
	}

	if stats.NoiseLevel > 0.25 || (settings.RemoveNoise && settings.NoiseReductionLevel > 1) {
		gray = adaptiveNoiseRemoval(gray, stats, settings)
		applied = append(applied, "Noise reduction")
	}

	if stats.ContrastRatio < 0.2 || (settings.EnhanceContrast && settings.AdaptiveThresholdWindow > 0) {
		enhanced, fallback := s.adaptiveContrastEnhancement(gray, stats, settings)
		gray = enhanced
		if fallback {
			applied = append(applied, "Basic contrast enhancement")
		} else {
			applied = append(applied, "Contrast enhancement")
		}
	}

	if stats.Sharpness < 0.2 || settings.SharpeningStrength > 0.5 {
		gray = sharpen(gray)
		applied = append(applied, "Image sharpening")
	}

	if settings.MorphologicalOperations && stats.NoiseLevel > 0.15 {
		gray = morphClose(morphOpen(gray))
		applied = append(applied, "Morphological operations")
	}

	return gray, applied
}

// needsEnhancement decides whether any correction step should run at all.
// The skip override wins outright; otherwise any metric on the bad side of
// its threshold, or an explicitly aggressive configuration, turns it on.
func needsEnhancement(stats *ImageQualityStats, settings *Settings) bool {
	if settings.SkipEnhancement {
		return false
	}

	needsBrightnessFix := stats.AverageBrightness < settings.QualityThresholdBrightness
	needsContrastFix := stats.ContrastRatio < settings.QualityThresholdContrast
	needsNoiseFix := stats.NoiseLevel > settings.QualityThresholdNoise
	needsSharpening := stats.Sharpness < settings.QualityThresholdSharpness

	userWantsEnhancement := settings.BrightnessBoost > 0 ||
		settings.ContrastMultiplier > 1.0 ||
		settings.NoiseReductionLevel > 1 ||
		settings.SharpeningStrength > 0

	return needsBrightnessFix || needsContrastFix || needsNoiseFix || needsSharpening || userWantsEnhancement
}

// correctOrientation rotates 90 degrees when the aspect ratio suggests the
// page was scanned sideways. Heuristic only; no OSD involved.
func correctOrientation(img *image.Gray) (*image.Gray, bool) {
	bounds := img.Bounds()
	width := float32(bounds.Dx())
	height := float32(bounds.Dy())
	if height == 0 || width/height <= 2.0 {
		return img, false
	}

	rotated := image.NewGray(image.Rect(0, 0, bounds.Dy(), bounds.Dx()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rotated.SetGray(bounds.Max.Y-1-y, x-bounds.Min.X, img.GrayAt(x, y))
		}
	}
	return rotated, true
}

// smartResize downscales oversized images and upscales undersized ones,
// never both in the same pass.
func smartResize(img *image.Gray) (*image.Gray, bool) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	maxDim := width
	if height > maxDim {
		maxDim = height
	}
	minDim := width
	if height < minDim {
		minDim = height
	}

	newWidth, newHeight := width, height
	if maxDim > maxOcrDimension {
		scale := float32(maxOcrDimension) / float32(maxDim)
		newWidth = int(float32(width) * scale)
		newHeight = int(float32(height) * scale)
	} else if minDim > 0 && minDim < minOcrDimension {
		scale := float32(upscaleTargetDimension) / float32(minDim)
		newWidth = int(float32(width) * scale)
		newHeight = int(float32(height) * scale)
	}

	if newWidth == width && newHeight == height {
		return img, false
	}

	resized := image.NewGray(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, xdraw.Over, nil)
	return resized, true
}

// enhanceBrightnessContrast applies clamp((v+boost)*multiplier, 0, 255)
// pixelwise. Boost and multiplier come from configuration when set, or are
// tiered off the measured stats: dimmer and flatter images get a stronger
// correction.
func enhanceBrightnessContrast(img *image.Gray, stats *ImageQualityStats, settings *Settings) *image.Gray {
	boost := settings.BrightnessBoost
	if boost <= 0 {
		switch {
		case stats.AverageBrightness < 50.0:
			boost = 60.0 - stats.AverageBrightness
		case stats.AverageBrightness < 80.0:
			boost = 30.0 - (stats.AverageBrightness-50.0)*0.5
		default:
			boost = 0
		}
	}

	multiplier := settings.ContrastMultiplier
	if multiplier <= 0 {
		switch {
		case stats.ContrastRatio < 0.2:
			multiplier = 2.5
		case stats.ContrastRatio < 0.4:
			multiplier = 1.8
		default:
			multiplier = 1.2
		}
	}

	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := (float32(img.GrayAt(x, y).Y) + boost) * multiplier
			out.SetGray(x, y, color.Gray{Y: clampPixel(v)})
		}
	}
	return out
}

// adaptiveNoiseRemoval picks a filter strength from configuration or the
// measured noise level. Heavy noise gets a wider median plus stronger blur.
func adaptiveNoiseRemoval(img *image.Gray, stats *ImageQualityStats, settings *Settings) *image.Gray {
	level := settings.NoiseReductionLevel
	if level <= 0 {
		switch {
		case stats.NoiseLevel > 0.2:
			level = 3
		case stats.NoiseLevel > 0.1:
			level = 2
		default:
			level = 1
		}
	}

	switch level {
	case 3:
		return gaussianBlur(medianFilter(img, 2), 0.8)
	case 2:
		return gaussianBlur(medianFilter(img, 1), 0.5)
	default:
		return medianFilter(img, 1)
	}
}

// adaptiveContrastEnhancement binarizes with a local threshold when the image
// is small enough for the integral-image computation to be safe; otherwise,
// or when the thresholding faults, histogram equalization takes over. The
// second return value reports whether the fallback path ran.
func (s *Service) adaptiveContrastEnhancement(img *image.Gray, stats *ImageQualityStats, settings *Settings) (*image.Gray, bool) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if int64(width)*int64(height) > adaptiveThresholdPixelLimit {
		s.logger.Debug("image too large for adaptive threshold, using histogram equalization",
			"width", width, "height", height)
		return s.equalizeWithStretch(img, stats, settings), true
	}

	minDim := width
	if height < minDim {
		minDim = height
	}

	windowSize := settings.AdaptiveThresholdWindow
	if windowSize <= 0 {
		if stats.ContrastRatio < 0.2 {
			// Low contrast: smaller windows adapt more aggressively.
			windowSize = clampInt(minDim/20, 11, 31)
		} else {
			windowSize = clampInt(minDim/15, 15, 41)
		}
	}
	if windowSize%2 == 0 {
		windowSize++
	}

	enhanced, err := safeAdaptiveThreshold(img, windowSize)
	if err != nil {
		s.logger.Warn("adaptive threshold failed, using histogram equalization", "error", err)
		return s.equalizeWithStretch(img, stats, settings), true
	}
	return enhanced, false
}

// equalizeWithStretch runs histogram equalization, adding a contrast stretch
// for genuinely flat images. The HistogramEqualization flag only changes how
// the step is reported; the output is the same either way.
func (s *Service) equalizeWithStretch(img *image.Gray, stats *ImageQualityStats, settings *Settings) *image.Gray {
	if settings.HistogramEqualization {
		s.logger.Debug("applying requested histogram equalization")
	} else {
		s.logger.Debug("applying histogram equalization fallback")
	}
	equalized := histogramEqualization(img)
	if stats.ContrastRatio < 0.3 {
		equalized = contrastStretch(equalized)
	}
	return equalized
}

func toGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	xdraw.Draw(gray, bounds, img, bounds.Min, xdraw.Src)
	return gray
}
