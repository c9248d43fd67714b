package extractor

import (
	"image"
	"math"
)

// Pixel-count ceiling above which quality metrics are computed from a
// strided sample instead of a full pass. Keeps accumulators small and
// avoids a performance cliff on multi-megapixel scans.
const samplingPixelThreshold = 4_000_000

const qualitySampleStride = 10

// AnalyzeImageQuality computes brightness, contrast, noise and sharpness
// metrics from a decoded grayscale image.
func AnalyzeImageQuality(img *image.Gray) ImageQualityStats {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixelCount := int64(width) * int64(height)

	var brightness, variance float32
	if pixelCount > samplingPixelThreshold {
		brightness, variance = analyzeQualitySampled(img)
	} else {
		brightness, variance = analyzeQualityFull(img)
	}

	return ImageQualityStats{
		AverageBrightness: brightness,
		ContrastRatio:     float32(math.Sqrt(float64(variance))) / 255.0,
		NoiseLevel:        estimateNoiseLevel(img),
		Sharpness:         estimateSharpness(img),
	}
}

func analyzeQualityFull(img *image.Gray) (brightness, variance float32) {
	bounds := img.Bounds()
	count := int64(bounds.Dx()) * int64(bounds.Dy())
	if count == 0 {
		return 128.0, 0
	}

	var sum uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += uint64(img.GrayAt(x, y).Y)
		}
	}
	brightness = float32(sum) / float32(count)

	var varianceSum float32
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			diff := float32(img.GrayAt(x, y).Y) - brightness
			varianceSum += diff * diff
		}
	}
	return brightness, varianceSum / float32(count)
}

func analyzeQualitySampled(img *image.Gray) (brightness, variance float32) {
	bounds := img.Bounds()

	var sum uint64
	var samples uint32
	for y := bounds.Min.Y; y < bounds.Max.Y; y += qualitySampleStride {
		for x := bounds.Min.X; x < bounds.Max.X; x += qualitySampleStride {
			sum += uint64(img.GrayAt(x, y).Y)
			samples++
		}
	}
	if samples == 0 {
		return 128.0, 0
	}
	brightness = float32(sum) / float32(samples)

	var varianceSum float32
	for y := bounds.Min.Y; y < bounds.Max.Y; y += qualitySampleStride {
		for x := bounds.Min.X; x < bounds.Max.X; x += qualitySampleStride {
			diff := float32(img.GrayAt(x, y).Y) - brightness
			varianceSum += diff * diff
		}
	}
	return brightness, varianceSum / float32(samples)
}

// estimateNoiseLevel compares sampled interior pixels against the mean of
// their 8 neighbors; the mean absolute deviation normalized to [0,1] is the
// noise estimate.
func estimateNoiseLevel(img *image.Gray) float32 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 10 || height <= 10 {
		return 0
	}

	var noiseSum float32
	var samples uint32
	for y := bounds.Min.Y + 5; y < bounds.Max.Y-5; y += qualitySampleStride {
		for x := bounds.Min.X + 5; x < bounds.Max.X-5; x += qualitySampleStride {
			center := float32(img.GrayAt(x, y).Y)
			var neighborSum float32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					neighborSum += float32(img.GrayAt(x+dx, y+dy).Y)
				}
			}
			neighborAvg := neighborSum / 8.0
			dev := center - neighborAvg
			if dev < 0 {
				dev = -dev
			}
			noiseSum += dev
			samples++
		}
	}
	if samples == 0 {
		return 0
	}
	return (noiseSum / float32(samples)) / 255.0
}

// estimateSharpness averages the central-difference gradient magnitude over
// interior pixels, strided for large images.
func estimateSharpness(img *image.Gray) float32 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 2 || height <= 2 {
		return 0
	}

	step := 1
	if int64(width)*int64(height) > samplingPixelThreshold {
		step = qualitySampleStride
	}

	var gradientSum float32
	var samples uint64
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y += step {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x += step {
			left := float32(img.GrayAt(x-1, y).Y)
			right := float32(img.GrayAt(x+1, y).Y)
			top := float32(img.GrayAt(x, y-1).Y)
			bottom := float32(img.GrayAt(x, y+1).Y)

			gx := (right - left) / 2.0
			gy := (bottom - top) / 2.0
			gradientSum += float32(math.Sqrt(float64(gx*gx + gy*gy)))
			samples++
		}
	}
	if samples == 0 {
		return 0
	}
	return (gradientSum / float32(samples)) / 255.0
}
