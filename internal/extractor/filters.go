package extractor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
)

// Grayscale filters used by the adaptive preprocessor. Written against
// *image.Gray directly; the x/image packages only provide decoding and
// resampling, not spatial filtering.

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampPixel(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// medianFilter replaces each pixel with the median of the (2r+1)x(2r+1)
// window around it. Border windows are clamped to the image edge.
func medianFilter(img *image.Gray, radius int) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	window := make([]uint8, 0, (2*radius+1)*(2*radius+1))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			window = window[:0]
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					px := clampInt(x+dx, bounds.Min.X, bounds.Max.X-1)
					py := clampInt(y+dy, bounds.Min.Y, bounds.Max.Y-1)
					window = append(window, img.GrayAt(px, py).Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.SetGray(x, y, color.Gray{Y: window[len(window)/2]})
		}
	}
	return out
}

// gaussianBlur applies a separable gaussian kernel with the given sigma.
func gaussianBlur(img *image.Gray, sigma float32) *image.Gray {
	radius := int(math.Ceil(float64(sigma) * 3))
	if radius < 1 {
		radius = 1
	}

	kernel := make([]float32, 2*radius+1)
	var sum float32
	for i := -radius; i <= radius; i++ {
		v := float32(math.Exp(-float64(i*i) / (2 * float64(sigma) * float64(sigma))))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	bounds := img.Bounds()

	// Horizontal pass
	horizontal := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var acc float32
			for i := -radius; i <= radius; i++ {
				px := clampInt(x+i, bounds.Min.X, bounds.Max.X-1)
				acc += float32(img.GrayAt(px, y).Y) * kernel[i+radius]
			}
			horizontal.SetGray(x, y, color.Gray{Y: clampPixel(acc)})
		}
	}

	// Vertical pass
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var acc float32
			for i := -radius; i <= radius; i++ {
				py := clampInt(y+i, bounds.Min.Y, bounds.Max.Y-1)
				acc += float32(horizontal.GrayAt(x, py).Y) * kernel[i+radius]
			}
			out.SetGray(x, y, color.Gray{Y: clampPixel(acc)})
		}
	}
	return out
}

// adaptiveThreshold binarizes the image against the local mean computed from
// an integral image over a windowSize x windowSize neighborhood. The integral
// accumulators are int64 but the computation is still only safe for modest
// pixel counts; callers must pre-check size and wrap the call in
// safeAdaptiveThreshold.
func adaptiveThreshold(img *image.Gray, windowSize int) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := image.NewGray(bounds)

	// Integral image with one extra row/column of zeros.
	integral := make([]int64, (width+1)*(height+1))
	stride := width + 1
	for y := 0; y < height; y++ {
		var rowSum int64
		for x := 0; x < width; x++ {
			rowSum += int64(img.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			integral[(y+1)*stride+(x+1)] = integral[y*stride+(x+1)] + rowSum
		}
	}

	half := windowSize / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			x0 := clampInt(x-half, 0, width-1)
			x1 := clampInt(x+half, 0, width-1)
			y0 := clampInt(y-half, 0, height-1)
			y1 := clampInt(y+half, 0, height-1)

			area := int64(x1-x0+1) * int64(y1-y0+1)
			windowSum := integral[(y1+1)*stride+(x1+1)] -
				integral[y0*stride+(x1+1)] -
				integral[(y1+1)*stride+x0] +
				integral[y0*stride+x0]
			mean := windowSum / area

			v := uint8(0)
			if int64(img.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) > mean {
				v = 255
			}
			out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: v})
		}
	}
	return out
}

// safeAdaptiveThreshold runs adaptiveThreshold inside a recover boundary so
// an unexpected overflow fault becomes an error instead of killing the
// process.
func safeAdaptiveThreshold(img *image.Gray, windowSize int) (result *image.Gray, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("adaptive threshold panicked: %v", r)
		}
	}()
	return adaptiveThreshold(img, windowSize), nil
}

// histogramEqualization remaps pixel intensities through the cumulative
// distribution of a 256-bin histogram. Accumulators are uint64 so large
// images cannot overflow the counts.
func histogramEqualization(img *image.Gray) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)

	var histogram [256]uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			histogram[img.GrayAt(x, y).Y]++
		}
	}

	totalPixels := uint64(bounds.Dx()) * uint64(bounds.Dy())
	if totalPixels == 0 {
		return out
	}

	var cdf [256]uint64
	cdf[0] = histogram[0]
	for i := 1; i < 256; i++ {
		cdf[i] = cdf[i-1] + histogram[i]
	}

	var lookup [256]uint8
	for i := 0; i < 256; i++ {
		if cdf[i] > 0 {
			lookup[i] = uint8((float64(cdf[i]) / float64(totalPixels)) * 255.0)
		}
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetGray(x, y, color.Gray{Y: lookup[img.GrayAt(x, y).Y]})
		}
	}
	return out
}

// contrastStretch linearly remaps the observed [min,max] range to [0,255].
func contrastStretch(img *image.Gray) *image.Gray {
	bounds := img.Bounds()

	minVal := uint8(255)
	maxVal := uint8(0)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := img.GrayAt(x, y).Y
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}
	if maxVal == minVal {
		return img
	}

	out := image.NewGray(bounds)
	rangeVal := float32(maxVal - minVal)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := img.GrayAt(x, y).Y
			stretched := (float32(v-minVal) / rangeVal) * 255.0
			out.SetGray(x, y, color.Gray{Y: uint8(stretched)})
		}
	}
	return out
}

// sharpen applies a fixed 3x3 unsharp mask to interior pixels and copies
// border pixels unchanged.
func sharpen(img *image.Gray) *image.Gray {
	kernel := [3][3]float32{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	}

	bounds := img.Bounds()
	out := image.NewGray(bounds)

	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			var sum float32
			for ky := 0; ky < 3; ky++ {
				for kx := 0; kx < 3; kx++ {
					sum += float32(img.GrayAt(x+kx-1, y+ky-1).Y) * kernel[ky][kx]
				}
			}
			out.SetGray(x, y, color.Gray{Y: clampPixel(float32(math.Round(float64(sum))))})
		}
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if x == bounds.Min.X || x == bounds.Max.X-1 || y == bounds.Min.Y || y == bounds.Max.Y-1 {
				out.SetGray(x, y, img.GrayAt(x, y))
			}
		}
	}
	return out
}

// erode and dilate use a 3x3 structuring element; morphOpen removes speckle
// and morphClose fills small gaps in strokes.
func erode(img *image.Gray) *image.Gray {
	return morphApply(img, func(a, b uint8) uint8 {
		if b < a {
			return b
		}
		return a
	}, 255)
}

func dilate(img *image.Gray) *image.Gray {
	return morphApply(img, func(a, b uint8) uint8 {
		if b > a {
			return b
		}
		return a
	}, 0)
}

func morphApply(img *image.Gray, pick func(a, b uint8) uint8, seed uint8) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := seed
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px := clampInt(x+dx, bounds.Min.X, bounds.Max.X-1)
					py := clampInt(y+dy, bounds.Min.Y, bounds.Max.Y-1)
					v = pick(v, img.GrayAt(px, py).Y)
				}
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}

func morphOpen(img *image.Gray) *image.Gray {
	return dilate(erode(img))
}

func morphClose(img *image.Gray) *image.Gray {
	return erode(dilate(img))
}
