package extractor

// ImageQualityStats holds the quality metrics computed from a decoded
// grayscale image. Computed fresh per image, never persisted.
type ImageQualityStats struct {
	AverageBrightness float32 // mean pixel intensity, 0..255
	ContrastRatio     float32 // stddev / 255, 0..1
	NoiseLevel        float32 // mean local deviation, 0..1
	Sharpness         float32 // mean gradient magnitude, 0..1
}

// OcrResult is the structured outcome of one extraction call. Ownership
// passes to the caller, including cleanup of ProcessedImagePath when set.
type OcrResult struct {
	Text                 string
	Confidence           float32 // 0..100
	ProcessingTimeMs     int64
	WordCount            int
	PreprocessingApplied []string // mutation steps in execution order; empty means image used unmodified
	ProcessedImagePath   string   // set only when the processed image is retained for review
}

// Settings carries the per-extraction configuration. It is owned by the
// caller (the settings subsystem) and read-only to the pipeline.
type Settings struct {
	// Language selection
	OCRLanguage        string   // legacy single-language field
	PrimaryLanguage    string
	PreferredLanguages []string

	// Engine configuration
	PageSegmentationMode int     // tesseract PSM, 0-13; out of range falls back to auto
	EngineMode           int     // tesseract OEM; informational, binding uses its default
	MinConfidence        float32 // acceptance bar for ValidateResult
	WhitelistChars       string
	BlacklistChars       string

	// Preprocessing
	EnableImagePreprocessing bool
	DetectOrientation        bool
	SkipEnhancement          bool
	BrightnessBoost          float32 // 0 = derive from measured brightness
	ContrastMultiplier       float32 // 0 = derive from measured contrast
	RemoveNoise              bool
	NoiseReductionLevel      int // 0 = derive, 1 light, 2 moderate, 3 heavy
	SharpeningStrength       float32
	EnhanceContrast          bool
	AdaptiveThresholdWindow  int // 0 = derive from image dimensions
	HistogramEqualization    bool
	MorphologicalOperations  bool
	SaveProcessedImages      bool

	// Quality thresholds feeding the enhancement gate
	QualityThresholdBrightness float32
	QualityThresholdContrast   float32
	QualityThresholdNoise      float32
	QualityThresholdSharpness  float32
}

// DefaultSettings returns the knobs a fresh install runs with.
func DefaultSettings() Settings {
	return Settings{
		OCRLanguage:                "eng",
		PrimaryLanguage:            "eng",
		PageSegmentationMode:       3, // fully automatic
		EngineMode:                 3,
		MinConfidence:              30.0,
		EnableImagePreprocessing:   true,
		DetectOrientation:          true,
		NoiseReductionLevel:        0,
		ContrastMultiplier:         0,
		QualityThresholdBrightness: 40.0,
		QualityThresholdContrast:   0.15,
		QualityThresholdNoise:      0.3,
		QualityThresholdSharpness:  0.15,
	}
}
