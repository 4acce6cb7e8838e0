package config

// Range is a closed interval that a transform parameter is kept within.
type Range struct {
	Min float64
	Max float64
}

// Clamp returns v limited to [r.Min, r.Max].
func (r Range) Clamp(v float64) float64 {
	return max(r.Min, min(r.Max, v))
}

// Safe ranges for the video filter parameters.
var (
	ContrastRange    = Range{Min: 0.95, Max: 1.05}
	SaturationRange  = Range{Min: 0.95, Max: 1.05}
	GammaRange       = Range{Min: 0.9, Max: 1.1}
	GammaWeightRange = Range{Min: 0, Max: 1}
	VibranceRange    = Range{Min: 0, Max: 0.1}
	EQRange          = Range{Min: -0.1, Max: 0.1}
	FPSRange         = Range{Min: 24, Max: 30}
	RotateRange      = Range{Min: -2, Max: 2}
)

// Safe ranges for the image enhancement parameters.
var (
	BrightnessRange    = Range{Min: 0, Max: 1}
	ImageContrastRange = Range{Min: 0, Max: 1}
	BlurRange          = Range{Min: 0, Max: 0.5}
)

// VideoOptions holds the [option_video] section.
type VideoOptions struct {
	Contrast     float64 `mapstructure:"contrast"`
	Saturation   float64 `mapstructure:"saturation"`
	Gamma        float64 `mapstructure:"gamma"`
	GammaR       float64 `mapstructure:"gamma_r"`
	GammaG       float64 `mapstructure:"gamma_g"`
	GammaB       float64 `mapstructure:"gamma_b"`
	GammaWeight  float64 `mapstructure:"gamma_weight"`
	Vibrance     float64 `mapstructure:"vibrance"`
	EQ           float64 `mapstructure:"eq"` // brightness offset
	FPS          int     `mapstructure:"fps"`
	Rotate       int     `mapstructure:"rotate"` // degrees
	RandomConfig bool    `mapstructure:"random_config"`
}

// Clamp returns a copy with every numeric field inside its safe range.
func (o VideoOptions) Clamp() VideoOptions {
	o.Contrast = ContrastRange.Clamp(o.Contrast)
	o.Saturation = SaturationRange.Clamp(o.Saturation)
	o.Gamma = GammaRange.Clamp(o.Gamma)
	o.GammaR = GammaRange.Clamp(o.GammaR)
	o.GammaG = GammaRange.Clamp(o.GammaG)
	o.GammaB = GammaRange.Clamp(o.GammaB)
	o.GammaWeight = GammaWeightRange.Clamp(o.GammaWeight)
	o.Vibrance = VibranceRange.Clamp(o.Vibrance)
	o.EQ = EQRange.Clamp(o.EQ)
	o.FPS = int(FPSRange.Clamp(float64(o.FPS)))
	o.Rotate = int(RotateRange.Clamp(float64(o.Rotate)))
	return o
}

// ImageOptions holds the [option_image] section. Brightness and contrast
// are percentages, blur is a gaussian sigma.
type ImageOptions struct {
	Brightness float64 `mapstructure:"brightness"`
	Contrast   float64 `mapstructure:"contrast"`
	Blur       float64 `mapstructure:"blur"`
}

// Clamp returns a copy with every field inside its safe range.
func (o ImageOptions) Clamp() ImageOptions {
	o.Brightness = BrightnessRange.Clamp(o.Brightness)
	o.Contrast = ImageContrastRange.Clamp(o.Contrast)
	o.Blur = BlurRange.Clamp(o.Blur)
	return o
}
