package processor

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/aliskhannn/media-uniquer/internal/config"
)

// VideoParams are the effective filter parameters for one run.
type VideoParams struct {
	Contrast    float64
	Saturation  float64
	Brightness  float64
	Gamma       float64
	GammaR      float64
	GammaG      float64
	GammaB      float64
	GammaWeight float64
	Vibrance    float64
	FPS         int
	Rotate      int
}

// SelectVideoParams takes parameters from o, or draws contrast, saturation,
// rotation and frame rate at random when o.RandomConfig is set. The result
// is always clamped to the safe ranges.
func SelectVideoParams(o config.VideoOptions) VideoParams {
	o = o.Clamp()

	p := VideoParams{
		Contrast:    o.Contrast,
		Saturation:  o.Saturation,
		Brightness:  o.EQ,
		Gamma:       o.Gamma,
		GammaR:      o.GammaR,
		GammaG:      o.GammaG,
		GammaB:      o.GammaB,
		GammaWeight: o.GammaWeight,
		Vibrance:    o.Vibrance,
		FPS:         o.FPS,
		Rotate:      o.Rotate,
	}

	if o.RandomConfig {
		p.FPS = randInt(config.FPSRange)
		p.Contrast = randFloat(config.ContrastRange)
		p.Saturation = randFloat(config.SaturationRange)
		p.Rotate = randInt(config.RotateRange)
	}

	return p.clamp()
}

func (p VideoParams) clamp() VideoParams {
	p.Contrast = config.ContrastRange.Clamp(p.Contrast)
	p.Saturation = config.SaturationRange.Clamp(p.Saturation)
	p.Brightness = config.EQRange.Clamp(p.Brightness)
	p.Gamma = config.GammaRange.Clamp(p.Gamma)
	p.GammaR = config.GammaRange.Clamp(p.GammaR)
	p.GammaG = config.GammaRange.Clamp(p.GammaG)
	p.GammaB = config.GammaRange.Clamp(p.GammaB)
	p.GammaWeight = config.GammaWeightRange.Clamp(p.GammaWeight)
	p.Vibrance = config.VibranceRange.Clamp(p.Vibrance)
	p.FPS = int(config.FPSRange.Clamp(float64(p.FPS)))
	p.Rotate = int(config.RotateRange.Clamp(float64(p.Rotate)))
	return p
}

// Filter renders the ffmpeg -vf filter graph.
func (p VideoParams) Filter() string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"eq=contrast=%.3f:saturation=%.3f:brightness=%.3f:gamma=%.3f:gamma_r=%.3f:gamma_g=%.3f:gamma_b=%.3f:gamma_weight=%.3f",
		p.Contrast, p.Saturation, p.Brightness, p.Gamma, p.GammaR, p.GammaG, p.GammaB, p.GammaWeight,
	)
	fmt.Fprintf(&b, ",rotate=%d*PI/180", p.Rotate)

	if p.Vibrance > 0 {
		fmt.Fprintf(&b, ",vibrance=intensity=%.3f", p.Vibrance)
	}

	return b.String()
}

// randFloat draws uniformly from r, rounded to three decimals.
func randFloat(r config.Range) float64 {
	v := r.Min + rand.Float64()*(r.Max-r.Min)
	return r.Clamp(math.Round(v*1000) / 1000)
}

// randInt draws an integer uniformly from r, bounds included.
func randInt(r config.Range) int {
	lo, hi := int(r.Min), int(r.Max)
	return lo + rand.IntN(hi-lo+1)
}
