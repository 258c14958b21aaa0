package curve

import (
	"math"

	"github.com/tphakala/go-audio-waveshaper/internal/gain"
	"github.com/tphakala/go-audio-waveshaper/internal/param"
)

// minShapeInterp floors the saturating-exp denominator. A collapsed
// interpolation then saturates to 1 for any audible input instead of
// producing Inf or NaN.
const minShapeInterp = 1e-9

// side is one half-wave's parameters with the pregain already linear.
type side struct {
	pregain float64
	h       param.HalfWave
}

// Kernel is a snapshot resolved for per-sample evaluation. The dB to linear
// conversions happen once in NewKernel, not per sample.
type Kernel struct {
	variant   Variant
	symmetric bool
	postgain  float64
	pos       side
	neg       side
}

// NewKernel resolves s. An out-of-range curve index falls back to SaturatingExp.
func NewKernel(s *param.Snapshot) Kernel {
	v := Variant(s.Curve)
	if !v.Valid() {
		v = SaturatingExp
	}
	return Kernel{
		variant:   v,
		symmetric: s.Symmetric,
		postgain:  gain.DBToLinear(s.PostgainDB),
		pos:       side{pregain: gain.DBToLinear(s.Pos.PregainDB), h: s.Pos},
		neg:       side{pregain: gain.DBToLinear(s.Neg.PregainDB), h: s.Neg},
	}
}

// Variant returns the resolved variant.
func (k *Kernel) Variant() Variant {
	return k.variant
}

// Apply transforms one sample.
func (k *Kernel) Apply(sample float32) float32 {
	x := float64(sample)
	negative := x < 0
	magnitude := math.Abs(x)

	sd := &k.pos
	if negative && !k.symmetric {
		sd = &k.neg
	}

	scaled := magnitude * sd.pregain

	var shaped float64
	switch k.variant {
	case PowerClamp:
		shaped = powerClamp(scaled, magnitude, &sd.h)
	case Logistic:
		shaped = logistic(scaled, &sd.h)
	default:
		shaped = saturatingExp(scaled, magnitude, &sd.h)
	}

	out := shaped * k.postgain
	if negative {
		out = -out
	}
	return toSample(out)
}

// Transform applies the transfer function selected by s to one sample.
func Transform(sample float32, s *param.Snapshot) float32 {
	k := NewKernel(s)
	return k.Apply(sample)
}

// ProcessBlock transforms block in place using a single snapshot.
func ProcessBlock(block []float32, s *param.Snapshot) {
	k := NewKernel(s)
	for i, v := range block {
		block[i] = k.Apply(v)
	}
}

// clampLerp interpolates from a to b by t clamped to [0, 1], raised to p.
func clampLerp(a, b, t, p float64) float64 {
	t = min(max(t, 0), 1)
	return math.Pow(a+(b-a)*t, p)
}

func saturatingExp(scaled, magnitude float64, h *param.HalfWave) float64 {
	interp := clampLerp(h.ShapeA, h.ShapeB, magnitude, h.ShapeExp)
	if !(interp >= minShapeInterp) {
		interp = minShapeInterp
	}
	// -expm1(-x) == 1 - exp(-x) without cancellation for small x.
	return -math.Expm1(-scaled / interp)
}

func powerClamp(scaled, magnitude float64, h *param.HalfWave) float64 {
	shaped := math.Pow(scaled, h.Power)
	if h.Clamp >= 1 {
		return min(shaped, 1)
	}
	if h.ClampSmooth == 0 {
		return shaped
	}
	blend := clampLerp(0, 1, (magnitude-h.Clamp)/(1-h.Clamp), h.ClampSmooth)
	if blend >= 1 {
		return 1
	}
	// shaped + (1-shaped)*blend, arranged so an infinite shaped stays infinite.
	return shaped*(1-blend) + blend
}

func logistic(scaled float64, h *param.HalfWave) float64 {
	z := math.Pow(scaled, h.Exponent) * h.Scale
	if math.IsNaN(z) {
		// Inf * 0 with a zero scale.
		z = 0
	}
	return 1 / (1 + math.Exp(-z+h.Bias))
}

// toSample converts to float32, mapping NaN to 0 and saturating values
// outside the float32 range. Nonzero values below the float32 range keep
// their sign as the smallest denormal.
func toSample(v float64) float32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxFloat32:
		return math.MaxFloat32
	case v < -math.MaxFloat32:
		return -math.MaxFloat32
	}
	out := float32(v)
	if out == 0 && v != 0 {
		return float32(math.Copysign(math.SmallestNonzeroFloat32, v))
	}
	return out
}
