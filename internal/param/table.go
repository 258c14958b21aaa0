// Package param holds the waveshaper's named controls.
//
// Every control is described by a static table entry mapping its name to typed
// accessors on Snapshot. The control thread mutates the Store; the audio thread
// only ever reads an immutable *Snapshot published with an atomic pointer swap.
package param

import (
	"fmt"
	"math"
)

// Kind is the value type of a parameter.
type Kind int

const (
	// KindFloat is a continuous value.
	KindFloat Kind = iota
	// KindBool is stored as 0 or 1.
	KindBool
	// KindUint is a non-negative integer.
	KindUint
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindUint:
		return "unsigned-int"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Parameter names shared by both half-waves.
const (
	NameOversample = "oversample"
	NameCurve      = "curve"
	NameSymmetric  = "symmetric"
	NamePostgain   = "db-postgain"

	PrefixPositive = "pos-"
	PrefixNegative = "neg-"

	SuffixPregain     = "db-pregain"
	SuffixShapeA      = "shape-a"
	SuffixShapeB      = "shape-b"
	SuffixShapeExp    = "shape-exp"
	SuffixPower       = "power"
	SuffixClamp       = "clamp"
	SuffixClampSmooth = "clamp-smooth"
	SuffixScale       = "scale"
	SuffixBias        = "bias"
	SuffixExponent    = "exponent"
)

// Ranges and defaults.
const (
	MinOversample     = 1
	MaxOversample     = 64
	DefaultOversample = 2

	// CurveCount is the number of selectable curve variants.
	CurveCount = 3

	minGainDB         = -144.0
	maxGainDB         = 144.0
	defaultPregainDB  = 20.0
	defaultPostgainDB = 0.0

	minShape     = 0.0
	maxShape     = 10.0
	defaultShape = 1.0

	maxScale     = 100.0
	defaultScale = 10.0
	minBias      = -10.0
	maxBias      = 10.0
	defaultBias  = 5.0
)

// Descriptor is the public description of a control.
type Descriptor struct {
	Name         string
	Kind         Kind
	Min          float64
	Max          float64
	Default      float64
	Controllable bool
	Description  string
}

// Clamp coerces v into the descriptor's range and kind.
// NaN maps to the default; booleans become 0 or 1; unsigned ints are rounded.
func (d Descriptor) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return d.Default
	}

	switch d.Kind {
	case KindBool:
		if v != 0 {
			v = 1
		}
	case KindUint:
		v = math.Round(v)
	}

	return min(max(v, d.Min), d.Max)
}

// entry binds a descriptor to accessors on Snapshot.
type entry struct {
	Descriptor
	get func(*Snapshot) float64
	set func(*Snapshot, float64)
}

// sideField describes one per-half-wave control.
type sideField struct {
	suffix string
	desc   string
	min    float64
	max    float64
	def    float64
	ptr    func(*HalfWave) *float64
}

var sideFields = []sideField{
	{SuffixPregain, "Pregain dB", minGainDB, maxGainDB, defaultPregainDB, func(h *HalfWave) *float64 { return &h.PregainDB }},
	{SuffixShapeA, "Shape interp point A", minShape, maxShape, defaultShape, func(h *HalfWave) *float64 { return &h.ShapeA }},
	{SuffixShapeB, "Shape interp point B", minShape, maxShape, defaultShape, func(h *HalfWave) *float64 { return &h.ShapeB }},
	{SuffixShapeExp, "Shape interp exponent", minShape, maxShape, defaultShape, func(h *HalfWave) *float64 { return &h.ShapeExp }},
	{SuffixPower, "Power-clamp exponent", minShape, maxShape, defaultShape, func(h *HalfWave) *float64 { return &h.Power }},
	{SuffixClamp, "Power-clamp ceiling start", 0, 1, 1, func(h *HalfWave) *float64 { return &h.Clamp }},
	{SuffixClampSmooth, "Power-clamp smoothing exponent", minShape, maxShape, defaultShape, func(h *HalfWave) *float64 { return &h.ClampSmooth }},
	{SuffixScale, "Logistic scale", 0, maxScale, defaultScale, func(h *HalfWave) *float64 { return &h.Scale }},
	{SuffixBias, "Logistic bias", minBias, maxBias, defaultBias, func(h *HalfWave) *float64 { return &h.Bias }},
	{SuffixExponent, "Logistic exponent", minShape, maxShape, defaultShape, func(h *HalfWave) *float64 { return &h.Exponent }},
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// buildTable returns the control table in display order.
func buildTable() []entry {
	table := []entry{
		{
			Descriptor: Descriptor{
				Name: NameOversample, Kind: KindUint,
				Min: MinOversample, Max: MaxOversample, Default: DefaultOversample,
				Description: "Oversample factor",
			},
			get: func(s *Snapshot) float64 { return float64(s.Oversample) },
			set: func(s *Snapshot, v float64) { s.Oversample = int(v) },
		},
		{
			Descriptor: Descriptor{
				Name: NameCurve, Kind: KindUint,
				Min: 0, Max: CurveCount - 1, Default: 0, Controllable: true,
				Description: "Curve variant (0 saturating-exp, 1 power-clamp, 2 logistic)",
			},
			get: func(s *Snapshot) float64 { return float64(s.Curve) },
			set: func(s *Snapshot, v float64) { s.Curve = int(v) },
		},
		{
			Descriptor: Descriptor{
				Name: NameSymmetric, Kind: KindBool,
				Min: 0, Max: 1, Default: 1, Controllable: true,
				Description: "Symmetric? (use positive values for negative half)",
			},
			get: func(s *Snapshot) float64 { return boolFloat(s.Symmetric) },
			set: func(s *Snapshot, v float64) { s.Symmetric = v != 0 },
		},
		{
			Descriptor: Descriptor{
				Name: NamePostgain, Kind: KindFloat,
				Min: minGainDB, Max: maxGainDB, Default: defaultPostgainDB, Controllable: true,
				Description: "Postgain dB",
			},
			get: func(s *Snapshot) float64 { return s.PostgainDB },
			set: func(s *Snapshot, v float64) { s.PostgainDB = v },
		},
	}

	sides := []struct {
		prefix string
		label  string
		half   func(*Snapshot) *HalfWave
	}{
		{PrefixPositive, "Positive", func(s *Snapshot) *HalfWave { return &s.Pos }},
		{PrefixNegative, "Negative", func(s *Snapshot) *HalfWave { return &s.Neg }},
	}

	for _, side := range sides {
		for _, f := range sideFields {
			half, ptr := side.half, f.ptr
			table = append(table, entry{
				Descriptor: Descriptor{
					Name: side.prefix + f.suffix, Kind: KindFloat,
					Min: f.min, Max: f.max, Default: f.def, Controllable: true,
					Description: side.label + " " + f.desc,
				},
				get: func(s *Snapshot) float64 { return *ptr(half(s)) },
				set: func(s *Snapshot, v float64) { *ptr(half(s)) = v },
			})
		}
	}

	return table
}
