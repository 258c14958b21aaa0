package waveshaper

import (
	"github.com/tphakala/go-audio-waveshaper/internal/param"
	"github.com/tphakala/go-audio-waveshaper/internal/resample"
)

// Common sample rates.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate.
	RateDAT = 48000

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000
)

// Limits and defaults.
const (
	MaxChannels           = resample.MaxChannels
	DefaultMaxBlockFrames = resample.DefaultMaxFrames

	MinOversample     = param.MinOversample
	MaxOversample     = param.MaxOversample
	DefaultOversample = param.DefaultOversample
)

// Shared parameter names. Half-wave parameters combine PrefixPositive or
// PrefixNegative with a suffix, for example "pos-db-pregain".
const (
	ParamOversample = param.NameOversample
	ParamCurve      = param.NameCurve
	ParamSymmetric  = param.NameSymmetric
	ParamPostgain   = param.NamePostgain

	PrefixPositive = param.PrefixPositive
	PrefixNegative = param.PrefixNegative

	SuffixPregain     = param.SuffixPregain
	SuffixShapeA      = param.SuffixShapeA
	SuffixShapeB      = param.SuffixShapeB
	SuffixShapeExp    = param.SuffixShapeExp
	SuffixPower       = param.SuffixPower
	SuffixClamp       = param.SuffixClamp
	SuffixClampSmooth = param.SuffixClampSmooth
	SuffixScale       = param.SuffixScale
	SuffixBias        = param.SuffixBias
	SuffixExponent    = param.SuffixExponent
)
