package waveshaper

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-audio-waveshaper/internal/curve"
	"github.com/tphakala/go-audio-waveshaper/internal/oversample"
	"github.com/tphakala/go-audio-waveshaper/internal/param"
	"github.com/tphakala/go-audio-waveshaper/internal/preview"
	"github.com/tphakala/go-audio-waveshaper/internal/resample"
)

// Quality selects the oversampling filter profile.
type Quality = resample.Quality

// Quality profiles.
const (
	// QualityFast uses 16 taps per phase and float32 accumulation.
	QualityFast = resample.QualityFast
	// QualityBalanced uses 32 taps per phase.
	QualityBalanced = resample.QualityBalanced
	// QualityBest uses 64 taps per phase. This is the default.
	QualityBest = resample.QualityBest
)

// ParseQuality parses "fast", "balanced" or "best".
func ParseQuality(s string) (Quality, error) {
	return resample.ParseQuality(s)
}

// Variant selects the transfer curve.
type Variant = curve.Variant

// Curve variants, in the order of the "curve" parameter.
const (
	SaturatingExp = curve.SaturatingExp
	PowerClamp    = curve.PowerClamp
	Logistic      = curve.Logistic
)

// ParseVariant parses a curve name such as "saturating-exp".
func ParseVariant(s string) (Variant, error) {
	return curve.ParseVariant(s)
}

// Negotiation types.
type (
	RateRange = oversample.RateRange
	Format    = oversample.Format
	Query     = oversample.Query
	Response  = oversample.Response
	State     = oversample.State
)

// Negotiation states.
const (
	StateUnconfigured = oversample.Unconfigured
	StateNegotiating  = oversample.Negotiating
	StateFixed        = oversample.Fixed
)

// Exact returns the concrete rate range [rate, rate].
func Exact(rate int) RateRange {
	return oversample.Exact(rate)
}

// Range returns the rate range [lo, hi].
func Range(lo, hi int) RateRange {
	return oversample.Range(lo, hi)
}

// Resampler plumbing for callers that supply their own rate converters.
type (
	Resampler        = oversample.Resampler
	ResamplerSpec    = oversample.ResamplerSpec
	ResamplerFactory = oversample.Factory
)

// Session is a consistent view of the negotiated session.
type Session = oversample.Session

// Parameter and preview types.
type (
	Descriptor = param.Descriptor
	Snapshot   = param.Snapshot
	HalfWave   = param.HalfWave
	Bitmap     = preview.Bitmap
)

// Config holds the effect's construction-time configuration.
type Config struct {
	// Channels is the number of interleaved channels per block (1-256).
	Channels int

	// MaxBlockFrames presizes the oversampling buffers. Larger blocks are
	// accepted and grow the buffers once. Zero selects DefaultMaxBlockFrames.
	MaxBlockFrames int

	// Quality selects the resampler filter profile. The zero value is
	// QualityFast; DefaultConfig selects QualityBest.
	Quality Quality

	// Logger receives session and negotiation events. Nil discards them.
	Logger logrus.FieldLogger

	// ResamplerFactory builds the upsampler and downsampler. Nil selects the
	// built-in Kaiser polyphase resamplers.
	ResamplerFactory ResamplerFactory
}

// DefaultConfig returns a stereo configuration at the best filter quality.
func DefaultConfig() Config {
	return Config{
		Channels:       2,
		MaxBlockFrames: DefaultMaxBlockFrames,
		Quality:        QualityBest,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Channels < 1 {
		return fmt.Errorf("%w: channels must be at least 1", ErrInvalidConfig)
	}

	if c.Channels > MaxChannels {
		return fmt.Errorf("%w: too many channels (max %d)", ErrInvalidConfig, MaxChannels)
	}

	if c.MaxBlockFrames < 0 {
		return fmt.Errorf("%w: max block frames must not be negative", ErrInvalidConfig)
	}

	if !c.Quality.Valid() {
		return fmt.Errorf("%w: unknown quality %s", ErrInvalidConfig, c.Quality)
	}

	return nil
}
