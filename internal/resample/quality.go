// Package resample implements integer-factor polyphase interpolation and
// decimation for interleaved float32 audio.
//
// The oversampling coordinator drives one Resampler per direction: an
// interpolator raising the host rate by the oversample factor before the
// nonlinearity, and a decimator bringing the shaped signal back down while
// rejecting the harmonics folded above the host Nyquist.
package resample

import (
	"errors"
	"fmt"
	"strings"
)

// Quality selects a filter profile.
type Quality int

const (
	// QualityFast uses short filters and float32 accumulation.
	QualityFast Quality = iota
	// QualityBalanced trades filter length for CPU.
	QualityBalanced
	// QualityBest uses the longest filters and float64 accumulation.
	QualityBest
)

// ErrUnknownQuality is returned by ParseQuality for unrecognized names.
var ErrUnknownQuality = errors.New("unknown resampler quality")

// String returns the quality name.
func (q Quality) String() string {
	switch q {
	case QualityFast:
		return "fast"
	case QualityBalanced:
		return "balanced"
	case QualityBest:
		return "best"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// Valid reports whether q names a known profile.
func (q Quality) Valid() bool {
	return q >= QualityFast && q <= QualityBest
}

// ParseQuality parses "fast", "balanced" or "best".
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast", "low":
		return QualityFast, nil
	case "balanced", "medium":
		return QualityBalanced, nil
	case "best", "high":
		return QualityBest, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownQuality, s)
	}
}

// Profile holds the filter parameters of a quality mode.
//
//	mode            taps/phase   beta   nominal stopband
//	QualityFast     16           5.0    ~55 dB
//	QualityBalanced 32           7.5    ~75 dB
//	QualityBest     64           9.0    ~90 dB
type Profile struct {
	TapsPerPhase      int
	CutoffScale       float64
	KaiserBeta        float64
	NominalStopbandDB float64

	// DoublePrecision selects float64 filter state and accumulation.
	DoublePrecision bool
}

// QualityProfile returns the profile used by quality mode q. Unknown modes
// fall back to QualityBalanced.
func QualityProfile(q Quality) Profile {
	switch q {
	case QualityFast:
		return Profile{TapsPerPhase: 16, CutoffScale: 0.88, KaiserBeta: 5.0, NominalStopbandDB: 55}
	case QualityBest:
		return Profile{TapsPerPhase: 64, CutoffScale: 0.96, KaiserBeta: 9.0, NominalStopbandDB: 90, DoublePrecision: true}
	default:
		return Profile{TapsPerPhase: 32, CutoffScale: 0.92, KaiserBeta: 7.5, NominalStopbandDB: 75, DoublePrecision: true}
	}
}
