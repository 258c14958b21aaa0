// Package filter provides Kaiser-window FIR design for the oversampling filters.
package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-audio-waveshaper/internal/simdops"
)

// ErrInvalidParams indicates filter parameters outside the designable range.
var ErrInvalidParams = errors.New("invalid filter parameters")

const (
	// Filter design constants
	minFilterTaps = 3
	maxFilterTaps = 1 << 14

	// Sinc evaluation
	sincZeroThreshold = 1e-10

	// Bessel series terminates once a term drops below this fraction of the sum.
	besselEpsilon  = 1e-17
	besselMaxTerms = 500
)

// Kaiser & Schafer empirical constants.
const (
	kaiserAttHigh          = 50.0
	kaiserAttMedium        = 21.0
	kaiserBetaHighCoeff    = 0.1102
	kaiserBetaHighOffset   = 8.7
	kaiserBetaMediumCoeff1 = 0.5842
	kaiserBetaMediumPower  = 0.4
	kaiserBetaMediumCoeff2 = 0.07886

	kaiserLengthOffset     = 7.95
	kaiserLengthMultiplier = 14.36
)

// BesselI0 computes the zeroth-order modified Bessel function of the first kind
// by its power series Σ ((x/2)^k / k!)².
func BesselI0(x float64) float64 {
	q := x * x / 4
	sum, term := 1.0, 1.0
	for k := 1; k < besselMaxTerms; k++ {
		term *= q / float64(k*k)
		sum += term
		if term < sum*besselEpsilon {
			break
		}
	}
	return sum
}

// KaiserBeta returns the window β for the desired stopband attenuation in dB.
func KaiserBeta(attenuation float64) float64 {
	switch {
	case attenuation > kaiserAttHigh:
		return kaiserBetaHighCoeff * (attenuation - kaiserBetaHighOffset)
	case attenuation >= kaiserAttMedium:
		delta := attenuation - kaiserAttMedium
		return kaiserBetaMediumCoeff1*math.Pow(delta, kaiserBetaMediumPower) + kaiserBetaMediumCoeff2*delta
	default:
		return 0
	}
}

// KaiserAttenuation inverts KaiserBeta for β in the high-attenuation regime.
func KaiserAttenuation(beta float64) float64 {
	if beta <= 0 {
		return 0
	}
	return kaiserBetaHighOffset + beta/kaiserBetaHighCoeff
}

// EstimateTaps estimates the odd filter length reaching attenuation dB with a
// transition band of transitionBW (fraction of the sample rate).
func EstimateTaps(attenuation, transitionBW float64) int {
	if transitionBW <= 0 {
		return maxFilterTaps - 1
	}
	taps := int(math.Ceil((attenuation-kaiserLengthOffset)/(kaiserLengthMultiplier*transitionBW))) + 1
	if taps%2 == 0 {
		taps++
	}
	return min(max(taps, minFilterTaps), maxFilterTaps-1)
}

// KaiserWindow returns a symmetric Kaiser window of the given length.
// w[n] = I₀(β·sqrt(1 - ((n-α)/α)²)) / I₀(β), α = (length-1)/2.
func KaiserWindow(length int, beta float64) []float64 {
	if length < 1 {
		return []float64{}
	}
	window := make([]float64, length)
	if length == 1 {
		window[0] = 1
		return window
	}

	alpha := float64(length-1) / 2
	i0Beta := BesselI0(beta)
	for n := range length {
		x := (float64(n) - alpha) / alpha
		window[n] = BesselI0(beta*math.Sqrt(max(0, 1-x*x))) / i0Beta
	}
	return window
}

// Params describes a lowpass prototype.
type Params struct {
	// NumTaps is the filter length. Even lengths are allowed; polyphase
	// prototypes are usually factor × taps-per-phase long.
	NumTaps int

	// Cutoff is the normalized cutoff frequency in (0, 0.5), relative to the
	// rate the filter runs at.
	Cutoff float64

	// Beta is the Kaiser window parameter.
	Beta float64

	// Gain is the DC gain the coefficients are normalized to.
	Gain float64
}

// Validate checks that the parameters describe a designable filter.
func (p *Params) Validate() error {
	if p.NumTaps < minFilterTaps || p.NumTaps > maxFilterTaps {
		return fmt.Errorf("%w: %d taps (must be in [%d, %d])", ErrInvalidParams, p.NumTaps, minFilterTaps, maxFilterTaps)
	}
	if p.Cutoff <= 0 || p.Cutoff >= 0.5 {
		return fmt.Errorf("%w: cutoff %g (must be in (0, 0.5))", ErrInvalidParams, p.Cutoff)
	}
	if p.Beta < 0 {
		return fmt.Errorf("%w: beta %g", ErrInvalidParams, p.Beta)
	}
	if p.Gain <= 0 {
		return fmt.Errorf("%w: gain %g", ErrInvalidParams, p.Gain)
	}
	return nil
}

// LowPass designs a linear-phase windowed-sinc lowpass filter normalized to
// p.Gain at DC.
func LowPass(p Params) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	window := KaiserWindow(p.NumTaps, p.Beta)
	coeffs := make([]float64, p.NumTaps)
	center := float64(p.NumTaps-1) / 2

	for n := range coeffs {
		x := float64(n) - center
		var sinc float64
		if math.Abs(x) < sincZeroThreshold {
			sinc = 2 * p.Cutoff
		} else {
			sinc = math.Sin(2*math.Pi*p.Cutoff*x) / (math.Pi * x)
		}
		coeffs[n] = sinc * window[n]
	}

	ops := simdops.For[float64]()
	if sum := ops.Sum(coeffs); math.Abs(sum) > sincZeroThreshold {
		ops.Scale(coeffs, coeffs, p.Gain/sum)
	}
	return coeffs, nil
}

// Magnitude evaluates |H(e^jω)| of coeffs at normalized frequency freq.
func Magnitude(coeffs []float64, freq float64) float64 {
	omega := 2 * math.Pi * freq
	var re, im float64
	for n, h := range coeffs {
		angle := omega * float64(n)
		re += h * math.Cos(angle)
		im -= h * math.Sin(angle)
	}
	return math.Hypot(re, im)
}

// MagnitudeDB converts a linear magnitude to decibels, floored at -200 dB.
func MagnitudeDB(magnitude float64) float64 {
	const minMagnitude = 1e-10
	return 20 * math.Log10(max(magnitude, minMagnitude))
}
