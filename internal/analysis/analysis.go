// Package analysis measures harmonic and aliasing content of processed audio
// with an FFT.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrInvalidInput indicates a signal or bin the measurement cannot use.
var ErrInvalidInput = errors.New("invalid analysis input")

// floorEnergy keeps ratios finite for perfectly clean signals.
const floorEnergy = 1e-300

// Spectrum returns |X[k]|² for k in [0, len(x)/2] using a rectangular window.
// Signals should be periodic in len(x) (bin-aligned tones) to avoid leakage.
func Spectrum(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	fft := fourier.NewFFT(len(x))
	coeffs := fft.Coefficients(nil, x)

	power := make([]float64, len(coeffs))
	for k, c := range coeffs {
		m := cmplx.Abs(c)
		power[k] = m * m
	}
	return power
}

// Report is the outcome of MeasureAliasing.
type Report struct {
	// FundamentalBin is the analyzed tone's bin.
	FundamentalBin int

	// HarmonicEnergy sums the bins at integer multiples of the fundamental
	// below Nyquist.
	HarmonicEnergy float64

	// AliasEnergy sums every other bin except DC: folded harmonics and noise.
	AliasEnergy float64

	// AliasRatioDB is 10·log10(AliasEnergy / HarmonicEnergy).
	AliasRatioDB float64

	// Harmonics lists the harmonic bins that were counted.
	Harmonics []int
}

// MeasureAliasing splits the spectrum of x into harmonics of fundamentalBin
// and everything else. A nonlinearity applied without enough oversampling
// folds harmonics above Nyquist onto non-harmonic bins, raising AliasEnergy.
func MeasureAliasing(x []float64, fundamentalBin int) (Report, error) {
	n := len(x)
	if n < 4 || n%2 != 0 {
		return Report{}, fmt.Errorf("%w: length %d (need an even length >= 4)", ErrInvalidInput, n)
	}
	nyquist := n / 2
	if fundamentalBin < 1 || fundamentalBin >= nyquist {
		return Report{}, fmt.Errorf("%w: fundamental bin %d outside (0, %d)", ErrInvalidInput, fundamentalBin, nyquist)
	}

	power := Spectrum(x)
	r := Report{FundamentalBin: fundamentalBin}

	harmonic := make([]bool, len(power))
	for k := fundamentalBin; k <= nyquist; k += fundamentalBin {
		harmonic[k] = true
		r.Harmonics = append(r.Harmonics, k)
	}

	for k := 1; k < len(power); k++ {
		if harmonic[k] {
			r.HarmonicEnergy += power[k]
		} else {
			r.AliasEnergy += power[k]
		}
	}

	r.AliasRatioDB = 10 * math.Log10(max(r.AliasEnergy, floorEnergy)/max(r.HarmonicEnergy, floorEnergy))
	return r, nil
}

// Float64s widens one channel of an interleaved float32 block.
func Float64s(block []float32, channel, channels int) []float64 {
	if channels < 1 || channel < 0 || channel >= channels {
		return nil
	}
	out := make([]float64, 0, len(block)/channels)
	for i := channel; i < len(block); i += channels {
		out = append(out, float64(block[i]))
	}
	return out
}
