// Package testutil provides reusable test helper functions for waveshaper tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-10
	SampleTolerance  = 1e-6
	DBTolerance      = 0.01
)

// AssertNoNaNOrInf32 verifies that no samples in the block are NaN or Inf.
func AssertNoNaNOrInf32(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		f := float64(v)
		if math.IsNaN(f) {
			return assert.Fail(t, "found NaN", append([]any{"s[%d] is NaN", i}, msgAndArgs...)...)
		}
		if math.IsInf(f, 0) {
			return assert.Fail(t, "found Inf", append([]any{"s[%d] is Inf", i}, msgAndArgs...)...)
		}
	}
	return true
}

// AssertMonotonic32 verifies that a block is monotonically non-decreasing.
func AssertMonotonic32(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return assert.Fail(t, "not monotonic",
				append([]any{"s[%d]=%g < s[%d]=%g", i, s[i], i-1, s[i-1]}, msgAndArgs...)...)
		}
	}
	return true
}

// AssertSignMatches verifies that every output sample is zero or has the sign
// of the matching input sample.
func AssertSignMatches(t *testing.T, in, out []float32, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Len(t, out, len(in), msgAndArgs...) {
		return false
	}
	for i := range in {
		if out[i] == 0 {
			continue
		}
		if (in[i] < 0) != (out[i] < 0) {
			return assert.Fail(t, "sign flipped",
				append([]any{"in[%d]=%g out[%d]=%g", i, in[i], i, out[i]}, msgAndArgs...)...)
		}
	}
	return true
}

// AssertAllInRange verifies that all samples are within [min, max].
func AssertAllInRange(t *testing.T, s []float32, minVal, maxVal float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				append([]any{"s[%d]=%g is outside range [%g, %g]", i, v, minVal, maxVal}, msgAndArgs...)...)
		}
	}
	return true
}

// AssertDCGain verifies that the sum of coefficients equals the expected DC gain.
func AssertDCGain(t *testing.T, coeffs []float64, expectedGain, tolerance float64) bool {
	t.Helper()
	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	return assert.InDelta(t, expectedGain, sum, tolerance,
		"DC gain = %f, want %f", sum, expectedGain)
}

// AssertSymmetric verifies that a slice is symmetric (s[i] == s[n-1-i]).
func AssertSymmetric(t *testing.T, s []float64, tolerance float64) bool {
	t.Helper()
	n := len(s)
	for i := 0; i < n/2; i++ {
		j := n - 1 - i
		if !assert.InDelta(t, s[i], s[j], tolerance,
			"slice not symmetric at i=%d: s[%d]=%f != s[%d]=%f", i, i, s[i], j, s[j]) {
			return false
		}
	}
	return true
}

// Ramp returns n evenly spaced samples from lo to hi inclusive.
func Ramp(lo, hi float32, n int) []float32 {
	out := make([]float32, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (float64(hi) - float64(lo)) / float64(n-1)
	for i := range out {
		out[i] = float32(float64(lo) + step*float64(i))
	}
	return out
}

// Sine returns an interleaved sine of the given frequency, duplicated on every channel.
func Sine(frames, channels int, freq, rate, amp float64) []float32 {
	out := make([]float32, frames*channels)
	for n := range frames {
		v := float32(amp * math.Sin(2*math.Pi*freq*float64(n)/rate))
		for c := range channels {
			out[n*channels+c] = v
		}
	}
	return out
}
