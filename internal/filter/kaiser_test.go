package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-waveshaper/internal/testutil"
)

// TestBesselI0 checks BesselI0 against tabulated values.
func TestBesselI0(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		expected float64
	}{
		{"Zero", 0.0, 1.0},
		{"Small positive", 0.5, 1.063483370741},
		{"One", 1.0, 1.266065877752},
		{"Two", 2.0, 2.279585302336},
		{"Five", 5.0, 27.239871823604},
		{"Ten", 10.0, 2815.716628466254},
		{"Negative one", -1.0, 1.266065877752},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BesselI0(tt.x)
			assert.InEpsilon(t, tt.expected, got, 1e-10)
		})
	}
}

func TestKaiserBeta(t *testing.T) {
	assert.InDelta(t, 0.0, KaiserBeta(20), 0)
	assert.InDelta(t, 0.1102*(90-8.7), KaiserBeta(90), 1e-12)

	mid := KaiserBeta(40)
	assert.InDelta(t, 0.5842*math.Pow(19, 0.4)+0.07886*19, mid, 1e-12)

	assert.InDelta(t, 90.0, KaiserAttenuation(KaiserBeta(90)), 1e-9)
	assert.InDelta(t, 0.0, KaiserAttenuation(0), 0)
}

func TestEstimateTaps(t *testing.T) {
	short := EstimateTaps(60, 0.1)
	long := EstimateTaps(60, 0.01)

	assert.Equal(t, 1, short%2, "taps must be odd")
	assert.Equal(t, 1, long%2, "taps must be odd")
	assert.Greater(t, long, short, "narrower transition needs more taps")
	assert.Greater(t, EstimateTaps(120, 0.01), long, "more attenuation needs more taps")
	assert.Equal(t, minFilterTaps, EstimateTaps(0, 0.4))
	assert.Less(t, EstimateTaps(60, 0), maxFilterTaps)
}

func TestKaiserWindow(t *testing.T) {
	w := KaiserWindow(65, 8)
	require.Len(t, w, 65)

	testutil.AssertSymmetric(t, w, 1e-12)
	assert.InDelta(t, 1.0, w[32], 1e-12, "window peaks at the center")
	assert.InDelta(t, 1/BesselI0(8), w[0], 1e-12)

	for i := 1; i <= 32; i++ {
		assert.GreaterOrEqual(t, w[i], w[i-1], "window rises to the center")
	}

	assert.Empty(t, KaiserWindow(0, 5))
	assert.Equal(t, []float64{1}, KaiserWindow(1, 5))

	rect := KaiserWindow(9, 0)
	for _, v := range rect {
		assert.InDelta(t, 1.0, v, 1e-12, "beta 0 is rectangular")
	}
}

func TestLowPass(t *testing.T) {
	coeffs, err := LowPass(Params{NumTaps: 255, Cutoff: 0.2, Beta: KaiserBeta(90), Gain: 1})
	require.NoError(t, err)
	require.Len(t, coeffs, 255)

	testutil.AssertDCGain(t, coeffs, 1, 1e-12)
	testutil.AssertSymmetric(t, coeffs, 1e-12)

	assert.InDelta(t, 1.0, Magnitude(coeffs, 0.05), 1e-3, "passband")
	assert.Less(t, MagnitudeDB(Magnitude(coeffs, 0.3)), -80.0, "stopband")
}

func TestLowPass_Gain(t *testing.T) {
	coeffs, err := LowPass(Params{NumTaps: 64, Cutoff: 0.1, Beta: 5, Gain: 4})
	require.NoError(t, err)
	testutil.AssertDCGain(t, coeffs, 4, 1e-12)
}

func TestLowPass_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"too short", Params{NumTaps: 2, Cutoff: 0.2, Gain: 1}},
		{"too long", Params{NumTaps: maxFilterTaps + 1, Cutoff: 0.2, Gain: 1}},
		{"zero cutoff", Params{NumTaps: 31, Cutoff: 0, Gain: 1}},
		{"nyquist cutoff", Params{NumTaps: 31, Cutoff: 0.5, Gain: 1}},
		{"negative beta", Params{NumTaps: 31, Cutoff: 0.2, Beta: -1, Gain: 1}},
		{"zero gain", Params{NumTaps: 31, Cutoff: 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LowPass(tt.p)
			require.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestMagnitudeDB(t *testing.T) {
	assert.InDelta(t, 0.0, MagnitudeDB(1), 1e-12)
	assert.InDelta(t, -20.0, MagnitudeDB(0.1), 1e-12)
	assert.InDelta(t, -200.0, MagnitudeDB(0), 1e-12)
}
