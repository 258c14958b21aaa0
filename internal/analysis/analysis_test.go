package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n, bin int, amp float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*float64(bin*i)/float64(n))
	}
	return x
}

func TestSpectrum_BinAlignedTone(t *testing.T) {
	const n = 256
	p := Spectrum(tone(n, 10, 1))
	require.Len(t, p, n/2+1)

	// A unit sine puts (n/2)² in its bin.
	assert.InEpsilon(t, float64(n*n)/4, p[10], 1e-9)
	for k, v := range p {
		if k != 10 {
			assert.Less(t, v, 1e-12, "bin %d", k)
		}
	}

	assert.Nil(t, Spectrum(nil))
}

func TestMeasureAliasing_HarmonicsOnly(t *testing.T) {
	const n = 1024
	x := tone(n, 50, 1)
	third := tone(n, 150, 0.3)
	for i := range x {
		x[i] += third[i] + 0.5 // DC is ignored
	}

	r, err := MeasureAliasing(x, 50)
	require.NoError(t, err)

	assert.Equal(t, []int{50, 100, 150, 200, 250, 300, 350, 400, 450, 500}, r.Harmonics)
	assert.InEpsilon(t, float64(n*n)/4*(1+0.09), r.HarmonicEnergy, 1e-9)
	assert.Less(t, r.AliasRatioDB, -200.0)
}

func TestMeasureAliasing_FoldedTone(t *testing.T) {
	const n = 1024
	x := tone(n, 50, 1)
	folded := tone(n, 77, 0.1)
	for i := range x {
		x[i] += folded[i]
	}

	r, err := MeasureAliasing(x, 50)
	require.NoError(t, err)
	assert.InDelta(t, -20.0, r.AliasRatioDB, 1e-6)
}

func TestMeasureAliasing_InvalidInput(t *testing.T) {
	_, err := MeasureAliasing(make([]float64, 3), 1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = MeasureAliasing(make([]float64, 64), 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = MeasureAliasing(make([]float64, 64), 32)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestFloat64s(t *testing.T) {
	block := []float32{1, -1, 2, -2, 3, -3}
	assert.Equal(t, []float64{1, 2, 3}, Float64s(block, 0, 2))
	assert.Equal(t, []float64{-1, -2, -3}, Float64s(block, 1, 2))
	assert.Nil(t, Float64s(block, 2, 2))
}
