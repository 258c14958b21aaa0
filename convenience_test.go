package waveshaper

import (
	"fmt"
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-waveshaper/internal/analysis"
	"github.com/tphakala/go-audio-waveshaper/internal/curve"
	"github.com/tphakala/go-audio-waveshaper/internal/param"
	"github.com/tphakala/go-audio-waveshaper/internal/testutil"
)

func monoConfig() Config {
	cfg := DefaultConfig()
	cfg.Channels = 1
	return cfg
}

func TestShape_FactorOne(t *testing.T) {
	in := testutil.Ramp(-1, 1, 100)
	out, err := Shape(in, RateDAT, monoConfig(), map[string]float64{ParamOversample: 1})
	require.NoError(t, err)
	require.Len(t, out, len(in))

	snap := param.DefaultSnapshot()
	snap.Oversample = 1
	for i, v := range in {
		assert.InDelta(t, curve.Transform(v, snap), out[i], 0, "sample %d", i)
	}
}

func TestShape_DelayCompensated(t *testing.T) {
	const frames = 2048
	linear := map[string]float64{
		ParamCurve:                     float64(PowerClamp),
		PrefixPositive + SuffixPregain: 0,
		PrefixPositive + SuffixPower:   1,
		PrefixPositive + SuffixClamp:   1,
		ParamPostgain:                  0,
	}

	for _, factor := range []int{2, 4, 8} {
		t.Run(fmt.Sprintf("x%d", factor), func(t *testing.T) {
			in := testutil.Sine(frames, 2, 1000, RateDAT, 0.5)
			settings := maps.Clone(linear)
			settings[ParamOversample] = float64(factor)

			out, err := Shape(in, RateDAT, DefaultConfig(), settings)
			require.NoError(t, err)
			require.Len(t, out, len(in))

			// A unity curve leaves only the band-limited resampling: each
			// output frame must line up with the same input frame.
			for i := 256 * 2; i < len(out)-256*2; i++ {
				require.InDelta(t, in[i], out[i], 1e-3, "sample %d", i)
			}
		})
	}
}

func TestShape_Errors(t *testing.T) {
	_, err := Shape(make([]float32, 4), 0, monoConfig(), nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Shape(make([]float32, 3), RateDAT, DefaultConfig(), nil)
	require.ErrorIs(t, err, ErrBlockLayout)

	_, err = Shape(make([]float32, 4), RateDAT, monoConfig(), map[string]float64{"gain": 1})
	require.ErrorIs(t, err, ErrUnknownParameter)

	_, err = Shape(make([]float32, 4), RateDAT, Config{}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

// aliasRatio shapes a bin-aligned tone at the given oversample factor and
// returns the folded-to-harmonic energy ratio of the settled second half.
func aliasRatio(t *testing.T, factor int) float64 {
	t.Helper()
	const (
		n    = 4096
		bin  = 467
		rate = RateDAT
	)
	freq := float64(bin) * rate / n

	in := testutil.Sine(2*n, 1, freq, rate, 0.5)
	out, err := Shape(in, rate, monoConfig(), map[string]float64{ParamOversample: float64(factor)})
	require.NoError(t, err)
	testutil.AssertNoNaNOrInf32(t, out)

	r, err := analysis.MeasureAliasing(analysis.Float64s(out[n:], 0, 1), bin)
	require.NoError(t, err)
	return r.AliasRatioDB
}

func TestShape_OversamplingReducesAliasing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping aliasing measurement in short mode")
	}

	plain := aliasRatio(t, 1)
	twice := aliasRatio(t, 2)
	eight := aliasRatio(t, 8)
	t.Logf("alias ratio: x1 %.1f dB, x2 %.1f dB, x8 %.1f dB", plain, twice, eight)

	// Without oversampling the fifth harmonic and above fold back audibly.
	assert.Greater(t, plain, -30.0)
	assert.Less(t, twice, plain)
	assert.Less(t, eight, twice)
	// At least a tenfold reduction of alias energy.
	assert.Less(t, eight, plain-10)
}
