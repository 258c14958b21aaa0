package waveshaper

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-waveshaper/internal/curve"
	"github.com/tphakala/go-audio-waveshaper/internal/oversample"
	"github.com/tphakala/go-audio-waveshaper/internal/preview"
	"github.com/tphakala/go-audio-waveshaper/internal/resample"
	"github.com/tphakala/go-audio-waveshaper/internal/testutil"
)

func newTestEffect(t *testing.T, channels int) *Effect {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Channels = channels
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

// startFixed starts a session at factor and fixes the host rate.
func startFixed(t *testing.T, e *Effect, factor, rate int) {
	t.Helper()
	_, err := e.Set(ParamOversample, float64(factor))
	require.NoError(t, err)
	require.NoError(t, e.Start())
	resp := e.HandleQuery(Query{Candidates: []Format{{Rate: Exact(rate), Channels: e.Channels()}}})
	require.False(t, resp.Forwarded)
	require.Equal(t, StateFixed, e.State())
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero channels", Config{Channels: 0}},
		{"too many channels", Config{Channels: MaxChannels + 1}},
		{"negative block", Config{Channels: 1, MaxBlockFrames: -1}},
		{"unknown quality", Config{Channels: 1, Quality: Quality(42)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(Config{Channels: 1})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, DefaultMaxBlockFrames, e.cfg.MaxBlockFrames)
	assert.Equal(t, StateUnconfigured, e.State())
	assert.Equal(t, 0, e.Factor())

	v, err := e.Get(ParamOversample)
	require.NoError(t, err)
	assert.InDelta(t, DefaultOversample, v, 0)
}

func TestEffect_ProcessBeforeNegotiation(t *testing.T) {
	e := newTestEffect(t, 2)
	block := make([]float32, 64)

	err := e.Process(block)
	require.ErrorIs(t, err, ErrUnconfigured)
	assert.ErrorIs(t, err, ErrConfiguration)

	require.NoError(t, e.Start())
	assert.Equal(t, StateNegotiating, e.State())

	err = e.Process(block)
	require.ErrorIs(t, err, ErrNotNegotiated)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestEffect_Negotiation(t *testing.T) {
	e := newTestEffect(t, 2)
	startFixed(t, e, 4, RateDAT)

	base, upstream := e.Rates()
	assert.Equal(t, RateDAT, base)
	assert.Equal(t, 4*RateDAT, upstream)
	assert.Equal(t, 4, e.Factor())

	// A rate range is not something the effect can fix; it is passed on.
	q := Query{Candidates: []Format{{Rate: Range(8000, 96000), Channels: 2}}}
	resp := e.HandleQuery(q)
	assert.True(t, resp.Forwarded)
	assert.Equal(t, q, resp.Query)

	assert.False(t, e.FormatChanged(RateDAT), "same rate")
	assert.True(t, e.FormatChanged(RateCD))
	assert.Equal(t, StateNegotiating, e.State())
	base, upstream = e.Rates()
	assert.Zero(t, base)
	assert.Zero(t, upstream)
	require.ErrorIs(t, e.Process(make([]float32, 8)), ErrNotNegotiated)

	resp = e.HandleQuery(Query{Candidates: []Format{{Rate: Exact(RateCD), Channels: 2}}})
	require.False(t, resp.Forwarded)
	assert.Equal(t, Exact(4*RateCD), resp.Format.Rate)
	require.NoError(t, e.Process(make([]float32, 8)))
}

func TestEffect_OversampleFrozenDuringSession(t *testing.T) {
	e := newTestEffect(t, 1)
	startFixed(t, e, 2, RateDAT)

	_, err := e.Set(ParamOversample, 8)
	require.ErrorIs(t, err, ErrConfiguration)
	v, err := e.Get(ParamOversample)
	require.NoError(t, err)
	assert.InDelta(t, 2, v, 0)

	// Other controls stay live.
	_, err = e.Set(ParamPostgain, -6)
	require.NoError(t, err)

	require.ErrorIs(t, e.Start(), ErrSessionActive)
	_, err = e.Set(ParamOversample, 8)
	require.ErrorIs(t, err, ErrConfiguration, "a rejected Start keeps the session")

	e.Stop()
	assert.Equal(t, StateUnconfigured, e.State())
	stored, err := e.Set(ParamOversample, 8)
	require.NoError(t, err)
	assert.InDelta(t, 8, stored, 0)

	require.NoError(t, e.Start())
	assert.Equal(t, 8, e.Factor())
}

func TestEffect_FactorOneMatchesCurve(t *testing.T) {
	e := newTestEffect(t, 2)
	startFixed(t, e, 1, RateDAT)
	assert.Zero(t, e.Latency())

	for _, variant := range []Variant{SaturatingExp, PowerClamp, Logistic} {
		_, err := e.Set(ParamCurve, float64(variant))
		require.NoError(t, err)

		in := testutil.Ramp(-1, 1, 64)
		block := append([]float32(nil), in...)
		require.NoError(t, e.Process(block))

		snap := e.Snapshot()
		for i, v := range in {
			assert.InDelta(t, curve.Transform(v, snap), block[i], 0, "%s sample %d", variant, i)
		}
	}
}

func TestEffect_BlockLayout(t *testing.T) {
	e := newTestEffect(t, 2)
	startFixed(t, e, 2, RateDAT)

	require.ErrorIs(t, e.Process(make([]float32, 7)), ErrBlockLayout)
	require.NoError(t, e.Process(nil))
}

func TestEffect_OversampledOutputIsFinite(t *testing.T) {
	e := newTestEffect(t, 2)
	startFixed(t, e, 8, RateDAT)

	_, err := e.Set(PrefixPositive+SuffixPregain, 144)
	require.NoError(t, err)

	block := testutil.Sine(DefaultMaxBlockFrames, 2, 1000, RateDAT, 1)
	for range 4 {
		require.NoError(t, e.Process(block))
		testutil.AssertNoNaNOrInf32(t, block)
		testutil.AssertAllInRange(t, block, -1.5, 1.5)
	}
}

func TestEffect_LargerBlockThanConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channels = 1
	cfg.MaxBlockFrames = 64
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()
	startFixed(t, e, 4, RateDAT)

	block := testutil.Sine(1000, 1, 440, RateDAT, 0.5)
	require.NoError(t, e.Process(block))
	testutil.AssertNoNaNOrInf32(t, block)
}

func TestEffect_Latency(t *testing.T) {
	e := newTestEffect(t, 1)
	startFixed(t, e, 2, RateDAT)

	// Best quality: 128-tap filters of 63.5 high-rate frames each, less one
	// frame of decimation phase.
	assert.InDelta(t, 63.0, e.Latency(), 1e-9)

	e.Stop()
	assert.Zero(t, e.Latency())
}

type fakeBuffer struct {
	data     []float32
	err      error
	mapped   int
	unmapped int
}

func (b *fakeBuffer) Map() ([]float32, error) {
	b.mapped++
	if b.err != nil {
		return nil, b.err
	}
	return b.data, nil
}

func (b *fakeBuffer) Unmap() {
	b.unmapped++
}

func TestEffect_ProcessBuffer(t *testing.T) {
	e := newTestEffect(t, 1)
	startFixed(t, e, 1, RateDAT)

	buf := &fakeBuffer{data: []float32{0.25, -0.25}}
	require.NoError(t, e.ProcessBuffer(buf))
	assert.Equal(t, 1, buf.mapped)
	assert.Equal(t, 1, buf.unmapped)
	assert.InDelta(t, curve.Transform(0.25, e.Snapshot()), buf.data[0], 0)

	mapErr := errors.New("device lost")
	bad := &fakeBuffer{err: mapErr}
	err := e.ProcessBuffer(bad)
	require.ErrorIs(t, err, ErrBufferAcquisition)
	require.ErrorIs(t, err, mapErr)
	assert.Zero(t, bad.unmapped, "nothing to unmap after a failed map")
}

func TestEffect_ResamplerFactory(t *testing.T) {
	var specs []ResamplerSpec
	cfg := Config{
		Channels:       2,
		MaxBlockFrames: 256,
		Quality:        QualityBalanced,
		ResamplerFactory: func(spec ResamplerSpec) (Resampler, error) {
			specs = append(specs, spec)
			return oversample.DefaultFactory(spec)
		},
	}
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	startFixed(t, e, 4, RateCD)
	require.Len(t, specs, 2)
	assert.Equal(t, resample.Up, specs[0].Direction)
	assert.Equal(t, resample.Down, specs[1].Direction)
	for _, s := range specs {
		assert.Equal(t, 4, s.Factor)
		assert.Equal(t, 2, s.Channels)
		assert.Equal(t, QualityBalanced, s.Quality)
		assert.Equal(t, 256, s.MaxFrames)
	}
}

func TestEffect_ResamplerFactoryError(t *testing.T) {
	boom := errors.New("no resampler")
	e, err := New(Config{
		Channels: 1,
		ResamplerFactory: func(ResamplerSpec) (Resampler, error) {
			return nil, boom
		},
	})
	require.NoError(t, err)
	defer e.Close()

	err = e.Start()
	require.ErrorIs(t, err, ErrConfiguration)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateUnconfigured, e.State())

	// The failed start released the session freeze.
	_, err = e.Set(ParamOversample, 1)
	require.NoError(t, err)
	require.NoError(t, e.Start(), "factor 1 needs no resamplers")
}

func TestEffect_Parameters(t *testing.T) {
	e := newTestEffect(t, 1)

	names := e.Names()
	assert.Contains(t, names, ParamOversample)
	assert.Contains(t, names, PrefixNegative+SuffixClampSmooth)

	d, err := e.Describe(ParamCurve)
	require.NoError(t, err)
	assert.Equal(t, ParamCurve, d.Name)
	assert.True(t, d.Controllable)

	_, err = e.Get("no-such-control")
	require.ErrorIs(t, err, ErrUnknownParameter)
	_, err = e.Set("no-such-control", 1)
	require.ErrorIs(t, err, ErrUnknownParameter)

	stored, err := e.Set(PrefixPositive+SuffixPregain, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 144, stored, 0)

	e.Reset()
	v, err := e.Get(PrefixPositive + SuffixPregain)
	require.NoError(t, err)
	assert.InDelta(t, 20, v, 0)
}

func TestEffect_Preset(t *testing.T) {
	e := newTestEffect(t, 1)
	_, err := e.Set(ParamCurve, float64(Logistic))
	require.NoError(t, err)
	_, err = e.Set(PrefixNegative+SuffixBias, -3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.SavePreset(&buf, "fuzz"))

	e.Reset()
	name, err := e.LoadPreset(&buf)
	require.NoError(t, err)
	assert.Equal(t, "fuzz", name)

	v, err := e.Get(ParamCurve)
	require.NoError(t, err)
	assert.InDelta(t, float64(Logistic), v, 0)
	v, err = e.Get(PrefixNegative + SuffixBias)
	require.NoError(t, err)
	assert.InDelta(t, -3, v, 0)

	_, err = e.LoadPreset(bytes.NewBufferString("values: [1, 2"))
	require.ErrorIs(t, err, ErrInvalidPreset)
}

func TestEffect_Preview(t *testing.T) {
	e := newTestEffect(t, 1)

	var stale atomic.Int32
	cancel := e.OnPreviewStale(func() { stale.Add(1) })
	defer cancel()

	first := e.Preview()
	assert.Equal(t, preview.Render(e.Snapshot()), first)

	_, err := e.Set(ParamPostgain, -20)
	require.NoError(t, err)
	assert.Equal(t, int32(1), stale.Load())

	second := e.Preview()
	assert.NotEqual(t, first, second)
	assert.Equal(t, preview.Render(e.Snapshot()), second)
}

func TestEffect_ConcurrentControl(t *testing.T) {
	e := newTestEffect(t, 2)
	startFixed(t, e, 2, RateDAT)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 500 {
			_, _ = e.Set(PrefixPositive+SuffixPregain, float64(i%72-24))
			_, _ = e.Set(ParamCurve, float64(i%3))
			_, _ = e.Set(ParamSymmetric, float64(i%2))
		}
	}()

	block := make([]float32, 256*2)
	for range 100 {
		copy(block, testutil.Sine(256, 2, 440, RateDAT, 0.8))
		require.NoError(t, e.Process(block))
		testutil.AssertNoNaNOrInf32(t, block)
	}
	<-done
}

func TestEffect_PollingDoesNotDropBlocks(t *testing.T) {
	e := newTestEffect(t, 1)
	startFixed(t, e, 2, RateDAT)

	var stop atomic.Bool
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for !stop.Load() {
			_ = e.State()
			_ = e.Latency()
			_, _ = e.Rates()
			_ = e.Factor()
		}
	}()

	block := make([]float32, 64)
	failed := 0
	for range 5000 {
		if err := e.Process(block); err != nil {
			failed++
		}
	}
	stop.Store(true)
	<-polled

	assert.Zero(t, failed)
}

func TestEffect_Session(t *testing.T) {
	e := newTestEffect(t, 2)
	assert.Equal(t, Session{}, e.Session())

	startFixed(t, e, 4, RateCD)
	s := e.Session()
	assert.Equal(t, StateFixed, s.State)
	assert.Equal(t, 4, s.Factor)
	assert.Equal(t, 2, s.Channels)
	assert.Equal(t, RateCD, s.BaseRate)
	assert.Equal(t, 4*RateCD, s.UpstreamRate())
	assert.InDelta(t, e.Latency(), s.Latency, 0)

	base, upstream := e.Rates()
	assert.Equal(t, s.BaseRate, base)
	assert.Equal(t, s.UpstreamRate(), upstream)
}

func BenchmarkEffectProcess(b *testing.B) {
	for _, factor := range []int{1, 2, 8} {
		b.Run(fmt.Sprintf("x%d", factor), func(b *testing.B) {
			cfg := DefaultConfig()
			e, err := New(cfg)
			if err != nil {
				b.Fatal(err)
			}
			defer e.Close()
			if _, err := e.Set(ParamOversample, float64(factor)); err != nil {
				b.Fatal(err)
			}
			if err := e.Start(); err != nil {
				b.Fatal(err)
			}
			e.HandleQuery(Query{Candidates: []Format{{Rate: Exact(RateDAT), Channels: cfg.Channels}}})

			src := testutil.Sine(DefaultMaxBlockFrames, cfg.Channels, 440, RateDAT, 0.5)
			block := make([]float32, len(src))
			b.ReportAllocs()
			for b.Loop() {
				copy(block, src)
				if err := e.Process(block); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
