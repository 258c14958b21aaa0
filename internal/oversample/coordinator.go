// Package oversample coordinates the oversampled processing session: format
// negotiation with the host, resampler ownership and the per-block
// upsample, shape, downsample cycle.
package oversample

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-audio-waveshaper/internal/curve"
	"github.com/tphakala/go-audio-waveshaper/internal/logging"
	"github.com/tphakala/go-audio-waveshaper/internal/param"
	"github.com/tphakala/go-audio-waveshaper/internal/resample"
)

var (
	// ErrUnconfigured is returned when processing before Start.
	ErrUnconfigured = fmt.Errorf("%w: no oversample session", param.ErrConfiguration)

	// ErrNotNegotiated is returned when processing before the stream rate is
	// fixed, or while a control-side transition holds the session.
	ErrNotNegotiated = fmt.Errorf("%w: stream format not negotiated", param.ErrConfiguration)

	// ErrSessionActive is returned by Start when a session already exists.
	ErrSessionActive = fmt.Errorf("%w: session already started", param.ErrConfiguration)

	// ErrBlockLayout indicates a block whose length is not a whole number of frames.
	ErrBlockLayout = errors.New("block length is not a multiple of the channel count")
)

// State is the coordinator's negotiation state.
type State int

const (
	// Unconfigured has no factor; processing fails.
	Unconfigured State = iota
	// Negotiating waits for a concrete downstream rate.
	Negotiating
	// Fixed processes blocks at rate × factor.
	Fixed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Negotiating:
		return "negotiating"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resampler is the rate-conversion collaborator driven by the coordinator.
type Resampler interface {
	// Process converts src into dst and returns the samples written.
	Process(dst, src []float32) int
	// Reset clears filter history.
	Reset()
	// Factor returns the integer rate factor.
	Factor() int
	// Latency returns the group delay in oversampled frames.
	Latency() float64
}

// ResamplerSpec describes the resampler a Factory must build.
type ResamplerSpec struct {
	Direction resample.Direction
	Factor    int
	Channels  int
	Quality   resample.Quality
	MaxFrames int
}

// Factory builds a Resampler.
type Factory func(ResamplerSpec) (Resampler, error)

// DefaultFactory builds the Kaiser polyphase resamplers from internal/resample.
func DefaultFactory(spec ResamplerSpec) (Resampler, error) {
	r, err := resample.New(spec.Direction, spec.Factor, spec.Channels,
		resample.WithQuality(spec.Quality),
		resample.WithMaxFrames(spec.MaxFrames))
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Options configures a Coordinator.
type Options struct {
	Factory   Factory
	Quality   resample.Quality
	MaxFrames int
	Logger    logrus.FieldLogger
}

// Session is a consistent view of the session, republished by every
// control-side transition.
type Session struct {
	State    State
	Factor   int // 0 without a session
	Channels int
	BaseRate int // last fixed downstream rate, kept while renegotiating

	// Latency is the combined resampler delay in host-rate frames.
	Latency float64
}

// UpstreamRate returns BaseRate × Factor, or 0 when the rate is not fixed.
func (s Session) UpstreamRate() int {
	if s.State != Fixed {
		return 0
	}
	return s.BaseRate * s.Factor
}

// Coordinator owns the oversample session and both resamplers.
//
// Control-side transitions (Start, HandleQuery, FormatChanged, Stop) take the
// session mutex. Process only ever tries it, so the audio goroutine never
// waits on a transition; a block that loses the race fails with
// ErrNotNegotiated. Getters read the published Session and never touch the
// mutex.
type Coordinator struct {
	mu      sync.Mutex
	session atomic.Pointer[Session]

	state    State
	factor   int
	channels int
	baseRate int

	up   Resampler
	down Resampler
	high []float32

	factory   Factory
	quality   resample.Quality
	maxFrames int
	log       logrus.FieldLogger
}

// New creates an unconfigured coordinator.
func New(opts Options) *Coordinator {
	if opts.Factory == nil {
		opts.Factory = DefaultFactory
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = resample.DefaultMaxFrames
	}
	c := &Coordinator{
		factory:   opts.Factory,
		quality:   opts.Quality,
		maxFrames: opts.MaxFrames,
		log:       logging.OrDiscard(opts.Logger),
	}
	c.publish()
	return c
}

// publish stores the current session facts. Callers hold mu.
func (c *Coordinator) publish() {
	s := &Session{State: c.state, BaseRate: c.baseRate}
	if c.state != Unconfigured {
		s.Factor = c.factor
		s.Channels = c.channels
		if c.up != nil && c.down != nil {
			s.Latency = (c.up.Latency() + c.down.Latency()) / float64(c.factor)
		}
	}
	c.session.Store(s)
}

// Start opens a session with the given factor and channel count, allocating
// resamplers and work buffers. The coordinator then waits in Negotiating.
func (c *Coordinator) Start(factor, channels int) error {
	if factor < param.MinOversample || factor > param.MaxOversample {
		return fmt.Errorf("%w: oversample factor %d out of range [%d, %d]",
			param.ErrConfiguration, factor, param.MinOversample, param.MaxOversample)
	}
	if channels < 1 || channels > resample.MaxChannels {
		return fmt.Errorf("%w: %d channels out of range [1, %d]", param.ErrConfiguration, channels, resample.MaxChannels)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Unconfigured {
		return ErrSessionActive
	}

	var up, down Resampler
	if factor > 1 {
		var err error
		up, err = c.factory(ResamplerSpec{Direction: resample.Up, Factor: factor, Channels: channels, Quality: c.quality, MaxFrames: c.maxFrames})
		if err != nil {
			return fmt.Errorf("%w: create upsampler: %w", param.ErrConfiguration, err)
		}
		down, err = c.factory(ResamplerSpec{Direction: resample.Down, Factor: factor, Channels: channels, Quality: c.quality, MaxFrames: c.maxFrames})
		if err != nil {
			return fmt.Errorf("%w: create downsampler: %w", param.ErrConfiguration, err)
		}
		c.high = make([]float32, c.maxFrames*channels*factor)
	}

	c.up, c.down = up, down
	c.factor = factor
	c.channels = channels
	c.baseRate = 0
	c.state = Negotiating
	c.publish()

	c.log.WithFields(logrus.Fields{
		"factor":   factor,
		"channels": channels,
		"quality":  c.quality.String(),
	}).Info("oversample session started")
	return nil
}

// HandleQuery answers a downstream format query. The first candidate with a
// concrete rate r and a compatible channel count fixes the session at base
// rate r and the response requires r × factor from upstream. Queries without
// such a candidate, or received with no session, are forwarded unchanged.
func (c *Coordinator) HandleQuery(q Query) Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Unconfigured || len(q.Candidates) == 0 {
		return Response{Forwarded: true, Query: q}
	}

	for i, cand := range q.Candidates {
		if !cand.Rate.Concrete() || (cand.Channels != 0 && cand.Channels != c.channels) {
			continue
		}
		rate := cand.Rate.Min
		if c.state == Fixed && rate != c.baseRate {
			c.resetResamplers()
		}
		c.baseRate = rate
		c.state = Fixed
		c.publish()

		out := Format{Rate: Exact(rate * c.factor), Channels: c.channels}
		c.log.WithFields(logrus.Fields{
			"candidate":     i,
			"base_rate":     rate,
			"factor":        c.factor,
			"upstream_rate": out.Rate.Min,
		}).Debug("oversampled rate fixed")
		return Response{Format: out}
	}

	c.log.WithFields(logrus.Fields{
		"candidates": len(q.Candidates),
		"channels":   c.channels,
	}).Debug("no usable concrete rate in query, forwarding")
	return Response{Forwarded: true, Query: q}
}

// FormatChanged reports the downstream's actual base rate. A rate other than
// the fixed session rate resets the resamplers and returns the coordinator to
// Negotiating; the result reports whether renegotiation was requested.
func (c *Coordinator) FormatChanged(rate int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Fixed || rate == c.baseRate {
		return false
	}

	c.log.WithFields(logrus.Fields{
		"old_rate": c.baseRate,
		"new_rate": rate,
		"factor":   c.factor,
	}).Info("format changed, renegotiating")

	c.resetResamplers()
	c.state = Negotiating
	c.publish()
	return true
}

func (c *Coordinator) resetResamplers() {
	if c.up != nil {
		c.up.Reset()
	}
	if c.down != nil {
		c.down.Reset()
	}
}

// Process runs one interleaved block through upsample, curve and downsample
// in place. With factor 1 the curve is applied directly.
func (c *Coordinator) Process(block []float32, snap *param.Snapshot) error {
	if !c.mu.TryLock() {
		return ErrNotNegotiated
	}
	defer c.mu.Unlock()

	switch c.state {
	case Unconfigured:
		return ErrUnconfigured
	case Negotiating:
		return ErrNotNegotiated
	}
	if len(block)%c.channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrBlockLayout, len(block), c.channels)
	}
	if len(block) == 0 {
		return nil
	}

	if c.factor == 1 {
		curve.ProcessBlock(block, snap)
		return nil
	}

	need := len(block) * c.factor
	if len(c.high) < need {
		c.high = make([]float32, need)
	}
	high := c.high[:need]

	c.up.Process(high, block)
	curve.ProcessBlock(high, snap)
	c.down.Process(block, high)
	sanitize(block)
	return nil
}

// sanitize replaces NaN with silence and saturates infinities, which the
// decimation filter can produce from extreme curve outputs.
func sanitize(block []float32) {
	for i, v := range block {
		switch {
		case math.IsNaN(float64(v)):
			block[i] = 0
		case v > math.MaxFloat32:
			block[i] = math.MaxFloat32
		case v < -math.MaxFloat32:
			block[i] = -math.MaxFloat32
		}
	}
}

// Stop ends the session and releases the resamplers.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Unconfigured {
		return
	}
	c.up, c.down, c.high = nil, nil, nil
	c.state = Unconfigured
	c.log.WithField("base_rate", c.baseRate).Info("oversample session stopped")
	c.baseRate = 0
	c.publish()
}

// Session returns the last published session facts.
func (c *Coordinator) Session() Session {
	return *c.session.Load()
}

// State returns the current negotiation state.
func (c *Coordinator) State() State {
	return c.Session().State
}

// Factor returns the session's oversample factor, or 0 with no session.
func (c *Coordinator) Factor() int {
	return c.Session().Factor
}

// BaseRate returns the last fixed downstream rate, or 0.
func (c *Coordinator) BaseRate() int {
	return c.Session().BaseRate
}

// UpstreamRate returns base rate × factor, or 0 when the rate is not fixed.
func (c *Coordinator) UpstreamRate() int {
	return c.Session().UpstreamRate()
}

// Latency returns the combined resampler delay in host-rate frames.
func (c *Coordinator) Latency() float64 {
	return c.Session().Latency
}
