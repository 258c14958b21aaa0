package resample

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-audio-waveshaper/internal/filter"
	"github.com/tphakala/go-audio-waveshaper/internal/simdops"
)

// Limits.
const (
	MinFactor = 1
	MaxFactor = 64

	MaxChannels = 256

	// DefaultMaxFrames presizes buffers when no WithMaxFrames option is given.
	DefaultMaxFrames = 1024
)

// ErrInvalidConfig indicates resampler options that cannot be honored.
var ErrInvalidConfig = errors.New("invalid resampler configuration")

// Direction is the rate change performed by a Resampler.
type Direction int

const (
	// Up multiplies the rate by the factor.
	Up Direction = iota
	// Down divides the rate by the factor.
	Down
)

// String returns "up" or "down".
func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Option configures a Resampler.
type Option func(*config)

type config struct {
	quality      Quality
	maxFrames    int
	tapsPerPhase int
	cutoffScale  float64
	kaiserBeta   float64
}

// WithQuality selects a predefined filter profile. Default QualityBest.
func WithQuality(q Quality) Option {
	return func(c *config) {
		c.quality = q
	}
}

// WithMaxFrames presizes internal buffers for blocks of up to n low-rate frames.
// Larger blocks still work but grow the buffers on first use.
func WithMaxFrames(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxFrames = n
		}
	}
}

// WithTapsPerPhase overrides the profile's taps per polyphase branch.
func WithTapsPerPhase(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.tapsPerPhase = n
		}
	}
}

// WithCutoffScale overrides the profile's cutoff, as a fraction in (0, 1] of
// the host Nyquist.
func WithCutoffScale(v float64) Option {
	return func(c *config) {
		if v > 0 && v <= 1 {
			c.cutoffScale = v
		}
	}
}

// WithKaiserBeta overrides the profile's Kaiser window β.
func WithKaiserBeta(beta float64) Option {
	return func(c *config) {
		if beta >= 0 {
			c.kaiserBeta = beta
		}
	}
}

func buildConfig(opts []Option) (config, Profile, error) {
	c := config{quality: QualityBest, maxFrames: DefaultMaxFrames, kaiserBeta: -1}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if !c.quality.Valid() {
		return c, Profile{}, fmt.Errorf("%w: quality %d", ErrInvalidConfig, int(c.quality))
	}

	p := QualityProfile(c.quality)
	if c.tapsPerPhase > 0 {
		p.TapsPerPhase = c.tapsPerPhase
	}
	if c.cutoffScale > 0 {
		p.CutoffScale = c.cutoffScale
	}
	if c.kaiserBeta >= 0 {
		p.KaiserBeta = c.kaiserBeta
	}
	return c, p, nil
}

// stage is the precision-specific filter implementation.
type stage interface {
	process(dst, src []float32) int
	reset()
}

// Resampler changes the rate of interleaved float32 audio by an integer factor.
// It is not safe for concurrent use.
type Resampler struct {
	dir      Direction
	factor   int
	channels int
	quality  Quality
	taps     int
	latency  float64
	stage    stage
}

// NewUpsampler creates an interpolator raising the rate by factor.
func NewUpsampler(factor, channels int, opts ...Option) (*Resampler, error) {
	return newResampler(Up, factor, channels, opts)
}

// NewDownsampler creates a decimator lowering the rate by factor.
func NewDownsampler(factor, channels int, opts ...Option) (*Resampler, error) {
	return newResampler(Down, factor, channels, opts)
}

// New creates a resampler for direction dir.
func New(dir Direction, factor, channels int, opts ...Option) (*Resampler, error) {
	return newResampler(dir, factor, channels, opts)
}

func newResampler(dir Direction, factor, channels int, opts []Option) (*Resampler, error) {
	if factor < MinFactor || factor > MaxFactor {
		return nil, fmt.Errorf("%w: factor %d out of range [%d, %d]", ErrInvalidConfig, factor, MinFactor, MaxFactor)
	}
	if channels < 1 || channels > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels out of range [1, %d]", ErrInvalidConfig, channels, MaxChannels)
	}
	cfg, profile, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	gain := 1.0
	if dir == Up {
		gain = float64(factor)
	}
	bank, err := filter.NewPolyphaseBank(filter.BankParams{
		Factor:       factor,
		TapsPerPhase: profile.TapsPerPhase,
		CutoffScale:  profile.CutoffScale,
		Beta:         profile.KaiserBeta,
		Gain:         gain,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	r := &Resampler{
		dir:      dir,
		factor:   factor,
		channels: channels,
		quality:  cfg.quality,
		taps:     len(bank.Prototype),
		latency:  bank.GroupDelay(),
	}
	if dir == Down {
		// Output n is evaluated at high-rate sample n*factor + factor-1.
		r.latency -= float64(factor - 1)
	}

	switch {
	case dir == Up && profile.DoublePrecision:
		r.stage = newInterpolator[float64](bank, channels, cfg.maxFrames)
	case dir == Up:
		r.stage = newInterpolator[float32](bank, channels, cfg.maxFrames)
	case profile.DoublePrecision:
		r.stage = newDecimator[float64](bank, channels, cfg.maxFrames)
	default:
		r.stage = newDecimator[float32](bank, channels, cfg.maxFrames)
	}
	return r, nil
}

// Process filters src into dst and returns the number of samples written.
//
// For an upsampler src holds n interleaved frames and dst receives n×factor
// frames; for a downsampler src holds n×factor frames and dst receives n.
// Only whole frames that fit in dst are consumed.
func (r *Resampler) Process(dst, src []float32) int {
	return r.stage.process(dst, src)
}

// Reset clears the filter history.
func (r *Resampler) Reset() {
	r.stage.reset()
}

// Factor returns the integer rate factor.
func (r *Resampler) Factor() int {
	return r.factor
}

// Channels returns the interleaved channel count.
func (r *Resampler) Channels() int {
	return r.channels
}

// Direction returns Up or Down.
func (r *Resampler) Direction() Direction {
	return r.dir
}

// Quality returns the configured quality mode.
func (r *Resampler) Quality() Quality {
	return r.quality
}

// Taps returns the prototype filter length.
func (r *Resampler) Taps() int {
	return r.taps
}

// Latency returns the delay in oversampled-rate frames: the filter's group
// delay, less the decimator's phase offset for a downsampler.
func (r *Resampler) Latency() float64 {
	return r.latency
}

// interpolator is a polyphase FIR interpolator with per-channel history.
type interpolator[F simdops.Float] struct {
	ops      *simdops.Ops[F]
	phases   [][]F
	factor   int
	channels int
	taps     int
	work     [][]F
}

func newInterpolator[F simdops.Float](bank *filter.PolyphaseBank, channels, maxFrames int) *interpolator[F] {
	s := &interpolator[F]{
		ops:      simdops.For[F](),
		phases:   make([][]F, bank.NumPhases),
		factor:   bank.NumPhases,
		channels: channels,
		taps:     bank.TapsPerPhase,
		work:     make([][]F, channels),
	}
	for p, coeffs := range bank.Phases {
		s.phases[p] = make([]F, len(coeffs))
		simdops.Convert(s.phases[p], coeffs)
	}
	for c := range s.work {
		s.work[c] = make([]F, s.taps-1+maxFrames)
	}
	return s
}

func (s *interpolator[F]) process(dst, src []float32) int {
	ch := s.channels
	frames := min(len(src)/ch, len(dst)/(ch*s.factor))
	if frames <= 0 {
		return 0
	}

	hist := s.taps - 1
	for c := range ch {
		w := growHistory(&s.work[c], hist, frames)
		for n := range frames {
			w[hist+n] = F(src[n*ch+c])
		}
		for n := range frames {
			win := w[n : n+s.taps]
			base := n * s.factor
			for p, coeffs := range s.phases {
				dst[(base+p)*ch+c] = float32(s.ops.DotProductUnsafe(coeffs, win))
			}
		}
		copy(w, w[frames:frames+hist])
	}
	return frames * s.factor * ch
}

func (s *interpolator[F]) reset() {
	for _, w := range s.work {
		clear(w)
	}
}

// decimator is an FIR decimator evaluating one output per factor inputs.
type decimator[F simdops.Float] struct {
	ops      *simdops.Ops[F]
	coeffs   []F
	factor   int
	channels int
	work     [][]F
}

func newDecimator[F simdops.Float](bank *filter.PolyphaseBank, channels, maxFrames int) *decimator[F] {
	n := len(bank.Prototype)
	s := &decimator[F]{
		ops:      simdops.For[F](),
		coeffs:   make([]F, n),
		factor:   bank.NumPhases,
		channels: channels,
		work:     make([][]F, channels),
	}
	for i, h := range bank.Prototype {
		s.coeffs[n-1-i] = F(h)
	}
	for c := range s.work {
		s.work[c] = make([]F, n-1+maxFrames*s.factor)
	}
	return s
}

func (s *decimator[F]) process(dst, src []float32) int {
	ch := s.channels
	frames := min(len(src)/(ch*s.factor), len(dst)/ch)
	if frames <= 0 {
		return 0
	}

	taps := len(s.coeffs)
	hist := taps - 1
	in := frames * s.factor
	for c := range ch {
		w := growHistory(&s.work[c], hist, in)
		for i := range in {
			w[hist+i] = F(src[i*ch+c])
		}
		for n := range frames {
			start := n*s.factor + s.factor - 1
			dst[n*ch+c] = float32(s.ops.DotProductUnsafe(s.coeffs, w[start:start+taps]))
		}
		copy(w, w[in:in+hist])
	}
	return frames * ch
}

func (s *decimator[F]) reset() {
	for _, w := range s.work {
		clear(w)
	}
}

// growHistory makes *buf hold hist history samples plus n new ones, keeping
// the history.
func growHistory[F simdops.Float](buf *[]F, hist, n int) []F {
	need := hist + n
	if len(*buf) < need {
		grown := make([]F, need)
		copy(grown, (*buf)[:hist])
		*buf = grown
	}
	return *buf
}
