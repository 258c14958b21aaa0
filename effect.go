package waveshaper

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-audio-waveshaper/internal/logging"
	"github.com/tphakala/go-audio-waveshaper/internal/oversample"
	"github.com/tphakala/go-audio-waveshaper/internal/param"
	"github.com/tphakala/go-audio-waveshaper/internal/preview"
)

// Buffer is a host-owned audio block that must be mapped before access.
type Buffer interface {
	// Map returns the interleaved samples for in-place processing.
	Map() ([]float32, error)
	// Unmap releases the mapping obtained from Map.
	Unmap()
}

// Effect is a waveshaping distortion instance: a parameter store, an
// oversampling session and a cached curve preview.
type Effect struct {
	cfg   Config
	log   logrus.FieldLogger
	store *param.Store
	coord *oversample.Coordinator
	prev  *preview.Renderer
	stats counters
}

// New creates an effect with every parameter at its default. The effect
// starts unconfigured; call Start before processing.
func New(cfg Config) (*Effect, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxBlockFrames == 0 {
		cfg.MaxBlockFrames = DefaultMaxBlockFrames
	}

	log := logging.OrDiscard(cfg.Logger)
	store := param.NewStore(log)

	e := &Effect{
		cfg:   cfg,
		log:   log,
		store: store,
		coord: oversample.New(oversample.Options{
			Factory:   cfg.ResamplerFactory,
			Quality:   cfg.Quality,
			MaxFrames: cfg.MaxBlockFrames,
			Logger:    log,
		}),
		prev: preview.NewRenderer(store),
	}

	log.WithFields(logrus.Fields{
		"channels":         cfg.Channels,
		"max_block_frames": cfg.MaxBlockFrames,
		"quality":          cfg.Quality.String(),
	}).Debug("waveshaper created")
	return e, nil
}

// Start opens a processing session using the current "oversample" value,
// which stays fixed until Stop. The effect then waits for HandleQuery to fix
// the stream rate.
func (e *Effect) Start() error {
	snap := e.store.BeginSession()
	if err := e.coord.Start(snap.Oversample, e.cfg.Channels); err != nil {
		if !errors.Is(err, ErrSessionActive) {
			e.store.EndSession()
		}
		return err
	}
	e.stats.reset()
	return nil
}

// HandleQuery answers a downstream format query. See [Response] for the
// forwarded and fixed outcomes.
func (e *Effect) HandleQuery(q Query) Response {
	return e.coord.HandleQuery(q)
}

// FormatChanged reports the host's actual stream rate. It returns true when
// the rate differs from the negotiated one and renegotiation is required.
func (e *Effect) FormatChanged(rate int) bool {
	return e.coord.FormatChanged(rate)
}

// Process shapes one interleaved block in place. All samples of the block
// see the same parameter snapshot.
func (e *Effect) Process(block []float32) error {
	start := time.Now()
	if err := e.coord.Process(block, e.store.Snapshot()); err != nil {
		return err
	}
	e.stats.record(len(block), time.Since(start))
	return nil
}

// ProcessBuffer maps b, processes it in place and unmaps it.
func (e *Effect) ProcessBuffer(b Buffer) error {
	block, err := b.Map()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBufferAcquisition, err)
	}
	defer b.Unmap()

	return e.Process(block)
}

// Stop ends the session, releasing the resamplers and unfreezing "oversample".
func (e *Effect) Stop() {
	e.coord.Stop()
	e.store.EndSession()
}

// Close stops the effect and detaches the preview from the parameter store.
func (e *Effect) Close() {
	e.Stop()
	e.prev.Close()
}

// State returns the negotiation state.
func (e *Effect) State() State {
	return e.coord.State()
}

// Session returns the negotiation state, factor, rates and latency as one
// consistent view. It never blocks Process.
func (e *Effect) Session() Session {
	return e.coord.Session()
}

// Factor returns the session's oversample factor, or 0 when stopped.
func (e *Effect) Factor() int {
	return e.coord.Factor()
}

// Rates returns the negotiated host rate and the rate requested upstream.
// Both are 0 until the format is fixed.
func (e *Effect) Rates() (base, upstream int) {
	s := e.coord.Session()
	upstream = s.UpstreamRate()
	if upstream == 0 {
		return 0, 0
	}
	return s.BaseRate, upstream
}

// Latency returns the delay the resamplers add, in host-rate frames.
func (e *Effect) Latency() float64 {
	return e.coord.Latency()
}

// Channels returns the configured channel count.
func (e *Effect) Channels() int {
	return e.cfg.Channels
}

// Names lists every parameter name in table order.
func (e *Effect) Names() []string {
	return e.store.Names()
}

// Describe returns the descriptor of a parameter.
func (e *Effect) Describe(name string) (Descriptor, error) {
	return e.store.Describe(name)
}

// Get returns the current value of a parameter.
func (e *Effect) Get(name string) (float64, error) {
	return e.store.Get(name)
}

// Set clamps v into the parameter's range, stores it and returns the stored
// value. Changing "oversample" during a session fails with ErrConfiguration.
func (e *Effect) Set(name string, v float64) (float64, error) {
	return e.store.Set(name, v)
}

// Reset restores every parameter default, except "oversample" during a session.
func (e *Effect) Reset() {
	e.store.Reset()
}

// Snapshot returns the current parameter snapshot. It must not be modified.
func (e *Effect) Snapshot() *Snapshot {
	return e.store.Snapshot()
}

// LoadPreset applies a YAML preset and returns its name.
func (e *Effect) LoadPreset(r io.Reader) (string, error) {
	return e.store.LoadPreset(r)
}

// SavePreset writes the current parameters as a YAML preset.
func (e *Effect) SavePreset(w io.Writer, name string) error {
	return e.store.SavePreset(w, name)
}

// Preview returns the 64 × 64 transfer-curve bitmap, re-rendered only when a
// parameter changed since the last call.
func (e *Effect) Preview() Bitmap {
	return e.prev.Render()
}

// OnPreviewStale registers fn to run after each parameter change that
// invalidates the preview. The returned func unregisters it.
func (e *Effect) OnPreviewStale(fn func()) (cancel func()) {
	return e.prev.OnStale(fn)
}
