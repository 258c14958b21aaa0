// Package waveshaper provides a real-time waveshaping distortion effect in pure Go.
//
// Each sample passes through a memoryless transfer curve: a saturating
// exponential, a power law with a soft clamp, or a logistic sigmoid. Because
// the curve creates harmonics well above the input band, the effect runs it at
// an integer multiple of the host rate: blocks are upsampled with a Kaiser
// polyphase interpolator, shaped, and decimated back with a matching filter.
//
// # Features
//
//   - Three curve variants with independent positive and negative half-wave
//     parameters
//   - Oversampling factors 1 to 64 with fast, balanced and best filter profiles
//   - Lock-free parameter reads on the audio path (atomic snapshot handoff)
//   - Host format negotiation: the effect requests rate × factor upstream
//   - A 64 × 64 transfer-curve preview that re-renders only after changes
//   - YAML parameter presets
//   - Optional SIMD acceleration via github.com/tphakala/simd
//
// # Quick Start
//
//	e, err := waveshaper.New(waveshaper.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	// Construction-only controls are set before Start.
//	if _, err := e.Set(waveshaper.ParamOversample, 8); err != nil {
//	    log.Fatal(err)
//	}
//	if err := e.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// The host proposes its rate; the effect asks for 8 × 48000 upstream.
//	resp := e.HandleQuery(waveshaper.Query{
//	    Candidates: []waveshaper.Format{{Rate: waveshaper.Exact(48000), Channels: 2}},
//	})
//	_ = resp
//
//	for block := range hostBlocks {
//	    if err := e.Process(block); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// For offline use, [Shape] runs a whole interleaved buffer through a
// temporary session.
//
// # Parameters
//
// Controls are addressed by name ([Effect.Names] lists them). Shared controls
// are "oversample", "curve", "symmetric" and "db-postgain"; each half-wave
// has "db-pregain", "shape-a", "shape-b", "shape-exp", "power", "clamp",
// "clamp-smooth", "scale", "bias" and "exponent" behind a "pos-" or "neg-"
// prefix. With "symmetric" set the positive half-wave drives both polarities.
//
// Out-of-range values are clamped, never rejected. "oversample" is fixed for
// the lifetime of a session.
//
// # Thread Safety
//
// Set, Get, the preview and the negotiation calls may run on any goroutine.
// Process and ProcessBuffer must be called from a single audio goroutine;
// they never block on a control-side transition and return
// [ErrNotNegotiated] instead. State, Factor, Rates, Latency and
// [Effect.Session] read a published snapshot and never hold up Process.
package waveshaper
