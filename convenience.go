package waveshaper

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// Shape runs interleaved samples through a temporary session at the given
// host rate and returns the shaped copy. settings are applied by name before
// the session starts, so they may include "oversample".
//
// The resampler delay is compensated: output frame i corresponds to input
// frame i.
func Shape(samples []float32, rate int, cfg Config, settings map[string]float64) ([]float32, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive", ErrInvalidConfig)
	}

	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	channels := e.Channels()
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples, %d channels", ErrBlockLayout, len(samples), channels)
	}

	for _, name := range slices.Sorted(maps.Keys(settings)) {
		if _, err := e.Set(name, settings[name]); err != nil {
			return nil, err
		}
	}

	if err := e.Start(); err != nil {
		return nil, err
	}
	resp := e.HandleQuery(Query{Candidates: []Format{{Rate: Exact(rate), Channels: channels}}})
	if resp.Forwarded {
		return nil, fmt.Errorf("%w: rate %d was not accepted", ErrNotNegotiated, rate)
	}

	// Pad with silence to flush the delayed tail, then drop the leading delay.
	delay := int(math.Round(e.Latency())) * channels
	out := make([]float32, len(samples)+delay)
	copy(out, samples)

	chunk := e.cfg.MaxBlockFrames * channels
	for off := 0; off < len(out); off += chunk {
		end := min(off+chunk, len(out))
		if err := e.Process(out[off:end]); err != nil {
			return nil, err
		}
	}

	return out[delay:], nil
}
