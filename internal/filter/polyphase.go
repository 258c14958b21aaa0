package filter

import (
	"fmt"
)

const (
	minNumPhases = 1
	maxNumPhases = 64
)

// PolyphaseBank is an integer-ratio polyphase decomposition of a lowpass
// prototype.
//
// Phase p holds prototype taps h[p], h[p+L], h[p+2L], ... stored in reverse
// order, so that phase output is a forward dot product against a history
// window whose last element is the newest input sample.
type PolyphaseBank struct {
	// Phases holds NumPhases reversed coefficient slices of TapsPerPhase each.
	Phases [][]float64

	// Prototype is the undecomposed filter.
	Prototype []float64

	NumPhases    int
	TapsPerPhase int
}

// BankParams describes a polyphase bank for an integer rate factor.
type BankParams struct {
	// Factor is the rate ratio L; the bank has L phases.
	Factor int

	// TapsPerPhase is the length of every phase.
	TapsPerPhase int

	// CutoffScale places the cutoff at CutoffScale × the low-rate Nyquist.
	CutoffScale float64

	// Beta is the Kaiser window parameter.
	Beta float64

	// Gain is the prototype DC gain. Interpolators use Factor to make up for
	// the zeros inserted between input samples.
	Gain float64
}

// NewPolyphaseBank designs a prototype of Factor × TapsPerPhase taps at the
// high rate and splits it into Factor phases.
func NewPolyphaseBank(p BankParams) (*PolyphaseBank, error) {
	if p.Factor < minNumPhases || p.Factor > maxNumPhases {
		return nil, fmt.Errorf("%w: factor %d out of range [%d, %d]", ErrInvalidParams, p.Factor, minNumPhases, maxNumPhases)
	}
	if p.TapsPerPhase < 1 {
		return nil, fmt.Errorf("%w: %d taps per phase", ErrInvalidParams, p.TapsPerPhase)
	}
	if p.CutoffScale <= 0 || p.CutoffScale > 1 {
		return nil, fmt.Errorf("%w: cutoff scale %g (must be in (0, 1])", ErrInvalidParams, p.CutoffScale)
	}

	numTaps := p.Factor * p.TapsPerPhase
	proto, err := LowPass(Params{
		NumTaps: numTaps,
		Cutoff:  min(0.5*p.CutoffScale/float64(p.Factor), 0.49),
		Beta:    p.Beta,
		Gain:    p.Gain,
	})
	if err != nil {
		return nil, fmt.Errorf("design prototype: %w", err)
	}

	bank := &PolyphaseBank{
		Phases:       make([][]float64, p.Factor),
		Prototype:    proto,
		NumPhases:    p.Factor,
		TapsPerPhase: p.TapsPerPhase,
	}
	for phase := range bank.Phases {
		coeffs := make([]float64, p.TapsPerPhase)
		for j := range coeffs {
			coeffs[p.TapsPerPhase-1-j] = proto[phase+j*p.Factor]
		}
		bank.Phases[phase] = coeffs
	}
	return bank, nil
}

// GroupDelay returns the prototype's delay in high-rate samples.
func (b *PolyphaseBank) GroupDelay() float64 {
	return float64(len(b.Prototype)-1) / 2
}
