package waveshaper

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-audio-waveshaper/internal/curve"
	"github.com/tphakala/go-audio-waveshaper/internal/oversample"
	"github.com/tphakala/go-audio-waveshaper/internal/param"
	"github.com/tphakala/go-audio-waveshaper/internal/resample"
)

// Errors returned by the effect. All configuration failures wrap
// ErrConfiguration and can be matched with errors.Is.
var (
	// ErrConfiguration indicates a fatal session configuration problem.
	ErrConfiguration = param.ErrConfiguration

	// ErrInvalidConfig indicates an invalid Config passed to New.
	ErrInvalidConfig = fmt.Errorf("%w: invalid effect configuration", param.ErrConfiguration)

	// ErrUnconfigured is returned when processing before Start.
	ErrUnconfigured = oversample.ErrUnconfigured

	// ErrNotNegotiated is returned when processing before the stream rate is fixed.
	ErrNotNegotiated = oversample.ErrNotNegotiated

	// ErrSessionActive is returned by Start when the effect is already running.
	ErrSessionActive = oversample.ErrSessionActive

	// ErrBlockLayout indicates a block that is not a whole number of frames.
	ErrBlockLayout = oversample.ErrBlockLayout

	// ErrUnknownParameter indicates a parameter name that does not exist.
	ErrUnknownParameter = param.ErrUnknownParameter

	// ErrInvalidPreset indicates a preset document that cannot be applied.
	ErrInvalidPreset = param.ErrInvalidPreset

	// ErrUnknownVariant is returned by ParseVariant for unrecognized curve names.
	ErrUnknownVariant = curve.ErrUnknownVariant

	// ErrUnknownQuality is returned by ParseQuality for unrecognized names.
	ErrUnknownQuality = resample.ErrUnknownQuality

	// ErrBufferAcquisition indicates a host buffer that could not be mapped.
	ErrBufferAcquisition = errors.New("failed to map audio buffer")
)
