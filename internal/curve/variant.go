// Package curve implements the sign-aware waveshaping transfer functions.
//
// Every variant maps a non-negative, pregain-scaled magnitude to a shaped
// magnitude. The sign of the input is restored afterwards, so the curves only
// ever see the positive half of the signal.
package curve

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVariant is returned by ParseVariant for unrecognized names.
var ErrUnknownVariant = errors.New("unknown curve variant")

// Variant selects one transfer function.
type Variant int

const (
	// SaturatingExp is 1 - exp(-x/interp), with interp interpolated by the input magnitude.
	SaturatingExp Variant = iota
	// PowerClamp raises x to a power and clamps or smoothly blends toward 1.
	PowerClamp
	// Logistic is a biased sigmoid of x^exponent.
	Logistic
)

var variantNames = [...]string{
	SaturatingExp: "saturating-exp",
	PowerClamp:    "power-clamp",
	Logistic:      "logistic",
}

// String returns the variant's name.
func (v Variant) String() string {
	if v.Valid() {
		return variantNames[v]
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// Valid reports whether v names a known variant.
func (v Variant) Valid() bool {
	return v >= SaturatingExp && v <= Logistic
}

// ParseVariant accepts a variant name ("saturating-exp", "power-clamp",
// "logistic") or its short alias ("exp", "power", "sigmoid").
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "saturating-exp", "exp":
		return SaturatingExp, nil
	case "power-clamp", "power":
		return PowerClamp, nil
	case "logistic", "sigmoid":
		return Logistic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}
