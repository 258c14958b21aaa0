package oversample

import "fmt"

// RateRange is a sample rate or a range of acceptable rates.
type RateRange struct {
	Min int
	Max int
}

// Exact returns a concrete rate.
func Exact(rate int) RateRange {
	return RateRange{Min: rate, Max: rate}
}

// Range returns a span of acceptable rates.
func Range(lo, hi int) RateRange {
	return RateRange{Min: lo, Max: hi}
}

// Concrete reports whether the range names exactly one positive rate.
func (r RateRange) Concrete() bool {
	return r.Min > 0 && r.Min == r.Max
}

// String formats the rate as "44100" or "[8000, 192000]".
func (r RateRange) String() string {
	if r.Min == r.Max {
		return fmt.Sprintf("%d", r.Min)
	}
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

// Format is one candidate stream format. Channels 0 means any.
type Format struct {
	Rate     RateRange
	Channels int
}

// Query is a downstream proposal of acceptable formats, most preferred first.
type Query struct {
	Candidates []Format
}

// Response answers a Query.
type Response struct {
	// Forwarded is set when the coordinator had nothing to decide; Query is
	// then the unmodified input and should be passed upstream as is.
	Forwarded bool
	Query     Query

	// Format is the fixed format required from upstream when not forwarded.
	Format Format
}
