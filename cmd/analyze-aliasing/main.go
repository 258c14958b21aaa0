// Command analyze-aliasing measures how much of the waveshaper's harmonic
// content folds back below Nyquist at each oversample factor.
//
// A bin-aligned sine is shaped with the chosen curve and the settled output is
// split with an FFT into harmonics of the tone and everything else.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"text/tabwriter"

	waveshaper "github.com/tphakala/go-audio-waveshaper"
	"github.com/tphakala/go-audio-waveshaper/internal/analysis"
)

const (
	// Analysis defaults: a 5.47 kHz tone at 48 kHz, whose fifth harmonic
	// lies above Nyquist.
	defaultFFTSize   = 4096
	defaultBin       = 467
	defaultRate      = 48000
	defaultAmplitude = 0.5
	defaultMaxFactor = 16
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	size      int
	bin       int
	rate      int
	amplitude float64
	maxFactor int
	curve     string
	quality   string
}

func run(args []string, stdout io.Writer) error {
	var o options
	fs := flag.NewFlagSet("analyze-aliasing", flag.ContinueOnError)
	fs.IntVar(&o.size, "n", defaultFFTSize, "FFT size in frames (even)")
	fs.IntVar(&o.bin, "bin", defaultBin, "FFT bin of the test tone")
	fs.IntVar(&o.rate, "rate", defaultRate, "Host sample rate in Hz")
	fs.Float64Var(&o.amplitude, "amp", defaultAmplitude, "Test tone amplitude")
	fs.IntVar(&o.maxFactor, "max-factor", defaultMaxFactor, "Largest oversample factor (powers of two up to it)")
	fs.StringVar(&o.curve, "curve", "saturating-exp", "Curve variant")
	fs.StringVar(&o.quality, "quality", "best", "Resampler quality: fast, balanced, best")
	if err := fs.Parse(args); err != nil {
		return err
	}

	variant, err := waveshaper.ParseVariant(o.curve)
	if err != nil {
		return err
	}
	q, err := waveshaper.ParseQuality(o.quality)
	if err != nil {
		return err
	}
	if o.maxFactor < 1 || o.maxFactor > waveshaper.MaxOversample {
		return fmt.Errorf("max factor %d out of range [1, %d]", o.maxFactor, waveshaper.MaxOversample)
	}

	freq := float64(o.bin) * float64(o.rate) / float64(o.size)
	fmt.Fprintf(stdout, "=== Aliasing of %s (%s filters) ===\n", variant, q)
	fmt.Fprintf(stdout, "Tone: %.1f Hz at %d Hz, amplitude %.2f, FFT %d\n\n", freq, o.rate, o.amplitude, o.size)

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "factor\tharmonics\talias ratio (dB)\t")
	for factor := 1; factor <= o.maxFactor; factor *= 2 {
		r, err := measure(o, variant, q, factor, freq)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%d\t%.1f\t\n", factor, len(r.Harmonics), r.AliasRatioDB)
	}
	return tw.Flush()
}

// measure shapes two periods of the analysis window and analyzes the second.
func measure(o options, variant waveshaper.Variant, q waveshaper.Quality, factor int, freq float64) (analysis.Report, error) {
	in := make([]float32, 2*o.size)
	for i := range in {
		in[i] = float32(o.amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(o.rate)))
	}

	cfg := waveshaper.DefaultConfig()
	cfg.Channels = 1
	cfg.Quality = q
	out, err := waveshaper.Shape(in, o.rate, cfg, map[string]float64{
		waveshaper.ParamOversample: float64(factor),
		waveshaper.ParamCurve:      float64(variant),
	})
	if err != nil {
		return analysis.Report{}, err
	}
	return analysis.MeasureAliasing(analysis.Float64s(out[o.size:], 0, 1), o.bin)
}
