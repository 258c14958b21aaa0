// Command waveshape-preview renders the transfer curve of a parameter set to
// a PNG image, or lists the available parameters.
//
// Usage:
//
//	waveshape-preview -o curve.png
//	waveshape-preview -curve logistic -set pos-bias=2 -scale 8 -o curve.png
//	waveshape-preview -preset crunch.yaml -o crunch.png
//	waveshape-preview -list
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	waveshaper "github.com/tphakala/go-audio-waveshaper"
	"github.com/tphakala/go-audio-waveshaper/internal/logging"
	"github.com/tphakala/go-audio-waveshaper/internal/preview"
)

const defaultScale = 8

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// setFlags collects repeated -set name=value flags.
type setFlags []string

func (s *setFlags) String() string     { return strings.Join(*s, ",") }
func (s *setFlags) Set(v string) error { *s = append(*s, v); return nil }

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("waveshape-preview", flag.ContinueOnError)
	out := fs.String("o", "curve.png", "Output PNG file")
	curveName := fs.String("curve", "", "Curve variant: saturating-exp, power-clamp, logistic")
	presetPath := fs.String("preset", "", "YAML preset file applied before -curve and -set")
	scale := fs.Int("scale", defaultScale, "Enlargement factor of the 64x64 preview")
	list := fs.Bool("list", false, "List parameters and exit")
	logLevel := fs.String("log-level", "warn", "Log level: trace, debug, info, warn, error")
	var sets setFlags
	fs.Var(&sets, "set", "Set a parameter as name=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, *logLevel)
	if err != nil {
		return err
	}
	cfg := waveshaper.DefaultConfig()
	cfg.Logger = logger
	e, err := waveshaper.New(cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	if *list {
		return listParameters(e, stdout)
	}

	if *presetPath != "" {
		f, err := os.Open(*presetPath)
		if err != nil {
			return fmt.Errorf("failed to open preset: %w", err)
		}
		_, err = e.LoadPreset(f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	if *curveName != "" {
		v, err := waveshaper.ParseVariant(*curveName)
		if err != nil {
			return err
		}
		if _, err := e.Set(waveshaper.ParamCurve, float64(v)); err != nil {
			return err
		}
	}
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("invalid setting %q (want name=value)", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("invalid value in setting %q: %w", s, err)
		}
		if _, err := e.Set(strings.TrimSpace(name), v); err != nil {
			return err
		}
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := preview.EncodePNG(f, e.Preview(), *scale); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	v, _ := e.Get(waveshaper.ParamCurve)
	fmt.Fprintf(stdout, "Wrote %s (%dx%d, curve %s)\n", *out,
		preview.Width*(*scale), preview.Height*(*scale), waveshaper.Variant(int(v)))
	return nil
}

// listParameters prints the parameter table.
func listParameters(e *waveshaper.Effect, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tMIN\tMAX\tDEFAULT\tDESCRIPTION")
	for _, name := range e.Names() {
		d, err := e.Describe(name)
		if err != nil {
			return err
		}
		desc := d.Description
		if !d.Controllable {
			desc += " (fixed per session)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\t%s\n", d.Name, d.Kind, d.Min, d.Max, d.Default, desc)
	}
	return tw.Flush()
}
