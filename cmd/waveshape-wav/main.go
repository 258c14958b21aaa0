// Command waveshape-wav runs WAV audio files through the waveshaping effect.
//
// Usage:
//
//	waveshape-wav input.wav output.wav
//	waveshape-wav -curve power-clamp -oversample 8 input.wav output.wav
//	waveshape-wav -preset crunch.yaml -set pos-db-pregain=30 input.wav output.wav
//	waveshape-wav -preview curve.png -v input.wav output.wav
//
// The output keeps the input's rate, channel count and bit depth. The
// resampler delay is removed, so output frame i corresponds to input frame i.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/go-audio/audio"
	"github.com/sirupsen/logrus"
	"github.com/tphakala/simd/cpu"

	waveshaper "github.com/tphakala/go-audio-waveshaper"
	"github.com/tphakala/go-audio-waveshaper/internal/logging"
)

const (
	// Frames per processing block.
	defaultBlockFrames = 4096

	// Sample format constants
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// Conversion constants
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	// WAV audio format tag for integer PCM.
	wavFormatPCM = 1

	progressInterval = 10 // Log progress every N%
	percentScale     = 100
	minRequiredArgs  = 2

	defaultPreviewScale = 4
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts effectOptions
	flag.StringVar(&opts.curve, "curve", "", "Curve variant: saturating-exp, power-clamp, logistic")
	flag.IntVar(&opts.oversample, "oversample", 0, "Oversample factor 1-64 (0 keeps the preset or default)")
	flag.StringVar(&opts.preset, "preset", "", "YAML preset file applied before other options")
	flag.Var(&opts.settings, "set", "Set a parameter as name=value (repeatable)")
	quality := flag.String("quality", "best", "Resampler quality: fast, balanced, best")
	blockFrames := flag.Int("block", defaultBlockFrames, "Frames per processing block")
	previewPath := flag.String("preview", "", "Write the transfer-curve preview to this PNG file")
	previewScale := flag.Int("preview-scale", defaultPreviewScale, "Preview enlargement factor")
	verbose := flag.Bool("v", false, "Verbose output (same as -log-level debug)")
	logLevel := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	cpuprofile := flag.String("cpuprofile", "", "Write CPU profile to file")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s in.wav out.wav                               # Default drive, 2x oversampling\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -curve logistic -oversample 8 in.wav out.wav # Sigmoid at 8x\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -set pos-db-pregain=36 in.wav out.wav        # Heavier drive\n", os.Args[0])
		return fmt.Errorf("insufficient arguments")
	}

	if *verbose {
		*logLevel = "debug"
	}
	logger, err := logging.New(os.Stderr, *logLevel)
	if err != nil {
		return err
	}

	q, err := waveshaper.ParseQuality(*quality)
	if err != nil {
		return err
	}
	if *blockFrames < 1 {
		return fmt.Errorf("block size must be positive, got %d", *blockFrames)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	inputPath, outputPath := args[0], args[1]
	logger.WithFields(logrus.Fields{
		"input":   inputPath,
		"output":  outputPath,
		"quality": q.String(),
		"simd":    cpu.Info(),
	}).Debug("starting")

	start := time.Now()
	stats, err := shapeWAV(inputPath, outputPath, shapeParams{
		effect:       opts,
		quality:      q,
		blockFrames:  *blockFrames,
		previewPath:  *previewPath,
		previewScale: *previewScale,
	}, logger)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("Shaped %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	fmt.Printf("  %d Hz, %d channels, %d-bit, oversample %dx (%s)\n",
		stats.rate, stats.channels, stats.bitDepth, stats.factor, q)
	fmt.Printf("  %d frames, latency compensated: %d frames\n", stats.frames, stats.latencyFrames)
	fmt.Printf("  Duration: %.2fs, Speed: %.1fx realtime, %.0f samples/s in effect\n",
		elapsed.Seconds(),
		float64(stats.frames)/float64(stats.rate)/elapsed.Seconds(),
		stats.effect.SamplesPerSecond())

	return nil
}

type shapeParams struct {
	effect       effectOptions
	quality      waveshaper.Quality
	blockFrames  int
	previewPath  string
	previewScale int
}

type shapeStats struct {
	rate          int
	channels      int
	bitDepth      int
	factor        int
	frames        int64
	latencyFrames int
	effect        waveshaper.Stats
}

func shapeWAV(inputPath, outputPath string, p shapeParams, logger *logrus.Logger) (stats *shapeStats, err error) {
	// 1. Open and validate input
	input, err := openWAVInput(inputPath, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	// 2. Build and configure the effect
	e, err := waveshaper.New(waveshaper.Config{
		Channels:       input.channels,
		MaxBlockFrames: p.blockFrames,
		Quality:        p.quality,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	defer e.Close()

	if err := configureEffect(e, p.effect, logger); err != nil {
		return nil, err
	}

	if p.previewPath != "" {
		if err := writePreview(p.previewPath, e.Preview(), p.previewScale); err != nil {
			return nil, err
		}
		logger.WithField("path", p.previewPath).Info("preview written")
	}

	// 3. Open the session at the file's rate
	if err := e.Start(); err != nil {
		return nil, err
	}
	resp := e.HandleQuery(waveshaper.Query{Candidates: []waveshaper.Format{
		{Rate: waveshaper.Exact(input.rate), Channels: input.channels},
	}})
	if resp.Forwarded {
		return nil, fmt.Errorf("%w: rate %d Hz", waveshaper.ErrNotNegotiated, input.rate)
	}
	base, upstream := e.Rates()
	logger.WithFields(logrus.Fields{
		"base_rate":     base,
		"internal_rate": upstream,
		"factor":        e.Factor(),
	}).Debug("session ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.ReportStats(ctx, 0)

	// 4. Create output writer
	output, err := createWAVOutput(outputPath, input.rate, input.bitDepth, input.channels)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := output.Close(); err == nil {
			err = closeErr
		}
	}()

	// 5. Buffers
	channels := input.channels
	maxVal := getMaxValue(input.bitDepth)
	invMaxVal := 1.0 / maxVal
	blockLen := p.blockFrames * channels

	inBuf := &audio.IntBuffer{Data: make([]int, blockLen)}
	block := make([]float32, blockLen)
	outInts := make([]int, blockLen)

	latency := int(math.Round(e.Latency()))
	trimmer := &latencyTrimmer{skip: latency * channels}

	stats = &shapeStats{
		rate:          input.rate,
		channels:      channels,
		bitDepth:      input.bitDepth,
		factor:        e.Factor(),
		latencyFrames: latency,
	}
	progress := newProgressTracker(input.totalFrames, logger)

	emit := func(n int) error {
		if err := e.Process(block[:n]); err != nil {
			return err
		}
		out := trimmer.trim(block[:n])
		floatsToInts(out, outInts, maxVal)
		if err := output.WriteSamples(outInts[:len(out)]); err != nil {
			return fmt.Errorf("failed to write audio data: %w", err)
		}
		return nil
	}

	// 6. Main processing loop
	for {
		n, err := input.decoder.PCMBuffer(inBuf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		n -= n % channels
		if n == 0 {
			break
		}

		intsToFloats(inBuf.Data[:n], block, invMaxVal)
		if err := emit(n); err != nil {
			return nil, err
		}

		stats.frames += int64(n / channels)
		progress.reportIfNeeded(stats.frames)
	}

	// 7. Flush the delayed tail with silence
	for pad := latency * channels; pad > 0; {
		n := min(pad, blockLen)
		clear(block[:n])
		if err := emit(n); err != nil {
			return nil, err
		}
		pad -= n
	}

	stats.effect = e.Stats()
	logger.WithFields(logrus.Fields{
		"blocks":          stats.effect.Blocks,
		"samples":         stats.effect.Samples,
		"samples_per_sec": int64(stats.effect.SamplesPerSecond()),
	}).Debug("processing finished")
	return stats, nil
}
