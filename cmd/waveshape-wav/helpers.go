package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	waveshaper "github.com/tphakala/go-audio-waveshaper"
	"github.com/tphakala/go-audio-waveshaper/internal/preview"
)

// wavInputInfo holds validated input file information.
type wavInputInfo struct {
	file        *os.File
	decoder     *wav.Decoder
	rate        int
	channels    int
	bitDepth    int
	totalFrames int64
}

// openWAVInput opens and validates a WAV file, returning format information.
func openWAVInput(path string, log logrus.FieldLogger) (*wavInputInfo, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	if !supportedBitDepth(bitDepth) {
		_ = inputFile.Close()
		return nil, fmt.Errorf("unsupported bit depth %d (want 16, 24 or 32)", bitDepth)
	}

	duration, err := decoder.Duration()
	if err != nil {
		duration = 0
	}
	totalFrames := int64(duration.Seconds() * float64(format.SampleRate))

	log.WithFields(logrus.Fields{
		"rate":      format.SampleRate,
		"channels":  format.NumChannels,
		"bit_depth": bitDepth,
	}).Debug("input format")

	return &wavInputInfo{
		file:        inputFile,
		decoder:     decoder,
		rate:        format.SampleRate,
		channels:    format.NumChannels,
		bitDepth:    bitDepth,
		totalFrames: totalFrames,
	}, nil
}

// Close closes the input file.
func (w *wavInputInfo) Close() error {
	return w.file.Close()
}

func supportedBitDepth(bits int) bool {
	return bits == bitsPerSample16 || bits == bitsPerSample24 || bits == bitsPerSample32
}

// wavOutputWriter wraps the output file and its encoder.
type wavOutputWriter struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

// createWAVOutput creates the output file and a PCM encoder.
func createWAVOutput(path string, sampleRate, bitDepth, channels int) (*wavOutputWriter, error) {
	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &wavOutputWriter{
		file:    outputFile,
		encoder: wav.NewEncoder(outputFile, sampleRate, bitDepth, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// WriteSamples encodes interleaved integer samples.
func (w *wavOutputWriter) WriteSamples(samples []int) error {
	if len(samples) == 0 {
		return nil
	}
	w.buf.Data = samples
	return w.encoder.Write(w.buf)
}

// Close finalizes the WAV header and closes the file.
func (w *wavOutputWriter) Close() error {
	encErr := w.encoder.Close()
	fileErr := w.file.Close()
	return errors.Join(encErr, fileErr)
}

// getMaxValue returns the maximum sample value for the given bit depth.
func getMaxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// intsToFloats normalizes integer PCM into dst.
func intsToFloats(src []int, dst []float32, invMaxVal float64) {
	for i, s := range src {
		dst[i] = float32(float64(s) * invMaxVal)
	}
}

// floatsToInts clamps to [-1, 1] and scales to integer PCM.
func floatsToInts(src []float32, dst []int, maxVal float64) {
	for i, s := range src {
		v := min(max(float64(s), -1), 1)
		dst[i] = int(math.Round(v * maxVal))
	}
}

// setting is one -set name=value flag.
type setting struct {
	name  string
	value float64
}

// settingList collects repeated -set flags.
type settingList []setting

func (s *settingList) String() string {
	parts := make([]string, len(*s))
	for i, st := range *s {
		parts[i] = st.name + "=" + strconv.FormatFloat(st.value, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (s *settingList) Set(v string) error {
	st, err := parseSetting(v)
	if err != nil {
		return err
	}
	*s = append(*s, st)
	return nil
}

// parseSetting parses "name=value". Booleans are accepted as true/false.
func parseSetting(s string) (setting, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	raw = strings.TrimSpace(raw)
	if !ok || name == "" || raw == "" {
		return setting{}, fmt.Errorf("invalid setting %q (want name=value)", s)
	}

	switch strings.ToLower(raw) {
	case "true", "on":
		return setting{name: name, value: 1}, nil
	case "false", "off":
		return setting{name: name, value: 0}, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return setting{}, fmt.Errorf("invalid value in setting %q: %w", s, err)
	}
	return setting{name: name, value: v}, nil
}

// effectOptions are the parameter-related command-line options.
type effectOptions struct {
	preset     string
	curve      string
	oversample int
	settings   settingList
}

// configureEffect applies the preset first, then -curve and -oversample, then
// each -set in command-line order, so later options override earlier ones.
func configureEffect(e *waveshaper.Effect, opts effectOptions, log logrus.FieldLogger) error {
	if opts.preset != "" {
		f, err := os.Open(opts.preset)
		if err != nil {
			return fmt.Errorf("failed to open preset: %w", err)
		}
		name, err := e.LoadPreset(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to load preset %s: %w", opts.preset, err)
		}
		log.WithField("preset", name).Info("preset applied")
	}

	if opts.curve != "" {
		v, err := waveshaper.ParseVariant(opts.curve)
		if err != nil {
			return err
		}
		if _, err := e.Set(waveshaper.ParamCurve, float64(v)); err != nil {
			return err
		}
	}

	if opts.oversample > 0 {
		if _, err := e.Set(waveshaper.ParamOversample, float64(opts.oversample)); err != nil {
			return err
		}
	}

	for _, st := range opts.settings {
		stored, err := e.Set(st.name, st.value)
		if err != nil {
			return err
		}
		if stored != st.value {
			log.WithFields(logrus.Fields{
				"param":     st.name,
				"requested": st.value,
				"stored":    stored,
			}).Warn("value clamped")
		}
	}
	return nil
}

// latencyTrimmer drops the resampler delay from the start of the output.
type latencyTrimmer struct {
	skip int // samples still to drop
}

func (t *latencyTrimmer) trim(block []float32) []float32 {
	n := min(t.skip, len(block))
	t.skip -= n
	return block[n:]
}

// writePreview renders the transfer curve to a PNG file.
func writePreview(path string, b waveshaper.Bitmap, scale int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return preview.EncodePNG(f, b, scale)
}

// progressTracker handles progress reporting.
type progressTracker struct {
	totalFrames  int64
	lastProgress int
	log          logrus.FieldLogger
}

func newProgressTracker(totalFrames int64, log logrus.FieldLogger) *progressTracker {
	return &progressTracker{totalFrames: totalFrames, log: log}
}

// reportIfNeeded logs progress each time another progressInterval percent is done.
func (p *progressTracker) reportIfNeeded(currentFrames int64) {
	if p.totalFrames == 0 {
		return
	}

	progress := int(float64(currentFrames) / float64(p.totalFrames) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		p.log.WithField("percent", progress).Debug("progress")
		p.lastProgress = progress
	}
}
