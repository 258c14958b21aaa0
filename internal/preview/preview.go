// Package preview renders the transfer curve as a small ARGB bitmap.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"

	"github.com/tphakala/go-audio-waveshaper/internal/curve"
	"github.com/tphakala/go-audio-waveshaper/internal/param"
)

// Bitmap geometry and colors.
const (
	Width  = 64
	Height = 64

	// Pixels are packed 0xAARRGGBB.
	Transparent uint32 = 0x00000000
	Line        uint32 = 0xFF000000

	// MaxScale bounds the EncodePNG enlargement.
	MaxScale = 32
)

// Bitmap is a Width × Height ARGB image, row-major from the top-left.
type Bitmap struct {
	Width  int
	Height int
	Pixels []uint32
}

// At returns the pixel at column x, row y.
func (b Bitmap) At(x, y int) uint32 {
	return b.Pixels[y*b.Width+x]
}

// Clone returns a deep copy.
func (b Bitmap) Clone() Bitmap {
	out := b
	out.Pixels = append([]uint32(nil), b.Pixels...)
	return out
}

// Image converts the bitmap to an *image.NRGBA.
func (b Bitmap) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := range b.Height {
		for x := range b.Width {
			p := b.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(p >> 16),
				G: uint8(p >> 8),
				B: uint8(p),
				A: uint8(p >> 24),
			})
		}
	}
	return img
}

// EncodePNG writes b as a PNG enlarged by an integer scale with
// nearest-neighbor sampling, keeping the one-pixel line crisp.
func EncodePNG(w io.Writer, b Bitmap, scale int) error {
	if scale < 1 || scale > MaxScale {
		return fmt.Errorf("preview scale %d out of range [1, %d]", scale, MaxScale)
	}
	src := b.Image()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Width*scale, b.Height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	if err := png.Encode(w, dst); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// row maps a curve output to a bitmap row; positive output is up.
func row(v float32) int {
	y := (1 - (float64(v)+1)/2) * (Height - 1)
	// Clamp before converting: float to int conversion of out-of-range
	// values is implementation-defined.
	y = min(max(y, 0), Height-1)
	return int(y)
}

// Render draws the transfer curve of s. Inputs are Width evenly spaced values
// over [-1, 1); column i holds a vertical segment joining outputs i-1 and i.
func Render(s *param.Snapshot) Bitmap {
	b := Bitmap{Width: Width, Height: Height, Pixels: make([]uint32, Width*Height)}

	var data [Width]float32
	for i := range data {
		data[i] = -1 + 2*float32(i)/Width
	}
	curve.ProcessBlock(data[:], s)

	for i := 1; i < Width; i++ {
		y0, y1 := row(data[i-1]), row(data[i])
		for y := min(y0, y1); y <= max(y0, y1); y++ {
			b.Pixels[i+Width*y] = Line
		}
	}
	return b
}

// Renderer caches the preview of a Store and re-renders only after a
// parameter change marks it stale.
type Renderer struct {
	store *param.Store
	stale atomic.Bool

	mu     sync.Mutex
	cached Bitmap

	lmu       sync.Mutex
	listeners map[uint64]func()
	nextID    uint64

	cancel func()
}

// NewRenderer subscribes to store. Call Close to unsubscribe.
func NewRenderer(store *param.Store) *Renderer {
	r := &Renderer{
		store:     store,
		listeners: make(map[uint64]func()),
	}
	r.stale.Store(true)
	r.cancel = store.Subscribe(func(param.Change) { r.invalidate() })
	return r
}

func (r *Renderer) invalidate() {
	r.stale.Store(true)

	r.lmu.Lock()
	fns := make([]func(), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.lmu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Stale reports whether the next Render will redraw.
func (r *Renderer) Stale() bool {
	return r.stale.Load()
}

// OnStale registers fn to run whenever a parameter change invalidates the
// preview. fn runs on the goroutine that changed the parameter.
func (r *Renderer) OnStale(fn func()) (cancel func()) {
	r.lmu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.lmu.Unlock()

	return func() {
		r.lmu.Lock()
		delete(r.listeners, id)
		r.lmu.Unlock()
	}
}

// Render returns the current preview, redrawing it from a fresh snapshot only
// when stale. The returned bitmap is a copy the caller may keep.
func (r *Renderer) Render() Bitmap {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stale.Swap(false) || r.cached.Pixels == nil {
		r.cached = Render(r.store.Snapshot())
	}
	return r.cached.Clone()
}

// Close unsubscribes from the store.
func (r *Renderer) Close() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
