package simdops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func naiveDot[F Float](a, b []F) F {
	var sum F
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func TestOps_MatchNaive64(t *testing.T) {
	ops := For[float64]()
	a := make([]float64, 67)
	b := make([]float64, 67)
	for i := range a {
		a[i] = float64(i) * 0.01
		b[i] = float64(67-i) * 0.02
	}

	assert.InDelta(t, naiveDot(a, b), ops.DotProductUnsafe(a, b), 1e-9)
	assert.InDelta(t, 0.01*66*67/2, ops.Sum(a), 1e-9)

	dst := make([]float64, len(a))
	ops.Scale(dst, a, 2)
	assert.InDelta(t, 2*a[10], dst[10], 1e-12)
}

func TestOps_MatchNaive32(t *testing.T) {
	ops := For[float32]()
	a := make([]float32, 33)
	b := make([]float32, 33)
	for i := range a {
		a[i] = float32(i) * 0.25
		b[i] = 0.5
	}

	assert.InDelta(t, float64(naiveDot(a, b)), float64(ops.DotProductUnsafe(a, b)), 1e-3)
	assert.InDelta(t, 0.25*32*33/2, float64(ops.Sum(a)), 1e-3)
}

func TestFor_ReturnsSharedInstances(t *testing.T) {
	assert.Same(t, &ops32, For[float32]())
	assert.Same(t, &ops64, For[float64]())
}

func TestConvert(t *testing.T) {
	src := []float32{0.5, -1, 2}
	dst := make([]float64, 2)
	assert.Equal(t, 2, Convert(dst, src))
	assert.Equal(t, []float64{0.5, -1}, dst)

	back := make([]float32, 3)
	assert.Equal(t, 2, Convert(back, dst))
	assert.Equal(t, []float32{0.5, -1, 0}, back)
}

func BenchmarkDotProduct64(b *testing.B) {
	ops := For[float64]()
	a := make([]float64, 64)
	c := make([]float64, 64)
	for i := range a {
		a[i] = float64(i) * 0.01
		c[i] = float64(i) * 0.02
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = ops.DotProductUnsafe(a, c)
	}
}

func BenchmarkDotProduct32(b *testing.B) {
	ops := For[float32]()
	a := make([]float32, 64)
	c := make([]float32, 64)
	for i := range a {
		a[i] = float32(i) * 0.01
		c[i] = float32(i) * 0.02
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = ops.DotProductUnsafe(a, c)
	}
}
