package quantize_test

import (
	"math"
	"testing"

	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/quantize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantize32__Rounding(t *testing.T) {
	q, err := quantize.New(10, 0, quantize.Clamp)
	require.NoError(t, err)

	src := []float32{0.25, 0.05, -0.05, 1.24, -1.26, 0}
	dst := make([]int32, len(src))
	report, err := q.Quantize32(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Clamped)
	assert.Nil(t, report.Flags)

	assert.Equal(t, []int32{3, 1, -1, 12, -13, 0}, dst)
}

func TestQuantize64__HalfAwayFromZero(t *testing.T) {
	q, err := quantize.New(1, 0, quantize.Clamp)
	require.NoError(t, err)
	assert.True(t, q.IsIdentity())

	dst := make([]int64, 4)
	_, err = q.Quantize64([]float64{0.5, -0.5, 2.5, -2.5}, dst)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, -1, 3, -3}, dst)
}

func TestQuantize32__OffsetAndScale(t *testing.T) {
	q, err := quantize.New(20, 273.15, quantize.Clamp)
	require.NoError(t, err)
	assert.False(t, q.IsIdentity())

	src := []float32{273.15, 274.15, 250.0}
	dst := make([]int32, len(src))
	_, err = q.Quantize32(src, dst)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 20, -463}, dst)

	restored := make([]float32, len(src))
	require.NoError(t, q.Dequantize32(dst, restored))
	for i := range src {
		assert.InDelta(t, src[i], restored[i], 0.5/20+1e-4)
	}
}

func TestQuantize32__ClampAndFlag(t *testing.T) {
	q, err := quantize.New(1e6, 0, quantize.Clamp)
	require.NoError(t, err)

	src := []float32{1, 1e6, -1e6, float32(math.Inf(1)), 2}
	dst := make([]int32, len(src))
	report, err := q.Quantize32(src, dst)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Clamped)
	assert.Equal(t, []int32{1_000_000, math.MaxInt32 - 1, math.MinInt32, math.MaxInt32 - 1, 2_000_000}, dst)
	assert.False(t, report.Flagged(0))
	assert.True(t, report.Flagged(1))
	assert.True(t, report.Flagged(2))
	assert.True(t, report.Flagged(3))
	assert.False(t, report.Flagged(4))
}

func TestQuantize64__Extremes(t *testing.T) {
	q, err := quantize.New(1, 0, quantize.Clamp)
	require.NoError(t, err)

	src := []float64{math.MaxFloat64, -math.MaxFloat64, math.Exp2(63), -math.Exp2(63)}
	dst := make([]int64, len(src))
	report, err := q.Quantize64(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Clamped)
	assert.Equal(t, []int64{math.MaxInt64 - 1, math.MinInt64, math.MaxInt64 - 1, math.MinInt64}, dst)
}

func TestQuantize32__Strict(t *testing.T) {
	q, err := quantize.New(1e6, 0, quantize.Strict)
	require.NoError(t, err)

	dst := make([]int32, 3)
	_, err = q.Quantize32([]float32{1, 5000, 2}, dst)
	assert.ErrorIs(t, err, omchunk.ErrOutOfRange)
	assert.Contains(t, err.Error(), "element 1")
}

func TestQuantize__NaNSentinel(t *testing.T) {
	q, err := quantize.New(100, 0, quantize.Strict)
	require.NoError(t, err)

	dst32 := make([]int32, 2)
	report, err := q.Quantize32([]float32{float32(math.NaN()), 1}, dst32)
	require.NoError(t, err, "NaN must not count as out of range")
	assert.Equal(t, 0, report.Clamped)
	assert.Equal(t, quantize.NaN32, dst32[0])

	restored32 := make([]float32, 2)
	require.NoError(t, q.Dequantize32(dst32, restored32))
	assert.True(t, math.IsNaN(float64(restored32[0])))
	assert.Equal(t, float32(1), restored32[1])

	dst64 := make([]int64, 1)
	_, err = q.Quantize64([]float64{math.NaN()}, dst64)
	require.NoError(t, err)
	assert.Equal(t, quantize.NaN64, dst64[0])

	restored64 := make([]float64, 1)
	require.NoError(t, q.Dequantize64(dst64, restored64))
	assert.True(t, math.IsNaN(restored64[0]))
}

func TestNew__InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		scale  float64
		offset float64
	}{
		{"zero scale", 0, 0},
		{"NaN scale", math.NaN(), 0},
		{"infinite scale", math.Inf(-1), 0},
		{"NaN offset", 1, math.NaN()},
		{"infinite offset", 1, math.Inf(1)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := quantize.New(test.scale, test.offset, quantize.Clamp)
			assert.ErrorIs(t, err, omchunk.ErrInvalidConfiguration)
		})
	}
}

func TestQuantize__BufferTooSmall(t *testing.T) {
	q, err := quantize.New(1, 0, quantize.Clamp)
	require.NoError(t, err)

	_, err = q.Quantize32([]float32{1, 2, 3}, make([]int32, 2))
	assert.ErrorIs(t, err, omchunk.ErrBufferTooSmall)

	err = q.Dequantize64([]int64{1, 2, 3}, make([]float64, 2))
	assert.ErrorIs(t, err, omchunk.ErrBufferTooSmall)
}
