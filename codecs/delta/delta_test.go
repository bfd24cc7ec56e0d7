package delta_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/codecs/delta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode2D__Basic(t *testing.T) {
	buffer := []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	require.NoError(t, delta.Decode2D(2, 5, buffer))
	assert.Equal(t, []int16{1, 2, 3, 4, 5, 7, 9, 11, 13, 15}, buffer)
}

func TestEncode2D__Basic(t *testing.T) {
	buffer := []int16{1, 2, 3, 4, 5, 7, 9, 11, 13, 15}
	require.NoError(t, delta.Encode2D(2, 5, buffer))
	assert.Equal(t, []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, buffer)
}

func TestDelta2D__RoundTrip(t *testing.T) {
	buffer := []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	require.NoError(t, delta.Decode2D(2, 5, buffer))
	require.NoError(t, delta.Encode2D(2, 5, buffer))
	assert.Equal(t, []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, buffer)
}

// Overflow must wrap the same way in both directions, so extreme values
// survive a round trip.
func TestDelta2D__RoundTripWraps(t *testing.T) {
	original := []int8{127, -128, 0, -128, 127, 1, 5, -7, 100}
	buffer := append([]int8(nil), original...)

	require.NoError(t, delta.Encode2D(3, 3, buffer))
	require.NoError(t, delta.Decode2D(3, 3, buffer))
	assert.Equal(t, original, buffer)
}

func TestDelta2D__RoundTripRandom(t *testing.T) {
	rows, cols := 17, 23
	original := make([]uint64, rows*cols)
	for i := range original {
		original[i] = rand.Uint64()
	}
	buffer := append([]uint64(nil), original...)

	require.NoError(t, delta.Encode2D(rows, cols, buffer))
	assert.NotEqual(t, original, buffer)
	require.NoError(t, delta.Decode2D(rows, cols, buffer))
	assert.Equal(t, original, buffer)
}

func TestDecodeXor2D32__Basic(t *testing.T) {
	buffer := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	require.NoError(t, delta.DecodeXor2D32(2, 5, buffer))

	assert.Equal(t, []float32{1, 2, 3, 4, 5}, buffer[:5])
	expectedBits := []uint32{0x7f400000, 0x00e00000, 0x01400000, 0x01900000, 0x01800000}
	for i, bits := range expectedBits {
		assert.Equalf(t, bits, math.Float32bits(buffer[5+i]), "element %d is wrong", 5+i)
	}
	assert.Equal(t, float32(2.5521178e38), buffer[5])
	assert.Equal(t, float32(4.7019774e-38), buffer[9])
}

func TestEncodeXor2D32__Basic(t *testing.T) {
	buffer := []float32{1, 2, 3, 4, 5, 7, 5, 11, 12, 15}
	require.NoError(t, delta.EncodeXor2D32(2, 5, buffer))

	assert.Equal(t, []float32{1, 2, 3, 4, 5}, buffer[:5])
	expectedBits := []uint32{0x7f600000, 0x00a00000, 0x01700000, 0x01c00000, 0x01d00000}
	for i, bits := range expectedBits {
		assert.Equalf(t, bits, math.Float32bits(buffer[5+i]), "element %d is wrong", 5+i)
	}
}

func TestDeltaXor2D32__RoundTrip(t *testing.T) {
	expected := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	buffer := append([]float32(nil), expected...)

	require.NoError(t, delta.DecodeXor2D32(2, 5, buffer))
	require.NoError(t, delta.EncodeXor2D32(2, 5, buffer))
	assert.Equal(t, expected, buffer)
}

// NaN payloads and signed zeros have to come back bit-for-bit, which a
// float comparison wouldn't catch.
func TestDeltaXor2D64__RoundTripBitExact(t *testing.T) {
	original := []float64{
		math.NaN(), math.Copysign(0, -1), math.Inf(1),
		math.Float64frombits(0x7ff8dead00000001), 1e-310, -math.MaxFloat64,
	}
	buffer := append([]float64(nil), original...)

	require.NoError(t, delta.EncodeXor2D64(2, 3, buffer))
	require.NoError(t, delta.DecodeXor2D64(2, 3, buffer))
	for i := range original {
		assert.Equalf(
			t,
			math.Float64bits(original[i]),
			math.Float64bits(buffer[i]),
			"element %d differs",
			i,
		)
	}
}

func TestDelta2D__BufferTooSmall(t *testing.T) {
	buffer := make([]int32, 9)
	err := delta.Encode2D(2, 5, buffer)
	assert.ErrorIs(t, err, omchunk.ErrBufferTooSmall)

	err = delta.DecodeXor2D32(2, 5, make([]float32, 3))
	assert.ErrorIs(t, err, omchunk.ErrBufferTooSmall)
}

func TestDelta2D__NegativeShape(t *testing.T) {
	err := delta.Decode2D(-1, 5, make([]int32, 10))
	assert.ErrorIs(t, err, omchunk.ErrInvalidArgument)
}

func TestDelta2D__EmptyAndSingleRow(t *testing.T) {
	assert.NoError(t, delta.Encode2D[int32](0, 0, nil))

	buffer := []uint16{9, 8, 7}
	require.NoError(t, delta.Encode2D(1, 3, buffer))
	assert.Equal(t, []uint16{9, 8, 7}, buffer, "single row must be left untouched")
}
