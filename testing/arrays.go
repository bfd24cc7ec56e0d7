package testing

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/dargueta/omchunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CreateRandomArray returns `count` elements of `dataType` in little-endian
// byte order. Values follow a random walk so neighboring elements are close,
// like real gridded data, with the occasional jump. The same seed always gives
// the same array.
func CreateRandomArray(t *testing.T, dataType omchunk.DataType, count int, seed int64) []byte {
	require.Truef(t, dataType.IsValid(), "invalid data type %s", dataType)

	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, count*dataType.Size())
	current := rng.NormFloat64() * 50

	for i := 0; i < count; i++ {
		current += rng.NormFloat64()
		value := current
		if rng.Intn(40) == 0 {
			value = rng.NormFloat64() * 1e4
		}
		PutElement(dataType, data, i, value)
	}
	return data
}

// PutElement stores `value` as element `index` of `data`, converting it to
// `dataType` with Go's usual conversion rules. Integer types wrap.
func PutElement(dataType omchunk.DataType, data []byte, index int, value float64) {
	size := dataType.Size()
	element := data[index*size : (index+1)*size]

	switch dataType {
	case omchunk.Int8:
		element[0] = byte(int8(int64(value)))
	case omchunk.Uint8:
		element[0] = byte(int64(value))
	case omchunk.Int16, omchunk.Uint16:
		binary.LittleEndian.PutUint16(element, uint16(int64(value)))
	case omchunk.Int32, omchunk.Uint32:
		binary.LittleEndian.PutUint32(element, uint32(int64(value)))
	case omchunk.Int64, omchunk.Uint64:
		binary.LittleEndian.PutUint64(element, uint64(int64(value)))
	case omchunk.Float32:
		binary.LittleEndian.PutUint32(element, math.Float32bits(float32(value)))
	case omchunk.Float64:
		binary.LittleEndian.PutUint64(element, math.Float64bits(value))
	}
}

// GetElement returns element `index` of `data` as a float64.
func GetElement(dataType omchunk.DataType, data []byte, index int) float64 {
	size := dataType.Size()
	element := data[index*size : (index+1)*size]

	switch dataType {
	case omchunk.Int8:
		return float64(int8(element[0]))
	case omchunk.Uint8:
		return float64(element[0])
	case omchunk.Int16:
		return float64(int16(binary.LittleEndian.Uint16(element)))
	case omchunk.Uint16:
		return float64(binary.LittleEndian.Uint16(element))
	case omchunk.Int32:
		return float64(int32(binary.LittleEndian.Uint32(element)))
	case omchunk.Uint32:
		return float64(binary.LittleEndian.Uint32(element))
	case omchunk.Int64:
		return float64(int64(binary.LittleEndian.Uint64(element)))
	case omchunk.Uint64:
		return float64(binary.LittleEndian.Uint64(element))
	case omchunk.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(element)))
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(element))
	}
}

// RequireArraysMatch fails the test if `actual` isn't a faithful decoding of
// `expected`. Lossless configurations must match byte for byte; quantized ones
// must be within half a quantization step of the original.
func RequireArraysMatch(t *testing.T, cfg *omchunk.Config, expected, actual []byte) {
	require.Equal(t, len(expected), len(actual), "arrays have different sizes")

	if cfg.Method.IsLossless(cfg.DataType) {
		require.Equal(t, expected, actual, "lossless round trip changed the data")
		return
	}

	tolerance := 0.5/math.Abs(cfg.ScaleFactor) + 1e-9
	count := len(expected) / cfg.DataType.Size()
	for i := 0; i < count; i++ {
		want := GetElement(cfg.DataType, expected, i)
		got := GetElement(cfg.DataType, actual, i)
		if math.IsNaN(want) {
			assert.Truef(t, math.IsNaN(got), "element %d: expected NaN, got %v", i, got)
			continue
		}

		// float32 data loses precision when dequantized, so allow for its
		// rounding on top of the quantization step.
		slack := tolerance
		if cfg.DataType == omchunk.Float32 {
			slack += math.Abs(want) * 1e-6
		}
		if !assert.InDeltaf(t, want, got, slack, "element %d differs", i) {
			return
		}
	}
}
