package omchunk_test

import (
	"math"
	"testing"

	"github.com/dargueta/omchunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() omchunk.Config {
	return omchunk.Config{
		DataType:             omchunk.Float32,
		Method:               omchunk.DeltaBitpack,
		Dimensions:           []uint64{100, 100},
		Chunks:               []uint64{10, 10},
		ScaleFactor:          1,
		LutChunkElementCount: 256,
	}
}

func TestNewConfig__CopiesSlices(t *testing.T) {
	params := validParams()
	cfg, err := omchunk.NewConfig(params)
	require.NoError(t, err)

	params.Dimensions[0] = 5
	params.Chunks[0] = 5
	assert.Equal(t, []uint64{100, 100}, cfg.Dimensions)
	assert.Equal(t, []uint64{10, 10}, cfg.Chunks)
}

func TestNewConfig__Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*omchunk.Config)
		message string
	}{
		{"no dimensions", func(c *omchunk.Config) { c.Dimensions, c.Chunks = nil, nil }, "at least one dimension"},
		{"rank mismatch", func(c *omchunk.Config) { c.Chunks = []uint64{10} }, "chunk shape has 1"},
		{"zero dimension", func(c *omchunk.Config) { c.Dimensions[1] = 0 }, "dimension 1 has length 0"},
		{"zero chunk", func(c *omchunk.Config) { c.Chunks[0] = 0 }, "chunk length 0 on axis 0"},
		{"chunk too big", func(c *omchunk.Config) { c.Chunks[1] = 101 }, "chunk length 101 on axis 1"},
		{
			"chunk too large",
			func(c *omchunk.Config) {
				c.Dimensions = []uint64{1 << 13, 1 << 13}
				c.Chunks = []uint64{1 << 13, 1 << 12}
			},
			"has more than 16777216 elements",
		},
		{
			"chunk size overflows",
			func(c *omchunk.Config) {
				c.Dimensions = []uint64{1 << 40, 1 << 40}
				c.Chunks = []uint64{1 << 40, 1 << 40}
			},
			"array has more than 2^64 elements",
		},
		{"unknown type", func(c *omchunk.Config) { c.DataType = 99 }, "unknown data type"},
		{"reserved method", func(c *omchunk.Config) { c.Method = omchunk.XorBitpack }, "reserved"},
		{"unknown method", func(c *omchunk.Config) { c.Method = 42 }, "unknown compression method"},
		{
			"xor on integers",
			func(c *omchunk.Config) { c.DataType, c.Method = omchunk.Int32, omchunk.FloatXor },
			"requires a float type",
		},
		{
			"bytewise on integers",
			func(c *omchunk.Config) { c.DataType, c.Method = omchunk.Uint8, omchunk.FloatBytewise },
			"requires a float type",
		},
		{"zero scale", func(c *omchunk.Config) { c.ScaleFactor = 0 }, "scale factor"},
		{"NaN scale", func(c *omchunk.Config) { c.ScaleFactor = math.NaN() }, "scale factor"},
		{"infinite offset", func(c *omchunk.Config) { c.AddOffset = math.Inf(-1) }, "add offset"},
		{"zero LUT group", func(c *omchunk.Config) { c.LutChunkElementCount = 0 }, "lut_chunk_element_count"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			params := validParams()
			test.mutate(&params)

			_, err := omchunk.NewConfig(params)
			require.Error(t, err)
			assert.ErrorIs(t, err, omchunk.ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), test.message)
		})
	}
}

func TestNewConfig__ReportsEveryProblem(t *testing.T) {
	params := validParams()
	params.Chunks[0] = 0
	params.ScaleFactor = 0
	params.LutChunkElementCount = 0

	_, err := omchunk.NewConfig(params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk length 0")
	assert.Contains(t, err.Error(), "scale factor")
	assert.Contains(t, err.Error(), "lut_chunk_element_count")
}

func TestNewConfig__IntegersIgnoreScale(t *testing.T) {
	params := validParams()
	params.DataType = omchunk.Int16
	params.ScaleFactor = 0
	params.AddOffset = 12

	cfg, err := omchunk.NewConfig(params)
	require.NoError(t, err)
	assert.False(t, cfg.Quantized())
	assert.Equal(t, 1.0, cfg.ScaleFactor)
	assert.Equal(t, 0.0, cfg.AddOffset)
}

func TestNewConfig__ChunkAtLimit(t *testing.T) {
	params := validParams()
	params.Dimensions = []uint64{1 << 12, 1 << 12}
	params.Chunks = []uint64{1 << 12, 1 << 12}

	cfg, err := omchunk.NewConfig(params)
	require.NoError(t, err)
	assert.EqualValues(t, omchunk.ChunkElementLimit, cfg.MaxChunkElements())
}

func TestGeometry(t *testing.T) {
	cfg, err := omchunk.NewConfig(omchunk.Config{
		DataType:             omchunk.Int32,
		Method:               omchunk.DeltaBitpack,
		Dimensions:           []uint64{10, 7, 5},
		Chunks:               []uint64{4, 7, 2},
		LutChunkElementCount: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, []uint64{3, 1, 3}, cfg.ChunkCounts())
	assert.EqualValues(t, 9, cfg.NumChunks())
	assert.EqualValues(t, 3, cfg.NumLutGroups())
	assert.EqualValues(t, 56, cfg.MaxChunkElements())
	assert.EqualValues(t, 350, cfg.TotalElements())
	assert.Equal(t, 3, cfg.DimensionCount())

	for index := uint64(0); index < cfg.NumChunks(); index++ {
		coord, err := cfg.ChunkCoordinate(index)
		require.NoError(t, err)
		roundTrip, err := cfg.ChunkIndex(coord)
		require.NoError(t, err)
		assert.Equal(t, index, roundTrip)
	}

	// The last chunk is partial along axes 0 and 2.
	start, extent, err := cfg.ChunkBounds(8)
	require.NoError(t, err)
	assert.Equal(t, []uint64{8, 0, 4}, start)
	assert.Equal(t, []uint64{2, 7, 1}, extent)

	extent, err = cfg.ChunkExtent(4)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 7, 2}, extent)

	count, err := cfg.ChunkElementCount(8)
	require.NoError(t, err)
	assert.EqualValues(t, 14, count)

	total := uint64(0)
	for index := uint64(0); index < cfg.NumChunks(); index++ {
		count, err := cfg.ChunkElementCount(index)
		require.NoError(t, err)
		total += count
	}
	assert.Equal(t, cfg.TotalElements(), total, "chunks don't tile the array")
}

func TestGeometry__OutOfRange(t *testing.T) {
	cfg, err := omchunk.NewConfig(validParams())
	require.NoError(t, err)

	_, err = cfg.ChunkCoordinate(100)
	assert.ErrorIs(t, err, omchunk.ErrOutOfRange)
	assert.Contains(t, err.Error(), "chunk 100 not in range [0, 100)")

	_, err = cfg.ChunkIndex([]uint64{0, 10})
	assert.ErrorIs(t, err, omchunk.ErrOutOfRange)

	_, err = cfg.ChunkIndex([]uint64{0})
	assert.ErrorIs(t, err, omchunk.ErrInvalidArgument)

	_, _, err = cfg.ChunkBounds(1000)
	assert.ErrorIs(t, err, omchunk.ErrOutOfRange)
}

func TestDataType(t *testing.T) {
	sizes := map[omchunk.DataType]int{
		omchunk.Int8: 1, omchunk.Uint8: 1,
		omchunk.Int16: 2, omchunk.Uint16: 2,
		omchunk.Int32: 4, omchunk.Uint32: 4, omchunk.Float32: 4,
		omchunk.Int64: 8, omchunk.Uint64: 8, omchunk.Float64: 8,
	}
	require.Len(t, omchunk.AllDataTypes, len(sizes))

	for _, dataType := range omchunk.AllDataTypes {
		assert.Equalf(t, sizes[dataType], dataType.Size(), "size of %s", dataType)

		parsed, err := omchunk.ParseDataType(dataType.String())
		require.NoError(t, err)
		assert.Equal(t, dataType, parsed)
	}

	_, err := omchunk.ParseDataType("complex128")
	assert.ErrorIs(t, err, omchunk.ErrInvalidConfiguration)
}

func TestMethod(t *testing.T) {
	for _, method := range []omchunk.Method{
		omchunk.DeltaBitpack, omchunk.XorBitpack, omchunk.FloatBytewise, omchunk.FloatXor,
	} {
		parsed, err := omchunk.ParseMethod(method.String())
		require.NoError(t, err)
		assert.Equal(t, method, parsed)
	}

	assert.True(t, omchunk.DeltaBitpack.IsLossless(omchunk.Int64))
	assert.False(t, omchunk.DeltaBitpack.IsLossless(omchunk.Float32))
	assert.True(t, omchunk.FloatXor.IsLossless(omchunk.Float64))
	assert.True(t, omchunk.FloatBytewise.IsLossless(omchunk.Float32))

	_, err := omchunk.ParseMethod("gzip")
	assert.ErrorIs(t, err, omchunk.ErrInvalidConfiguration)
}
