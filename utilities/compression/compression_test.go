package compression_test

import (
	"bytes"
	"testing"

	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/container"
	omtesting "github.com/dargueta/omchunk/testing"
	"github.com/dargueta/omchunk/utilities/compression"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeContainer returns a complete float32 container holding a random walk.
func writeContainer(t *testing.T) []byte {
	cfg, err := omchunk.NewConfig(omchunk.Config{
		DataType:             omchunk.Float32,
		Method:               omchunk.FloatXor,
		Dimensions:           []uint64{24, 30},
		Chunks:               []uint64{8, 10},
		LutChunkElementCount: 2,
	})
	require.NoError(t, err)

	output := bytes.Buffer{}
	writer, err := container.NewWriter(&output, cfg)
	require.NoError(t, err)

	data := omtesting.CreateRandomArray(t, cfg.DataType, int(cfg.TotalElements()), 12)
	require.NoError(t, writer.WriteArray(omchunk.WholeArrayView(cfg, data)))
	require.NoError(t, writer.Close())
	return output.Bytes()
}

func TestCompressStream__Levels(t *testing.T) {
	raw := writeContainer(t)

	for _, level := range []zstd.EncoderLevel{
		zstd.SpeedFastest,
		zstd.SpeedDefault,
		zstd.SpeedBetterCompression,
		zstd.SpeedBestCompression,
	} {
		t.Run(level.String(), func(t *testing.T) {
			compressed := bytes.Buffer{}
			written, err := compression.CompressStream(bytes.NewReader(raw), &compressed, level)
			require.NoError(t, err)
			assert.EqualValues(t, compressed.Len(), written, "reported size doesn't match output")
			assert.True(t, compression.IsCompressed(compressed.Bytes()))

			decompressed, err := compression.DecompressToBytes(&compressed)
			require.NoError(t, err)
			assert.Equal(t, raw, decompressed)
		})
	}
}

func TestCompressStream__Empty(t *testing.T) {
	compressed := bytes.Buffer{}
	_, err := compression.CompressStream(bytes.NewReader(nil), &compressed, zstd.SpeedDefault)
	require.NoError(t, err)

	decompressed := bytes.Buffer{}
	read, err := compression.DecompressStream(&compressed, &decompressed)
	require.NoError(t, err)
	assert.EqualValues(t, 0, read)
}

func TestCompressStream__InvalidLevel(t *testing.T) {
	_, err := compression.CompressStream(
		bytes.NewReader([]byte("OMCK")), &bytes.Buffer{}, zstd.EncoderLevel(0),
	)
	assert.ErrorIs(t, err, omchunk.ErrInvalidArgument)
}

func TestCompressStream__OutputFull(t *testing.T) {
	output, _ := omtesting.NewMemoryStream(8)
	_, err := compression.CompressStream(
		bytes.NewReader(writeContainer(t)), output, zstd.SpeedFastest,
	)
	assert.ErrorIs(t, err, omchunk.ErrIOFailed)
}

func TestIsCompressed(t *testing.T) {
	raw := writeContainer(t)
	assert.False(t, compression.IsCompressed(raw), "bare container mistaken for zstd")

	compressed := bytes.Buffer{}
	_, err := compression.CompressStream(bytes.NewReader(raw), &compressed, zstd.SpeedDefault)
	require.NoError(t, err)
	assert.True(t, compression.IsCompressed(compressed.Bytes()))

	assert.False(t, compression.IsCompressed(compressed.Bytes()[:3]), "partial magic")
	assert.False(t, compression.IsCompressed(nil))
}

func TestDecompressStream__Truncated(t *testing.T) {
	compressed := bytes.Buffer{}
	_, err := compression.CompressStream(
		bytes.NewReader(writeContainer(t)), &compressed, zstd.SpeedDefault,
	)
	require.NoError(t, err)

	frame := compressed.Bytes()
	for _, size := range []int{len(frame) / 2, len(frame) - 1} {
		_, err := compression.DecompressToBytes(bytes.NewReader(frame[:size]))
		assert.ErrorIsf(t, err, omchunk.ErrCorruptData, "frame cut to %d of %d bytes", size, len(frame))
	}
}

func TestDecompressStream__Garbage(t *testing.T) {
	garbage := append([]byte{0x28, 0xb5, 0x2f, 0xfd}, bytes.Repeat([]byte{0xff}, 32)...)
	_, err := compression.DecompressToBytes(bytes.NewReader(garbage))
	assert.ErrorIs(t, err, omchunk.ErrCorruptData)
}
