package testing

import (
	"bytes"
	"io"
	"testing"

	"github.com/dargueta/omchunk/utilities/compression"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewMemoryStream returns a seekable, fixed-size stream backed by a zeroed
// buffer of `size` bytes, along with the buffer itself.
//
//   - Writes to the stream are visible in the returned slice.
//   - Attempting to write past the end of the buffer will trigger an error.
func NewMemoryStream(size int) (io.ReadWriteSeeker, []byte) {
	backing := make([]byte, size)
	return bytesextra.NewReadWriteSeeker(backing), backing
}

// LoadCompressedFile takes a zstd-wrapped file and returns a stream to access
// the uncompressed data.
//
//   - Writes to the stream do not affect `compressedBytes`.
//   - While the stream can be written to, its size is fixed to the size of the
//     decompressed data.
func LoadCompressedFile(t *testing.T, compressedBytes []byte) (io.ReadWriteSeeker, []byte) {
	require.Greater(t, len(compressedBytes), 0, "compressed file is empty")
	require.True(t, compression.IsCompressed(compressedBytes), "file isn't zstd-compressed")

	contents, err := compression.DecompressToBytes(bytes.NewReader(compressedBytes))
	require.NoError(t, err)
	return bytesextra.NewReadWriteSeeker(contents), contents
}
