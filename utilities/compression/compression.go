package compression

import (
	"bytes"
	"io"

	"github.com/dargueta/omchunk"
	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the four-byte magic number at the start of every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// IsCompressed returns true if `header` starts with a zstd frame magic number.
func IsCompressed(header []byte) bool {
	return bytes.HasPrefix(header, zstdMagic)
}

// countingWriter counts the bytes passed through to the underlying writer.
type countingWriter struct {
	writer  io.Writer
	written int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.writer.Write(p)
	w.written += int64(n)
	return n, err
}

// CompressStream compresses everything read from `input` and writes it to
// `output` as a single zstd stream.
//
// The returned int64 gives the number of compressed bytes written to `output`.
// If an error occurred, the value is undefined and should not be used.
func CompressStream(input io.Reader, output io.Writer, level zstd.EncoderLevel) (int64, error) {
	counter := &countingWriter{writer: output}
	encoder, err := zstd.NewWriter(counter, zstd.WithEncoderLevel(level))
	if err != nil {
		return 0, omchunk.ErrInvalidArgument.Wrap(err)
	}

	_, err = io.Copy(encoder, input)
	if err != nil {
		encoder.Close()
		return 0, omchunk.ErrIOFailed.Wrap(err)
	}

	err = encoder.Close()
	if err != nil {
		return 0, omchunk.ErrIOFailed.Wrap(err)
	}
	return counter.written, nil
}

// DecompressStream is the inverse of [CompressStream].
//
// The returned int64 gives the number of bytes written to the output (i.e. the
// decompressed size of the stream). If an error occurred, the value is
// undefined and should not be used.
func DecompressStream(input io.Reader, output io.Writer) (int64, error) {
	decoder, err := zstd.NewReader(input)
	if err != nil {
		return 0, omchunk.ErrCorruptData.Wrap(err)
	}
	defer decoder.Close()

	written, err := io.Copy(output, decoder)
	if err != nil {
		return written, omchunk.ErrCorruptData.Wrap(err)
	}
	return written, nil
}

// DecompressToBytes is a convenience wrapper around [DecompressStream] that
// returns the decompressed data in a new byte slice.
func DecompressToBytes(input io.Reader) ([]byte, error) {
	buffer := bytes.Buffer{}
	_, err := DecompressStream(input, &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
