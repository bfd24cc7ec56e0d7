package chunk

import (
	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/codecs/bitpack"
	"github.com/dargueta/omchunk/codecs/byteplane"
	"github.com/dargueta/omchunk/codecs/fpx"
	"github.com/dargueta/omchunk/internal/reinterpret"
	"golang.org/x/exp/constraints"
)

// Codec is the final stage of the chunk pipeline: it turns delta-coded
// elements into bytes and back.
//
// `values` holds n elements of the pipeline's work type in native layout:
// unsigned integers the width of the array's element type. Implementations
// must be safe for concurrent use as long as callers give each goroutine its
// own buffers.
type Codec interface {
	// Bound returns the most bytes Compress can write for `n` elements.
	Bound(n int) int
	// ScratchSize returns how many bytes of working space Compress and
	// Decompress need for `n` elements, in addition to `values`.
	ScratchSize(n int) int
	// Compress encodes the first `n` elements of `values` into `dst` and
	// returns the number of bytes written.
	Compress(values []byte, n int, dst, scratch []byte) (int, error)
	// Decompress decodes `n` elements from the start of `src` into `values`
	// and returns the number of bytes consumed.
	Decompress(src []byte, n int, values, scratch []byte) (int, error)
}

// Skipper is implemented by codecs that can measure an encoding without
// decoding it. Codecs that don't implement it are measured by decompressing.
type Skipper interface {
	// Skip returns the number of bytes an encoding of `n` elements occupies
	// at the start of `src`.
	Skip(src []byte, n int) (int, error)
}

// CodecFor returns the codec an array's configuration calls for, packing with
// the default bit-pack backend.
func CodecFor(cfg *omchunk.Config) (Codec, error) {
	return NewCodec(cfg, bitpack.Default())
}

// NewCodec is like [CodecFor] but packs integers with a specific backend.
func NewCodec(cfg *omchunk.Config, backend bitpack.Backend) (Codec, error) {
	size := cfg.DataType.Size()

	switch cfg.Method {
	case omchunk.DeltaBitpack:
		switch size {
		case 1:
			return bitpackCodec[uint8]{codec: bitpack.New[uint8](backend)}, nil
		case 2:
			return bitpackCodec[uint16]{codec: bitpack.New[uint16](backend)}, nil
		case 4:
			return bitpackCodec[uint32]{codec: bitpack.New[uint32](backend)}, nil
		case 8:
			return bitpackCodec[uint64]{codec: bitpack.New[uint64](backend)}, nil
		}
	case omchunk.FloatXor:
		switch cfg.DataType {
		case omchunk.Float32:
			return fpxCodec32{codec: fpx.New(backend)}, nil
		case omchunk.Float64:
			return fpxCodec64{codec: fpx.New(backend)}, nil
		}
	case omchunk.FloatBytewise:
		if cfg.DataType.IsFloat() {
			return byteplaneCodec{width: size}, nil
		}
	}

	return nil, omchunk.Errorf(
		omchunk.ErrInvalidConfiguration,
		"no codec for %s data compressed with %s",
		cfg.DataType,
		cfg.Method,
	)
}

func checkValues(values []byte, n, width int) error {
	if n < 0 {
		return omchunk.Errorf(omchunk.ErrInvalidArgument, "negative element count %d", n)
	}
	if len(values) < n*width {
		return omchunk.Errorf(
			omchunk.ErrBufferTooSmall,
			"%d elements of %d bytes don't fit in %d bytes",
			n,
			width,
			len(values),
		)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

type bitpackCodec[T constraints.Unsigned] struct {
	codec bitpack.Codec[T]
}

func (c bitpackCodec[T]) Bound(n int) int {
	return bitpack.Bound(n, bitpack.Width[T]())
}

func (c bitpackCodec[T]) ScratchSize(int) int {
	return 0
}

func (c bitpackCodec[T]) Compress(values []byte, n int, dst, _ []byte) (int, error) {
	err := checkValues(values, n, int(bitpack.Width[T]()/8))
	if err != nil {
		return 0, err
	}
	return c.codec.Encode(reinterpret.Slice[T](values)[:n], dst)
}

func (c bitpackCodec[T]) Skip(src []byte, n int) (int, error) {
	return c.codec.Skip(src, n)
}

func (c bitpackCodec[T]) Decompress(src []byte, n int, values, _ []byte) (int, error) {
	err := checkValues(values, n, int(bitpack.Width[T]()/8))
	if err != nil {
		return 0, err
	}
	return c.codec.Decode(src, n, reinterpret.Slice[T](values))
}

////////////////////////////////////////////////////////////////////////////////

type fpxCodec32 struct {
	codec fpx.Codec
}

func (fpxCodec32) Bound(n int) int {
	return fpx.Bound(n, 32)
}

func (fpxCodec32) ScratchSize(int) int {
	return 0
}

func (c fpxCodec32) Compress(values []byte, n int, dst, _ []byte) (int, error) {
	err := checkValues(values, n, 4)
	if err != nil {
		return 0, err
	}
	return c.codec.EncodeBits32(reinterpret.Slice[uint32](values)[:n], dst, 0)
}

func (fpxCodec32) Skip(src []byte, n int) (int, error) {
	return fpx.Skip32(src, n)
}

func (c fpxCodec32) Decompress(src []byte, n int, values, _ []byte) (int, error) {
	err := checkValues(values, n, 4)
	if err != nil {
		return 0, err
	}
	return c.codec.DecodeBits32(src, reinterpret.Slice[uint32](values)[:n], 0)
}

type fpxCodec64 struct {
	codec fpx.Codec
}

func (fpxCodec64) Bound(n int) int {
	return fpx.Bound(n, 64)
}

func (fpxCodec64) ScratchSize(int) int {
	return 0
}

func (c fpxCodec64) Compress(values []byte, n int, dst, _ []byte) (int, error) {
	err := checkValues(values, n, 8)
	if err != nil {
		return 0, err
	}
	return c.codec.EncodeBits64(reinterpret.Slice[uint64](values)[:n], dst, 0)
}

func (fpxCodec64) Skip(src []byte, n int) (int, error) {
	return fpx.Skip64(src, n)
}

func (c fpxCodec64) Decompress(src []byte, n int, values, _ []byte) (int, error) {
	err := checkValues(values, n, 8)
	if err != nil {
		return 0, err
	}
	return c.codec.DecodeBits64(src, reinterpret.Slice[uint64](values)[:n], 0)
}

////////////////////////////////////////////////////////////////////////////////

type byteplaneCodec struct {
	width int
}

func (c byteplaneCodec) Bound(n int) int {
	return byteplane.Bound(n * c.width)
}

func (c byteplaneCodec) ScratchSize(n int) int {
	return byteplane.WorkSize(n * c.width)
}

func (c byteplaneCodec) Compress(values []byte, n int, dst, scratch []byte) (int, error) {
	err := checkValues(values, n, c.width)
	if err != nil {
		return 0, err
	}
	return byteplane.Encode(values[:n*c.width], c.width, dst, scratch)
}

func (c byteplaneCodec) Skip(src []byte, n int) (int, error) {
	return byteplane.Skip(src, n*c.width)
}

func (c byteplaneCodec) Decompress(src []byte, n int, values, scratch []byte) (int, error) {
	err := checkValues(values, n, c.width)
	if err != nil {
		return 0, err
	}
	return byteplane.Decode(src, c.width, values[:n*c.width], scratch)
}
