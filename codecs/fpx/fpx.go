// Package fpx implements a lossless codec for floating-point sequences.
//
// Each value's bit pattern is XORed with the one before it. Consecutive values
// in smooth data share their sign, exponent and high mantissa bits, so the XOR
// results have long runs of leading and trailing zeros. Values are grouped into
// blocks of up to [BlockSize]; each block stores only the span of bits that is
// non-zero somewhere in the block.
//
// Block layout:
//
//	all zero: 0
//	other:    b | tz | packed[m*b bits]
//
// where b is the width of the span and tz the number of trailing zero bits
// shared by every value in the block.
package fpx

import (
	"math/bits"

	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/codecs/bitpack"
	"github.com/dargueta/omchunk/internal/reinterpret"
)

// BlockSize is the maximum number of values in one block.
const BlockSize = 128

// Bound returns the largest number of bytes an encoding of `n` values that are
// `width` bits wide can take.
func Bound(n int, width uint) int {
	if n <= 0 {
		return 0
	}

	blocks := (n + BlockSize - 1) / BlockSize
	return blocks*2 + (n/BlockSize)*bitpack.PackedSize(BlockSize, width) +
		bitpack.PackedSize(n%BlockSize, width)
}

type word interface {
	uint32 | uint64
}

func widthOf[T word]() uint {
	var zero T
	switch any(zero).(type) {
	case uint32:
		return 32
	default:
		return 64
	}
}

func leadingZeros[T word](value T) uint {
	return uint(bits.LeadingZeros64(uint64(value))) - (64 - widthOf[T]())
}

func encodeWords[T word](backend bitpack.Backend, values []T, dst []byte, previous T) (int, error) {
	width := widthOf[T]()
	written := 0
	var block [BlockSize]uint64

	for start := 0; start < len(values); start += BlockSize {
		end := min(start+BlockSize, len(values))
		m := end - start

		combined := T(0)
		for i := start; i < end; i++ {
			x := values[i] ^ previous
			previous = values[i]
			combined |= x
			block[i-start] = uint64(x)
		}

		if combined == 0 {
			if len(dst)-written < 1 {
				return 0, omchunk.Errorf(
					omchunk.ErrBufferTooSmall, "output buffer full after %d bytes", written,
				)
			}
			dst[written] = 0
			written++
			continue
		}

		trailing := uint(bits.TrailingZeros64(uint64(combined)))
		span := width - leadingZeros(combined) - trailing
		size := 2 + bitpack.PackedSize(m, span)
		if len(dst)-written < size {
			return 0, omchunk.Errorf(
				omchunk.ErrBufferTooSmall,
				"block of %d values needs %d bytes, %d left",
				m,
				size,
				len(dst)-written,
			)
		}

		for i := 0; i < m; i++ {
			block[i] >>= trailing
		}
		dst[written] = byte(span)
		dst[written+1] = byte(trailing)
		backend.Pack(dst[written+2:], block[:m], span)
		written += size
	}
	return written, nil
}

func decodeWords[T word](backend bitpack.Backend, src []byte, dst []T, previous T) (int, error) {
	width := widthOf[T]()
	consumed := 0
	var block [BlockSize]uint64

	for start := 0; start < len(dst); start += BlockSize {
		end := min(start+BlockSize, len(dst))
		m := end - start

		if len(src)-consumed < 1 {
			return 0, omchunk.ErrCorruptData.WithMessage("missing block header")
		}
		span := uint(src[consumed])
		if span == 0 {
			consumed++
			for i := start; i < end; i++ {
				dst[i] = previous
			}
			continue
		}

		if len(src)-consumed < 2 {
			return 0, omchunk.ErrCorruptData.WithMessage("missing trailing zero count")
		}
		trailing := uint(src[consumed+1])
		if span+trailing > width {
			return 0, omchunk.Errorf(
				omchunk.ErrCorruptData,
				"bit span %d shifted by %d exceeds element width %d",
				span,
				trailing,
				width,
			)
		}

		size := 2 + bitpack.PackedSize(m, span)
		if len(src)-consumed < size {
			return 0, omchunk.Errorf(
				omchunk.ErrCorruptData,
				"block of %d values needs %d bytes, only %d left",
				m,
				size,
				len(src)-consumed,
			)
		}

		backend.Unpack(block[:m], src[consumed+2:], span)
		for i := start; i < end; i++ {
			previous ^= T(block[i-start] << trailing)
			dst[i] = previous
		}
		consumed += size
	}
	return consumed, nil
}

func skipBlocks(src []byte, n int, width uint) (int, error) {
	consumed := 0
	for start := 0; start < n; start += BlockSize {
		m := min(BlockSize, n-start)
		if len(src)-consumed < 1 {
			return 0, omchunk.ErrCorruptData.WithMessage("missing block header")
		}
		span := uint(src[consumed])
		if span == 0 {
			consumed++
			continue
		}
		if span > width {
			return 0, omchunk.Errorf(
				omchunk.ErrCorruptData, "bit span %d exceeds element width %d", span, width,
			)
		}

		size := 2 + bitpack.PackedSize(m, span)
		if len(src)-consumed < size {
			return 0, omchunk.Errorf(
				omchunk.ErrCorruptData,
				"block of %d values needs %d bytes, only %d left",
				m,
				size,
				len(src)-consumed,
			)
		}
		consumed += size
	}
	return consumed, nil
}

// Skip32 returns the number of bytes an encoding of `n` float32 values occupies
// at the start of `src`, reading only the block headers.
func Skip32(src []byte, n int) (int, error) {
	return skipBlocks(src, n, 32)
}

// Skip64 is the float64 version of [Skip32].
func Skip64(src []byte, n int) (int, error) {
	return skipBlocks(src, n, 64)
}

// Codec packs blocks with a specific bit-pack backend. Every backend produces
// the same bytes. The package-level functions use [bitpack.Default].
type Codec struct {
	backend bitpack.Backend
}

// New returns a codec that packs with `backend`.
func New(backend bitpack.Backend) Codec {
	return Codec{backend: backend}
}

// Backend returns the bit-pack backend the codec uses.
func (c Codec) Backend() bitpack.Backend {
	return c.backend
}

// EncodeBits32 and its siblings work directly on bit patterns, for callers that
// already hold float data reinterpreted as integers.
func (c Codec) EncodeBits32(values []uint32, dst []byte, start uint32) (int, error) {
	return encodeWords(c.backend, values, dst, start)
}

func (c Codec) DecodeBits32(src []byte, dst []uint32, start uint32) (int, error) {
	return decodeWords(c.backend, src, dst, start)
}

func (c Codec) EncodeBits64(values []uint64, dst []byte, start uint64) (int, error) {
	return encodeWords(c.backend, values, dst, start)
}

func (c Codec) DecodeBits64(src []byte, dst []uint64, start uint64) (int, error) {
	return decodeWords(c.backend, src, dst, start)
}

// Encode32 writes `values` to `dst` and returns the number of bytes written.
// `start` is the bit pattern treated as preceding values[0]; bits it shares
// with the first value cost nothing. Pass 0 if nothing is known.
func Encode32(values []float32, dst []byte, start uint32) (int, error) {
	return EncodeBits32(reinterpret.Slice[uint32](values), dst, start)
}

// Decode32 fills `dst` from `src` and returns the number of bytes consumed.
// `start` must be the same value given to [Encode32].
func Decode32(src []byte, dst []float32, start uint32) (int, error) {
	return DecodeBits32(src, reinterpret.Slice[uint32](dst), start)
}

// Encode64 is the float64 version of [Encode32].
func Encode64(values []float64, dst []byte, start uint64) (int, error) {
	return EncodeBits64(reinterpret.Slice[uint64](values), dst, start)
}

// Decode64 is the float64 version of [Decode32].
func Decode64(src []byte, dst []float64, start uint64) (int, error) {
	return DecodeBits64(src, reinterpret.Slice[uint64](dst), start)
}

// EncodeBits32 is [Codec.EncodeBits32] with the default backend.
func EncodeBits32(values []uint32, dst []byte, start uint32) (int, error) {
	return New(bitpack.Default()).EncodeBits32(values, dst, start)
}

func DecodeBits32(src []byte, dst []uint32, start uint32) (int, error) {
	return New(bitpack.Default()).DecodeBits32(src, dst, start)
}

func EncodeBits64(values []uint64, dst []byte, start uint64) (int, error) {
	return New(bitpack.Default()).EncodeBits64(values, dst, start)
}

func DecodeBits64(src []byte, dst []uint64, start uint64) (int, error) {
	return New(bitpack.Default()).DecodeBits64(src, dst, start)
}
