// Package bitpack implements a PFor-style codec for sequences of unsigned
// integers.
//
// The first value is stored as an unsigned LEB128 varint. Every following value
// is stored as the zig-zag encoded difference from its predecessor, in blocks
// of up to [BlockSize] values. Each block is packed at the narrowest bit width
// that keeps it small; a few outliers are stored separately as exceptions
// instead of widening the whole block.
//
// Block layout:
//
//	plain:   b | packed[m*b bits]
//	patched: 0x80|b | bx | packed low bits[m*b bits] | bitmap[m bits] | packed high bits[k*bx bits]
//
// where m is the number of values in the block and k is the number of
// exceptions. Every packed region is padded to a whole byte.
package bitpack

import (
	"encoding/binary"
	"math/bits"
	"unsafe"

	"github.com/dargueta/omchunk"
	"golang.org/x/exp/constraints"
)

// BlockSize is the maximum number of deltas in one block.
const BlockSize = 128

const patchedFlag = 0x80

// Codec encodes and decodes integers of type T using a specific packing
// backend. The zero value uses the default backend.
type Codec[T constraints.Unsigned] struct {
	backend Backend
}

// New returns a codec that packs with `backend`. A nil backend selects
// [Default].
func New[T constraints.Unsigned](backend Backend) Codec[T] {
	return Codec[T]{backend: backend}
}

func (c Codec[T]) packer() Backend {
	if c.backend == nil {
		return Default()
	}
	return c.backend
}

// Width returns the number of bits in T.
func Width[T constraints.Unsigned]() uint {
	var zero T
	return uint(unsafe.Sizeof(zero)) * 8
}

// Bound returns the largest number of bytes [Codec.Encode] can write for `n`
// values that are `width` bits wide.
func Bound(n int, width uint) int {
	if n <= 0 {
		return 0
	}

	size := varintSize(width)
	remaining := n - 1
	fullBlocks := remaining / BlockSize
	size += fullBlocks * (1 + PackedSize(BlockSize, width))
	if tail := remaining % BlockSize; tail > 0 {
		size += 1 + PackedSize(tail, width)
	}
	return size
}

// varintSize returns the number of bytes a LEB128 varint needs for the largest
// value `width` bits wide.
func varintSize(width uint) int {
	return int((width + 6) / 7)
}

func zigzag[T constraints.Unsigned](delta T) T {
	signBit := delta >> (Width[T]() - 1)
	return (delta << 1) ^ (0 - signBit)
}

func unzigzag[T constraints.Unsigned](value T) T {
	return (value >> 1) ^ (0 - (value & 1))
}

// Encode writes `values` to `dst`, returning the number of bytes written.
func (c Codec[T]) Encode(values []T, dst []byte) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}

	var varint [binary.MaxVarintLen64]byte
	head := binary.PutUvarint(varint[:], uint64(values[0]))
	if len(dst) < head {
		return 0, omchunk.Errorf(
			omchunk.ErrBufferTooSmall,
			"need at least %d bytes for the first value, got %d",
			head,
			len(dst),
		)
	}
	copy(dst, varint[:head])

	written := head
	var block [BlockSize]uint64

	for start := 1; start < len(values); start += BlockSize {
		end := min(start+BlockSize, len(values))
		for i := start; i < end; i++ {
			block[i-start] = uint64(zigzag(values[i] - values[i-1]))
		}

		n, err := c.encodeBlock(block[:end-start], dst[written:])
		if err != nil {
			return 0, err
		}
		written += n
	}
	return written, nil
}

// blockLayout describes how one block is packed.
type blockLayout struct {
	width          uint
	exceptionWidth uint
	exceptions     int
	size           int
}

func plainSize(m int, width uint) int {
	return 1 + PackedSize(m, width)
}

func patchedSize(m int, width, exceptionWidth uint, exceptions int) int {
	return 2 + PackedSize(m, width) + (m+7)/8 + PackedSize(exceptions, exceptionWidth)
}

// chooseLayout picks the cheapest layout for a block. The plain layout wins
// ties.
func chooseLayout(values []uint64) blockLayout {
	var histogram [65]int
	maxWidth := uint(0)
	for _, value := range values {
		length := uint(bits.Len64(value))
		histogram[length]++
		maxWidth = max(maxWidth, length)
	}

	m := len(values)
	best := blockLayout{width: maxWidth, size: plainSize(m, maxWidth)}

	// Walk candidate widths downward, accumulating the number of values that
	// don't fit in `width` bits.
	exceptions := 0
	for width := int(maxWidth) - 1; width >= 0; width-- {
		exceptions += histogram[width+1]
		exceptionWidth := maxWidth - uint(width)
		size := patchedSize(m, uint(width), exceptionWidth, exceptions)
		if size < best.size {
			best = blockLayout{
				width:          uint(width),
				exceptionWidth: exceptionWidth,
				exceptions:     exceptions,
				size:           size,
			}
		}
	}
	return best
}

func (c Codec[T]) encodeBlock(values []uint64, dst []byte) (int, error) {
	layout := chooseLayout(values)
	if len(dst) < layout.size {
		return 0, omchunk.Errorf(
			omchunk.ErrBufferTooSmall,
			"block of %d values needs %d bytes, %d left",
			len(values),
			layout.size,
			len(dst),
		)
	}

	backend := c.packer()
	m := len(values)

	if layout.exceptionWidth == 0 {
		dst[0] = byte(layout.width)
		backend.Pack(dst[1:], values, layout.width)
		return layout.size, nil
	}

	dst[0] = patchedFlag | byte(layout.width)
	dst[1] = byte(layout.exceptionWidth)

	lowStart := 2
	bitmapStart := lowStart + PackedSize(m, layout.width)
	highStart := bitmapStart + (m+7)/8
	bitmap := dst[bitmapStart:highStart]
	clear(bitmap)

	var low, high [BlockSize]uint64
	mask := lowMask(layout.width)
	k := 0
	for i, value := range values {
		low[i] = value & mask
		if value>>layout.width != 0 {
			high[k] = value >> layout.width
			bitmap[i>>3] |= 1 << (i & 7)
			k++
		}
	}

	backend.Pack(dst[lowStart:], low[:m], layout.width)
	backend.Pack(dst[highStart:], high[:k], layout.exceptionWidth)
	return layout.size, nil
}

// Decode reads `n` values from `src` into `dst`, returning the number of bytes
// consumed.
func (c Codec[T]) Decode(src []byte, n int, dst []T) (int, error) {
	if n < 0 {
		return 0, omchunk.Errorf(omchunk.ErrInvalidArgument, "negative value count %d", n)
	}
	if len(dst) < n {
		return 0, omchunk.Errorf(
			omchunk.ErrBufferTooSmall,
			"can't decode %d values into a buffer of %d",
			n,
			len(dst),
		)
	}
	if n == 0 {
		return 0, nil
	}

	width := Width[T]()
	first, head := binary.Uvarint(src)
	if head <= 0 {
		return 0, omchunk.ErrCorruptData.WithMessage("truncated or overlong first value")
	}
	if width < 64 && first>>width != 0 {
		return 0, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"first value %d doesn't fit in %d bits",
			first,
			width,
		)
	}
	dst[0] = T(first)

	consumed := head
	backend := c.packer()
	var block [BlockSize]uint64

	for start := 1; start < n; start += BlockSize {
		end := min(start+BlockSize, n)
		size, err := decodeBlock(backend, src[consumed:], block[:end-start], width)
		if err != nil {
			return 0, err
		}
		consumed += size

		for i := start; i < end; i++ {
			dst[i] = dst[i-1] + unzigzag(T(block[i-start]))
		}
	}
	return consumed, nil
}

// readBlockHeader parses and validates a block header, returning the layout
// with `size` set to the header length only.
func readBlockHeader(src []byte, typeWidth uint) (blockLayout, error) {
	if len(src) < 1 {
		return blockLayout{}, omchunk.ErrCorruptData.WithMessage("missing block header")
	}

	header := src[0]
	layout := blockLayout{width: uint(header &^ patchedFlag), size: 1}
	if layout.width > typeWidth {
		return layout, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"block width %d exceeds element width %d",
			layout.width,
			typeWidth,
		)
	}
	if header&patchedFlag == 0 {
		return layout, nil
	}

	if len(src) < 2 {
		return layout, omchunk.ErrCorruptData.WithMessage("missing exception width")
	}
	layout.exceptionWidth = uint(src[1])
	layout.size = 2
	if layout.exceptionWidth == 0 || layout.width+layout.exceptionWidth > typeWidth {
		return layout, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"exception width %d not in range [1, %d]",
			layout.exceptionWidth,
			typeWidth-layout.width,
		)
	}
	return layout, nil
}

// exceptionCount counts the set bits in a block's exception bitmap. Bits past
// the end of the block must be clear.
func exceptionCount(bitmap []byte, m int) (int, error) {
	count := 0
	for _, b := range bitmap {
		count += bits.OnesCount8(b)
	}
	if m%8 != 0 && bitmap[len(bitmap)-1]>>(m%8) != 0 {
		return 0, omchunk.ErrCorruptData.WithMessage("exception bitmap has bits set past the end of the block")
	}
	return count, nil
}

func needBytes(src []byte, size int, what string) error {
	if len(src) < size {
		return omchunk.Errorf(
			omchunk.ErrCorruptData,
			"%s needs %d bytes, only %d left",
			what,
			size,
			len(src),
		)
	}
	return nil
}

func decodeBlock(backend Backend, src []byte, values []uint64, typeWidth uint) (int, error) {
	m := len(values)
	layout, err := readBlockHeader(src, typeWidth)
	if err != nil {
		return 0, err
	}

	position := layout.size
	lowSize := PackedSize(m, layout.width)
	err = needBytes(src[position:], lowSize, "packed block")
	if err != nil {
		return 0, err
	}
	backend.Unpack(values, src[position:], layout.width)
	position += lowSize

	if layout.exceptionWidth == 0 {
		return position, nil
	}

	bitmapSize := (m + 7) / 8
	err = needBytes(src[position:], bitmapSize, "exception bitmap")
	if err != nil {
		return 0, err
	}
	bitmap := src[position : position+bitmapSize]
	position += bitmapSize

	k, err := exceptionCount(bitmap, m)
	if err != nil {
		return 0, err
	}

	highSize := PackedSize(k, layout.exceptionWidth)
	err = needBytes(src[position:], highSize, "exceptions")
	if err != nil {
		return 0, err
	}

	var high [BlockSize]uint64
	backend.Unpack(high[:k], src[position:], layout.exceptionWidth)
	position += highSize

	j := 0
	for i := range values {
		if bitmap[i>>3]&(1<<(i&7)) != 0 {
			values[i] |= high[j] << layout.width
			j++
		}
	}
	return position, nil
}

// Skip returns the number of bytes an encoding of `n` values occupies at the
// start of `src`, without unpacking the values.
func (c Codec[T]) Skip(src []byte, n int) (int, error) {
	if n < 0 {
		return 0, omchunk.Errorf(omchunk.ErrInvalidArgument, "negative value count %d", n)
	}
	if n == 0 {
		return 0, nil
	}

	_, consumed := binary.Uvarint(src)
	if consumed <= 0 {
		return 0, omchunk.ErrCorruptData.WithMessage("truncated or overlong first value")
	}

	width := Width[T]()
	for start := 1; start < n; start += BlockSize {
		m := min(BlockSize, n-start)
		layout, err := readBlockHeader(src[consumed:], width)
		if err != nil {
			return 0, err
		}

		size := layout.size + PackedSize(m, layout.width)
		if layout.exceptionWidth != 0 {
			bitmapSize := (m + 7) / 8
			err = needBytes(src[consumed:], size+bitmapSize, "exception bitmap")
			if err != nil {
				return 0, err
			}

			k, err := exceptionCount(src[consumed+size:consumed+size+bitmapSize], m)
			if err != nil {
				return 0, err
			}
			size += bitmapSize + PackedSize(k, layout.exceptionWidth)
		}

		err = needBytes(src[consumed:], size, "block")
		if err != nil {
			return 0, err
		}
		consumed += size
	}
	return consumed, nil
}

// Encode is shorthand for encoding with the default backend.
func Encode[T constraints.Unsigned](values []T, dst []byte) (int, error) {
	return Codec[T]{}.Encode(values, dst)
}

// Decode is shorthand for decoding with the default backend.
func Decode[T constraints.Unsigned](src []byte, n int, dst []T) (int, error) {
	return Codec[T]{}.Decode(src, n, dst)
}

// Skip is shorthand for [Codec.Skip].
func Skip[T constraints.Unsigned](src []byte, n int) (int, error) {
	return Codec[T]{}.Skip(src, n)
}
