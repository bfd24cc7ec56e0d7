// Package byteplane compresses fixed-width elements by splitting them into byte
// planes and running LZ4 over the result.
//
// All byte 0s of the input come first, then all byte 1s, and so on. After a
// 2D XOR delta the high planes of float data are mostly zero, which LZ4 handles
// well. If LZ4 doesn't make the planes smaller they're stored as-is.
//
// Layout:
//
//	raw:  0 | planes[n*width]
//	lz4:  1 | compressed length u32 | lz4 block
package byteplane

import (
	"encoding/binary"
	"fmt"

	"github.com/dargueta/omchunk"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies how the planes of one encoding are stored.
type Tag uint8

const (
	TagRaw Tag = 0
	TagLZ4 Tag = 1
)

func (tag Tag) String() string {
	switch tag {
	case TagRaw:
		return "raw"
	case TagLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

const lz4HeaderSize = 1 + 4

// Bound returns the largest number of bytes [Encode] writes for `size` bytes of
// input. LZ4 output is only kept when it's smaller than the raw form, so this
// is the raw size plus the tag.
func Bound(size int) int {
	return 1 + size
}

// WorkSize returns the number of bytes of working space [Encode] and [Decode]
// need for `size` bytes of input.
func WorkSize(size int) int {
	return size + lz4.CompressBlockBound(size)
}

func checkWidth(width, size int) error {
	if width <= 0 || size%width != 0 {
		return omchunk.Errorf(
			omchunk.ErrInvalidArgument,
			"%d bytes isn't a whole number of %d-byte elements",
			size,
			width,
		)
	}
	return nil
}

// Shuffle writes the byte planes of `src` to `dst`. Both must be the same
// length, a multiple of `width`.
func Shuffle(dst, src []byte, width int) {
	count := len(src) / width
	for i := 0; i < count; i++ {
		element := src[i*width : (i+1)*width]
		for plane, b := range element {
			dst[plane*count+i] = b
		}
	}
}

// Unshuffle is the inverse of [Shuffle].
func Unshuffle(dst, src []byte, width int) {
	count := len(src) / width
	for i := 0; i < count; i++ {
		element := dst[i*width : (i+1)*width]
		for plane := range element {
			element[plane] = src[plane*count+i]
		}
	}
}

// Encode compresses `src`, a packed array of `width`-byte elements, into `dst`
// and returns the number of bytes written. `work` must hold at least
// WorkSize(len(src)) bytes.
func Encode(src []byte, width int, dst, work []byte) (int, error) {
	err := checkWidth(width, len(src))
	if err != nil {
		return 0, err
	}
	if len(work) < WorkSize(len(src)) {
		return 0, omchunk.Errorf(
			omchunk.ErrBufferTooSmall,
			"work buffer is %d bytes, need %d",
			len(work),
			WorkSize(len(src)),
		)
	}

	planes := work[:len(src)]
	Shuffle(planes, src, width)

	written := 0
	compressed := work[len(src):]
	if len(planes) > 0 {
		written, err = lz4.CompressBlock(planes, compressed, nil)
		if err != nil {
			return 0, omchunk.ErrIOFailed.Wrap(err)
		}
	}

	// CompressBlock returns 0 for incompressible input.
	if written > 0 && lz4HeaderSize+written < 1+len(planes) {
		if len(dst) < lz4HeaderSize+written {
			return 0, omchunk.Errorf(
				omchunk.ErrBufferTooSmall,
				"need %d bytes, got %d",
				lz4HeaderSize+written,
				len(dst),
			)
		}
		dst[0] = byte(TagLZ4)
		binary.LittleEndian.PutUint32(dst[1:], uint32(written))
		copy(dst[lz4HeaderSize:], compressed[:written])
		return lz4HeaderSize + written, nil
	}

	if len(dst) < 1+len(planes) {
		return 0, omchunk.Errorf(
			omchunk.ErrBufferTooSmall, "need %d bytes, got %d", 1+len(planes), len(dst),
		)
	}
	dst[0] = byte(TagRaw)
	copy(dst[1:], planes)
	return 1 + len(planes), nil
}

// Skip returns the number of bytes an encoding of `size` bytes of input
// occupies at the start of `src`, without decompressing it.
func Skip(src []byte, size int) (int, error) {
	if len(src) < 1 {
		return 0, omchunk.ErrCorruptData.WithMessage("missing storage tag")
	}

	switch Tag(src[0]) {
	case TagRaw:
		if len(src) < 1+size {
			return 0, omchunk.Errorf(
				omchunk.ErrCorruptData, "raw planes need %d bytes, only %d left", size, len(src)-1,
			)
		}
		return 1 + size, nil
	case TagLZ4:
		if len(src) < lz4HeaderSize {
			return 0, omchunk.ErrCorruptData.WithMessage("truncated lz4 header")
		}
		length := int(binary.LittleEndian.Uint32(src[1:]))
		if length > len(src)-lz4HeaderSize {
			return 0, omchunk.Errorf(
				omchunk.ErrCorruptData,
				"lz4 block is %d bytes, only %d left",
				length,
				len(src)-lz4HeaderSize,
			)
		}
		return lz4HeaderSize + length, nil
	default:
		return 0, omchunk.Errorf(omchunk.ErrCorruptData, "unknown storage tag %s", Tag(src[0]))
	}
}

// Decode decompresses an encoding of len(dst) bytes of `width`-byte elements
// from the start of `src`, returning the number of bytes consumed. `work` must
// hold at least len(dst) bytes.
func Decode(src []byte, width int, dst, work []byte) (int, error) {
	err := checkWidth(width, len(dst))
	if err != nil {
		return 0, err
	}
	if len(work) < len(dst) {
		return 0, omchunk.Errorf(
			omchunk.ErrBufferTooSmall, "work buffer is %d bytes, need %d", len(work), len(dst),
		)
	}
	if len(src) < 1 {
		return 0, omchunk.ErrCorruptData.WithMessage("missing storage tag")
	}

	planes := work[:len(dst)]
	switch Tag(src[0]) {
	case TagRaw:
		if len(src) < 1+len(dst) {
			return 0, omchunk.Errorf(
				omchunk.ErrCorruptData,
				"raw planes need %d bytes, only %d left",
				len(dst),
				len(src)-1,
			)
		}
		Unshuffle(dst, src[1:1+len(dst)], width)
		return 1 + len(dst), nil

	case TagLZ4:
		if len(src) < lz4HeaderSize {
			return 0, omchunk.ErrCorruptData.WithMessage("truncated lz4 header")
		}
		length := int(binary.LittleEndian.Uint32(src[1:]))
		if length > len(src)-lz4HeaderSize {
			return 0, omchunk.Errorf(
				omchunk.ErrCorruptData,
				"lz4 block is %d bytes, only %d left",
				length,
				len(src)-lz4HeaderSize,
			)
		}

		read, err := lz4.UncompressBlock(src[lz4HeaderSize:lz4HeaderSize+length], planes)
		if err != nil {
			return 0, omchunk.ErrCorruptData.Wrap(err)
		}
		if read != len(planes) {
			return 0, omchunk.Errorf(
				omchunk.ErrCorruptData,
				"lz4 block decompressed to %d bytes, expected %d",
				read,
				len(planes),
			)
		}
		Unshuffle(dst, planes, width)
		return lz4HeaderSize + length, nil

	default:
		return 0, omchunk.Errorf(omchunk.ErrCorruptData, "unknown storage tag %s", Tag(src[0]))
	}
}
