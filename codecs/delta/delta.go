// Package delta implements reversible 2D finite-difference transforms over
// row-major buffers.
//
// Every row except the first is replaced by its difference from the row
// above it. Neighboring rows of gridded data tend to be similar, so the
// differences are small and pack into fewer bits. The integer variants use
// wrapping arithmetic; the XOR variants work on raw float bit patterns and
// produce values that aren't meaningful as floats, only as an intermediate
// form for the float codecs.
package delta

import (
	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/internal/reinterpret"
	"golang.org/x/exp/constraints"
)

func checkShape(rows, cols, length int) error {
	if rows < 0 || cols < 0 {
		return omchunk.Errorf(
			omchunk.ErrInvalidArgument, "invalid shape %d x %d", rows, cols,
		)
	}
	if rows*cols > length {
		return omchunk.Errorf(
			omchunk.ErrBufferTooSmall,
			"shape %d x %d needs %d elements, buffer has %d",
			rows,
			cols,
			rows*cols,
			length,
		)
	}
	return nil
}

// Encode2D replaces every row after the first with its difference from the
// previous row, in place. Overflow wraps.
func Encode2D[T constraints.Integer](rows, cols int, buffer []T) error {
	err := checkShape(rows, cols, len(buffer))
	if err != nil {
		return err
	}

	// Work from the bottom up so each row is subtracted from the original
	// (not yet encoded) row above it.
	for r := rows - 1; r > 0; r-- {
		current := buffer[r*cols : (r+1)*cols]
		previous := buffer[(r-1)*cols : r*cols]
		for c := range current {
			current[c] -= previous[c]
		}
	}
	return nil
}

// Decode2D is the exact inverse of [Encode2D].
func Decode2D[T constraints.Integer](rows, cols int, buffer []T) error {
	err := checkShape(rows, cols, len(buffer))
	if err != nil {
		return err
	}

	for r := 1; r < rows; r++ {
		current := buffer[r*cols : (r+1)*cols]
		previous := buffer[(r-1)*cols : r*cols]
		for c := range current {
			current[c] += previous[c]
		}
	}
	return nil
}

// XorRows is the bitwise counterpart of [Encode2D]: each row after the first
// is XORed with the row above it.
func XorRows[T constraints.Unsigned](rows, cols int, buffer []T) error {
	err := checkShape(rows, cols, len(buffer))
	if err != nil {
		return err
	}

	for r := rows - 1; r > 0; r-- {
		current := buffer[r*cols : (r+1)*cols]
		previous := buffer[(r-1)*cols : r*cols]
		for c := range current {
			current[c] ^= previous[c]
		}
	}
	return nil
}

// UnxorRows is the exact inverse of [XorRows].
func UnxorRows[T constraints.Unsigned](rows, cols int, buffer []T) error {
	err := checkShape(rows, cols, len(buffer))
	if err != nil {
		return err
	}

	for r := 1; r < rows; r++ {
		current := buffer[r*cols : (r+1)*cols]
		previous := buffer[(r-1)*cols : r*cols]
		for c := range current {
			current[c] ^= previous[c]
		}
	}
	return nil
}

// EncodeXor2D32 applies [XorRows] to the bit patterns of a float32 buffer.
func EncodeXor2D32(rows, cols int, buffer []float32) error {
	return XorRows(rows, cols, reinterpret.Slice[uint32](buffer))
}

// DecodeXor2D32 applies [UnxorRows] to the bit patterns of a float32 buffer.
func DecodeXor2D32(rows, cols int, buffer []float32) error {
	return UnxorRows(rows, cols, reinterpret.Slice[uint32](buffer))
}

// EncodeXor2D64 applies [XorRows] to the bit patterns of a float64 buffer.
func EncodeXor2D64(rows, cols int, buffer []float64) error {
	return XorRows(rows, cols, reinterpret.Slice[uint64](buffer))
}

// DecodeXor2D64 applies [UnxorRows] to the bit patterns of a float64 buffer.
func DecodeXor2D64(rows, cols int, buffer []float64) error {
	return UnxorRows(rows, cols, reinterpret.Slice[uint64](buffer))
}

