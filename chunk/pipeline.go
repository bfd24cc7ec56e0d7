package chunk

import (
	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/codecs/delta"
	"github.com/dargueta/omchunk/internal/reinterpret"
	"github.com/dargueta/omchunk/quantize"
)

// scratchAlignment is the alignment every scratch buffer must have so it can
// be viewed as a slice of any element type.
const scratchAlignment = 8

func alignUp(size int) int {
	return (size + scratchAlignment - 1) &^ (scratchAlignment - 1)
}

// NewScratch allocates a suitably aligned scratch buffer of `size` bytes.
func NewScratch(size int) []byte {
	words := make([]uint64, (size+7)/8)
	return reinterpret.Bytes(words)[:size]
}

// forEachRow calls `fn` with the coordinate of the first element of every
// innermost-axis row of the region starting at `start` with extent `extent`.
// Rows are visited in row-major order. `fn` must not keep the coordinate.
func forEachRow(start, extent []uint64, fn func(coord []uint64)) {
	dims := len(start)
	coord := append([]uint64(nil), start...)

	for {
		fn(coord)

		axis := dims - 2
		for ; axis >= 0; axis-- {
			coord[axis]++
			if coord[axis] < start[axis]+extent[axis] {
				break
			}
			coord[axis] = start[axis]
		}
		if axis < 0 {
			return
		}
	}
}

// gather copies the region of the array described by `start` and `extent` out
// of the view and into `work`, packed in row-major order.
func gather(view omchunk.ArrayView, start, extent []uint64, elementSize int, work []byte) {
	rowBytes := int(extent[len(extent)-1]) * elementSize
	position := 0

	forEachRow(start, extent, func(coord []uint64) {
		from := int(view.ElementIndex(coord)) * elementSize
		copy(work[position:position+rowBytes], view.Data[from:from+rowBytes])
		position += rowBytes
	})
}

// scatter is the inverse of gather.
func scatter(view omchunk.ArrayView, start, extent []uint64, elementSize int, work []byte) {
	rowBytes := int(extent[len(extent)-1]) * elementSize
	position := 0

	forEachRow(start, extent, func(coord []uint64) {
		to := int(view.ElementIndex(coord)) * elementSize
		copy(view.Data[to:to+rowBytes], work[position:position+rowBytes])
		position += rowBytes
	})
}

// applyDelta runs the forward delta for `method` over `rows` x `cols` elements
// of `elementSize` bytes, in place.
func applyDelta(method omchunk.Method, elementSize, rows, cols int, work []byte) error {
	if method == omchunk.DeltaBitpack {
		switch elementSize {
		case 1:
			return delta.Encode2D(rows, cols, reinterpret.Slice[uint8](work))
		case 2:
			return delta.Encode2D(rows, cols, reinterpret.Slice[uint16](work))
		case 4:
			return delta.Encode2D(rows, cols, reinterpret.Slice[uint32](work))
		default:
			return delta.Encode2D(rows, cols, reinterpret.Slice[uint64](work))
		}
	}

	if elementSize == 4 {
		return delta.XorRows(rows, cols, reinterpret.Slice[uint32](work))
	}
	return delta.XorRows(rows, cols, reinterpret.Slice[uint64](work))
}

// undoDelta is the inverse of applyDelta.
func undoDelta(method omchunk.Method, elementSize, rows, cols int, work []byte) error {
	if method == omchunk.DeltaBitpack {
		switch elementSize {
		case 1:
			return delta.Decode2D(rows, cols, reinterpret.Slice[uint8](work))
		case 2:
			return delta.Decode2D(rows, cols, reinterpret.Slice[uint16](work))
		case 4:
			return delta.Decode2D(rows, cols, reinterpret.Slice[uint32](work))
		default:
			return delta.Decode2D(rows, cols, reinterpret.Slice[uint64](work))
		}
	}

	if elementSize == 4 {
		return delta.UnxorRows(rows, cols, reinterpret.Slice[uint32](work))
	}
	return delta.UnxorRows(rows, cols, reinterpret.Slice[uint64](work))
}

// quantizeInPlace replaces the floats in `work` with their quantized integers.
// Each float is read before its slot is overwritten.
func quantizeInPlace(
	q quantize.Quantizer, dataType omchunk.DataType, n int, work []byte,
) (quantize.Report, error) {
	if dataType == omchunk.Float32 {
		return q.Quantize32(reinterpret.Slice[float32](work)[:n], reinterpret.Slice[int32](work))
	}
	return q.Quantize64(reinterpret.Slice[float64](work)[:n], reinterpret.Slice[int64](work))
}

func dequantizeInPlace(q quantize.Quantizer, dataType omchunk.DataType, n int, work []byte) error {
	if dataType == omchunk.Float32 {
		return q.Dequantize32(reinterpret.Slice[int32](work)[:n], reinterpret.Slice[float32](work))
	}
	return q.Dequantize64(reinterpret.Slice[int64](work)[:n], reinterpret.Slice[float64](work))
}

// chunkShape returns the 2D shape the delta transform sees: one row per
// innermost-axis run.
func chunkShape(extent []uint64) (rows, cols int) {
	cols = int(extent[len(extent)-1])
	rows = 1
	for _, length := range extent[:len(extent)-1] {
		rows *= int(length)
	}
	return rows, cols
}
