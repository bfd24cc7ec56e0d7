package omchunk

// ArrayView describes where part of an array lives in a caller-owned buffer.
// The view owns no memory; it only tells the chunk encoder and decoder how to
// find elements.
//
// The buffer holds a dense row-major array of shape `Shape`. Inside that
// buffer, the window starting at `Offset` with extent `Count` corresponds to
// the region of the full array starting at `Origin`. Nil `Offset` and `Origin`
// are treated as all zeros, and a nil `Count` covers the buffer from `Offset`
// to the end of every axis.
type ArrayView struct {
	// Data holds the elements in little-endian byte order.
	Data   []byte
	Shape  []uint64
	Offset []uint64
	Count  []uint64
	Origin []uint64
}

// WholeArrayView returns a view of a buffer holding the entire array.
func WholeArrayView(cfg *Config, data []byte) ArrayView {
	return ArrayView{
		Data:  data,
		Shape: append([]uint64(nil), cfg.Dimensions...),
	}
}

func (v ArrayView) offsetAt(axis int) uint64 {
	if v.Offset == nil {
		return 0
	}
	return v.Offset[axis]
}

func (v ArrayView) originAt(axis int) uint64 {
	if v.Origin == nil {
		return 0
	}
	return v.Origin[axis]
}

func (v ArrayView) countAt(axis int) uint64 {
	if v.Count == nil {
		return v.Shape[axis] - v.offsetAt(axis)
	}
	return v.Count[axis]
}

// Validate checks the view's geometry against the array configuration, and
// that `Data` is large enough for `Shape`.
func (v ArrayView) Validate(cfg *Config) error {
	dims := len(cfg.Dimensions)
	if len(v.Shape) != dims {
		return Errorf(ErrInvalidArgument, "view shape has %d axes, expected %d", len(v.Shape), dims)
	}
	if v.Offset != nil && len(v.Offset) != dims {
		return Errorf(ErrInvalidArgument, "view offset has %d axes, expected %d", len(v.Offset), dims)
	}
	if v.Count != nil && len(v.Count) != dims {
		return Errorf(ErrInvalidArgument, "view count has %d axes, expected %d", len(v.Count), dims)
	}
	if v.Origin != nil && len(v.Origin) != dims {
		return Errorf(ErrInvalidArgument, "view origin has %d axes, expected %d", len(v.Origin), dims)
	}

	for axis := 0; axis < dims; axis++ {
		offset := v.offsetAt(axis)
		if offset > v.Shape[axis] {
			return Errorf(
				ErrOutOfRange,
				"view offset %d on axis %d not in range [0, %d]",
				offset,
				axis,
				v.Shape[axis],
			)
		}
		count := v.countAt(axis)
		if offset+count > v.Shape[axis] {
			return Errorf(
				ErrOutOfRange,
				"view window [%d, %d) on axis %d extends past buffer length %d",
				offset,
				offset+count,
				axis,
				v.Shape[axis],
			)
		}
		if v.originAt(axis)+count > cfg.Dimensions[axis] {
			return Errorf(
				ErrOutOfRange,
				"view region [%d, %d) on axis %d extends past array length %d",
				v.originAt(axis),
				v.originAt(axis)+count,
				axis,
				cfg.Dimensions[axis],
			)
		}
	}

	required := productUnchecked(v.Shape) * uint64(cfg.DataType.Size())
	if uint64(len(v.Data)) < required {
		return Errorf(
			ErrBufferTooSmall,
			"view data is %d bytes, shape %v of %s needs %d",
			len(v.Data),
			v.Shape,
			cfg.DataType,
			required,
		)
	}
	return nil
}

// Covers returns true if the array region starting at `start` with extent
// `extent` lies entirely inside the view's window.
func (v ArrayView) Covers(start, extent []uint64) bool {
	for axis := range start {
		origin := v.originAt(axis)
		if start[axis] < origin || start[axis]+extent[axis] > origin+v.countAt(axis) {
			return false
		}
	}
	return true
}

// ElementIndex converts a coordinate in the full array into the index of that
// element in `Data`. The coordinate must be covered by the view.
func (v ArrayView) ElementIndex(coord []uint64) uint64 {
	index := uint64(0)
	for axis, position := range coord {
		local := position - v.originAt(axis) + v.offsetAt(axis)
		index = index*v.Shape[axis] + local
	}
	return index
}

// Strides returns the distance in elements between neighbors along each axis
// of the view's buffer.
func (v ArrayView) Strides() []uint64 {
	strides := make([]uint64, len(v.Shape))
	stride := uint64(1)
	for axis := len(v.Shape) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= v.Shape[axis]
	}
	return strides
}
