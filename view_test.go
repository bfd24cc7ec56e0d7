package omchunk_test

import (
	"testing"

	"github.com/dargueta/omchunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewConfig(t *testing.T) *omchunk.Config {
	cfg, err := omchunk.NewConfig(omchunk.Config{
		DataType:             omchunk.Int16,
		Method:               omchunk.DeltaBitpack,
		Dimensions:           []uint64{20, 30},
		Chunks:               []uint64{5, 5},
		LutChunkElementCount: 1,
	})
	require.NoError(t, err)
	return cfg
}

func TestWholeArrayView(t *testing.T) {
	cfg := viewConfig(t)
	view := omchunk.WholeArrayView(cfg, make([]byte, 20*30*2))

	require.NoError(t, view.Validate(cfg))
	assert.True(t, view.Covers([]uint64{0, 0}, []uint64{20, 30}))
	assert.Equal(t, []uint64{30, 1}, view.Strides())
	assert.EqualValues(t, 31, view.ElementIndex([]uint64{1, 1}))
}

func TestArrayView__Window(t *testing.T) {
	cfg := viewConfig(t)

	// A 10x10 buffer whose 6x8 window starting at (2, 1) holds the array
	// region starting at (5, 10).
	view := omchunk.ArrayView{
		Data:   make([]byte, 10*10*2),
		Shape:  []uint64{10, 10},
		Offset: []uint64{2, 1},
		Count:  []uint64{6, 8},
		Origin: []uint64{5, 10},
	}
	require.NoError(t, view.Validate(cfg))

	assert.True(t, view.Covers([]uint64{5, 10}, []uint64{5, 5}))
	assert.True(t, view.Covers([]uint64{6, 13}, []uint64{5, 5}))
	assert.False(t, view.Covers([]uint64{5, 15}, []uint64{5, 5}), "past the window's end")
	assert.False(t, view.Covers([]uint64{0, 10}, []uint64{5, 5}), "before the window's origin")

	// Array element (5, 10) is the first element of the window.
	assert.EqualValues(t, 2*10+1, view.ElementIndex([]uint64{5, 10}))
	assert.EqualValues(t, 3*10+4, view.ElementIndex([]uint64{6, 13}))
}

func TestArrayView__Invalid(t *testing.T) {
	cfg := viewConfig(t)

	tests := []struct {
		name     string
		view     omchunk.ArrayView
		expected error
	}{
		{
			"wrong rank",
			omchunk.ArrayView{Data: make([]byte, 1200), Shape: []uint64{600}},
			omchunk.ErrInvalidArgument,
		},
		{
			"offset rank",
			omchunk.ArrayView{
				Data: make([]byte, 1200), Shape: []uint64{20, 30}, Offset: []uint64{0},
			},
			omchunk.ErrInvalidArgument,
		},
		{
			"origin rank",
			omchunk.ArrayView{
				Data: make([]byte, 1200), Shape: []uint64{20, 30}, Origin: []uint64{0, 0, 0},
			},
			omchunk.ErrInvalidArgument,
		},
		{
			"offset past buffer",
			omchunk.ArrayView{
				Data: make([]byte, 1200), Shape: []uint64{20, 30}, Offset: []uint64{21, 0},
			},
			omchunk.ErrOutOfRange,
		},
		{
			"window past buffer",
			omchunk.ArrayView{
				Data:   make([]byte, 1200),
				Shape:  []uint64{20, 30},
				Offset: []uint64{5, 0},
				Count:  []uint64{16, 30},
			},
			omchunk.ErrOutOfRange,
		},
		{
			"window past array",
			omchunk.ArrayView{
				Data:   make([]byte, 1200),
				Shape:  []uint64{20, 30},
				Origin: []uint64{1, 0},
			},
			omchunk.ErrOutOfRange,
		},
		{
			"data too small",
			omchunk.ArrayView{Data: make([]byte, 1199), Shape: []uint64{20, 30}},
			omchunk.ErrBufferTooSmall,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.ErrorIs(t, test.view.Validate(cfg), test.expected)
		})
	}
}
