package lut_test

import (
	"testing"

	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/lut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTable(t *testing.T, groupSize uint64, sizes []uint64) lut.Table {
	builder, err := lut.NewBuilder(groupSize, uint64(len(sizes)))
	require.NoError(t, err)

	for i, size := range sizes {
		require.NoError(t, builder.Commit(uint64(i), size))
	}
	table, err := builder.Table()
	require.NoError(t, err)
	return table
}

func TestBuilder__Groups(t *testing.T) {
	table := buildTable(t, 2, []uint64{10, 20, 5, 7, 3})
	assert.Equal(t, []uint64{0, 30, 42, 45}, table.Entries)
	assert.EqualValues(t, 3, table.NumGroups())
	assert.EqualValues(t, 45, table.DataSize())
}

func TestBuilder__GroupSizeOne(t *testing.T) {
	table := buildTable(t, 1, []uint64{4, 0, 9})
	assert.Equal(t, []uint64{0, 4, 4, 13}, table.Entries)
}

func TestBuilder__OutOfOrder(t *testing.T) {
	builder, err := lut.NewBuilder(4, 10)
	require.NoError(t, err)

	require.NoError(t, builder.Commit(0, 1))
	err = builder.Commit(2, 1)
	assert.ErrorIs(t, err, omchunk.ErrOutOfRange)

	err = builder.Commit(0, 1)
	assert.ErrorIs(t, err, omchunk.ErrOutOfRange, "recommitting a chunk must fail")
	assert.EqualValues(t, 1, builder.NextChunk())
}

func TestBuilder__TooManyChunks(t *testing.T) {
	builder, err := lut.NewBuilder(4, 1)
	require.NoError(t, err)
	require.NoError(t, builder.Commit(0, 1))
	assert.True(t, builder.Done())

	err = builder.Commit(1, 1)
	assert.ErrorIs(t, err, omchunk.ErrOutOfRange)
}

func TestBuilder__Incomplete(t *testing.T) {
	builder, err := lut.NewBuilder(4, 3)
	require.NoError(t, err)
	require.NoError(t, builder.Commit(0, 1))

	_, err = builder.Table()
	assert.ErrorIs(t, err, omchunk.ErrInvalidArgument)
}

func TestNewBuilder__ZeroGroupSize(t *testing.T) {
	_, err := lut.NewBuilder(0, 3)
	assert.ErrorIs(t, err, omchunk.ErrInvalidArgument)
}

func TestTable__Locate(t *testing.T) {
	table := buildTable(t, 3, []uint64{1, 2, 3, 4, 5, 6, 7})

	tests := []struct {
		chunk       uint64
		groupOffset uint64
		firstChunk  uint64
	}{
		{0, 0, 0},
		{2, 0, 0},
		{3, 6, 3},
		{5, 6, 3},
		{6, 21, 6},
	}
	for _, test := range tests {
		groupOffset, firstChunk, err := table.Locate(test.chunk)
		require.NoError(t, err)
		assert.Equalf(t, test.groupOffset, groupOffset, "group offset of chunk %d", test.chunk)
		assert.Equalf(t, test.firstChunk, firstChunk, "first chunk of chunk %d's group", test.chunk)
	}

	_, _, err := table.Locate(7)
	assert.ErrorIs(t, err, omchunk.ErrOutOfRange)
}

func TestTable__GroupRange(t *testing.T) {
	table := buildTable(t, 3, []uint64{1, 2, 3, 4, 5, 6, 7})

	start, end, err := table.GroupRange(1)
	require.NoError(t, err)
	assert.EqualValues(t, 6, start)
	assert.EqualValues(t, 21, end)

	_, _, err = table.GroupRange(3)
	assert.ErrorIs(t, err, omchunk.ErrOutOfRange)
}

func TestTable__MarshalAndParse(t *testing.T) {
	table := buildTable(t, 2, []uint64{10, 20, 5, 7, 3})

	data, err := table.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 4*lut.EntrySize)
	assert.Equal(t, []byte{30, 0, 0, 0, 0, 0, 0, 0}, data[8:16])

	parsed, err := lut.ParseTable(data, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, table, parsed)
}

func TestParseTable__Invalid(t *testing.T) {
	encode := func(entries ...uint64) []byte {
		data, err := lut.Table{Entries: entries}.MarshalBinary()
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not multiple of entry size", []byte{1, 2, 3}},
		{"wrong entry count", encode(0, 10)},
		{"nonzero first entry", encode(1, 10, 20, 30)},
		{"decreasing", encode(0, 10, 5, 30)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := lut.ParseTable(test.data, 2, 5)
			assert.ErrorIs(t, err, omchunk.ErrCorruptData)
		})
	}
}
