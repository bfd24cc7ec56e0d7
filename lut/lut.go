// Package lut builds and reads the lookup table that gives random access to
// compressed chunks.
//
// Chunks are grouped into runs of GroupSize consecutive chunks. The table holds
// the byte offset of the start of every group, relative to the start of the
// chunk data, followed by one terminal entry holding the total data size. A
// table for N chunks therefore has ceil(N/GroupSize)+1 entries, the first of
// which is always 0.
package lut

import (
	"encoding/binary"

	"github.com/dargueta/omchunk"
)

// EntrySize is the size of one serialized table entry, in bytes.
const EntrySize = 8

// NumGroups returns the number of groups `numChunks` chunks fall into.
func NumGroups(groupSize, numChunks uint64) uint64 {
	return (numChunks + groupSize - 1) / groupSize
}

// Builder accumulates chunk sizes as chunks are written. Chunks must be
// committed in increasing index order with no gaps. A Builder is not safe for
// concurrent use.
type Builder struct {
	groupSize uint64
	numChunks uint64
	next      uint64
	offset    uint64
	entries   []uint64
}

// NewBuilder returns a builder for an array of `numChunks` chunks.
func NewBuilder(groupSize, numChunks uint64) (*Builder, error) {
	if groupSize == 0 {
		return nil, omchunk.ErrInvalidArgument.WithMessage("group size must be positive")
	}

	entries := make([]uint64, 1, NumGroups(groupSize, numChunks)+1)
	return &Builder{
		groupSize: groupSize,
		numChunks: numChunks,
		entries:   entries,
	}, nil
}

// Commit records that chunk `chunkIndex` took `size` bytes. It must be the
// next chunk in order.
func (b *Builder) Commit(chunkIndex, size uint64) error {
	if b.next >= b.numChunks {
		return omchunk.Errorf(
			omchunk.ErrOutOfRange,
			"all %d chunks already committed, got chunk %d",
			b.numChunks,
			chunkIndex,
		)
	}
	if chunkIndex != b.next {
		return omchunk.Errorf(
			omchunk.ErrOutOfRange,
			"chunks must be committed in order: expected chunk %d, got %d",
			b.next,
			chunkIndex,
		)
	}

	b.offset += size
	b.next++
	if b.next%b.groupSize == 0 || b.next == b.numChunks {
		b.entries = append(b.entries, b.offset)
	}
	return nil
}

// NextChunk returns the index of the chunk that must be committed next.
func (b *Builder) NextChunk() uint64 {
	return b.next
}

// Offset returns the total size of all chunks committed so far.
func (b *Builder) Offset() uint64 {
	return b.offset
}

// Done returns true once every chunk has been committed.
func (b *Builder) Done() bool {
	return b.next == b.numChunks
}

// Table returns the finished table. Every chunk must have been committed.
func (b *Builder) Table() (Table, error) {
	if !b.Done() {
		return Table{}, omchunk.Errorf(
			omchunk.ErrInvalidArgument,
			"only %d of %d chunks committed",
			b.next,
			b.numChunks,
		)
	}
	return Table{
		GroupSize: b.groupSize,
		NumChunks: b.numChunks,
		Entries:   append([]uint64(nil), b.entries...),
	}, nil
}

////////////////////////////////////////////////////////////////////////////////

// Table is a finished lookup table. It's read-only and safe for concurrent use.
type Table struct {
	GroupSize uint64
	NumChunks uint64
	Entries   []uint64
}

// NumGroups returns the number of chunk groups in the table.
func (t Table) NumGroups() uint64 {
	return NumGroups(t.GroupSize, t.NumChunks)
}

// DataSize returns the total size of the chunk data.
func (t Table) DataSize() uint64 {
	if len(t.Entries) == 0 {
		return 0
	}
	return t.Entries[len(t.Entries)-1]
}

// Locate returns the offset of the group containing chunk `chunkIndex` and the
// index of the first chunk in that group. The chunk itself starts after every
// earlier chunk of its group, which have to be skipped by decoding them.
func (t Table) Locate(chunkIndex uint64) (groupOffset, firstChunk uint64, err error) {
	if chunkIndex >= t.NumChunks {
		return 0, 0, omchunk.Errorf(
			omchunk.ErrOutOfRange, "chunk %d not in range [0, %d)", chunkIndex, t.NumChunks,
		)
	}

	group := chunkIndex / t.GroupSize
	if group+1 >= uint64(len(t.Entries)) {
		return 0, 0, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"table has %d entries, too few for group %d",
			len(t.Entries),
			group,
		)
	}
	return t.Entries[group], group * t.GroupSize, nil
}

// GroupRange returns the byte range [start, end) of group `group` within the
// chunk data.
func (t Table) GroupRange(group uint64) (start, end uint64, err error) {
	numGroups := t.NumGroups()
	if group >= numGroups {
		return 0, 0, omchunk.Errorf(
			omchunk.ErrOutOfRange, "group %d not in range [0, %d)", group, numGroups,
		)
	}
	if group+1 >= uint64(len(t.Entries)) {
		return 0, 0, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"table has %d entries, too few for group %d",
			len(t.Entries),
			group,
		)
	}
	return t.Entries[group], t.Entries[group+1], nil
}

// Validate checks the table's internal consistency.
func (t Table) Validate() error {
	if t.GroupSize == 0 {
		return omchunk.ErrCorruptData.WithMessage("group size must be positive")
	}

	expected := t.NumGroups() + 1
	if uint64(len(t.Entries)) != expected {
		return omchunk.Errorf(
			omchunk.ErrCorruptData,
			"table for %d chunks in groups of %d needs %d entries, got %d",
			t.NumChunks,
			t.GroupSize,
			expected,
			len(t.Entries),
		)
	}
	if t.Entries[0] != 0 {
		return omchunk.Errorf(omchunk.ErrCorruptData, "first entry must be 0, got %d", t.Entries[0])
	}
	for i := 1; i < len(t.Entries); i++ {
		if t.Entries[i] < t.Entries[i-1] {
			return omchunk.Errorf(
				omchunk.ErrCorruptData,
				"entry %d (%d) is less than entry %d (%d)",
				i,
				t.Entries[i],
				i-1,
				t.Entries[i-1],
			)
		}
	}
	return nil
}

// MarshalBinary serializes the entries as little-endian 64-bit integers.
func (t Table) MarshalBinary() ([]byte, error) {
	output := make([]byte, 0, len(t.Entries)*EntrySize)
	for _, entry := range t.Entries {
		output = binary.LittleEndian.AppendUint64(output, entry)
	}
	return output, nil
}

// ParseTable deserializes a table written by [Table.MarshalBinary] and
// validates it.
func ParseTable(buf []byte, groupSize, numChunks uint64) (Table, error) {
	if len(buf)%EntrySize != 0 {
		return Table{}, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"table is %d bytes, not a multiple of %d",
			len(buf),
			EntrySize,
		)
	}

	table := Table{
		GroupSize: groupSize,
		NumChunks: numChunks,
		Entries:   make([]uint64, len(buf)/EntrySize),
	}
	for i := range table.Entries {
		table.Entries[i] = binary.LittleEndian.Uint64(buf[i*EntrySize:])
	}

	err := table.Validate()
	if err != nil {
		return Table{}, err
	}
	return table, nil
}
