package container

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/chunk"
	"github.com/dargueta/omchunk/lut"
	"github.com/zeebo/blake3"
)

// Reader gives random access to the chunks of a container. It caches the
// most recently read lookup table group, so it isn't safe for concurrent use.
// Open one Reader per goroutine instead; they're cheap.
type Reader struct {
	input      io.ReaderAt
	cfg        *omchunk.Config
	attributes map[string]string
	table      lut.Table
	trailer    Trailer
	decoder    *chunk.Decoder
	logger     *slog.Logger
	scratch    []byte

	// The cached group. positions[i] is the offset of the group's i-th chunk
	// within groupData, for as many chunks as have been measured so far.
	cachedGroup uint64
	groupData   []byte
	positions   []int
}

var _ omchunk.ArrayReader = (*Reader)(nil)

func readAt(input io.ReaderAt, offset int64, size int) ([]byte, error) {
	buffer := make([]byte, size)
	n, err := input.ReadAt(buffer, offset)
	if err != nil && !(n == size && err == io.EOF) {
		return nil, omchunk.ErrIOFailed.Wrap(err)
	}
	return buffer, nil
}

// Open reads the header, lookup table and trailer of the `size`-byte container
// in `input`. Chunk data is only read on demand.
func Open(input io.ReaderAt, size int64, opts ...Option) (*Reader, error) {
	o := newOptions(opts)

	if size < int64(fixedHeaderSize+TrailerSize) {
		return nil, omchunk.Errorf(
			omchunk.ErrCorruptData, "container is too small: %d bytes", size,
		)
	}

	rawTrailer, err := readAt(input, size-TrailerSize, TrailerSize)
	if err != nil {
		return nil, err
	}
	trailer, err := ParseTrailer(rawTrailer)
	if err != nil {
		return nil, err
	}

	rawFixedHeader, err := readAt(input, 0, fixedHeaderSize)
	if err != nil {
		return nil, err
	}
	fixed, err := parseFixedHeader(rawFixedHeader)
	if err != nil {
		return nil, err
	}

	dims := int(fixed.DimensionCount)
	rawShape, err := readAt(input, fixedHeaderSize, 16*dims)
	if err != nil {
		return nil, err
	}
	cfg, err := parseShape(fixed, rawShape)
	if err != nil {
		return nil, err
	}

	headerEnd := int64(headerSize(dims))
	attributes := map[string]string{}
	if fixed.Flags&flagAttributes != 0 {
		rawLength, err := readAt(input, headerEnd, 4)
		if err != nil {
			return nil, err
		}
		length := int64(binary.LittleEndian.Uint32(rawLength))
		headerEnd += 4
		if headerEnd+length > size-TrailerSize {
			return nil, omchunk.Errorf(
				omchunk.ErrCorruptData,
				"%d bytes of attributes run past the end of the container",
				length,
			)
		}

		rawAttributes, err := readAt(input, headerEnd, int(length))
		if err != nil {
			return nil, err
		}
		attributes, err = parseAttributes(rawAttributes)
		if err != nil {
			return nil, err
		}
		headerEnd += length
	}

	table, err := readTable(input, size, cfg, trailer, uint64(headerEnd))
	if err != nil {
		return nil, err
	}

	decoder, err := chunk.NewDecoder(cfg, o.chunkConfig...)
	if err != nil {
		return nil, err
	}

	o.logger.Debug(
		"container opened",
		"data_type", cfg.DataType.String(),
		"method", cfg.Method.String(),
		"dimensions", cfg.Dimensions,
		"num_chunks", cfg.NumChunks(),
		"data_bytes", table.DataSize(),
	)

	return &Reader{
		input:       input,
		cfg:         cfg,
		attributes:  attributes,
		table:       table,
		trailer:     trailer,
		decoder:     decoder,
		logger:      o.logger,
		scratch:     chunk.NewScratch(decoder.ScratchSize()),
		cachedGroup: ^uint64(0),
	}, nil
}

// readTable checks the offsets in the trailer against the rest of the
// container and loads the lookup table.
func readTable(
	input io.ReaderAt,
	size int64,
	cfg *omchunk.Config,
	trailer Trailer,
	headerEnd uint64,
) (lut.Table, error) {
	if trailer.DataOffset != headerEnd {
		return lut.Table{}, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"chunk data should start at %d, trailer says %d",
			headerEnd,
			trailer.DataOffset,
		)
	}

	expectedEntries := cfg.NumLutGroups() + 1
	if trailer.LutEntryCount != expectedEntries {
		return lut.Table{}, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"expected %d lookup table entries, trailer says %d",
			expectedEntries,
			trailer.LutEntryCount,
		)
	}

	tableEnd := uint64(size - TrailerSize)
	tableSize := trailer.LutEntryCount * lut.EntrySize
	if trailer.LutEntryCount > tableEnd/lut.EntrySize ||
		trailer.LutOffset < trailer.DataOffset ||
		trailer.LutOffset > tableEnd ||
		tableEnd-trailer.LutOffset != tableSize {
		return lut.Table{}, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"lookup table at %d with %d entries doesn't fit in a %d-byte container",
			trailer.LutOffset,
			trailer.LutEntryCount,
			size,
		)
	}

	rawTable, err := readAt(input, int64(trailer.LutOffset), int(tableSize))
	if err != nil {
		return lut.Table{}, err
	}
	table, err := lut.ParseTable(rawTable, cfg.LutChunkElementCount, cfg.NumChunks())
	if err != nil {
		return lut.Table{}, err
	}

	dataSize := trailer.LutOffset - trailer.DataOffset
	if table.DataSize() != dataSize {
		return lut.Table{}, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"lookup table covers %d bytes of chunk data, container has %d",
			table.DataSize(),
			dataSize,
		)
	}
	return table, nil
}

// Config returns the array configuration stored in the header.
func (r *Reader) Config() *omchunk.Config {
	return r.cfg
}

// Attributes returns the metadata stored in the header. The map is empty if
// there is none.
func (r *Reader) Attributes() map[string]string {
	return r.attributes
}

// Table returns the lookup table.
func (r *Reader) Table() lut.Table {
	return r.table
}

// Trailer returns the container trailer.
func (r *Reader) Trailer() Trailer {
	return r.trailer
}

// loadGroup makes `group` the cached group.
func (r *Reader) loadGroup(group uint64) error {
	if group == r.cachedGroup {
		return nil
	}

	start, end, err := r.table.GroupRange(group)
	if err != nil {
		return err
	}
	data, err := readAt(r.input, int64(r.trailer.DataOffset+start), int(end-start))
	if err != nil {
		return err
	}

	r.cachedGroup = group
	r.groupData = data
	r.positions = append(r.positions[:0], 0)
	r.logger.Debug("group loaded", "group", group, "bytes", len(data))
	return nil
}

// locate returns the offset of chunk `chunkIndex` within its group, which is
// loaded if necessary.
func (r *Reader) locate(chunkIndex uint64) (int, error) {
	if chunkIndex >= r.table.NumChunks {
		return 0, omchunk.Errorf(
			omchunk.ErrOutOfRange, "chunk %d not in range [0, %d)", chunkIndex, r.table.NumChunks,
		)
	}

	group := chunkIndex / r.table.GroupSize
	err := r.loadGroup(group)
	if err != nil {
		return 0, err
	}

	firstChunk := group * r.table.GroupSize
	target := int(chunkIndex - firstChunk)
	for len(r.positions) <= target {
		known := len(r.positions) - 1
		position := r.positions[known]
		size, err := r.decoder.SkipChunk(r.groupData[position:], firstChunk+uint64(known), r.scratch)
		if err != nil {
			return 0, err
		}
		r.positions = append(r.positions, position+size)
	}
	return r.positions[target], nil
}

// ReadChunk decompresses chunk `chunkIndex` into `view`.
func (r *Reader) ReadChunk(chunkIndex uint64, view omchunk.ArrayView) error {
	position, err := r.locate(chunkIndex)
	if err != nil {
		return err
	}

	size, err := r.decoder.DecodeChunkAt(r.groupData[position:], chunkIndex, view, r.scratch)
	if err != nil {
		return err
	}

	target := int(chunkIndex % r.table.GroupSize)
	if len(r.positions) == target+1 {
		r.positions = append(r.positions, position+size)
	}
	return nil
}

// ReadArray decompresses every chunk that lies entirely inside `view`.
func (r *Reader) ReadArray(view omchunk.ArrayView) error {
	err := view.Validate(r.cfg)
	if err != nil {
		return err
	}

	for index := uint64(0); index < r.table.NumChunks; index++ {
		start, extent, err := r.cfg.ChunkBounds(index)
		if err != nil {
			return err
		}
		if !view.Covers(start, extent) {
			continue
		}

		err = r.ReadChunk(index, view)
		if err != nil {
			return err
		}
	}
	return nil
}

// ChunkSizes returns the compressed size of every chunk.
func (r *Reader) ChunkSizes() ([]uint64, error) {
	sizes := make([]uint64, r.table.NumChunks)
	for index := range sizes {
		position, err := r.locate(uint64(index))
		if err != nil {
			return nil, err
		}
		size, err := r.decoder.SkipChunk(r.groupData[position:], uint64(index), r.scratch)
		if err != nil {
			return nil, err
		}
		sizes[index] = uint64(size)
	}
	return sizes, nil
}

// Verify hashes the chunk data and compares it to the digest in the trailer.
func (r *Reader) Verify() error {
	hasher := blake3.New()
	section := io.NewSectionReader(
		r.input, int64(r.trailer.DataOffset), int64(r.table.DataSize()),
	)
	_, err := io.Copy(hasher, section)
	if err != nil {
		return omchunk.ErrIOFailed.Wrap(err)
	}

	digest := hasher.Sum(nil)
	if !bytes.Equal(digest, r.trailer.Digest[:]) {
		return omchunk.Errorf(
			omchunk.ErrCorruptData,
			"chunk data digest is %x, trailer says %x",
			digest,
			r.trailer.Digest[:],
		)
	}
	return nil
}
