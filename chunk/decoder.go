package chunk

import (
	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/lut"
)

// Decoder decompresses chunks. Like [Encoder], it's immutable after
// construction and safe for concurrent use on distinct scratch buffers.
type Decoder struct {
	pipeline
}

// NewDecoder returns a decoder for arrays described by `cfg`. The options must
// match the ones the data was encoded with; only [WithCodec] and
// [WithBackend] matter when decoding.
func NewDecoder(cfg *omchunk.Config, opts ...Option) (*Decoder, error) {
	p, err := newPipeline(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Decoder{pipeline: p}, nil
}

// DecodeChunkAt decompresses chunk `chunkIndex`, whose encoding starts at the
// beginning of `src`, into `view`. It returns the number of bytes of `src` the
// chunk occupied.
func (d *Decoder) DecodeChunkAt(
	src []byte,
	chunkIndex uint64,
	view omchunk.ArrayView,
	scratch []byte,
) (int, error) {
	err := d.checkScratch(scratch)
	if err != nil {
		return 0, err
	}
	start, extent, err := d.locateChunk(view, chunkIndex)
	if err != nil {
		return 0, err
	}

	rows, cols := chunkShape(extent)
	n := rows * cols
	work := scratch[:n*d.elementSize]

	consumed, err := d.codec.Decompress(src, n, work, scratch[d.workSize():])
	if err != nil {
		return 0, err
	}

	err = undoDelta(d.cfg.Method, d.elementSize, rows, cols, work)
	if err != nil {
		return 0, err
	}
	if d.quantized {
		err = dequantizeInPlace(d.quantizer, d.cfg.DataType, n, work)
		if err != nil {
			return 0, err
		}
	}

	scatter(view, start, extent, d.elementSize, work)
	return consumed, nil
}

// SkipChunk returns the number of bytes chunk `chunkIndex` occupies at the
// start of `src`. If the codec isn't a [Skipper] the chunk is decoded into
// `scratch` to find out.
func (d *Decoder) SkipChunk(src []byte, chunkIndex uint64, scratch []byte) (int, error) {
	err := d.checkScratch(scratch)
	if err != nil {
		return 0, err
	}

	count, err := d.cfg.ChunkElementCount(chunkIndex)
	if err != nil {
		return 0, err
	}

	n := int(count)
	if skipper, ok := d.codec.(Skipper); ok {
		return skipper.Skip(src, n)
	}
	return d.codec.Decompress(src, n, scratch[:n*d.elementSize], scratch[d.workSize():])
}

// ChunkOffset returns the offset of chunk `chunkIndex` within `data`, the
// array's chunk data region. Earlier chunks in the same lookup table group are
// measured with [Decoder.SkipChunk].
func (d *Decoder) ChunkOffset(table lut.Table, data []byte, chunkIndex uint64, scratch []byte) (int, error) {
	groupOffset, firstChunk, err := table.Locate(chunkIndex)
	if err != nil {
		return 0, err
	}
	if groupOffset > uint64(len(data)) {
		return 0, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"group offset %d is past the end of %d bytes of chunk data",
			groupOffset,
			len(data),
		)
	}

	position := int(groupOffset)
	for current := firstChunk; current < chunkIndex; current++ {
		size, err := d.SkipChunk(data[position:], current, scratch)
		if err != nil {
			return 0, err
		}
		position += size
	}
	return position, nil
}

// DecompressChunk finds chunk `chunkIndex` in `data` using the lookup table
// and decompresses it into `view`. It returns the compressed size of the
// chunk.
func (d *Decoder) DecompressChunk(
	table lut.Table,
	data []byte,
	chunkIndex uint64,
	view omchunk.ArrayView,
	scratch []byte,
) (int, error) {
	position, err := d.ChunkOffset(table, data, chunkIndex, scratch)
	if err != nil {
		return 0, err
	}
	return d.DecodeChunkAt(data[position:], chunkIndex, view, scratch)
}
