package container

import (
	"io"
	"log/slog"

	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/chunk"
	"github.com/dargueta/omchunk/lut"
	"github.com/zeebo/blake3"
)

// Writer compresses an array chunk by chunk into a container. Chunks must be
// written in linear index order. A Writer isn't safe for concurrent use.
type Writer struct {
	output     io.Writer
	cfg        *omchunk.Config
	encoder    *chunk.Encoder
	builder    *lut.Builder
	hasher     *blake3.Hasher
	logger     *slog.Logger
	scratch    []byte
	buffer     []byte
	dataOffset uint64
	clamped    int
	closed     bool
}

var _ omchunk.ArrayWriter = (*Writer)(nil)

// NewWriter writes the container header for `cfg` to `output` and returns a
// writer ready to accept chunk 0.
func NewWriter(output io.Writer, cfg *omchunk.Config, opts ...Option) (*Writer, error) {
	o := newOptions(opts)

	encoder, err := chunk.NewEncoder(cfg, o.chunkConfig...)
	if err != nil {
		return nil, err
	}
	builder, err := lut.NewBuilder(cfg.LutChunkElementCount, cfg.NumChunks())
	if err != nil {
		return nil, err
	}

	header, err := marshalHeader(cfg, o.attributes)
	if err != nil {
		return nil, err
	}
	_, err = output.Write(header)
	if err != nil {
		return nil, omchunk.ErrIOFailed.Wrap(err)
	}

	o.logger.Debug(
		"container header written",
		"data_type", cfg.DataType.String(),
		"method", cfg.Method.String(),
		"dimensions", cfg.Dimensions,
		"chunks", cfg.Chunks,
		"num_chunks", cfg.NumChunks(),
		"header_bytes", len(header),
	)

	return &Writer{
		output:     output,
		cfg:        cfg,
		encoder:    encoder,
		builder:    builder,
		hasher:     blake3.New(),
		logger:     o.logger,
		scratch:    chunk.NewScratch(encoder.ScratchSize()),
		buffer:     make([]byte, encoder.ChunkBound()),
		dataOffset: uint64(len(header)),
	}, nil
}

// Config returns the array configuration.
func (w *Writer) Config() *omchunk.Config {
	return w.cfg
}

// NextChunk returns the index of the chunk [Writer.WriteChunk] expects next.
func (w *Writer) NextChunk() uint64 {
	return w.builder.NextChunk()
}

// Clamped returns the total number of values clamped so far.
func (w *Writer) Clamped() int {
	return w.clamped
}

func (w *Writer) checkOpen() error {
	if w.closed {
		return omchunk.ErrInvalidArgument.WithMessage("writer is closed")
	}
	return nil
}

// WriteChunk compresses chunk `chunkIndex` from `view` and appends it to the
// output.
func (w *Writer) WriteChunk(view omchunk.ArrayView, chunkIndex uint64) error {
	err := w.checkOpen()
	if err != nil {
		return err
	}
	if chunkIndex != w.builder.NextChunk() {
		return omchunk.Errorf(
			omchunk.ErrOutOfRange,
			"chunks must be written in order: expected %d, got %d",
			w.builder.NextChunk(),
			chunkIndex,
		)
	}

	report, err := w.encoder.CompressChunk(view, chunkIndex, w.buffer, 0, w.scratch)
	if err != nil {
		return err
	}

	compressed := w.buffer[:report.BytesWritten]
	_, err = w.output.Write(compressed)
	if err != nil {
		return omchunk.ErrIOFailed.Wrap(err)
	}
	w.hasher.Write(compressed)

	err = w.builder.Commit(chunkIndex, uint64(report.BytesWritten))
	if err != nil {
		return err
	}

	w.clamped += report.Clamped
	if report.Clamped > 0 {
		w.logger.Warn(
			"values clamped during quantization",
			"chunk", chunkIndex,
			"clamped", report.Clamped,
		)
	}
	w.logger.Debug("chunk written", "chunk", chunkIndex, "bytes", report.BytesWritten)
	return nil
}

// WriteArray writes chunks from `view` starting at [Writer.NextChunk], and
// stops at the first chunk the view doesn't entirely cover. Feeding it
// consecutive slabs of the array writes the whole thing.
func (w *Writer) WriteArray(view omchunk.ArrayView) error {
	err := w.checkOpen()
	if err != nil {
		return err
	}
	err = view.Validate(w.cfg)
	if err != nil {
		return err
	}

	total := w.cfg.NumChunks()
	for index := w.builder.NextChunk(); index < total; index++ {
		start, extent, err := w.cfg.ChunkBounds(index)
		if err != nil {
			return err
		}
		if !view.Covers(start, extent) {
			break
		}

		err = w.WriteChunk(view, index)
		if err != nil {
			return err
		}
	}
	return nil
}

// Close writes the lookup table and the trailer. Every chunk must have been
// written. Close doesn't close the underlying writer.
func (w *Writer) Close() error {
	err := w.checkOpen()
	if err != nil {
		return err
	}

	table, err := w.builder.Table()
	if err != nil {
		return err
	}
	encodedTable, err := table.MarshalBinary()
	if err != nil {
		return err
	}

	trailer := Trailer{
		DataOffset:    w.dataOffset,
		LutOffset:     w.dataOffset + table.DataSize(),
		LutEntryCount: uint64(len(table.Entries)),
	}
	copy(trailer.Digest[:], w.hasher.Sum(nil))
	encodedTrailer, err := trailer.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = w.output.Write(encodedTable)
	if err != nil {
		return omchunk.ErrIOFailed.Wrap(err)
	}
	_, err = w.output.Write(encodedTrailer)
	if err != nil {
		return omchunk.ErrIOFailed.Wrap(err)
	}

	w.closed = true
	w.logger.Info(
		"container finished",
		"chunks", table.NumChunks,
		"data_bytes", table.DataSize(),
		"raw_bytes", w.cfg.TotalElements()*uint64(w.cfg.DataType.Size()),
		"clamped", w.clamped,
	)
	return nil
}
