// Package chunk compresses and decompresses individual chunks of an array.
//
// Encoding a chunk copies its elements out of the caller's buffer, quantizes
// them if the array is float data compressed with [omchunk.DeltaBitpack],
// applies a 2D delta over the chunk's innermost axis, and hands the result to
// a [Codec]. Decoding runs the same stages in reverse. All intermediate data
// lives in a caller-supplied scratch buffer, so encoders and decoders hold no
// per-chunk state and can be shared between goroutines.
package chunk

import (
	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/codecs/bitpack"
	"github.com/dargueta/omchunk/internal/reinterpret"
	"github.com/dargueta/omchunk/quantize"
)

// Option customizes an [Encoder] or [Decoder].
type Option func(*settings)

type settings struct {
	codec   Codec
	backend bitpack.Backend
	policy  quantize.Policy
}

// WithCodec replaces the codec the configuration would normally select.
func WithCodec(codec Codec) Option {
	return func(s *settings) {
		s.codec = codec
	}
}

// WithBackend selects the bit-pack backend used by the default codec. It has no
// effect if [WithCodec] is also given.
func WithBackend(backend bitpack.Backend) Option {
	return func(s *settings) {
		s.backend = backend
	}
}

// WithClampPolicy sets what the encoder does with values that don't fit after
// quantization. The default is [quantize.Clamp].
func WithClampPolicy(policy quantize.Policy) Option {
	return func(s *settings) {
		s.policy = policy
	}
}

// pipeline holds everything the encoder and decoder share.
type pipeline struct {
	cfg         *omchunk.Config
	codec       Codec
	quantizer   quantize.Quantizer
	quantized   bool
	elementSize int
	maxElements int
}

func newPipeline(cfg *omchunk.Config, opts []Option) (pipeline, error) {
	err := cfg.Validate()
	if err != nil {
		return pipeline{}, err
	}

	s := settings{backend: bitpack.Default(), policy: quantize.Clamp}
	for _, opt := range opts {
		opt(&s)
	}

	p := pipeline{
		cfg:         cfg,
		codec:       s.codec,
		quantized:   cfg.Quantized(),
		elementSize: cfg.DataType.Size(),
		maxElements: int(cfg.MaxChunkElements()),
	}

	if p.codec == nil {
		p.codec, err = NewCodec(cfg, s.backend)
		if err != nil {
			return pipeline{}, err
		}
	}
	if p.quantized {
		p.quantizer, err = quantize.FromConfig(cfg, s.policy)
		if err != nil {
			return pipeline{}, err
		}
	}
	return p, nil
}

// Config returns the array configuration.
func (p *pipeline) Config() *omchunk.Config {
	return p.cfg
}

// Codec returns the codec in use.
func (p *pipeline) Codec() Codec {
	return p.codec
}

func (p *pipeline) workSize() int {
	return alignUp(p.maxElements * p.elementSize)
}

// ScratchSize returns the minimum size of the scratch buffer passed to every
// chunk operation.
func (p *pipeline) ScratchSize() int {
	return p.workSize() + p.codec.ScratchSize(p.maxElements)
}

// ChunkBound returns the largest number of bytes any one chunk can compress
// to.
func (p *pipeline) ChunkBound() int {
	return p.codec.Bound(p.maxElements)
}

func (p *pipeline) checkScratch(scratch []byte) error {
	required := p.ScratchSize()
	if len(scratch) < required {
		return omchunk.Errorf(
			omchunk.ErrBufferTooSmall,
			"scratch buffer is %d bytes, need %d",
			len(scratch),
			required,
		)
	}
	if !reinterpret.Aligned(scratch, scratchAlignment) {
		return omchunk.Errorf(
			omchunk.ErrInvalidArgument,
			"scratch buffer must be aligned to %d bytes",
			scratchAlignment,
		)
	}
	return nil
}

// locateChunk validates the view and returns the bounds of the chunk, which
// must lie entirely inside the view's window.
func (p *pipeline) locateChunk(view omchunk.ArrayView, chunkIndex uint64) ([]uint64, []uint64, error) {
	err := view.Validate(p.cfg)
	if err != nil {
		return nil, nil, err
	}

	start, extent, err := p.cfg.ChunkBounds(chunkIndex)
	if err != nil {
		return nil, nil, err
	}
	if !view.Covers(start, extent) {
		return nil, nil, omchunk.Errorf(
			omchunk.ErrOutOfRange,
			"chunk %d at %v with extent %v isn't inside the view",
			chunkIndex,
			start,
			extent,
		)
	}
	return start, extent, nil
}

////////////////////////////////////////////////////////////////////////////////

// Report describes the result of compressing one chunk.
type Report struct {
	// BytesWritten is the size of the compressed chunk.
	BytesWritten int
	// Quantization results. Clamped is always 0 for arrays that aren't
	// quantized.
	quantize.Report
}

// Encoder compresses chunks. It's immutable after construction and safe for
// concurrent use on distinct scratch buffers.
type Encoder struct {
	pipeline
}

// NewEncoder returns an encoder for arrays described by `cfg`.
func NewEncoder(cfg *omchunk.Config, opts ...Option) (*Encoder, error) {
	p, err := newPipeline(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Encoder{pipeline: p}, nil
}

// CompressChunk compresses chunk `chunkIndex`, reading its elements from
// `view`, and writes the result to `out` starting at `offset`.
func (e *Encoder) CompressChunk(
	view omchunk.ArrayView,
	chunkIndex uint64,
	out []byte,
	offset int,
	scratch []byte,
) (Report, error) {
	var report Report

	if offset < 0 || offset > len(out) {
		return report, omchunk.Errorf(
			omchunk.ErrInvalidArgument,
			"offset %d not in range [0, %d]",
			offset,
			len(out),
		)
	}
	err := e.checkScratch(scratch)
	if err != nil {
		return report, err
	}
	start, extent, err := e.locateChunk(view, chunkIndex)
	if err != nil {
		return report, err
	}

	rows, cols := chunkShape(extent)
	n := rows * cols
	work := scratch[:n*e.elementSize]
	codecScratch := scratch[e.workSize():]

	gather(view, start, extent, e.elementSize, work)

	if e.quantized {
		report.Report, err = quantizeInPlace(e.quantizer, e.cfg.DataType, n, work)
		if err != nil {
			return report, err
		}
	}

	err = applyDelta(e.cfg.Method, e.elementSize, rows, cols, work)
	if err != nil {
		return report, err
	}

	report.BytesWritten, err = e.codec.Compress(work, n, out[offset:], codecScratch)
	return report, err
}
