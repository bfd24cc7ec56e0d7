// Package container stores a chunk-compressed array in a single self-describing
// stream: a header carrying the array configuration, the compressed chunks, the
// lookup table, and a trailer that locates everything and carries a digest of
// the chunk data.
//
//	+--------------------+
//	| header             |  magic, version, configuration, dimensions, chunks
//	| attributes         |  optional CBOR map of string to string
//	+--------------------+
//	| chunk data         |  chunks in linear index order
//	+--------------------+
//	| lookup table       |  little-endian uint64 group offsets
//	+--------------------+
//	| trailer            |  offsets, BLAKE3 digest of the chunk data, magic
//	+--------------------+
package container

import (
	"log/slog"

	"github.com/dargueta/omchunk/chunk"
	"github.com/dargueta/omchunk/codecs/bitpack"
	"github.com/dargueta/omchunk/quantize"
)

// Option customizes a [Writer] or [Reader].
type Option func(*options)

type options struct {
	logger      *slog.Logger
	attributes  map[string]string
	chunkConfig []chunk.Option
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAttributes stores free-form metadata in the container header. Readers
// ignore it.
func WithAttributes(attributes map[string]string) Option {
	return func(o *options) {
		o.attributes = attributes
	}
}

// WithClampPolicy sets what happens to values that overflow the quantized
// integer range.
func WithClampPolicy(policy quantize.Policy) Option {
	return func(o *options) {
		o.chunkConfig = append(o.chunkConfig, chunk.WithClampPolicy(policy))
	}
}

// WithBackend selects the bit-pack backend. The output is identical with every
// backend.
func WithBackend(backend bitpack.Backend) Option {
	return func(o *options) {
		o.chunkConfig = append(o.chunkConfig, chunk.WithBackend(backend))
	}
}
