// Package compression wraps whole container files in a zstd stream.
//
// Chunks inside a container are already compressed individually, but the
// header, attributes and lookup table aren't, and arrays of mostly constant
// data leave redundancy between chunks that a general-purpose compressor can
// still find. Wrapping a container is optional; the command line tool does it
// with --zstd and detects wrapped files by their magic number when reading.

package compression
