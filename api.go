package omchunk

// ArrayWriter is the interface for sessions that compress an array chunk by
// chunk and commit the results to some storage.
//
// Chunks must be written in increasing linear index order; the lookup table
// is only valid for random access if encounter order equals index order.
type ArrayWriter interface {
	// Config returns the configuration the session was created with.
	Config() *Config
	// WriteChunk compresses the chunk with the given linear index, reading its
	// elements from `view`. The view must cover the entire chunk.
	WriteChunk(view ArrayView, chunkIndex uint64) error
	// WriteArray compresses every chunk covered by `view` that hasn't been
	// written yet, in index order.
	WriteArray(view ArrayView) error
	// Close writes the lookup table and any trailing metadata. The writer must
	// not be used after this is called.
	Close() error
}

// ArrayReader is the interface for sessions that give random access to the
// chunks of a compressed array.
type ArrayReader interface {
	Config() *Config
	// ReadChunk decompresses a single chunk into `view`, which must cover the
	// entire chunk.
	ReadChunk(chunkIndex uint64, view ArrayView) error
	// ReadArray decompresses every chunk that lies entirely inside `view`.
	ReadArray(view ArrayView) error
}
