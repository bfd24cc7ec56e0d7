package omchunk

// ChunkCounts returns the number of chunks along each axis, counting partial
// chunks on the upper boundary.
func (c *Config) ChunkCounts() []uint64 {
	counts := make([]uint64, len(c.Dimensions))
	for i, length := range c.Dimensions {
		counts[i] = (length + c.Chunks[i] - 1) / c.Chunks[i]
	}
	return counts
}

// NumChunks returns the total number of chunks in the array.
func (c *Config) NumChunks() uint64 {
	total := uint64(1)
	for _, count := range c.ChunkCounts() {
		total *= count
	}
	return total
}

// NumLutGroups returns the number of chunk groups the lookup table has one
// entry for.
func (c *Config) NumLutGroups() uint64 {
	return (c.NumChunks() + c.LutChunkElementCount - 1) / c.LutChunkElementCount
}

// MaxChunkElements returns the number of elements in a full (non-boundary)
// chunk, which is the most any chunk can hold.
func (c *Config) MaxChunkElements() uint64 {
	total := uint64(1)
	for _, length := range c.Chunks {
		total *= length
	}
	return total
}

// ChunkCoordinate converts a linear chunk index into its per-axis coordinate in
// the chunk grid. Chunks are enumerated in row-major order.
func (c *Config) ChunkCoordinate(chunkIndex uint64) ([]uint64, error) {
	numChunks := c.NumChunks()
	if chunkIndex >= numChunks {
		return nil, Errorf(ErrOutOfRange, "chunk %d not in range [0, %d)", chunkIndex, numChunks)
	}

	counts := c.ChunkCounts()
	coord := make([]uint64, len(counts))
	for axis := len(counts) - 1; axis >= 0; axis-- {
		coord[axis] = chunkIndex % counts[axis]
		chunkIndex /= counts[axis]
	}
	return coord, nil
}

// ChunkIndex is the inverse of [Config.ChunkCoordinate].
func (c *Config) ChunkIndex(coord []uint64) (uint64, error) {
	if len(coord) != len(c.Dimensions) {
		return 0, Errorf(
			ErrInvalidArgument,
			"chunk coordinate has %d axes, expected %d",
			len(coord),
			len(c.Dimensions),
		)
	}

	counts := c.ChunkCounts()
	index := uint64(0)
	for axis, position := range coord {
		if position >= counts[axis] {
			return 0, Errorf(
				ErrOutOfRange,
				"chunk coordinate %d on axis %d not in range [0, %d)",
				position,
				axis,
				counts[axis],
			)
		}
		index = index*counts[axis] + position
	}
	return index, nil
}

// ChunkBounds returns the first array element covered by a chunk and the
// chunk's true extent along each axis. Chunks touching the upper boundary of
// an axis are truncated to the array's length.
func (c *Config) ChunkBounds(chunkIndex uint64) (start []uint64, extent []uint64, err error) {
	coord, err := c.ChunkCoordinate(chunkIndex)
	if err != nil {
		return nil, nil, err
	}

	start = make([]uint64, len(coord))
	extent = make([]uint64, len(coord))
	for axis, position := range coord {
		start[axis] = position * c.Chunks[axis]
		extent[axis] = min(c.Chunks[axis], c.Dimensions[axis]-start[axis])
	}
	return start, extent, nil
}

// ChunkExtent returns the true extent of a chunk along each axis.
func (c *Config) ChunkExtent(chunkIndex uint64) ([]uint64, error) {
	_, extent, err := c.ChunkBounds(chunkIndex)
	return extent, err
}

// ChunkElementCount returns the number of elements in the given chunk.
func (c *Config) ChunkElementCount(chunkIndex uint64) (uint64, error) {
	extent, err := c.ChunkExtent(chunkIndex)
	if err != nil {
		return 0, err
	}
	return productUnchecked(extent), nil
}

func productUnchecked(values []uint64) uint64 {
	total := uint64(1)
	for _, v := range values {
		total *= v
	}
	return total
}
