package omchunk

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/hashicorp/go-multierror"
)

// ChunkElementLimit is the most elements one chunk may hold. Every chunk
// operation needs a scratch buffer big enough for a full chunk, so this also
// bounds the memory a container header can make a reader allocate.
const ChunkElementLimit = 1 << 24

// Config describes an array and how it's chunked and compressed. Create one
// with [NewConfig]; the returned value is shared by every chunk operation in an
// encode or decode session and must not be modified afterwards.
type Config struct {
	DataType DataType
	Method   Method
	// Dimensions gives the length of the array along each axis, slowest-varying
	// axis first.
	Dimensions []uint64
	// Chunks gives the chunk length along each axis. Chunks on the upper
	// boundary of an axis may be shorter.
	Chunks []uint64
	// ScaleFactor and AddOffset are only used when a float array is compressed
	// with [DeltaBitpack]: q = round((raw - AddOffset) * ScaleFactor). For any
	// other combination they're ignored, and [NewConfig] resets them to 1 and 0.
	ScaleFactor float64
	AddOffset   float64
	// LutChunkElementCount is the number of chunks that share one lookup table
	// entry.
	LutChunkElementCount uint64
}

// NewConfig validates `params` and returns a copy that doesn't share memory
// with it.
func NewConfig(params Config) (*Config, error) {
	err := params.Validate()
	if err != nil {
		return nil, err
	}

	cfg := params
	cfg.Dimensions = append([]uint64(nil), params.Dimensions...)
	cfg.Chunks = append([]uint64(nil), params.Chunks...)
	if !cfg.Quantized() {
		cfg.ScaleFactor = 1
		cfg.AddOffset = 0
	}
	return &cfg, nil
}

// product multiplies `values` together. The second return value is false if
// the result doesn't fit in a uint64.
func product(values []uint64) (uint64, bool) {
	total := uint64(1)
	for _, value := range values {
		high, low := bits.Mul64(total, value)
		if high != 0 {
			return 0, false
		}
		total = low
	}
	return total, true
}

// Validate checks every constraint on the configuration and reports all
// violations at once, wrapped in [ErrInvalidConfiguration].
func (c Config) Validate() error {
	var problems *multierror.Error

	if len(c.Dimensions) == 0 {
		problems = multierror.Append(problems, fmt.Errorf("at least one dimension is required"))
	}
	if len(c.Dimensions) != len(c.Chunks) {
		problems = multierror.Append(
			problems,
			fmt.Errorf(
				"array has %d dimensions but chunk shape has %d",
				len(c.Dimensions),
				len(c.Chunks),
			),
		)
	}

	for i, length := range c.Dimensions {
		if length == 0 {
			problems = multierror.Append(problems, fmt.Errorf("dimension %d has length 0", i))
			continue
		}
		if i >= len(c.Chunks) {
			continue
		}
		if c.Chunks[i] == 0 || c.Chunks[i] > length {
			problems = multierror.Append(
				problems,
				fmt.Errorf(
					"chunk length %d on axis %d not in range [1, %d]",
					c.Chunks[i],
					i,
					length,
				),
			)
		}
	}

	if len(c.Dimensions) == len(c.Chunks) {
		if _, ok := product(c.Dimensions); !ok {
			problems = multierror.Append(
				problems, fmt.Errorf("array has more than 2^64 elements"),
			)
		}
		elements, ok := product(c.Chunks)
		if !ok || elements > ChunkElementLimit {
			problems = multierror.Append(
				problems,
				fmt.Errorf("chunk shape %v has more than %d elements", c.Chunks, ChunkElementLimit),
			)
		}
	}

	if !c.DataType.IsValid() {
		problems = multierror.Append(problems, fmt.Errorf("unknown data type %s", c.DataType))
	}

	switch c.Method {
	case DeltaBitpack:
		if c.DataType.IsFloat() {
			if math.IsNaN(c.ScaleFactor) || math.IsInf(c.ScaleFactor, 0) || c.ScaleFactor == 0 {
				problems = multierror.Append(
					problems,
					fmt.Errorf("scale factor must be finite and non-zero, got %v", c.ScaleFactor),
				)
			}
			if math.IsNaN(c.AddOffset) || math.IsInf(c.AddOffset, 0) {
				problems = multierror.Append(
					problems, fmt.Errorf("add offset must be finite, got %v", c.AddOffset),
				)
			}
		}
	case XorBitpack:
		problems = multierror.Append(
			problems, fmt.Errorf("compression method %s is reserved", c.Method),
		)
	case FloatBytewise, FloatXor:
		if c.DataType.IsValid() && !c.DataType.IsFloat() {
			problems = multierror.Append(
				problems,
				fmt.Errorf("compression method %s requires a float type, got %s", c.Method, c.DataType),
			)
		}
	default:
		problems = multierror.Append(problems, fmt.Errorf("unknown compression method %s", c.Method))
	}

	if c.LutChunkElementCount == 0 {
		problems = multierror.Append(problems, fmt.Errorf("lut_chunk_element_count must be positive"))
	}

	if problems.ErrorOrNil() != nil {
		return ErrInvalidConfiguration.Wrap(problems)
	}
	return nil
}

// Quantized returns true if chunks are quantized to integers before delta
// coding, i.e. a float array compressed with [DeltaBitpack].
func (c *Config) Quantized() bool {
	return c.Method == DeltaBitpack && c.DataType.IsFloat()
}

// DimensionCount returns the number of axes.
func (c *Config) DimensionCount() int {
	return len(c.Dimensions)
}

// TotalElements returns the number of elements in the whole array.
func (c *Config) TotalElements() uint64 {
	total := uint64(1)
	for _, length := range c.Dimensions {
		total *= length
	}
	return total
}
