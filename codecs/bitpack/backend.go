package bitpack

import (
	"encoding/binary"

	"golang.org/x/sys/cpu"
)

// Backend packs and unpacks fixed-width unsigned integers into a little-endian,
// LSB-first bit stream. Every backend must produce byte-identical output for
// the same input; they differ only in speed.
type Backend interface {
	// Name returns a short identifier for the backend.
	Name() string
	// Pack writes the low `width` bits of every value into dst. Exactly
	// PackedSize(len(values), width) bytes are written; dst must be at least
	// that long.
	Pack(dst []byte, values []uint64, width uint)
	// Unpack is the inverse of Pack, filling every element of dst. src must
	// hold at least PackedSize(len(dst), width) bytes.
	Unpack(dst []uint64, src []byte, width uint)
}

// PackedSize returns the number of bytes needed to pack `n` values of `width`
// bits each.
func PackedSize(n int, width uint) int {
	return (n*int(width) + 7) / 8
}

// lowMask returns a mask of the low `width` bits. Shifts of 64 or more yield
// zero for unsigned integers, so a width of 64 gives all ones.
func lowMask(width uint) uint64 {
	return (uint64(1) << width) - 1
}

// Portable is the reference backend. It moves one bit at a time, which is slow
// but obviously correct and independent of word size.
var Portable Backend = portableBackend{}

// Word packs through a 64-bit accumulator, writing whole words at a time.
var Word Backend = wordBackend{}

var defaultBackend = Portable

func init() {
	// The word backend relies on cheap unaligned 64-bit loads and stores and
	// variable shifts, which we only assume where BMI2 (amd64) or ASIMD (arm64)
	// are present.
	if cpu.X86.HasBMI2 || cpu.ARM64.HasASIMD {
		defaultBackend = Word
	}
}

// Default returns the backend selected for the running CPU.
func Default() Backend {
	return defaultBackend
}

// Backends returns every available backend, reference implementation first.
func Backends() []Backend {
	return []Backend{Portable, Word}
}

// Lookup returns the backend with the given name.
func Lookup(name string) (Backend, bool) {
	for _, backend := range Backends() {
		if backend.Name() == name {
			return backend, true
		}
	}
	return nil, false
}

////////////////////////////////////////////////////////////////////////////////

type portableBackend struct{}

func (portableBackend) Name() string {
	return "portable"
}

func (portableBackend) Pack(dst []byte, values []uint64, width uint) {
	size := PackedSize(len(values), width)
	clear(dst[:size])

	bit := 0
	for _, value := range values {
		for i := uint(0); i < width; i++ {
			if (value>>i)&1 != 0 {
				dst[bit>>3] |= 1 << (bit & 7)
			}
			bit++
		}
	}
}

func (portableBackend) Unpack(dst []uint64, src []byte, width uint) {
	bit := 0
	for i := range dst {
		value := uint64(0)
		for j := uint(0); j < width; j++ {
			if (src[bit>>3]>>(bit&7))&1 != 0 {
				value |= 1 << j
			}
			bit++
		}
		dst[i] = value
	}
}

////////////////////////////////////////////////////////////////////////////////

type wordBackend struct{}

func (wordBackend) Name() string {
	return "word"
}

func (wordBackend) Pack(dst []byte, values []uint64, width uint) {
	if width == 0 {
		return
	}

	mask := lowMask(width)
	accumulator := uint64(0)
	filled := uint(0)
	position := 0

	for _, value := range values {
		value &= mask
		accumulator |= value << filled

		if filled+width < 64 {
			filled += width
			continue
		}

		// The accumulator is full. The number of complete words never exceeds
		// the packed size, so this store can't run past the end of the output.
		binary.LittleEndian.PutUint64(dst[position:], accumulator)
		position += 8

		spill := filled + width - 64
		accumulator = value >> (width - spill)
		filled = spill
	}

	for filled > 0 {
		dst[position] = byte(accumulator)
		accumulator >>= 8
		position++
		if filled < 8 {
			filled = 0
		} else {
			filled -= 8
		}
	}
}

func (wordBackend) Unpack(dst []uint64, src []byte, width uint) {
	if width == 0 {
		clear(dst)
		return
	}

	mask := lowMask(width)
	accumulator := uint64(0)
	available := uint(0)
	position := 0

	for i := range dst {
		if available >= width {
			dst[i] = accumulator & mask
			accumulator >>= width
			available -= width
			continue
		}

		next, loaded := loadWord(src, position)
		position += loaded

		dst[i] = (accumulator | next<<available) & mask
		consumed := width - available
		accumulator = next >> consumed
		available = uint(loaded*8) - consumed
	}
}

// loadWord reads up to eight bytes starting at `position` as a little-endian
// integer, returning the value and how many bytes were read.
func loadWord(src []byte, position int) (uint64, int) {
	if len(src)-position >= 8 {
		return binary.LittleEndian.Uint64(src[position:]), 8
	}

	value := uint64(0)
	loaded := 0
	for ; position+loaded < len(src); loaded++ {
		value |= uint64(src[position+loaded]) << (8 * loaded)
	}
	return value, loaded
}
