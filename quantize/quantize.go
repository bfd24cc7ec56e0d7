// Package quantize converts floating-point values to scaled integers and back.
//
// A value is quantized as round((raw - offset) * scale), rounding halfway cases
// away from zero. float32 data quantizes to int32 and float64 data to int64.
// The largest value of the integer type is reserved for NaN, so finite values
// are limited to [min, max-1].
package quantize

import (
	"math"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/omchunk"
)

// Policy controls what happens to values that don't fit in the integer type.
type Policy int

const (
	// Clamp replaces out-of-range values with the nearest representable value
	// and records them in the [Report].
	Clamp Policy = iota
	// Strict fails with [omchunk.ErrOutOfRange] on the first out-of-range value.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "clamp"
}

// Sentinels stand in for NaN in quantized data.
const (
	NaN32 int32 = math.MaxInt32
	NaN64 int64 = math.MaxInt64
)

// Report describes what happened to the values in one call to [Quantizer.Quantize32]
// or [Quantizer.Quantize64].
type Report struct {
	// Clamped is the number of values that were out of range.
	Clamped int
	// Flags has bit i set if element i was clamped. It's nil if nothing was.
	Flags bitmap.Bitmap
}

// Flagged returns true if the element at `index` was clamped.
func (r Report) Flagged(index int) bool {
	if r.Flags == nil || index < 0 || index >= len(r.Flags)*8 {
		return false
	}
	return r.Flags.Get(index)
}

// Quantizer holds the linear mapping between raw and quantized values. It's
// immutable and safe for concurrent use.
type Quantizer struct {
	scale  float64
	offset float64
	policy Policy
}

// New returns a quantizer. `scale` must be finite and non-zero and `offset`
// must be finite.
func New(scale, offset float64, policy Policy) (Quantizer, error) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale == 0 {
		return Quantizer{}, omchunk.Errorf(
			omchunk.ErrInvalidConfiguration, "scale factor must be finite and non-zero, got %v", scale,
		)
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return Quantizer{}, omchunk.Errorf(
			omchunk.ErrInvalidConfiguration, "add offset must be finite, got %v", offset,
		)
	}
	return Quantizer{scale: scale, offset: offset, policy: policy}, nil
}

// FromConfig returns the quantizer described by an array configuration.
func FromConfig(cfg *omchunk.Config, policy Policy) (Quantizer, error) {
	return New(cfg.ScaleFactor, cfg.AddOffset, policy)
}

func (q Quantizer) Scale() float64 {
	return q.scale
}

func (q Quantizer) Offset() float64 {
	return q.offset
}

func (q Quantizer) Policy() Policy {
	return q.policy
}

// IsIdentity returns true if quantizing only rounds, i.e. the scale is 1 and
// the offset is 0.
func (q Quantizer) IsIdentity() bool {
	return q.scale == 1 && q.offset == 0
}

type float interface {
	float32 | float64
}

type integer interface {
	int32 | int64
}

func quantize[F float, I integer](q Quantizer, src []F, dst []I, low, sentinel I) (Report, error) {
	var report Report
	if len(dst) < len(src) {
		return report, omchunk.Errorf(
			omchunk.ErrBufferTooSmall,
			"can't quantize %d values into a buffer of %d",
			len(src),
			len(dst),
		)
	}

	lowFloat := float64(low)
	sentinelFloat := float64(sentinel)

	for i, raw := range src {
		value := float64(raw)
		if math.IsNaN(value) {
			dst[i] = sentinel
			continue
		}

		scaled := math.Round((value - q.offset) * q.scale)
		switch {
		case scaled >= sentinelFloat:
			dst[i] = sentinel - 1
		case scaled < lowFloat:
			dst[i] = low
		default:
			dst[i] = I(scaled)
			continue
		}

		if q.policy == Strict {
			return report, omchunk.Errorf(
				omchunk.ErrOutOfRange,
				"element %d (%v) quantizes to %v, not in range [%d, %d)",
				i,
				raw,
				scaled,
				low,
				sentinel,
			)
		}
		if report.Flags == nil {
			report.Flags = bitmap.New(len(src))
		}
		report.Flags.Set(i, true)
		report.Clamped++
	}
	return report, nil
}

func dequantize[I integer, F float](q Quantizer, src []I, dst []F, sentinel I) error {
	if len(dst) < len(src) {
		return omchunk.Errorf(
			omchunk.ErrBufferTooSmall,
			"can't dequantize %d values into a buffer of %d",
			len(src),
			len(dst),
		)
	}

	for i, value := range src {
		if value == sentinel {
			dst[i] = F(math.NaN())
			continue
		}
		dst[i] = F(float64(value)/q.scale + q.offset)
	}
	return nil
}

// Quantize32 quantizes `src` into `dst`, which must be at least as long.
func (q Quantizer) Quantize32(src []float32, dst []int32) (Report, error) {
	return quantize(q, src, dst, math.MinInt32, NaN32)
}

// Quantize64 quantizes `src` into `dst`, which must be at least as long.
func (q Quantizer) Quantize64(src []float64, dst []int64) (Report, error) {
	return quantize(q, src, dst, math.MinInt64, NaN64)
}

// Dequantize32 is the inverse of [Quantizer.Quantize32], up to rounding.
func (q Quantizer) Dequantize32(src []int32, dst []float32) error {
	return dequantize(q, src, dst, NaN32)
}

// Dequantize64 is the inverse of [Quantizer.Quantize64], up to rounding.
func (q Quantizer) Dequantize64(src []int64, dst []float64) error {
	return dequantize(q, src, dst, NaN64)
}
