package omchunk

import (
	"fmt"
	"strings"
)

// DataType identifies the element type of an array. The numeric values are
// stored in container headers, so they must never change.
type DataType uint8

const (
	DataTypeNone DataType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var dataTypeNames = map[DataType]string{
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

// AllDataTypes lists every valid data type in tag order.
var AllDataTypes = []DataType{
	Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64,
}

func (t DataType) String() string {
	name, ok := dataTypeNames[t]
	if ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// IsValid returns true if t is one of the defined data types.
func (t DataType) IsValid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

// Size returns the size of a single element, in bytes. Invalid types have a
// size of 0.
func (t DataType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

func (t DataType) IsFloat() bool {
	return t == Float32 || t == Float64
}

func (t DataType) IsSigned() bool {
	switch t {
	case Int8, Int16, Int32, Int64, Float32, Float64:
		return true
	default:
		return false
	}
}

// ParseDataType parses the name returned by [DataType.String].
func ParseDataType(name string) (DataType, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for dataType, typeName := range dataTypeNames {
		if typeName == normalized {
			return dataType, nil
		}
	}
	return DataTypeNone, Errorf(ErrInvalidConfiguration, "unknown data type: %q", name)
}

// Method identifies the compression pipeline applied to every chunk. Like
// [DataType], these values are stored in container headers.
type Method uint8

const (
	// DeltaBitpack applies a 2D integer delta followed by the PFor bit-packing
	// codec. Float arrays are quantized to integers first.
	DeltaBitpack Method = 0
	// XorBitpack is reserved and is always rejected.
	XorBitpack Method = 1
	// FloatBytewise applies a 2D XOR delta to float bit patterns, splits them
	// into byte planes and compresses those with LZ4. Lossless.
	FloatBytewise Method = 2
	// FloatXor applies a 2D XOR delta to float bit patterns followed by the
	// XOR float codec. Lossless.
	FloatXor Method = 3
)

var methodNames = map[Method]string{
	DeltaBitpack:  "delta-bitpack",
	XorBitpack:    "xor-bitpack",
	FloatBytewise: "float-bytewise",
	FloatXor:      "float-xor",
}

func (m Method) String() string {
	name, ok := methodNames[m]
	if ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(m))
}

// ParseMethod parses the name returned by [Method.String].
func ParseMethod(name string) (Method, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for method, methodName := range methodNames {
		if methodName == normalized {
			return method, nil
		}
	}
	return 0, Errorf(ErrInvalidConfiguration, "unknown compression method: %q", name)
}

// IsLossless returns true if the method reproduces every input bit pattern
// exactly for the given data type.
func (m Method) IsLossless(t DataType) bool {
	if m == DeltaBitpack {
		return !t.IsFloat()
	}
	return m == FloatBytewise || m == FloatXor
}
