package container

import (
	"bytes"
	"encoding/binary"

	"github.com/dargueta/omchunk"
	"github.com/fxamacker/cbor/v2"
	"github.com/noxer/bytewriter"
)

// Magic appears at the start of the header and the end of the trailer.
const Magic = "OMCK"

// Version is the only container version this package reads or writes.
const Version = 1

// MaxDimensions is the most axes a container may declare. It bounds how much
// memory parsing a corrupt header can allocate.
const MaxDimensions = 32

const (
	fixedHeaderSize = 40
	// TrailerSize is the size of the trailer at the end of every container.
	TrailerSize = 64
	// DigestSize is the size of the BLAKE3 digest of the chunk data.
	DigestSize = 32
)

const flagAttributes = 0x01

// fixedHeader is the part of the header that doesn't depend on the number of
// dimensions.
type fixedHeader struct {
	Magic                [4]byte
	Version              uint8
	DataType             uint8
	Method               uint8
	Flags                uint8
	DimensionCount       uint32
	Reserved             uint32
	ScaleFactor          float64
	AddOffset            float64
	LutChunkElementCount uint64
}

// Trailer is the fixed-size block at the very end of a container. It tells a
// reader where everything else is.
type Trailer struct {
	DataOffset    uint64
	LutOffset     uint64
	LutEntryCount uint64
	Digest        [DigestSize]byte
	Magic         [4]byte
	Reserved      uint32
}

// cborEncMode produces Core Deterministic Encoding (RFC 8949 section 4.2), so
// the same attributes always serialize to the same bytes.
var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("container: CBOR encoder initialization failed: " + err.Error())
	}
}

// headerSize returns the size of the header for `dims` dimensions, not
// counting attributes.
func headerSize(dims int) int {
	return fixedHeaderSize + 16*dims
}

// marshalHeader serializes the header and, if there are any, the attributes.
func marshalHeader(cfg *omchunk.Config, attributes map[string]string) ([]byte, error) {
	var encodedAttributes []byte
	flags := uint8(0)
	if len(attributes) > 0 {
		var err error
		encodedAttributes, err = cborEncMode.Marshal(attributes)
		if err != nil {
			return nil, omchunk.ErrInvalidArgument.Wrap(err)
		}
		flags |= flagAttributes
	}

	dims := cfg.DimensionCount()
	size := headerSize(dims)
	if flags&flagAttributes != 0 {
		size += 4 + len(encodedAttributes)
	}

	fixed := fixedHeader{
		Version:              Version,
		DataType:             uint8(cfg.DataType),
		Method:               uint8(cfg.Method),
		Flags:                flags,
		DimensionCount:       uint32(dims),
		ScaleFactor:          cfg.ScaleFactor,
		AddOffset:            cfg.AddOffset,
		LutChunkElementCount: cfg.LutChunkElementCount,
	}
	copy(fixed.Magic[:], Magic)

	output := make([]byte, size)
	writer := bytewriter.New(output)

	// The buffer is exactly the size of everything written to it.
	binary.Write(writer, binary.LittleEndian, &fixed)
	binary.Write(writer, binary.LittleEndian, cfg.Dimensions)
	binary.Write(writer, binary.LittleEndian, cfg.Chunks)
	if flags&flagAttributes != 0 {
		binary.Write(writer, binary.LittleEndian, uint32(len(encodedAttributes)))
		writer.Write(encodedAttributes)
	}
	return output, nil
}

// parseFixedHeader decodes and checks the first fixedHeaderSize bytes of a
// container.
func parseFixedHeader(data []byte) (fixedHeader, error) {
	var fixed fixedHeader
	if len(data) < fixedHeaderSize {
		return fixed, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"header needs %d bytes, got %d",
			fixedHeaderSize,
			len(data),
		)
	}

	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &fixed)
	if err != nil {
		return fixed, omchunk.ErrCorruptData.Wrap(err)
	}
	if string(fixed.Magic[:]) != Magic {
		return fixed, omchunk.Errorf(omchunk.ErrCorruptData, "bad header magic %q", fixed.Magic[:])
	}
	if fixed.Version != Version {
		return fixed, omchunk.Errorf(
			omchunk.ErrCorruptData, "unsupported container version %d", fixed.Version,
		)
	}
	if fixed.DimensionCount == 0 || fixed.DimensionCount > MaxDimensions {
		return fixed, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"dimension count %d not in range [1, %d]",
			fixed.DimensionCount,
			MaxDimensions,
		)
	}
	return fixed, nil
}

// parseShape decodes the dimension and chunk arrays that follow the fixed
// header and builds the configuration.
func parseShape(fixed fixedHeader, data []byte) (*omchunk.Config, error) {
	dims := int(fixed.DimensionCount)
	if len(data) < 16*dims {
		return nil, omchunk.Errorf(
			omchunk.ErrCorruptData,
			"shape needs %d bytes, got %d",
			16*dims,
			len(data),
		)
	}

	params := omchunk.Config{
		DataType:             omchunk.DataType(fixed.DataType),
		Method:               omchunk.Method(fixed.Method),
		Dimensions:           make([]uint64, dims),
		Chunks:               make([]uint64, dims),
		ScaleFactor:          fixed.ScaleFactor,
		AddOffset:            fixed.AddOffset,
		LutChunkElementCount: fixed.LutChunkElementCount,
	}
	for i := 0; i < dims; i++ {
		params.Dimensions[i] = binary.LittleEndian.Uint64(data[8*i:])
		params.Chunks[i] = binary.LittleEndian.Uint64(data[8*(dims+i):])
	}

	cfg, err := omchunk.NewConfig(params)
	if err != nil {
		return nil, omchunk.ErrCorruptData.Wrap(err)
	}
	return cfg, nil
}

func parseAttributes(data []byte) (map[string]string, error) {
	attributes := map[string]string{}
	err := cbor.Unmarshal(data, &attributes)
	if err != nil {
		return nil, omchunk.ErrCorruptData.Wrap(err)
	}
	return attributes, nil
}

// MarshalBinary serializes the trailer.
func (t Trailer) MarshalBinary() ([]byte, error) {
	output := make([]byte, TrailerSize)
	writer := bytewriter.New(output)

	copy(t.Magic[:], Magic)
	err := binary.Write(writer, binary.LittleEndian, &t)
	if err != nil {
		return nil, omchunk.ErrIOFailed.Wrap(err)
	}
	return output, nil
}

// ParseTrailer decodes and checks a trailer.
func ParseTrailer(data []byte) (Trailer, error) {
	var trailer Trailer
	if len(data) != TrailerSize {
		return trailer, omchunk.Errorf(
			omchunk.ErrCorruptData, "trailer must be %d bytes, got %d", TrailerSize, len(data),
		)
	}

	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &trailer)
	if err != nil {
		return trailer, omchunk.ErrCorruptData.Wrap(err)
	}
	if string(trailer.Magic[:]) != Magic {
		return trailer, omchunk.Errorf(
			omchunk.ErrCorruptData, "bad trailer magic %q", trailer.Magic[:],
		)
	}
	return trailer, nil
}
