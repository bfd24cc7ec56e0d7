// Package reinterpret views a slice of one fixed-size type as a slice of
// another without copying.
//
// Callers are responsible for alignment: the backing array of the source must
// be suitably aligned for the destination type. Slices allocated as the wider
// type, or byte slices checked with [Aligned], are always fine.
package reinterpret

import "unsafe"

// Slice returns a view of `s` as elements of type To. Trailing bytes that don't
// fill a whole element of To are not included.
func Slice[To, From any](s []From) []To {
	if len(s) == 0 {
		return nil
	}

	var from From
	var to To
	size := uintptr(len(s)) * unsafe.Sizeof(from)
	return unsafe.Slice(
		(*To)(unsafe.Pointer(unsafe.SliceData(s))),
		int(size/unsafe.Sizeof(to)),
	)
}

// Bytes returns the raw memory of `s`.
func Bytes[T any](s []T) []byte {
	return Slice[byte](s)
}

// Aligned returns true if the first byte of `b` sits on an `alignment`-byte
// boundary. Empty slices are always aligned.
func Aligned(b []byte, alignment uintptr) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))%alignment == 0
}
