package omchunk

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind classifies every error the codec reports. The zero value is not a
// valid error kind.
type Kind int

const (
	KindOK Kind = iota
	KindInvalidConfiguration
	KindBufferTooSmall
	KindCorruptData
	KindOutOfRange
	KindInvalidArgument
	KindIOFailed
)

var messagesByKind = map[Kind]string{
	KindOK:                   "Success",
	KindInvalidConfiguration: "Invalid configuration",
	KindBufferTooSmall:       "Buffer too small",
	KindCorruptData:          "Corrupt data",
	KindOutOfRange:           "Value out of range",
	KindInvalidArgument:      "Invalid argument",
	KindIOFailed:             "Input/output error",
}

// String returns the default message for the kind.
func (k Kind) String() string {
	message, ok := messagesByKind[k]
	if ok {
		return message
	}
	return fmt.Sprintf("error kind %d not recognized", int(k))
}

// CodecError is the interface implemented by every error returned from this
// module. Use [errors.Is] against the sentinel values below, or [KindOf], to
// classify an error.
type CodecError interface {
	error
	Kind() Kind
	WithMessage(message string) CodecError
	Wrap(err error) CodecError
}

var ErrInvalidConfiguration = newBaseError(KindInvalidConfiguration)
var ErrBufferTooSmall = newBaseError(KindBufferTooSmall)
var ErrCorruptData = newBaseError(KindCorruptData)
var ErrOutOfRange = newBaseError(KindOutOfRange)
var ErrInvalidArgument = newBaseError(KindInvalidArgument)
var ErrIOFailed = newBaseError(KindIOFailed)

type baseError struct {
	kind Kind
}

func newBaseError(kind Kind) CodecError {
	return baseError{kind: kind}
}

func (e baseError) Error() string {
	return e.kind.String()
}

func (e baseError) Kind() Kind {
	return e.kind
}

func (e baseError) WithMessage(message string) CodecError {
	return customError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

func (e baseError) Wrap(err error) CodecError {
	return customError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customError struct {
	kind          Kind
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customError) Error() string {
	return e.message
}

func (e customError) Kind() Kind {
	return e.kind
}

func (e customError) WithMessage(message string) CodecError {
	return customError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customError) Wrap(err error) CodecError {
	return customError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customError) Unwrap() error {
	return e.originalError
}

// KindOf returns the kind of the first [CodecError] found in err's chain, or
// [KindOK] if err is nil. Errors that didn't come from this module are
// reported as [KindIOFailed].
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var codecErr CodecError
	if errors.As(err, &codecErr) {
		return codecErr.Kind()
	}
	return KindIOFailed
}

// Errorf is shorthand for `base.WithMessage(fmt.Sprintf(format, args...))`.
func Errorf(base CodecError, format string, args ...any) CodecError {
	return base.WithMessage(fmt.Sprintf(format, args...))
}
