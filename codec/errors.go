package codec

import "errors"

// Structural decode errors, returned by the Scanner and by every typed
// Decode function built on top of it.
var (
	// ErrEmptyBuffer is returned when decoding is attempted against a
	// zero-length buffer.
	ErrEmptyBuffer = errors.New("codec: empty buffer")
	// ErrInsufficientData is returned when a fixed-size or length-prefixed
	// field claims more bytes than remain in the buffer.
	ErrInsufficientData = errors.New("codec: insufficient data")
	// ErrInvalidFormat is returned for a malformed tagged-union
	// discriminant or optional-field tag byte.
	ErrInvalidFormat = errors.New("codec: invalid format")
	// ErrValueOutOfRange is returned when a varint uses a non-canonical
	// (oversized) encoding for its value.
	ErrValueOutOfRange = errors.New("codec: value out of range")
	// ErrBufferOverrun is returned by Scanner primitives when a caller
	// requests more bytes than remain.
	ErrBufferOverrun = errors.New("codec: buffer overrun")
)
