package modem

import (
	"errors"
)

var (
	// ErrTimeout indicates the modem didn't produce enough bytes within
	// Session.Timeout.
	ErrTimeout = errors.New("modem reply timeout")
	// ErrReplyOverflow indicates a structured reply is longer than the
	// protocol allows. The reply has been drained up to its terminator.
	ErrReplyOverflow = errors.New("modem reply too long")
	// ErrMalformedReply indicates a structured reply is too short to
	// contain its trailer.
	ErrMalformedReply = errors.New("malformed modem reply")
	// ErrPayloadTooLong indicates the payload doesn't fit the 8-bit length
	// field of the send command.
	ErrPayloadTooLong = errors.New("payload too long")
)
