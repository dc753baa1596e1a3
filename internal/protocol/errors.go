package protocol

import "fmt"

// EncodingError indicates a request that violates an encode-time
// precondition, such as a payload larger than the frame format allows.
// It is returned before any I/O happens.
type EncodingError struct {
	Op   string // operation name
	Size int    // requested payload size
	Max  int    // maximum allowed
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: payload size %d exceeds maximum %d bytes", e.Op, e.Size, e.Max)
}

// DeviceRejectedError indicates the target firmware recognized the command
// and answered with its error code.
type DeviceRejectedError struct {
	Op   string
	Code byte
}

func (e *DeviceRejectedError) Error() string {
	return fmt.Sprintf("%s: device rejected command (error code 0x%02X)", e.Op, e.Code)
}

// UnrecognizedResponseError indicates the acknowledgement byte matched
// neither the command's ack code nor its error code.
type UnrecognizedResponseError struct {
	Op   string
	Code byte
	Want byte // expected acknowledgement code
}

func (e *UnrecognizedResponseError) Error() string {
	return fmt.Sprintf("%s: unrecognized response code 0x%02X (expected ack 0x%02X)", e.Op, e.Code, e.Want)
}

// ShortReplyError indicates a reply frame too small to hold the expected
// acknowledgement and payload. Distinct from DeviceRejectedError: the frame
// is malformed or truncated, not a firmware rejection.
type ShortReplyError struct {
	Op   string
	Got  int
	Want int
}

func (e *ShortReplyError) Error() string {
	return fmt.Sprintf("%s: short reply: got %d bytes, want %d", e.Op, e.Got, e.Want)
}

// FrameIntegrityError indicates a received frame that fails a structural
// check: bad sync bytes, bad footer, inconsistent length field, or a
// checksum mismatch. Always a hard failure.
type FrameIntegrityError struct {
	Reason string
	Got    uint16
	Want   uint16
}

func (e *FrameIntegrityError) Error() string {
	return fmt.Sprintf("frame integrity: %s (got 0x%02X, want 0x%02X)", e.Reason, e.Got, e.Want)
}
