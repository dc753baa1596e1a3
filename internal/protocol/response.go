package protocol

import "encoding/binary"

// Decode classifies the reply frame received for cmd.
//
// On a recognized acknowledgement it returns the reply payload for
// read-family commands, or the single ack byte for control and write
// commands. A recognized error code yields a DeviceRejectedError; any other
// byte at the acknowledgement offset yields an UnrecognizedResponseError.
//
// The frame envelope and checksum are validated first and any mismatch is a
// hard FrameIntegrityError; replies are never accepted on a bad checksum.
func Decode(cmd Command, reply []byte) ([]byte, error) {
	want := ExpectedReplyLen(cmd)
	if len(reply) < EnvelopeSize+1 {
		return nil, &ShortReplyError{Op: cmd.Name(), Got: len(reply), Want: want}
	}

	if err := validateEnvelope(reply); err != nil {
		return nil, err
	}

	switch reply[AckOffset] {
	case ackCode(cmd):
		n := replyPayloadLen(cmd)
		if n == 0 {
			return reply[AckOffset : AckOffset+1], nil
		}
		if len(reply) < want {
			return nil, &ShortReplyError{Op: cmd.Name(), Got: len(reply), Want: want}
		}
		return reply[AckOffset+1 : AckOffset+1+n], nil

	case errorCode(cmd):
		return nil, &DeviceRejectedError{Op: cmd.Name(), Code: reply[AckOffset]}

	default:
		return nil, &UnrecognizedResponseError{Op: cmd.Name(), Code: reply[AckOffset], Want: ackCode(cmd)}
	}
}

// validateEnvelope checks sync bytes, footer, length-field consistency, and
// the frame checksum of a received frame.
func validateEnvelope(frame []byte) error {
	if frame[0] != SyncByte0 || frame[1] != SyncByte1 {
		return &FrameIntegrityError{
			Reason: "bad sync bytes",
			Got:    binary.BigEndian.Uint16(frame[0:2]),
			Want:   SyncByte0<<8 | SyncByte1,
		}
	}

	if frame[len(frame)-2] != FooterByte0 || frame[len(frame)-1] != FooterByte1 {
		return &FrameIntegrityError{
			Reason: "bad footer bytes",
			Got:    binary.BigEndian.Uint16(frame[len(frame)-2:]),
			Want:   FooterByte0<<8 | FooterByte1,
		}
	}

	if got := binary.BigEndian.Uint16(frame[2:4]); int(got) != len(frame)-6 {
		return &FrameIntegrityError{
			Reason: "length field mismatch",
			Got:    got,
			Want:   uint16(len(frame) - 6),
		}
	}

	if got, want := frame[len(frame)-3], frameChecksum(frame); got != want {
		return &FrameIntegrityError{
			Reason: "checksum mismatch",
			Got:    uint16(got),
			Want:   uint16(want),
		}
	}

	return nil
}
