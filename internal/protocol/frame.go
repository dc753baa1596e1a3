package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/muurk/mspprobe/internal/checksum"
)

// Frame envelope constants.
const (
	// SyncByte0 and SyncByte1 open every frame
	SyncByte0 = 0xFF
	SyncByte1 = 0xF9

	// FooterByte0 and FooterByte1 close every frame
	FooterByte0 = 0xF5
	FooterByte1 = 0xE7

	// MaxPayloadSize is the largest command payload the firmware accepts.
	// Exceeding it is rejected at encode time, before any I/O.
	MaxPayloadSize = 4096

	// EnvelopeSize is the fixed per-frame overhead: sync(2) + length(2) +
	// opcode(1) + checksum(1) + footer(2)
	EnvelopeSize = 8

	// AckOffset is the byte position of the acknowledgement or error code
	// in every reply frame
	AckOffset = 5

	// checksumSpanStart is where the frame checksum span begins: the length
	// field, opcode, and payload are protected; the envelope is not
	checksumSpanStart = 2
)

// Encode builds the wire frame for cmd.
//
// The length field and checksum are backfilled after the frame is laid out:
// length = total − 6 (opcode through checksum inclusive), checksum = Frame8
// over the length field, opcode, and payload.
func Encode(cmd Command) ([]byte, error) {
	payload, err := requestPayload(cmd)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, EnvelopeSize+len(payload))
	frame = append(frame, SyncByte0, SyncByte1)
	frame = append(frame, 0, 0) // length, backfilled below
	frame = append(frame, cmd.Opcode())
	frame = append(frame, payload...)
	frame = append(frame, 0) // checksum, backfilled below
	frame = append(frame, FooterByte0, FooterByte1)

	binary.BigEndian.PutUint16(frame[2:4], uint16(len(frame)-6))
	frame[len(frame)-3] = frameChecksum(frame)

	return frame, nil
}

// requestPayload returns the opcode-specific request payload for cmd,
// enforcing the encode-time size preconditions.
func requestPayload(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case Halt, Resume:
		return nil, nil

	case ReadWord:
		payload := make([]byte, 4)
		binary.BigEndian.PutUint32(payload, c.Addr)
		return payload, nil

	case ReadBytes:
		if int(c.Length) > MaxPayloadSize {
			return nil, &EncodingError{Op: c.Name(), Size: int(c.Length), Max: MaxPayloadSize}
		}
		payload := make([]byte, 6)
		binary.BigEndian.PutUint32(payload[0:4], c.Addr)
		binary.BigEndian.PutUint16(payload[4:6], c.Length)
		return payload, nil

	case ReadWords:
		if int(c.Count)*WordSize > MaxPayloadSize {
			return nil, &EncodingError{Op: c.Name(), Size: int(c.Count) * WordSize, Max: MaxPayloadSize}
		}
		payload := make([]byte, 6)
		binary.BigEndian.PutUint32(payload[0:4], c.Addr)
		binary.BigEndian.PutUint16(payload[4:6], c.Count)
		return payload, nil

	case Write:
		if len(c.Data) > MaxPayloadSize {
			return nil, &EncodingError{Op: c.Name(), Size: len(c.Data), Max: MaxPayloadSize}
		}
		payload := make([]byte, 4, 4+len(c.Data))
		binary.BigEndian.PutUint32(payload[0:4], c.Addr)
		payload = append(payload, c.Data...)
		return payload, nil

	default:
		panic(fmt.Sprintf("protocol: unknown command %T", cmd))
	}
}

// ExpectedReplyLen returns the total reply frame size the device sends for a
// successful cmd: the fixed envelope plus one ack byte plus the read payload.
// Sessions use this for exact-length reads.
func ExpectedReplyLen(cmd Command) int {
	return EnvelopeSize + 1 + replyPayloadLen(cmd)
}

// frameChecksum computes the Frame8 checksum over the protected span of a
// complete frame: [2, len-3), i.e. everything between the sync bytes and the
// checksum byte.
func frameChecksum(frame []byte) byte {
	return checksum.Frame8(frame[checksumSpanStart : len(frame)-3])
}
