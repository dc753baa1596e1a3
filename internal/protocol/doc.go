// Package protocol implements the framed command protocol spoken by the
// debug probe firmware on the target's serial link.
//
// This is a private protocol, not the standard ARM debug-port wire format.
// Requests and replies travel in fixed-envelope frames:
//
//	[0xFF 0xF9] [len_hi len_lo] [opcode] [payload...] [checksum] [0xF5 0xE7]
//
// The 16-bit length (big-endian) counts the bytes from the opcode through
// the checksum inclusive, so it always equals the total frame length minus
// six. The single checksum byte is the 8-bit frame CRC computed over the
// length field, opcode, and payload.
//
// # Commands
//
// The operation set is closed: Halt, Resume, ReadWord, Write, ReadBytes,
// ReadWords. Each is a distinct Command type and the codec dispatches
// exhaustively, so adding an operation without teaching the codec about it
// fails at compile time.
//
//	Operation  Opcode  Request payload       Ack   Error  Reply payload
//	Halt       0xC1    none                  0xD1  0xE1   none
//	Resume     0xC2    none                  0xD1  0xE1   none
//	ReadWord   0xC3    addr(4)               0xD2  0xE3   4 bytes
//	Write      0xC4    addr(4) + data        0xD1  0xE1   none
//	ReadBytes  0xC6    addr(4) + len(2)      0xD2  0xE3   len bytes
//	ReadWords  0xC7    addr(4) + count(2)    0xD2  0xE3   count*4 bytes
//
// Multi-byte request fields are big-endian. The acknowledgement or error
// code always sits at byte offset 5 of the reply frame; read-family replies
// carry their payload immediately after it.
//
// # Usage
//
//	frame, err := protocol.Encode(protocol.ReadWord{Addr: 0x2000_0000})
//	if err != nil {
//	    return err
//	}
//	// ... write frame, read protocol.ExpectedReplyLen(cmd) bytes back ...
//	payload, err := protocol.Decode(cmd, reply)
//
// # Error Handling
//
// Decode distinguishes a device-reported rejection (the command's known
// error code) from an unrecognized acknowledgement byte, a truncated reply,
// and a frame that fails integrity checks. A checksum, header, or footer
// mismatch is always a hard failure; frames are never accepted leniently.
//
// All functions are stateless and safe for concurrent use.
package protocol
