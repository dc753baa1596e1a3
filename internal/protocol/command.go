package protocol

import "fmt"

// Operation opcodes.
const (
	OpcodeHalt      = 0xC1
	OpcodeResume    = 0xC2
	OpcodeReadWord  = 0xC3
	OpcodeWrite     = 0xC4
	OpcodeReadBytes = 0xC6
	OpcodeReadWords = 0xC7
)

// Acknowledgement and error codes. Control-family operations (Halt, Resume,
// Write) share one ack/error pair; read-family operations share another.
const (
	AckControl   = 0xD1
	ErrorControl = 0xE1
	AckRead      = 0xD2
	ErrorRead    = 0xE3
)

// WordSize is the width of a target memory word in bytes.
const WordSize = 4

// Command is one request in the probe's closed operation set. Implementations
// are immutable value types; build one, hand it to Encode, done.
//
// The interface is sealed: only the types in this package satisfy it, which
// keeps codec dispatch exhaustive.
type Command interface {
	// Opcode returns the wire opcode for this operation.
	Opcode() byte

	// Name returns the operation name used in errors and logs.
	Name() string

	sealed()
}

// Halt stops the target CPU.
type Halt struct{}

// Resume restarts the target CPU after a halt.
type Resume struct{}

// ReadWord reads one 32-bit word from target memory.
type ReadWord struct {
	Addr uint32
}

// ReadBytes reads Length raw bytes starting at Addr.
type ReadBytes struct {
	Addr   uint32
	Length uint16
}

// ReadWords reads Count consecutive 32-bit words starting at Addr.
type ReadWords struct {
	Addr  uint32
	Count uint16
}

// Write stores Data into target memory starting at Addr.
type Write struct {
	Addr uint32
	Data []byte
}

func (Halt) Opcode() byte      { return OpcodeHalt }
func (Resume) Opcode() byte    { return OpcodeResume }
func (ReadWord) Opcode() byte  { return OpcodeReadWord }
func (ReadBytes) Opcode() byte { return OpcodeReadBytes }
func (ReadWords) Opcode() byte { return OpcodeReadWords }
func (Write) Opcode() byte     { return OpcodeWrite }

func (Halt) Name() string      { return "halt" }
func (Resume) Name() string    { return "resume" }
func (ReadWord) Name() string  { return "read-word" }
func (ReadBytes) Name() string { return "read-bytes" }
func (ReadWords) Name() string { return "read-words" }
func (Write) Name() string     { return "write" }

func (Halt) sealed()      {}
func (Resume) sealed()    {}
func (ReadWord) sealed()  {}
func (ReadBytes) sealed() {}
func (ReadWords) sealed() {}
func (Write) sealed()     {}

// ackCode returns the acknowledgement byte the device sends on success.
func ackCode(cmd Command) byte {
	switch cmd.(type) {
	case Halt, Resume, Write:
		return AckControl
	case ReadWord, ReadBytes, ReadWords:
		return AckRead
	default:
		panic(fmt.Sprintf("protocol: unknown command %T", cmd))
	}
}

// errorCode returns the error byte the device sends on rejection.
func errorCode(cmd Command) byte {
	switch cmd.(type) {
	case Halt, Resume, Write:
		return ErrorControl
	case ReadWord, ReadBytes, ReadWords:
		return ErrorRead
	default:
		panic(fmt.Sprintf("protocol: unknown command %T", cmd))
	}
}

// replyPayloadLen returns the number of payload bytes a successful reply to
// cmd carries after the acknowledgement byte.
func replyPayloadLen(cmd Command) int {
	switch c := cmd.(type) {
	case Halt, Resume, Write:
		return 0
	case ReadWord:
		return WordSize
	case ReadBytes:
		return int(c.Length)
	case ReadWords:
		return int(c.Count) * WordSize
	default:
		panic(fmt.Sprintf("protocol: unknown command %T", cmd))
	}
}
