package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/mspprobe/internal/logging"
	"github.com/muurk/mspprobe/internal/protocol"
	"github.com/muurk/mspprobe/internal/target"
	"github.com/muurk/mspprobe/internal/transport"
)

// ErrNotImplemented is returned by operations the probe firmware does not
// support. Callers must treat them as unavailable, never as silent no-ops.
var ErrNotImplemented = errors.New("session: breakpoints are not implemented by the probe firmware")

const (
	// DefaultSettleDelay is the pause between sending a read request and
	// collecting the reply, giving the firmware time to turn around
	DefaultSettleDelay = 10 * time.Millisecond

	// DefaultRegisterDelay is the pause between selecting a register in the
	// debug mailbox and reading its value back
	DefaultRegisterDelay = 10 * time.Millisecond

	// DefaultDiscardWindow is how long control operations wait for an
	// acknowledgement before giving up without error
	DefaultDiscardWindow = 200 * time.Millisecond

	// DefaultReplyTimeout is the read window for exact-length replies
	DefaultReplyTimeout = 2 * time.Second
)

// Config holds the session timing policy.
type Config struct {
	SettleDelay   time.Duration
	RegisterDelay time.Duration
	DiscardWindow time.Duration
	ReplyTimeout  time.Duration
}

// DefaultConfig returns the timing defaults tuned for the 115200 baud link.
func DefaultConfig() Config {
	return Config{
		SettleDelay:   DefaultSettleDelay,
		RegisterDelay: DefaultRegisterDelay,
		DiscardWindow: DefaultDiscardWindow,
		ReplyTimeout:  DefaultReplyTimeout,
	}
}

// Session is an open connection to the debug probe. It exclusively owns its
// transport; use ReplaceTransport after a link drop rather than sharing the
// handle.
type Session struct {
	mu      sync.Mutex
	tr      transport.Transport
	profile *target.Profile
	config  Config
}

// New creates a session over an opened transport with default timing.
func New(tr transport.Transport, profile *target.Profile) *Session {
	return NewWithConfig(tr, profile, DefaultConfig())
}

// NewWithConfig creates a session with explicit timing policy.
func NewWithConfig(tr transport.Transport, profile *target.Profile, config Config) *Session {
	return &Session{tr: tr, profile: profile, config: config}
}

// Profile returns the target profile this session was opened against.
func (s *Session) Profile() *target.Profile {
	return s.profile
}

// Halt stops the target CPU.
func (s *Session) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchangeControl(protocol.Halt{})
}

// Resume restarts the target CPU.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchangeControl(protocol.Resume{})
}

// WriteWord stores a 32-bit value at addr.
func (s *Session) WriteWord(addr, value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeWord(addr, value)
}

// ReadBytes reads length raw bytes starting at addr.
func (s *Session) ReadBytes(addr uint32, length uint16) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchangeRead(protocol.ReadBytes{Addr: addr, Length: length})
}

// ReadWord reads the 32-bit word at addr.
func (s *Session) ReadWord(addr uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readWord(addr)
}

// ReadWords reads count consecutive 32-bit words starting at addr.
func (s *Session) ReadWords(addr uint32, count uint16) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := s.exchangeRead(protocol.ReadWords{Addr: addr, Count: count})
	if err != nil {
		return nil, err
	}

	words := make([]uint32, count)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(payload[i*protocol.WordSize:])
	}
	return words, nil
}

// ReadRegister reads a core register through the debug mailbox. Index 15
// aliases the program counter. The select-write, delay, and data-read form
// one atomic exchange under the session lock.
func (s *Session) ReadRegister(index uint8) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeWord(s.profile.Debug.SelectAddr, uint32(index)); err != nil {
		return 0, fmt.Errorf("select register %d: %w", index, err)
	}

	time.Sleep(s.config.RegisterDelay)

	value, err := s.readWord(s.profile.Debug.DataAddr)
	if err != nil {
		return 0, fmt.Errorf("read register %d: %w", index, err)
	}
	return value, nil
}

// ReadPC reads the program counter.
func (s *Session) ReadPC() (uint32, error) {
	return s.ReadRegister(s.profile.Debug.PCRegister)
}

// SetBreakpoint is part of the operation surface but unavailable: the probe
// firmware has no breakpoint support.
func (s *Session) SetBreakpoint(addr uint32) error {
	return ErrNotImplemented
}

// ReadFlash adapts ReadBytes to the (addr, length) shape the flash verifier
// drives. Lengths beyond the 16-bit request field are an encode-time error.
func (s *Session) ReadFlash(addr, length uint32) ([]byte, error) {
	if length > protocol.MaxPayloadSize {
		return nil, &protocol.EncodingError{Op: "read-bytes", Size: int(length), Max: protocol.MaxPayloadSize}
	}
	return s.ReadBytes(addr, uint16(length))
}

// ReplaceTransport swaps in a fresh transport after a link drop. The old
// handle is closed; operations already failed stay failed, nothing is
// retried here.
func (s *Session) ReplaceTransport(tr transport.Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tr != nil {
		if err := s.tr.Close(); err != nil {
			logging.Warn("Failed to close replaced transport", zap.Error(err))
		}
	}
	s.tr = tr
	logging.Info("Session transport replaced")
}

// Close releases the transport. The session is unusable afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tr == nil {
		return nil
	}
	err := s.tr.Close()
	s.tr = nil
	return err
}

// writeWord sends a Write of one big-endian word. Caller holds the lock.
func (s *Session) writeWord(addr, value uint32) error {
	data := make([]byte, protocol.WordSize)
	binary.BigEndian.PutUint32(data, value)
	return s.exchangeControl(protocol.Write{Addr: addr, Data: data})
}

// readWord performs a ReadWord exchange. Caller holds the lock.
func (s *Session) readWord(addr uint32) (uint32, error) {
	payload, err := s.exchangeRead(protocol.ReadWord{Addr: addr})
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(payload), nil
}

// exchangeControl sends a fire-and-forget command: any reply inside the
// discard window is read and thrown away, and a timeout is not an error
// because the target does not always echo control acknowledgements.
// Caller holds the lock.
func (s *Session) exchangeControl(cmd protocol.Command) error {
	frame, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}

	logging.LogFrame("send", cmd.Name(), frame)
	if err := s.tr.Write(frame); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	if err := s.tr.SetReadTimeout(s.config.DiscardWindow); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	reply, err := s.tr.Read(protocol.ExpectedReplyLen(cmd))
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			logging.Debug("No acknowledgement within discard window", zap.String("op", cmd.Name()))
			return nil
		}
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	logging.LogFrame("recv", cmd.Name(), reply)
	return nil
}

// exchangeRead sends a read-family command and blocks for the exact-length
// reply. A short or absent reply is a hard failure; no retry happens at this
// layer. Caller holds the lock.
func (s *Session) exchangeRead(cmd protocol.Command) ([]byte, error) {
	frame, err := protocol.Encode(cmd)
	if err != nil {
		return nil, err
	}

	logging.LogFrame("send", cmd.Name(), frame)
	if err := s.tr.Write(frame); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	time.Sleep(s.config.SettleDelay)

	if err := s.tr.SetReadTimeout(s.config.ReplyTimeout); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	reply := make([]byte, protocol.ExpectedReplyLen(cmd))
	n, err := s.tr.ReadFull(reply)
	if err != nil {
		return nil, fmt.Errorf("%s: reply read failed after %d of %d bytes: %w",
			cmd.Name(), n, len(reply), err)
	}

	logging.LogFrame("recv", cmd.Name(), reply)
	return protocol.Decode(cmd, reply)
}
