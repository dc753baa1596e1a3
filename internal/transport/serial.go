package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/term"

	"github.com/muurk/mspprobe/internal/logging"
)

// DefaultReadTimeout is the read window applied to a freshly opened port.
const DefaultReadTimeout = 1 * time.Second

// Serial is a Transport over a raw-mode serial port.
type Serial struct {
	dev  *term.Term
	path string
}

// OpenSerial opens the serial device at path in raw mode at the given baud
// rate. The caller owns the returned transport and must Close it.
func OpenSerial(path string, baud int) (*Serial, error) {
	dev, err := term.Open(path,
		term.RawMode,
		term.Speed(baud),
		term.ReadTimeout(DefaultReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", path, err)
	}

	logging.Info("Serial device opened")
	return &Serial{dev: dev, path: path}, nil
}

// Path returns the device path this transport was opened on.
func (s *Serial) Path() string {
	return s.path
}

// Write sends data, looping until the kernel has accepted every byte.
func (s *Serial) Write(data []byte) error {
	for len(data) > 0 {
		n, err := s.dev.Write(data)
		if err != nil {
			return fmt.Errorf("serial write on %s: %w", s.path, err)
		}
		data = data[n:]
	}
	return nil
}

// Read performs one best-effort read of up to max bytes. An expired read
// window with nothing received returns ErrTimeout.
func (s *Serial) Read(max int) ([]byte, error) {
	buf := make([]byte, max)
	n, err := s.dev.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	// A raw-mode read returning zero bytes means the VTIME window expired.
	if err == nil || err == io.EOF {
		return nil, ErrTimeout
	}
	return nil, fmt.Errorf("serial read on %s: %w", s.path, err)
}

// ReadFull blocks until len(buf) bytes have arrived. A window expiring
// mid-reply returns the count received so far with ErrTimeout.
func (s *Serial) ReadFull(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := s.dev.Read(buf[total:])
		if n > 0 {
			total += n
			continue
		}
		if err == nil || err == io.EOF {
			return total, ErrTimeout
		}
		return total, fmt.Errorf("serial read on %s: %w", s.path, err)
	}
	return total, nil
}

// SetReadTimeout adjusts the read window for subsequent reads.
func (s *Serial) SetReadTimeout(d time.Duration) error {
	if err := s.dev.SetReadTimeout(d); err != nil {
		return fmt.Errorf("set read timeout on %s: %w", s.path, err)
	}
	return nil
}

// Close restores the port and releases it.
func (s *Serial) Close() error {
	if err := s.dev.Restore(); err != nil {
		// Restore failing does not block the close itself.
		logging.Warn("Failed to restore serial attributes")
	}
	return s.dev.Close()
}
