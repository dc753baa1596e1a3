package transport

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Read and ReadFull when the read window elapses
// before any (or enough) data arrives. Callers that treat timeouts as
// non-fatal match against it with errors.Is.
var ErrTimeout = errors.New("transport: read timeout")

// Transport is an opened duplex byte channel to the probe.
//
// Implementations are not safe for concurrent use; the owning session
// serializes access.
type Transport interface {
	// Write sends data and flushes it to the device.
	Write(data []byte) error

	// Read performs one best-effort read into a buffer of up to max bytes,
	// returning whatever arrived within the read timeout. A timeout with no
	// data returns ErrTimeout.
	Read(max int) ([]byte, error)

	// ReadFull blocks until exactly len(buf) bytes arrive or the read
	// timeout elapses. A short read returns the bytes received so far
	// alongside ErrTimeout.
	ReadFull(buf []byte) (int, error)

	// SetReadTimeout adjusts the window Read and ReadFull wait for data.
	SetReadTimeout(d time.Duration) error

	// Close releases the channel.
	Close() error
}
