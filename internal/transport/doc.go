// Package transport abstracts the duplex byte channel between the host and
// the debug probe.
//
// The session layer only sees the Transport interface: blocking write with
// flush, a best-effort read that may return fewer bytes than asked, an
// exact-length read for fixed-size replies, and a configurable read timeout.
// The production implementation is a raw-mode serial port; tests substitute
// an in-memory fake.
//
// Opening, enumerating, and selecting serial devices by USB identifiers is
// the caller's concern; this package takes a device path.
package transport
