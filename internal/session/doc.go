// Package session sequences framed command exchanges with the debug probe.
//
// A Session owns exactly one transport for its lifetime and performs one
// request/reply round trip per operation; there is no pipelining and no
// partial-frame resumption. The protocol carries no request identifiers, so
// interleaved replies are indistinguishable. Every operation holds the
// session mutex for its full exchange, which makes one Session safe to share
// between a remote front end and a background connectivity poll.
//
// Control operations (Halt, Resume, WriteWord) are fire-and-forget: the
// firmware does not always echo an acknowledgement, so any reply inside a
// short window is read and discarded and a timeout is not an error. Read
// operations block for an exact-length reply and treat a short or absent
// one as a hard failure; retry policy belongs to the caller.
//
// Register access goes through the target profile's debug mailbox: the
// register index is written to the select address and the value read back
// from the data address after a turnaround delay. Index 15 aliases the
// program counter.
package session
