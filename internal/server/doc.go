// Package server exposes a probe session to remote clients over WebSocket.
//
// Clients connect to /ws and exchange JSON request/response pairs, one
// operation per message. The underlying serial protocol carries no request
// identifiers, so the session mutex serializes every operation end to end;
// concurrent clients simply queue.
//
// A background poll reads the program counter at a fixed interval to detect
// link drops. When the poll fails, the server marks the probe disconnected
// and attempts to reopen the serial device, swapping the fresh transport
// into the session. Operations that failed during the outage stay failed;
// nothing is retried on the client's behalf.
package server
