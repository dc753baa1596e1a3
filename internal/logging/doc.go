// Package logging provides structured logging for the mspprobe tools.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the probe tools. It provides both general logging
// functions and specialized functions for protocol-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (frame hex dumps, register reads)
//   - Info: Normal operations (connections, verification progress)
//   - Warn: Non-fatal issues (discarded replies, reconnects)
//   - Error: Fatal issues (transport failures, startup errors)
//
// # Silent by Default
//
// CLI commands want clean stdout, so logging is a nop unless a level is
// passed to Initialize or set via the MSPPROBE_LOG_LEVEL environment
// variable:
//
//	MSPPROBE_LOG_LEVEL=debug mspprobe verify firmware.elf
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Section verified",
//	    zap.String("address", "0x00000000"),
//	    zap.Uint32("size", 1024),
//	)
//
// # Specialized Logging
//
// Frame logging captures every request/reply pair on the serial link with a
// hex dump, capped at 256 bytes per entry:
//
//	logging.LogFrame("send", "read-bytes", frame)
//	logging.LogFrame("recv", "read-bytes", reply)
//
// LogRawBytes adds an ASCII gutter for eyeballing unknown payloads.
package logging
