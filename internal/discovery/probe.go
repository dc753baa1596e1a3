package discovery

import (
	"fmt"
	"time"
)

// ProbeServer is a discovered probe server on the network
type ProbeServer struct {
	// Name is the mDNS instance name (e.g., "mspprobe-bench2")
	Name string

	// Hostname is the mDNS hostname (e.g., "bench2.local.")
	Hostname string

	// IP is the address to dial (IPv4 preferred)
	IP string

	// Port is the WebSocket port
	Port int

	// Metadata contains additional mDNS TXT record data.
	// Common fields: "profile=MSPM0G3507", "version=..."
	Metadata map[string]string

	// DiscoveredAt is when the server was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the server
func (p *ProbeServer) String() string {
	return fmt.Sprintf("Probe server %s at %s:%d (profile %s)",
		p.Name, p.IP, p.Port, p.Profile())
}

// URL returns the WebSocket endpoint for the server
func (p *ProbeServer) URL() string {
	return fmt.Sprintf("ws://%s:%d/ws", p.IP, p.Port)
}

// Profile returns the target profile the server announced, or "unknown"
func (p *ProbeServer) Profile() string {
	if profile := p.GetMetadata("profile"); profile != "" {
		return profile
	}
	return "unknown"
}

// GetMetadata retrieves a metadata value by key, or returns empty string if
// not found
func (p *ProbeServer) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
