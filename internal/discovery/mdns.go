package discovery

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type probe servers advertise
	ServiceType = "_mspprobe._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for server discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the default WebSocket port for probe servers
	DefaultPort = 9160
)

// Scanner handles mDNS probe-server discovery
type Scanner struct {
	// Timeout is the maximum time to wait for discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all probe servers on the local network
func (s *Scanner) Scan() ([]*ProbeServer, error) {
	return s.ScanWithContext(context.Background())
}

// ScanWithContext discovers probe servers with a custom context
func (s *Scanner) ScanWithContext(ctx context.Context) ([]*ProbeServer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	servers := make([]*ProbeServer, 0)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if server := s.parseServiceEntry(entry); server != nil {
				servers = append(servers, server)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for context to complete (timeout or cancellation)
	<-ctx.Done()

	return servers, nil
}

// parseServiceEntry converts a zeroconf service entry to a ProbeServer.
// Returns nil for entries without a reachable address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *ProbeServer {
	if entry.Instance == "" {
		return nil
	}

	// Prefer IPv4
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &ProbeServer{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function to scan for probe servers with a custom
// timeout
func Scan(timeout time.Duration) ([]*ProbeServer, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan()
}

// Announcer is a live mDNS registration. Close withdraws it.
type Announcer struct {
	server *zeroconf.Server
}

// Close withdraws the mDNS registration
func (a *Announcer) Close() {
	a.server.Shutdown()
}

// Announce registers a probe server instance over mDNS. An empty instance
// name falls back to the machine hostname. txt entries become TXT records.
func Announce(instance string, port int, txt map[string]string) (*Announcer, error) {
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "mspprobe"
		}
		instance = "mspprobe-" + hostname
	}

	records := make([]string, 0, len(txt))
	for key, value := range txt {
		if value == "" {
			records = append(records, key)
			continue
		}
		records = append(records, key+"="+value)
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, records, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	return &Announcer{server: server}, nil
}
