package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantName string
		wantIP   string
		wantPort int
	}{
		{
			name: "valid server with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "mspprobe-bench2"},
				HostName:      "bench2.local.",
				Port:          9160,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"profile=MSPM0G3507"},
			},
			wantNil:  false,
			wantName: "mspprobe-bench2",
			wantIP:   "192.168.4.16",
			wantPort: 9160,
		},
		{
			name: "custom port",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "mspprobe-lab"},
				HostName:      "lab.local",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantNil:  false,
			wantName: "mspprobe-lab",
			wantIP:   "10.0.0.5",
			wantPort: 8080,
		},
		{
			name: "no port specified defaults",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "mspprobe-desk"},
				HostName:      "desk.local",
				Port:          0,
				AddrIPv4:      []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantNil:  false,
			wantName: "mspprobe-desk",
			wantIP:   "172.16.0.1",
			wantPort: DefaultPort,
		},
		{
			name: "empty instance name",
			entry: &zeroconf.ServiceEntry{
				HostName: "anon.local",
				Port:     9160,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "mspprobe-ghost"},
				HostName:      "ghost.local",
				Port:          9160,
				AddrIPv4:      []net.IP{},
				AddrIPv6:      []net.IP{},
			},
			wantNil: true,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "mspprobe-v6"},
				HostName:      "v6.local",
				Port:          9160,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantNil:  false,
			wantName: "mspprobe-v6",
			wantIP:   "fe80::1",
			wantPort: 9160,
		},
		{
			name: "both address families prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "mspprobe-dual"},
				HostName:      "dual.local",
				Port:          9160,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
			},
			wantNil:  false,
			wantName: "mspprobe-dual",
			wantIP:   "192.168.1.50",
			wantPort: 9160,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if server != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", server)
				}
				return
			}

			if server == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil server")
			}

			if server.Name != tt.wantName {
				t.Errorf("server.Name = %v, want %v", server.Name, tt.wantName)
			}

			if server.IP != tt.wantIP {
				t.Errorf("server.IP = %v, want %v", server.IP, tt.wantIP)
			}

			if server.Port != tt.wantPort {
				t.Errorf("server.Port = %v, want %v", server.Port, tt.wantPort)
			}

			if time.Since(server.DiscoveredAt) > time.Second {
				t.Errorf("server.DiscoveredAt is not recent: %v", server.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "mspprobe-bench2"},
		HostName:      "bench2.local",
		Port:          9160,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
		Text:          []string{"profile=MSPM0G3507", "version=1.0", "flag"},
	}

	server := scanner.parseServiceEntry(entry)
	if server == nil {
		t.Fatal("parseServiceEntry() = nil, want server")
	}

	expectedMetadata := map[string]string{
		"profile": "MSPM0G3507",
		"version": "1.0",
		"flag":    "", // Key without value
	}

	if len(server.Metadata) != len(expectedMetadata) {
		t.Errorf("server.Metadata has %d entries, want %d", len(server.Metadata), len(expectedMetadata))
	}

	for key, expectedValue := range expectedMetadata {
		if actualValue, ok := server.Metadata[key]; !ok {
			t.Errorf("server.Metadata missing key %q", key)
		} else if actualValue != expectedValue {
			t.Errorf("server.Metadata[%q] = %q, want %q", key, actualValue, expectedValue)
		}
	}

	if server.Profile() != "MSPM0G3507" {
		t.Errorf("server.Profile() = %q, want MSPM0G3507", server.Profile())
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestProbeServerURL(t *testing.T) {
	server := &ProbeServer{Name: "mspprobe-bench2", IP: "192.168.4.16", Port: 9160}
	if got := server.URL(); got != "ws://192.168.4.16:9160/ws" {
		t.Errorf("URL() = %q", got)
	}
}

func TestProbeServerProfileFallback(t *testing.T) {
	server := &ProbeServer{Name: "mspprobe-bench2"}
	if got := server.Profile(); got != "unknown" {
		t.Errorf("Profile() = %q, want unknown", got)
	}
}

// Note: Integration tests with live mDNS discovery require network access
// and should be run manually.
