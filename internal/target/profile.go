// Package target holds the per-device profile catalog: flash windows, debug
// mailbox addresses, and link parameters.
//
// The probe core never hard-codes a device address range. Everything
// device-specific lives in the embedded YAML catalog, so supporting a
// different target is a catalog edit, not a code change.
package target

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

// DefaultProfile is the profile used when none is named explicitly.
const DefaultProfile = "MSPM0G3507"

// FlashWindow is a contiguous address range treated as on-chip non-volatile
// memory for verification. End is exclusive.
type FlashWindow struct {
	Name  string `yaml:"name"`
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

// Contains reports whether addr falls inside the window.
func (w FlashWindow) Contains(addr uint32) bool {
	return addr >= w.Start && addr < w.End
}

// DebugMailbox describes the SRAM mailbox the on-target debug monitor polls.
// Register reads go through it: write the register index to SelectAddr, then
// read the value back from DataAddr.
type DebugMailbox struct {
	// SelectAddr is where the host writes the register index
	SelectAddr uint32 `yaml:"select_addr"`

	// DataAddr is where the monitor publishes the selected register value
	DataAddr uint32 `yaml:"data_addr"`

	// PCRegister is the register index that aliases the program counter
	PCRegister uint8 `yaml:"pc_register"`
}

// Link holds serial link parameters for the probe connection.
type Link struct {
	// Baud is the serial line rate
	Baud int `yaml:"baud"`

	// MaxReadChunk is the per-request read ceiling the deployment's
	// firmware sustains, in bytes. The verifier never asks for more.
	MaxReadChunk uint32 `yaml:"max_read_chunk"`
}

// Profile is one target device entry from the catalog.
type Profile struct {
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	Verified     bool          `yaml:"verified"`
	FlashWindows []FlashWindow `yaml:"flash_windows"`
	Debug        DebugMailbox  `yaml:"debug"`
	Link         Link          `yaml:"link"`
}

// InFlash reports whether addr falls inside any of the profile's flash
// windows.
func (p *Profile) InFlash(addr uint32) bool {
	for _, w := range p.FlashWindows {
		if w.Contains(addr) {
			return true
		}
	}
	return false
}

// Catalog holds all known target profiles.
type Catalog struct {
	Profiles []*Profile

	index map[string]*Profile
}

type catalogContainer struct {
	Profiles []*Profile `yaml:"profiles"`
}

var (
	globalCatalog     *Catalog
	globalCatalogOnce sync.Once
	globalCatalogErr  error
)

// LoadCatalog parses the embedded profile catalog. Safe to call repeatedly;
// the catalog is loaded once.
func LoadCatalog() (*Catalog, error) {
	globalCatalogOnce.Do(func() {
		globalCatalog, globalCatalogErr = parseCatalog(profilesYAML)
	})
	return globalCatalog, globalCatalogErr
}

func parseCatalog(data []byte) (*Catalog, error) {
	var container catalogContainer
	if err := yaml.Unmarshal(data, &container); err != nil {
		return nil, fmt.Errorf("failed to parse profile catalog: %w", err)
	}

	catalog := &Catalog{
		Profiles: container.Profiles,
		index:    make(map[string]*Profile, len(container.Profiles)),
	}
	for _, p := range container.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile catalog entry with empty name")
		}
		if _, dup := catalog.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q in catalog", p.Name)
		}
		if len(p.FlashWindows) == 0 {
			return nil, fmt.Errorf("profile %q has no flash windows", p.Name)
		}
		for _, w := range p.FlashWindows {
			if w.End <= w.Start {
				return nil, fmt.Errorf("profile %q window %q: end 0x%08X not above start 0x%08X",
					p.Name, w.Name, w.End, w.Start)
			}
		}
		catalog.index[p.Name] = p
	}

	return catalog, nil
}

// Lookup returns the named profile or an error listing what is available.
func (c *Catalog) Lookup(name string) (*Profile, error) {
	if p, ok := c.index[name]; ok {
		return p, nil
	}

	names := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		names = append(names, p.Name)
	}
	return nil, fmt.Errorf("unknown target profile %q (known profiles: %v)", name, names)
}

// Get is a convenience wrapper: load the catalog and look up name. An empty
// name selects DefaultProfile.
func Get(name string) (*Profile, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = DefaultProfile
	}
	return catalog.Lookup(name)
}
