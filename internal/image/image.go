package image

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/muurk/mspprobe/internal/checksum"
	"github.com/muurk/mspprobe/internal/target"
)

// Section is one entry of a program image's section table, as supplied by
// the container parser.
type Section struct {
	Name   string
	Addr   uint32
	Size   uint32
	Offset uint32 // file offset of the section's bytes

	// Alloc marks sections that occupy target memory
	Alloc bool

	// NoData marks uninitialized (BSS-like) sections that have no bytes in
	// the image file
	NoData bool
}

// FlashSection is a selected region destined for on-chip flash, with its
// expected bytes extracted from the image. Immutable once built.
type FlashSection struct {
	Address uint32
	Size    uint32
	Data    []byte
}

// Range is one contiguous span of the memory map. End is inclusive.
type Range struct {
	Start uint32
	End   uint32
}

// Image is the flash model of a program image: the flash-resident sections
// sorted ascending by address, plus the entry point.
type Image struct {
	Sections   []FlashSection
	EntryPoint uint32
}

// Load selects the flash-resident sections out of table and extracts their
// bytes from data. Sections are kept when they are allocatable, not NoData,
// and their address falls in one of the profile's flash windows. A section
// whose recorded span reads past the end of data is a fatal error.
func Load(data []byte, table []Section, entry uint32, profile *target.Profile) (*Image, error) {
	var sections []FlashSection

	for _, s := range table {
		if !s.Alloc || s.NoData {
			continue
		}
		if !profile.InFlash(s.Addr) {
			continue
		}

		end := uint64(s.Offset) + uint64(s.Size)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("section %s at 0x%08X: data [%d, %d) extends beyond image end %d",
				s.Name, s.Addr, s.Offset, end, len(data))
		}

		extracted := make([]byte, s.Size)
		copy(extracted, data[s.Offset:end])

		sections = append(sections, FlashSection{
			Address: s.Addr,
			Size:    s.Size,
			Data:    extracted,
		})
	}

	sort.Slice(sections, func(i, j int) bool {
		return sections[i].Address < sections[j].Address
	})

	return &Image{Sections: sections, EntryPoint: entry}, nil
}

// LoadELF reads an ELF file and builds its flash model for the given target.
func LoadELF(path string, profile *target.Profile) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}

	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	table := make([]Section, 0, len(f.Sections))
	for _, s := range f.Sections {
		table = append(table, Section{
			Name:   s.Name,
			Addr:   uint32(s.Addr),
			Size:   uint32(s.Size),
			Offset: uint32(s.Offset),
			Alloc:  s.Flags&elf.SHF_ALLOC != 0,
			NoData: s.Type == elf.SHT_NOBITS,
		})
	}

	return Load(data, table, uint32(f.Entry), profile)
}

// MemoryMap returns the (start, inclusive end) pairs of every flash section,
// in address order.
func (img *Image) MemoryMap() []Range {
	ranges := make([]Range, len(img.Sections))
	for i, s := range img.Sections {
		ranges[i] = Range{Start: s.Address, End: s.Address + s.Size - 1}
	}
	return ranges
}

// Digest computes the whole-image block checksum: each section's address
// (little-endian) followed by its bytes, in address order.
func (img *Image) Digest() uint32 {
	d := checksum.NewBlock32()
	var addr [4]byte
	for _, s := range img.Sections {
		binary.LittleEndian.PutUint32(addr[:], s.Address)
		_, _ = d.Write(addr[:])
		_, _ = d.Write(s.Data)
	}
	return d.Sum32()
}

// TotalBytes returns the byte count across all flash sections.
func (img *Image) TotalBytes() uint32 {
	var total uint32
	for _, s := range img.Sections {
		total += s.Size
	}
	return total
}
