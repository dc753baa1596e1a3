package verify

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/muurk/mspprobe/internal/image"
)

// memoryReadback serves chunk reads from a sparse address space, optionally
// failing a chosen request.
type memoryReadback struct {
	mem      map[uint32]byte
	failAddr uint32
	failSet  bool
	calls    []uint32
}

func (m *memoryReadback) read(addr, length uint32) ([]byte, error) {
	m.calls = append(m.calls, addr)
	if m.failSet && addr == m.failAddr {
		return nil, errors.New("link dropped")
	}
	out := make([]byte, length)
	for i := uint32(0); i < length; i++ {
		out[i] = m.mem[addr+i]
	}
	return out, nil
}

func (m *memoryReadback) load(addr uint32, data []byte) {
	for i, b := range data {
		m.mem[addr+uint32(i)] = b
	}
}

func newMemoryReadback() *memoryReadback {
	return &memoryReadback{mem: make(map[uint32]byte)}
}

func sectionBytes(seed byte, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i)
	}
	return data
}

func testImage(sections ...image.FlashSection) *image.Image {
	return &image.Image{Sections: sections}
}

func TestRunAllSectionsMatch(t *testing.T) {
	rb := newMemoryReadback()
	var sections []image.FlashSection
	for i, addr := range []uint32{0x0000, 0x1000, 0x41C00000} {
		data := sectionBytes(byte(i*16), 10)
		rb.load(addr, data)
		sections = append(sections, image.FlashSection{
			Address: addr, Size: uint32(len(data)), Data: data,
		})
	}

	result := New(rb.read, 4).Run(testImage(sections...))

	if !result.Success() {
		t.Fatalf("Success = false, errors %v, mismatches %v", result.Errors, result.Mismatches)
	}
	if len(result.Verified) != 3 {
		t.Errorf("verified %d sections, want 3", len(result.Verified))
	}
	if len(result.Mismatches) != 0 {
		t.Errorf("mismatch map has %d entries, want 0", len(result.Mismatches))
	}
}

func TestRunSingleByteMismatch(t *testing.T) {
	rb := newMemoryReadback()
	data := sectionBytes(0, 16)
	rb.load(0x2000, data)
	rb.mem[0x2005] ^= 0xFF

	result := New(rb.read, 4).Run(testImage(image.FlashSection{
		Address: 0x2000, Size: 16, Data: data,
	}))

	if result.Success() {
		t.Fatal("Success = true with a differing byte")
	}
	ms := result.Mismatches[0x2000]
	if len(ms) != 1 {
		t.Fatalf("section has %d mismatches, want 1", len(ms))
	}
	if ms[0].Address != 0x2005 {
		t.Errorf("mismatch address = 0x%08X, want 0x00002005", ms[0].Address)
	}
	if ms[0].Expected != data[5] || ms[0].Actual != data[5]^0xFF {
		t.Errorf("mismatch bytes = {0x%02X, 0x%02X}, want {0x%02X, 0x%02X}",
			ms[0].Expected, ms[0].Actual, data[5], data[5]^0xFF)
	}
}

func TestRunFailFastOnChunkError(t *testing.T) {
	rb := newMemoryReadback()
	first := sectionBytes(0, 12)
	second := sectionBytes(0x40, 8)
	rb.load(0x1000, first)
	rb.load(0x2000, second)
	// Second chunk of the first section fails.
	rb.failAddr = 0x1004
	rb.failSet = true

	result := New(rb.read, 4).Run(testImage(
		image.FlashSection{Address: 0x1000, Size: 12, Data: first},
		image.FlashSection{Address: 0x2000, Size: 8, Data: second},
	))

	if result.Success() {
		t.Fatal("Success = true after aborted run")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("recorded %d errors, want 1: %v", len(result.Errors), result.Errors)
	}
	if !strings.Contains(result.Errors[0], "0x00001004") {
		t.Errorf("error %q does not name the failing address", result.Errors[0])
	}
	if len(result.Verified) != 0 || len(result.Mismatches) != 0 {
		t.Error("aborted run recorded verified or mismatched sections")
	}
	for _, addr := range rb.calls {
		if addr >= 0x2000 {
			t.Fatalf("later section attempted after abort (read at 0x%08X)", addr)
		}
	}
}

func TestRunPadsShortChunks(t *testing.T) {
	// Expected bytes end in 0xFF: a readback that returns nothing for the
	// final short chunk must still verify, because short chunks are padded
	// with 0xFF before comparison.
	data := []byte{0x01, 0x02, 0x03, 0x04, 0xFF, 0xFF}
	read := func(addr, length uint32) ([]byte, error) {
		if addr == 0x3004 {
			return nil, nil
		}
		return data[addr-0x3000 : addr-0x3000+length], nil
	}

	result := New(read, 4).Run(testImage(image.FlashSection{
		Address: 0x3000, Size: 6, Data: data,
	}))

	if !result.Success() {
		t.Fatalf("Success = false, errors %v, mismatches %v", result.Errors, result.Mismatches)
	}
}

func TestRunSizeMismatchIsIsolated(t *testing.T) {
	good := sectionBytes(0, 4)
	// First section's readback returns more bytes than requested; the
	// second section is healthy and must still be verified.
	read := func(addr, length uint32) ([]byte, error) {
		if addr == 0x1000 {
			return make([]byte, length+2), nil
		}
		return good, nil
	}

	result := New(read, 4).Run(testImage(
		image.FlashSection{Address: 0x1000, Size: 4, Data: make([]byte, 4)},
		image.FlashSection{Address: 0x2000, Size: 4, Data: good},
	))

	if result.Success() {
		t.Fatal("Success = true with a size-mismatched section")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "size mismatch") {
		t.Fatalf("errors = %v, want one size-mismatch entry", result.Errors)
	}
	if len(result.Verified) != 1 || result.Verified[0] != 0x2000 {
		t.Errorf("verified = %v, want [0x2000]", result.Verified)
	}
}

func TestRunReportsProgress(t *testing.T) {
	rb := newMemoryReadback()
	data := sectionBytes(0, 10)
	rb.load(0x0, data)

	v := New(rb.read, 4)
	var updates []uint32
	v.Progress = func(done, total uint32) {
		if total != 10 {
			t.Errorf("total = %d, want 10", total)
		}
		updates = append(updates, done)
	}

	if result := v.Run(testImage(image.FlashSection{Address: 0x0, Size: 10, Data: data})); !result.Success() {
		t.Fatalf("run failed: %v", result.Errors)
	}

	want := []uint32{4, 8, 10}
	if len(updates) != len(want) {
		t.Fatalf("progress updates = %v, want %v", updates, want)
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Fatalf("progress updates = %v, want %v", updates, want)
		}
	}
}

func TestRenderCapsMismatchList(t *testing.T) {
	result := newResult(1)
	var ms []ByteMismatch
	for i := 0; i < 8; i++ {
		ms = append(ms, ByteMismatch{Address: 0x100 + uint32(i), Expected: 0xAA, Actual: 0xBB})
	}
	result.Mismatches[0x100] = ms

	out := result.Render()
	if !strings.Contains(out, "... and 3 more") {
		t.Errorf("report missing truncation marker:\n%s", out)
	}
	for i := 0; i < mismatchDisplayCap; i++ {
		if !strings.Contains(out, fmt.Sprintf("0x%08X", 0x100+i)) {
			t.Errorf("report missing mismatch at 0x%08X:\n%s", 0x100+i, out)
		}
	}
	if strings.Contains(out, fmt.Sprintf("0x%08X", 0x100+mismatchDisplayCap)) {
		t.Errorf("report lists mismatches past the display cap:\n%s", out)
	}
}

func TestRenderSuccess(t *testing.T) {
	result := newResult(2)
	result.Verified = []uint32{0x0, 0x1000}

	out := result.Render()
	if !strings.Contains(out, "PASSED") || !strings.Contains(out, "2/2") {
		t.Errorf("unexpected success report:\n%s", out)
	}
}
