package checksum

import (
	"hash/crc32"
	"testing"
)

func TestFrame8Deterministic(t *testing.T) {
	span := []byte{0x00, 0x02, 0xC1}

	first := Frame8(span)
	second := Frame8(span)

	if first != second {
		t.Errorf("Frame8 not stable: 0x%02X then 0x%02X", first, second)
	}
}

func TestFrame8EmptyInput(t *testing.T) {
	if got := Frame8(nil); got != 0 {
		t.Errorf("Frame8(nil) = 0x%02X, want 0x00", got)
	}
}

func TestFrame8BitFlipChangesValue(t *testing.T) {
	span := []byte{0x00, 0x08, 0xC6, 0x00, 0x00, 0x10, 0x00, 0x00, 0x20}
	base := Frame8(span)

	// Flipping any single bit anywhere in the span must change the checksum.
	for i := range span {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(span))
			copy(flipped, span)
			flipped[i] ^= 1 << bit

			if got := Frame8(flipped); got == base {
				t.Errorf("flipping byte %d bit %d did not change checksum (0x%02X)", i, bit, got)
			}
		}
	}
}

func TestBlock32EmptyInput(t *testing.T) {
	// With nothing written the digest is the untouched seed.
	d := NewBlock32()
	if got := d.Sum32(); got != BlockSeed {
		t.Errorf("empty digest = 0x%08X, want 0x%08X", got, uint32(BlockSeed))
	}
}

func TestBlock32IsUncomplementedCRC32(t *testing.T) {
	// Block32 is CRC-32/IEEE without the final complement, so for any input
	// it must equal the bitwise inverse of the standard checksum.
	inputs := [][]byte{
		{0x00},
		{0xFF},
		[]byte("123456789"),
		{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01, 0x02, 0x03},
	}

	for _, in := range inputs {
		want := ^crc32.ChecksumIEEE(in)
		if got := Block(in); got != want {
			t.Errorf("Block(% X) = 0x%08X, want 0x%08X", in, got, want)
		}
	}
}

func TestBlock32Streaming(t *testing.T) {
	// Writing in pieces must match a single write of the concatenation.
	data := []byte("streamed section contents")

	whole := Block(data)

	d := NewBlock32()
	for _, b := range data {
		if _, err := d.Write([]byte{b}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if got := d.Sum32(); got != whole {
		t.Errorf("streamed digest = 0x%08X, want 0x%08X", got, whole)
	}
}
