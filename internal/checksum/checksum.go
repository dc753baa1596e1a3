// Package checksum implements the two integrity algorithms used by the
// probe link and the verification engine.
//
// Frame8 is the 8-bit CRC that protects individual wire frames. Block32 is a
// 32-bit reflected CRC used for whole-image and section digests. The two are
// deliberately independent: one checksum scheme per boundary. Block32 matches
// CRC-32/IEEE bit ordering but omits the final complement, so its output is
// the bitwise inverse of a textbook CRC-32 over the same bytes. The target
// firmware computes it the same way; do not "fix" it.
package checksum

const (
	// FramePolynomial is the 8-bit frame CRC polynomial (x^8 + x^2 + x + 1)
	FramePolynomial = 0x07

	// BlockPolynomial is the reflected CRC-32/IEEE polynomial
	BlockPolynomial = 0xEDB88320

	// BlockSeed is the Block32 initial value
	BlockSeed = 0xFFFFFFFF
)

// Frame8 computes the 8-bit frame checksum over data.
//
// The caller is responsible for passing exactly the protected span of the
// frame (length field, opcode, and payload); the checksum byte itself and the
// frame envelope are never included. Encode and decode must feed the same
// span or the link breaks.
func Frame8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ FramePolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Block32 is a running 32-bit block checksum. The zero value is not valid;
// use NewBlock32.
type Block32 struct {
	crc uint32
}

// NewBlock32 returns a digest seeded with BlockSeed.
func NewBlock32() *Block32 {
	return &Block32{crc: BlockSeed}
}

// Write folds p into the digest. It never returns an error; the signature
// satisfies io.Writer so sections can be streamed in.
func (d *Block32) Write(p []byte) (int, error) {
	crc := d.crc
	for _, b := range p {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			mask := -(crc & 1)
			crc = (crc >> 1) ^ (BlockPolynomial & mask)
		}
	}
	d.crc = crc
	return len(p), nil
}

// Sum32 returns the current digest value. No final complement is applied.
func (d *Block32) Sum32() uint32 {
	return d.crc
}

// Block computes the Block32 checksum of data in one call.
func Block(data []byte) uint32 {
	d := NewBlock32()
	_, _ = d.Write(data)
	return d.Sum32()
}
