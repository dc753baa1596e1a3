package verify

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/mspprobe/internal/image"
	"github.com/muurk/mspprobe/internal/logging"
)

// DefaultChunkSize is the per-request read ceiling used when the target
// profile does not override it.
const DefaultChunkSize = 4

// padByte fills short readback chunks. Matches the erased state of flash.
const padByte = 0xFF

// ReadbackFunc reads length bytes of target memory starting at addr.
// Typically session.(*Session).ReadFlash.
type ReadbackFunc func(addr, length uint32) ([]byte, error)

// ProgressFunc is invoked after every completed chunk with the cumulative
// byte counts of the run.
type ProgressFunc func(done, total uint32)

// Verifier compares on-chip flash against an image's expected bytes.
type Verifier struct {
	read      ReadbackFunc
	chunkSize uint32

	// Progress, when set, receives per-chunk completion updates.
	Progress ProgressFunc
}

// New builds a verifier over a readback function. chunkSize caps each
// readback request; zero selects DefaultChunkSize.
func New(read ReadbackFunc, chunkSize uint32) *Verifier {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	return &Verifier{read: read, chunkSize: chunkSize}
}

// Run verifies every flash section of img in address order.
//
// A chunk readback error aborts the whole run: the partial result carries a
// single error naming the failing address and no later section is attempted.
// A section whose readback length disagrees with its expected size is
// recorded as an error and skipped; the run continues with the next section.
func (v *Verifier) Run(img *image.Image) *Result {
	result := newResult(len(img.Sections))
	total := img.TotalBytes()
	var done uint32

	for _, section := range img.Sections {
		actual, err := v.readSection(section, total, &done)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			logging.Warn("Verification aborted", zap.Error(err))
			return result
		}

		if uint32(len(actual)) != section.Size {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"section 0x%08X: size mismatch, expected %d bytes, read %d",
				section.Address, section.Size, len(actual)))
			continue
		}

		if bytes.Equal(actual, section.Data) {
			result.Verified = append(result.Verified, section.Address)
			continue
		}

		var mismatches []ByteMismatch
		for i := range section.Data {
			if actual[i] != section.Data[i] {
				mismatches = append(mismatches, ByteMismatch{
					Address:  section.Address + uint32(i),
					Expected: section.Data[i],
					Actual:   actual[i],
				})
			}
		}
		result.Mismatches[section.Address] = mismatches
	}

	return result
}

// readSection reads back one section's full extent in bounded chunks. Short
// chunks are right-padded with padByte before concatenation.
func (v *Verifier) readSection(section image.FlashSection, total uint32, done *uint32) ([]byte, error) {
	actual := make([]byte, 0, section.Size)

	for offset := uint32(0); offset < section.Size; offset += v.chunkSize {
		want := section.Size - offset
		if want > v.chunkSize {
			want = v.chunkSize
		}

		addr := section.Address + offset
		chunk, err := v.read(addr, want)
		if err != nil {
			return nil, fmt.Errorf("readback failed at 0x%08X: %w", addr, err)
		}

		for uint32(len(chunk)) < want {
			chunk = append(chunk, padByte)
		}
		actual = append(actual, chunk...)

		*done += want
		if v.Progress != nil {
			v.Progress(*done, total)
		}
	}

	return actual, nil
}
