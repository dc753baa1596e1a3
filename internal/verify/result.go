package verify

import (
	"fmt"
	"sort"
	"strings"
)

// mismatchDisplayCap bounds how many individual byte mismatches the rendered
// report lists per section. Presentation only; the result keeps every entry.
const mismatchDisplayCap = 5

// ByteMismatch is one differing byte, located by absolute target address.
type ByteMismatch struct {
	Address  uint32
	Expected byte
	Actual   byte
}

// Result is the outcome of one verification run. Rebuilt fresh per run.
type Result struct {
	// TotalSections is the number of flash sections the image holds,
	// attempted or not.
	TotalSections int

	// Verified lists the base addresses of sections that matched exactly.
	Verified []uint32

	// Mismatches maps a section's base address to its differing bytes in
	// offset order. Sections absent from both Verified and Mismatches were
	// never completed (aborted run or size mismatch).
	Mismatches map[uint32][]ByteMismatch

	// Errors collects readback and size-mismatch messages in the order
	// they occurred.
	Errors []string
}

func newResult(total int) *Result {
	return &Result{
		TotalSections: total,
		Mismatches:    make(map[uint32][]ByteMismatch),
	}
}

// Success is derived: true iff nothing went wrong and every compared byte
// matched.
func (r *Result) Success() bool {
	return len(r.Errors) == 0 && len(r.Mismatches) == 0
}

// MismatchCount returns the total number of differing bytes across sections.
func (r *Result) MismatchCount() int {
	var n int
	for _, ms := range r.Mismatches {
		n += len(ms)
	}
	return n
}

// Render formats the run as a human-readable report: counts, every error,
// and up to mismatchDisplayCap byte mismatches per failed section.
func (r *Result) Render() string {
	var b strings.Builder

	if r.Success() {
		fmt.Fprintf(&b, "Verification PASSED: %d/%d sections match\n",
			len(r.Verified), r.TotalSections)
		return b.String()
	}

	fmt.Fprintf(&b, "Verification FAILED: %d of %d sections verified, %d mismatched bytes\n",
		len(r.Verified), r.TotalSections, r.MismatchCount())

	for _, msg := range r.Errors {
		fmt.Fprintf(&b, "  error: %s\n", msg)
	}

	bases := make([]uint32, 0, len(r.Mismatches))
	for base := range r.Mismatches {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	for _, base := range bases {
		ms := r.Mismatches[base]
		fmt.Fprintf(&b, "\nSection 0x%08X: %d mismatched bytes\n", base, len(ms))

		shown := ms
		if len(shown) > mismatchDisplayCap {
			shown = shown[:mismatchDisplayCap]
		}
		for _, m := range shown {
			fmt.Fprintf(&b, "  0x%08X: expected 0x%02X, read 0x%02X\n",
				m.Address, m.Expected, m.Actual)
		}
		if extra := len(ms) - len(shown); extra > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", extra)
		}
	}

	return b.String()
}
