// Package verify compares on-chip flash contents against a program image.
//
// The verifier walks each flash section of the image, reads the target back
// in small chunks through a readback function, and records every differing
// byte. Readback failures abort the whole run: a partial comparison over a
// flaky link would report phantom mismatches, so no result is better than a
// wrong one. Size disagreements between a section and what the target
// returned are recorded per section and the run continues.
package verify
