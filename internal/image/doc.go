// Package image builds the flash model of a program image: the set of
// loadable regions whose bytes are expected to be present in on-chip flash.
//
// The container format is someone else's problem. The model is built from a
// generic section table (address, size, flags, file offset per entry) plus
// the raw image bytes. A convenience loader adapts ELF files through the
// standard debug/elf parser.
//
// A section makes it into the model when it is allocatable, carries real
// bytes (not BSS), and its load address falls inside one of the target
// profile's flash windows. The resulting sections are immutable and kept
// sorted ascending by address; reporting and the memory-map query rely on
// that ordering.
package image
