// Package persistence implements the annex index file format.
//
// # Layout
//
// A file is a 128-byte FileHeader followed by six sections, each starting at
// an 8-byte aligned offset:
//
//	Vectors       size × stride bytes
//	Levels        size × uint8
//	Base          size × 2M × uint32     layer-0 neighbor slots
//	UpperOffsets  size × uint32          index into Upper, sentinel for level 0
//	Upper         UpperSlots × uint32    level × M slots per node
//	Labels        size × uint32
//
// The header records the configuration, the section offsets, the total file
// size and a CRC32 of every byte after the header.
//
// # Access Paths
//
//   - Write / Read stream the format through any io.Writer / io.Reader
//   - SaveToFile replaces a file atomically through internal/fs
//   - OpenMapped views a file in place through internal/mmap
//   - NewCompressedWriter / NewCompressedReader wrap streams in lz4 or zstd
//
// PLATFORM REQUIREMENTS: sections are raw little-endian arrays, so the
// package refuses to initialize on big-endian systems.
package persistence
