// Package mmap provides read-only memory-mapped file access for zero-copy
// index views.
//
// # Usage
//
//	m, err := mmap.Open("index.anx")
//	if err != nil { ... }
//	defer m.Close()
//
//	header, err := m.Slice(0, 128)
//	m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with PROT_READ and MAP_SHARED, and
//     madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (advice is a no-op)
//
// # Thread Safety
//
// A Mapping is safe for concurrent reads. Close is idempotent. Callers must
// ensure no goroutine touches slices obtained from the mapping after Close.
package mmap
