package persistence

import (
	"errors"
	"fmt"
	"unsafe"
)

var (
	// ErrBigEndian is returned when running on big-endian systems.
	ErrBigEndian = errors.New("persistence: big-endian systems are not supported")

	// ErrUnalignedAccess is returned when a mapped section is not aligned for its element type.
	ErrUnalignedAccess = errors.New("persistence: unaligned memory access")
)

// Sections are written and viewed as raw little-endian arrays.
func init() {
	if !isLittleEndian() {
		panic(fmt.Sprintf("annex/persistence: %v", ErrBigEndian))
	}
}

func isLittleEndian() bool {
	var test uint16 = 0x0001
	return *(*byte)(unsafe.Pointer(&test)) == 1
}

// u32Bytes views s as raw bytes.
func u32Bytes(s []uint32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

// u32View views b as uint32s without copying. b must be 4-byte aligned.
func u32View(b []byte) ([]uint32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of 4", ErrInvalidSections, len(b))
	}
	ptr := unsafe.Pointer(&b[0])
	if uintptr(ptr)%4 != 0 {
		return nil, fmt.Errorf("%w: uint32 section at address 0x%x", ErrUnalignedAccess, uintptr(ptr))
	}
	n := len(b) / 4
	return unsafe.Slice((*uint32)(ptr), n)[:n:n], nil
}
