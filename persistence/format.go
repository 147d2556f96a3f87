package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/hupe1980/annex/distance"
	"github.com/hupe1980/annex/internal/vectorstore"
	"github.com/hupe1980/annex/quantization"
)

const (
	// MagicNumber identifies annex index files (ASCII: "ANX1").
	MagicNumber = 0x31584E41
	// Version is the current file format version.
	Version = 1
	// HeaderSize is the encoded size of FileHeader.
	HeaderSize = 128
	// MaxConnectivity bounds the connectivity a file may declare.
	MaxConnectivity = 1024

	sectionAlign = 8
)

var (
	ErrInvalidMagic    = errors.New("persistence: invalid magic number")
	ErrInvalidVersion  = errors.New("persistence: unsupported version")
	ErrInvalidHeader   = errors.New("persistence: invalid header")
	ErrTruncated       = errors.New("persistence: truncated file")
	ErrSizeMismatch    = errors.New("persistence: file size does not match header")
	ErrInvalidSections = errors.New("persistence: invalid sections")
)

// Section identifies a region of the file body.
type Section int

const (
	SectionVectors Section = iota
	SectionLevels
	SectionBase
	SectionUpperOffsets
	SectionUpper
	SectionLabels

	numSections
)

// FileHeader is the 128-byte header at the start of every index file.
// All integers are little-endian.
type FileHeader struct {
	Magic           uint32
	Version         uint32
	Metric          distance.Metric
	Quantization    quantization.Kind
	LevelCap        uint8
	_               uint8
	Dimensions      uint32
	Connectivity    uint32
	Stride          uint32
	Size            uint64
	EntryPoint      uint32
	MaxLevel        uint32
	ExpansionAdd    uint32
	ExpansionSearch uint32
	Offsets         [numSections]uint64
	UpperSlots      uint64
	FileSize        uint64
	Checksum        uint32 // CRC32 (IEEE) of every byte after the header
	_               [12]byte
}

// Meta is the index configuration recorded in the header.
type Meta struct {
	Metric          distance.Metric
	Quantization    quantization.Kind
	Dimensions      int
	ExpansionAdd    int
	ExpansionSearch int
	EntryPoint      uint32
	MaxLevel        int
}

// Meta returns the index configuration carried by the header.
func (h *FileHeader) Meta() Meta {
	return Meta{
		Metric:          h.Metric,
		Quantization:    h.Quantization,
		Dimensions:      int(h.Dimensions),
		ExpansionAdd:    int(h.ExpansionAdd),
		ExpansionSearch: int(h.ExpansionSearch),
		EntryPoint:      h.EntryPoint,
		MaxLevel:        int(h.MaxLevel),
	}
}

// MarshalBinary encodes the header into HeaderSize bytes.
func (h *FileHeader) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize)
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes and validates magic and version.
func (h *FileHeader) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("%w: header has %d bytes", ErrTruncated, len(b))
	}
	if err := binary.Read(bytes.NewReader(b[:HeaderSize]), binary.LittleEndian, h); err != nil {
		return err
	}
	if h.Magic != MagicNumber {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}
	return nil
}

// Layout is the placement of the sections in a file.
type Layout struct {
	Offsets  [numSections]uint64
	Lengths  [numSections]uint64
	FileSize uint64
}

// ComputeLayout places the sections for size nodes after the header, each at
// an 8-byte aligned offset. It fails when the file would not be addressable.
func ComputeLayout(size, stride, connectivity, upperSlots uint64) (Layout, error) {
	var l Layout
	if size > math.MaxUint32 || connectivity > MaxConnectivity {
		return l, fmt.Errorf("%w: size=%d connectivity=%d", ErrInvalidHeader, size, connectivity)
	}

	vectors, ok := mul(size, stride)
	if !ok || upperSlots > size*vectorstore.MaxLevel*connectivity {
		return l, fmt.Errorf("%w: size=%d stride=%d upper=%d", ErrInvalidHeader, size, stride, upperSlots)
	}
	l.Lengths = [numSections]uint64{
		SectionVectors:      vectors,
		SectionLevels:       size,
		SectionBase:         size * 2 * connectivity * 4,
		SectionUpperOffsets: size * 4,
		SectionUpper:        upperSlots * 4,
		SectionLabels:       size * 4,
	}

	off := uint64(HeaderSize)
	for i := range l.Offsets {
		off = alignUp(off)
		l.Offsets[i] = off
		if l.Lengths[i] > math.MaxInt-off {
			return l, fmt.Errorf("%w: file is not addressable", ErrInvalidHeader)
		}
		off += l.Lengths[i]
	}
	l.FileSize = off
	return l, nil
}

func mul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0 && lo <= math.MaxInt/2
}

func alignUp(off uint64) uint64 {
	return (off + sectionAlign - 1) &^ (sectionAlign - 1)
}

// Validate checks the header fields against each other and returns the
// layout they describe.
func (h *FileHeader) Validate() (Layout, error) {
	switch {
	case !h.Metric.Valid():
		return Layout{}, fmt.Errorf("%w: metric %d", ErrInvalidHeader, h.Metric)
	case !h.Quantization.Valid():
		return Layout{}, fmt.Errorf("%w: quantization %d", ErrInvalidHeader, h.Quantization)
	case !distance.Compatible(h.Metric, h.Quantization):
		return Layout{}, fmt.Errorf("%w: %s cannot be stored as %s", ErrInvalidHeader, h.Metric, h.Quantization)
	case h.Dimensions == 0 || (h.Metric.FixedDims() != 0 && int(h.Dimensions) != h.Metric.FixedDims()):
		return Layout{}, fmt.Errorf("%w: %d dimensions", ErrInvalidHeader, h.Dimensions)
	case uint64(h.Stride) != uint64(h.Quantization.Stride(int(h.Dimensions))):
		return Layout{}, fmt.Errorf("%w: stride %d for %d×%s", ErrInvalidHeader, h.Stride, h.Dimensions, h.Quantization)
	case h.Connectivity < uint32(h.Metric.MinConnectivity()) || h.Connectivity > MaxConnectivity:
		return Layout{}, fmt.Errorf("%w: connectivity %d", ErrInvalidHeader, h.Connectivity)
	case h.LevelCap != vectorstore.MaxLevel || h.MaxLevel > vectorstore.MaxLevel:
		return Layout{}, fmt.Errorf("%w: max level %d (cap %d)", ErrInvalidHeader, h.MaxLevel, h.LevelCap)
	case h.Size > 0 && uint64(h.EntryPoint) >= h.Size:
		return Layout{}, fmt.Errorf("%w: entry point %d of %d nodes", ErrInvalidHeader, h.EntryPoint, h.Size)
	}

	l, err := ComputeLayout(h.Size, uint64(h.Stride), uint64(h.Connectivity), h.UpperSlots)
	if err != nil {
		return Layout{}, err
	}
	if l.Offsets != h.Offsets {
		return Layout{}, fmt.Errorf("%w: section offsets %v, want %v", ErrInvalidHeader, h.Offsets, l.Offsets)
	}
	if l.FileSize != h.FileSize {
		return Layout{}, fmt.Errorf("%w: declared %d bytes, layout needs %d", ErrSizeMismatch, h.FileSize, l.FileSize)
	}
	return l, nil
}

// NewHeader builds the header describing sec under meta. The checksum is
// left zero.
func NewHeader(meta Meta, sec vectorstore.Sections) (*FileHeader, error) {
	h := &FileHeader{
		Magic:           MagicNumber,
		Version:         Version,
		Metric:          meta.Metric,
		Quantization:    meta.Quantization,
		LevelCap:        vectorstore.MaxLevel,
		Dimensions:      uint32(meta.Dimensions),
		Connectivity:    uint32(sec.M),
		Stride:          uint32(sec.Stride),
		Size:            uint64(sec.Size),
		EntryPoint:      meta.EntryPoint,
		MaxLevel:        uint32(max(meta.MaxLevel, 0)),
		ExpansionAdd:    uint32(meta.ExpansionAdd),
		ExpansionSearch: uint32(meta.ExpansionSearch),
		UpperSlots:      uint64(len(sec.Upper)),
	}
	if sec.Size == 0 {
		h.EntryPoint = 0
		h.MaxLevel = 0
	}
	l, err := ComputeLayout(h.Size, uint64(h.Stride), uint64(h.Connectivity), h.UpperSlots)
	if err != nil {
		return nil, err
	}
	h.Offsets = l.Offsets
	h.FileSize = l.FileSize
	if _, err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}
