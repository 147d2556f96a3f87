package persistence

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/annex/internal/vectorstore"
)

// Read decodes an index from a stream into freshly allocated sections. size
// is the total stream length when known, or -1. The checksum is always
// verified.
func Read(r io.Reader, size int64) (*FileHeader, vectorstore.Sections, error) {
	hb := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		return nil, vectorstore.Sections{}, truncated(err)
	}

	h := new(FileHeader)
	if err := h.UnmarshalBinary(hb); err != nil {
		return nil, vectorstore.Sections{}, err
	}
	l, err := h.Validate()
	if err != nil {
		return nil, vectorstore.Sections{}, err
	}
	if size >= 0 && uint64(size) != h.FileSize {
		return nil, vectorstore.Sections{}, fmt.Errorf("%w: have %d bytes, header declares %d", ErrSizeMismatch, size, h.FileSize)
	}

	sec := vectorstore.Sections{
		Size:         int(h.Size),
		Stride:       int(h.Stride),
		M:            int(h.Connectivity),
		Vectors:      make([]byte, l.Lengths[SectionVectors]),
		Levels:       make([]uint8, l.Lengths[SectionLevels]),
		Base:         make([]uint32, l.Lengths[SectionBase]/4),
		UpperOffsets: make([]uint32, l.Lengths[SectionUpperOffsets]/4),
		Upper:        make([]uint32, l.Lengths[SectionUpper]/4),
		Labels:       make([]uint32, l.Lengths[SectionLabels]/4),
	}
	parts := [numSections][]byte{
		SectionVectors:      sec.Vectors,
		SectionLevels:       sec.Levels,
		SectionBase:         u32Bytes(sec.Base),
		SectionUpperOffsets: u32Bytes(sec.UpperOffsets),
		SectionUpper:        u32Bytes(sec.Upper),
		SectionLabels:       u32Bytes(sec.Labels),
	}

	cr := NewChecksumReader(r)
	off := uint64(HeaderSize)
	for i, p := range parts {
		if gap := int64(l.Offsets[i] - off); gap > 0 {
			if _, err := io.CopyN(io.Discard, cr, gap); err != nil {
				return nil, vectorstore.Sections{}, truncated(err)
			}
		}
		if _, err := io.ReadFull(cr, p); err != nil {
			return nil, vectorstore.Sections{}, truncated(err)
		}
		off = l.Offsets[i] + l.Lengths[i]
	}
	if err := cr.Verify(h.Checksum); err != nil {
		return nil, vectorstore.Sections{}, err
	}
	return h, sec, nil
}

// Parse validates a complete file image and returns sections that alias
// data. The checksum is verified only when verify is set.
func Parse(data []byte, verify bool) (*FileHeader, vectorstore.Sections, error) {
	h := new(FileHeader)
	if err := h.UnmarshalBinary(data); err != nil {
		return nil, vectorstore.Sections{}, err
	}
	l, err := h.Validate()
	if err != nil {
		return nil, vectorstore.Sections{}, err
	}
	if uint64(len(data)) != h.FileSize {
		return nil, vectorstore.Sections{}, fmt.Errorf("%w: have %d bytes, header declares %d", ErrSizeMismatch, len(data), h.FileSize)
	}
	if verify {
		if err := verifyChecksum(h.Checksum, Checksum(data[HeaderSize:])); err != nil {
			return nil, vectorstore.Sections{}, err
		}
	}

	section := func(s Section) []byte {
		off, n := l.Offsets[s], l.Lengths[s]
		return data[off : off+n : off+n]
	}
	sec := vectorstore.Sections{
		Size:    int(h.Size),
		Stride:  int(h.Stride),
		M:       int(h.Connectivity),
		Vectors: section(SectionVectors),
		Levels:  section(SectionLevels),
	}
	for s, dst := range map[Section]*[]uint32{
		SectionBase:         &sec.Base,
		SectionUpperOffsets: &sec.UpperOffsets,
		SectionUpper:        &sec.Upper,
		SectionLabels:       &sec.Labels,
	} {
		if *dst, err = u32View(section(s)); err != nil {
			return nil, vectorstore.Sections{}, err
		}
	}
	return h, sec, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return err
}
