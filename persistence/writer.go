package persistence

import (
	"fmt"
	"io"

	"github.com/hupe1980/annex/internal/vectorstore"
)

// Write encodes sec under meta and returns the number of bytes written. The
// body is hashed in a first pass so the header can carry the checksum
// without seeking.
func Write(w io.Writer, meta Meta, sec vectorstore.Sections) (int64, error) {
	h, err := NewHeader(meta, sec)
	if err != nil {
		return 0, err
	}
	l, err := h.Validate()
	if err != nil {
		return 0, err
	}

	sum := NewChecksumWriter(io.Discard)
	if err := writeBody(sum, l, sec); err != nil {
		return 0, err
	}
	h.Checksum = sum.Sum()

	hb, err := h.MarshalBinary()
	if err != nil {
		return 0, err
	}
	out := NewChecksumWriter(w)
	if _, err := out.Write(hb); err != nil {
		return out.Count(), err
	}
	if err := writeBody(out, l, sec); err != nil {
		return out.Count(), err
	}
	return out.Count(), nil
}

func writeBody(w io.Writer, l Layout, sec vectorstore.Sections) error {
	parts := [numSections][]byte{
		SectionVectors:      sec.Vectors,
		SectionLevels:       sec.Levels,
		SectionBase:         u32Bytes(sec.Base),
		SectionUpperOffsets: u32Bytes(sec.UpperOffsets),
		SectionUpper:        u32Bytes(sec.Upper),
		SectionLabels:       u32Bytes(sec.Labels),
	}

	var pad [sectionAlign]byte
	off := uint64(HeaderSize)
	for i, p := range parts {
		if uint64(len(p)) != l.Lengths[i] {
			return fmt.Errorf("%w: section %d has %d bytes, want %d", ErrInvalidSections, i, len(p), l.Lengths[i])
		}
		if gap := l.Offsets[i] - off; gap > 0 {
			if _, err := w.Write(pad[:gap]); err != nil {
				return err
			}
		}
		if _, err := w.Write(p); err != nil {
			return err
		}
		off = l.Offsets[i] + l.Lengths[i]
	}
	return nil
}
