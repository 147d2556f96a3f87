package persistence

import (
	"github.com/hupe1980/annex/internal/mmap"
	"github.com/hupe1980/annex/internal/vectorstore"
)

// MappedFile is an index file viewed in place through a read-only mapping.
// Sections alias the mapping and become invalid after Close.
type MappedFile struct {
	Header   *FileHeader
	Sections vectorstore.Sections

	m *mmap.Mapping
}

// OpenMapped maps path and validates its structure. The checksum is verified
// only when verify is set.
func OpenMapped(path string, verify bool) (*MappedFile, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	h, sec, err := Parse(m.Bytes(), verify)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	// Graph traversal touches nodes in no particular order.
	_ = m.Advise(mmap.AccessRandom)

	return &MappedFile{Header: h, Sections: sec, m: m}, nil
}

// Size returns the mapped file size in bytes.
func (f *MappedFile) Size() int {
	return f.m.Size()
}

// Close unmaps the file. It is idempotent.
func (f *MappedFile) Close() error {
	return f.m.Close()
}
