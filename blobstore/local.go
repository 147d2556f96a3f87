package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/annex/internal/mmap"
)

// LocalStore implements BlobStore on a directory of the local file system.
// Blobs are written to a temporary file and renamed into place on Close.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Open maps the blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	path := s.path(name)
	m, err := mmap.Open(path)
	if errors.Is(err, mmap.ErrInvalidSize) {
		// Empty files cannot be mapped.
		if st, serr := os.Stat(path); serr == nil && st.Size() == 0 {
			return &localBlob{}, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := m.Advise(mmap.AccessSequential); err != nil {
		_ = m.Close()
		return nil, err
	}
	return &localBlob{m: m}, nil
}

// Create starts a write to a temporary file next to the blob.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	path := s.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{f: f, path: path}, nil
}

// Put writes data atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}

// Delete removes a blob.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// List walks the root directory. Temporary files of unfinished writes are
// skipped.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.Contains(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

type localBlob struct {
	m *mmap.Mapping // nil for an empty blob
}

func (b *localBlob) data() []byte {
	if b.m == nil {
		return nil
	}
	return b.m.Bytes()
}

func (b *localBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return readAt(b.data(), p, off)
}

func (b *localBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	return readRange(b.data(), off, length)
}

func (b *localBlob) Close() error {
	if b.m == nil {
		return nil
	}
	return b.m.Close()
}

func (b *localBlob) Size() int64 {
	return int64(len(b.data()))
}

func (b *localBlob) Bytes() ([]byte, error) {
	return b.data(), nil
}

type localWritableBlob struct {
	f    *os.File
	path string
	done bool
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	if w.done {
		return 0, ErrAborted
	}
	return w.f.Write(p)
}

func (w *localWritableBlob) Sync() error {
	if w.done {
		return ErrAborted
	}
	return w.f.Sync()
}

func (w *localWritableBlob) Close() error {
	if w.done {
		return ErrAborted
	}
	w.done = true
	tmp := w.f.Name()
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (w *localWritableBlob) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.f.Close()
	return os.Remove(w.f.Name())
}

func readAt(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("blobstore: negative offset")
	}
	if off >= int64(len(data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func readRange(data []byte, off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, errors.New("blobstore: invalid range")
	}
	if off >= int64(len(data)) {
		return nil, io.EOF
	}
	end := min(off+length, int64(len(data)))
	return io.NopCloser(bytes.NewReader(data[off:end])), nil
}
