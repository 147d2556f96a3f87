package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist. It matches
// os.ErrNotExist so local and remote stores can be checked the same way.
var ErrNotFound = os.ErrNotExist

// ErrAborted is returned by a writable blob written to after Abort.
var ErrAborted = errors.New("blobstore: write aborted")

// BlobStore stores saved index files under flat names.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create starts a streaming write. The blob becomes visible on Close
	// and never when the write is aborted.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes at off. It returns io.EOF when fewer bytes
	// are available.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange streams up to length bytes starting at off. An offset at
	// or past the end returns io.EOF.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes buffered data to durable storage where that applies.
	Sync() error
	// Abort discards the write. It is a no-op after Close.
	Abort() error
}

// Mappable is implemented by blobs backed by a memory mapping.
type Mappable interface {
	// Bytes returns the mapped data, valid until the blob is closed.
	Bytes() ([]byte, error)
}

// NewReader returns a sequential reader over the whole blob.
func NewReader(ctx context.Context, b Blob) (io.ReadCloser, error) {
	if b.Size() == 0 {
		return io.NopCloser(eofReader{}), nil
	}
	return b.ReadRange(ctx, 0, b.Size())
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
