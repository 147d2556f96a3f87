package annex

import (
	"context"
	"io"
	"time"

	"github.com/hupe1980/annex/blobstore"
	"github.com/hupe1980/annex/persistence"
	"github.com/hupe1980/annex/resource"
)

// Publish streams the index in the file format, compressed with c, into
// store under name. The blob appears only if the whole write succeeded.
// Insertions wait while the index is written.
func (idx *Index) Publish(ctx context.Context, store blobstore.BlobStore, name string, c persistence.Compression) error {
	start := time.Now()
	n, err := idx.publish(ctx, store, name, c)
	err = translateIOError(name, err)
	idx.opts.metrics.RecordSave(n, time.Since(start), err)
	idx.opts.logger.LogSave(ctx, name, idx.Size(), n, err)
	return err
}

func (idx *Index) publish(ctx context.Context, store blobstore.BlobStore, name string, c persistence.Compression) (n int64, err error) {
	w, err := store.Create(ctx, name)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = w.Abort()
		}
	}()

	cw, err := persistence.NewCompressedWriter(resource.NewRateLimitedWriter(ctx, w, idx.opts.resources), c)
	if err != nil {
		return 0, err
	}
	closed := false
	defer func() {
		if !closed {
			_ = cw.Close()
		}
	}()

	n, err = func() (int64, error) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if idx.closed {
			return 0, ErrClosed
		}
		return idx.writeLocked(cw)
	}()
	if err != nil {
		return n, err
	}
	closed = true
	if err := cw.Close(); err != nil {
		return n, err
	}
	return n, w.Close()
}

// Fetch downloads the blob name, compressed with c, into the local file
// path. The file is replaced atomically. The content is checked by a later
// Load, or by View with WithVerifyOnView.
func (idx *Index) Fetch(ctx context.Context, store blobstore.BlobStore, name, path string, c persistence.Compression) error {
	start := time.Now()
	var n int64
	err := idx.openRemote(ctx, store, name, c, func(r io.Reader) error {
		return persistence.SaveToFile(idx.opts.fsys, path, func(w io.Writer) error {
			var err error
			n, err = io.Copy(w, r)
			return err
		})
	})
	err = translateIOError(name, err)
	idx.opts.logger.Debug("fetched index",
		"blob", name,
		"path", path,
		"bytes", n,
		"duration", time.Since(start),
		"error", err,
	)
	return err
}

// LoadFrom replaces the contents of the index with the blob name,
// compressed with c. It streams straight into memory without a local file.
func (idx *Index) LoadFrom(ctx context.Context, store blobstore.BlobStore, name string, c persistence.Compression) error {
	start := time.Now()
	err := idx.openRemote(ctx, store, name, c, func(r io.Reader) error {
		_, err := idx.readFrom(r, -1)
		return err
	})
	err = translateIOError(name, err)
	idx.recordLoad(ctx, "load", name, start, err)
	return err
}

// ViewFrom fetches the blob name into path and views it.
func (idx *Index) ViewFrom(ctx context.Context, store blobstore.BlobStore, name, path string, c persistence.Compression) error {
	if err := idx.Fetch(ctx, store, name, path, c); err != nil {
		return err
	}
	return idx.View(path)
}

// openRemote passes the decompressed content of a blob to fn.
func (idx *Index) openRemote(ctx context.Context, store blobstore.BlobStore, name string, c persistence.Compression, fn func(io.Reader) error) error {
	b, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer b.Close()

	r, err := blobstore.NewReader(ctx, b)
	if err != nil {
		return err
	}
	defer r.Close()

	cr, err := persistence.NewCompressedReader(resource.NewRateLimitedReader(ctx, r, idx.opts.resources), c)
	if err != nil {
		return err
	}
	defer cr.Close()
	return fn(cr)
}
