package annex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/annex/internal/vectorstore"
	"github.com/hupe1980/annex/persistence"
	"github.com/hupe1980/annex/resource"
)

// Save writes the index to path atomically: the file is complete and valid,
// or a previous file at path is left untouched. Insertions wait while the
// index is written.
func (idx *Index) Save(path string) error {
	ctx := context.Background()
	start := time.Now()

	var n int64
	err := func() error {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if idx.closed {
			return ErrClosed
		}
		return persistence.SaveToFile(idx.opts.fsys, path, func(w io.Writer) error {
			var err error
			n, err = idx.writeLocked(resource.NewRateLimitedWriter(ctx, w, idx.opts.resources))
			return err
		})
	}()
	err = translateIOError(path, err)

	idx.opts.metrics.RecordSave(n, time.Since(start), err)
	idx.opts.logger.LogSave(ctx, path, idx.Size(), n, err)
	return err
}

// WriteTo streams the index in the file format. It implements io.WriterTo.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	return idx.writeTo(context.Background(), w)
}

func (idx *Index) writeTo(ctx context.Context, w io.Writer) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return 0, ErrClosed
	}
	n, err := idx.writeLocked(resource.NewRateLimitedWriter(ctx, w, idx.opts.resources))
	return n, translateIOError("", err)
}

// writeLocked serializes the arena. idx.mu must be held exclusively so no
// insertion is in flight.
func (idx *Index) writeLocked(w io.Writer) (int64, error) {
	g := idx.graph
	entry, maxLevel, _ := g.EntryPoint()
	meta := persistence.Meta{
		Metric:          idx.metric,
		Quantization:    idx.kind,
		Dimensions:      idx.dims,
		ExpansionAdd:    g.EF(),
		ExpansionSearch: g.EFSearch(),
		EntryPoint:      entry,
		MaxLevel:        maxLevel,
	}
	return persistence.Write(w, meta, g.Store().Export(g.Size()))
}

// Load replaces the contents of the index with the file at path. The file
// must have been written by an index with the same metric, quantization and
// dimensions; its connectivity and expansion settings are adopted. The
// loaded index is writable and its capacity equals its size.
func (idx *Index) Load(path string) error {
	ctx := context.Background()
	start := time.Now()
	err := persistence.LoadFromFile(idx.opts.fsys, path, func(r io.Reader, size int64) error {
		_, err := idx.readFrom(resource.NewRateLimitedReader(ctx, r, idx.opts.resources), size)
		return err
	})
	err = translateIOError(path, err)
	idx.recordLoad(ctx, "load", path, start, err)
	return err
}

// ReadFrom replaces the contents of the index with a stream in the file
// format. It implements io.ReaderFrom.
func (idx *Index) ReadFrom(r io.Reader) (int64, error) {
	ctx := context.Background()
	start := time.Now()
	n, err := idx.readFrom(resource.NewRateLimitedReader(ctx, r, idx.opts.resources), -1)
	err = translateIOError("", err)
	idx.recordLoad(ctx, "load", "stream", start, err)
	return n, err
}

// readFrom decodes a stream of size bytes, or of unknown size when size is
// negative, and returns the number of bytes consumed.
func (idx *Index) readFrom(r io.Reader, size int64) (int64, error) {
	h, sec, err := persistence.Read(r, size)
	if err != nil {
		return 0, err
	}
	if err := idx.checkHeader(h); err != nil {
		return 0, err
	}
	store, err := vectorstore.FromSections(sec, false)
	if err != nil {
		return 0, err
	}
	if err := idx.install(h, store, sec.Labels, nil); err != nil {
		return 0, err
	}
	return int64(h.FileSize), nil
}

// View maps the file at path and serves searches from it without copying.
// The view is read-only: Add and Reserve fail with ErrReadOnly. The mapping
// is released by Close or by a later Load or View.
func (idx *Index) View(path string) error {
	ctx := context.Background()
	start := time.Now()
	err := idx.view(path)
	err = translateIOError(path, err)
	idx.recordLoad(ctx, "view", path, start, err)
	return err
}

func (idx *Index) view(path string) error {
	mf, err := persistence.OpenMapped(path, idx.opts.verifyOnView)
	if err != nil {
		return err
	}
	if err := idx.checkHeader(mf.Header); err != nil {
		_ = mf.Close()
		return err
	}
	store, err := vectorstore.FromSections(mf.Sections, true)
	if err != nil {
		_ = mf.Close()
		return err
	}
	if err := idx.install(mf.Header, store, mf.Sections.Labels, mf); err != nil {
		_ = mf.Close()
		return err
	}
	return nil
}

func (idx *Index) recordLoad(ctx context.Context, mode, source string, start time.Time, err error) {
	idx.opts.metrics.RecordLoad(time.Since(start), err)
	idx.opts.logger.LogLoad(ctx, mode, source, idx.Size(), err)
}

// checkHeader rejects files written for a different index shape.
func (idx *Index) checkHeader(h *persistence.FileHeader) error {
	if int(h.Dimensions) != idx.dims {
		return dimensionMismatch(idx.dims, int(h.Dimensions))
	}
	if h.Metric != idx.metric {
		return newConfigError("metric", h.Metric.String(), "file was written by a "+h.Metric.String()+" index, this one is "+idx.metric.String())
	}
	if h.Quantization != idx.kind {
		return newConfigError("quantization", h.Quantization.String(), "file was written with "+h.Quantization.String()+", this index uses "+idx.kind.String())
	}
	return nil
}

// install swaps in a decoded arena. mapped is nil for owned stores.
func (idx *Index) install(h *persistence.FileHeader, store *vectorstore.Store, labels []uint32, mapped *persistence.MappedFile) error {
	g, err := idx.newGraph(store, int(h.ExpansionAdd), int(h.ExpansionSearch))
	if err != nil {
		return fmt.Errorf("%w: %w", persistence.ErrInvalidHeader, err)
	}
	if err := g.Restore(int(h.Size), h.EntryPoint, int(h.MaxLevel)); err != nil {
		return err
	}

	var reserved int64
	if mapped == nil {
		reserved = int64(store.Capacity()) * vectorstore.NodeBytes(store.Stride(), store.Connectivity())
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return ErrClosed
	}
	if delta := reserved - idx.reserved; delta > 0 {
		if err := idx.opts.resources.ReserveMemory(delta); err != nil {
			return err
		}
	} else {
		idx.opts.resources.ReleaseMemory(-delta)
	}
	idx.reserved = reserved

	if idx.mapped != nil {
		_ = idx.mapped.Close()
	}
	idx.mapped = mapped
	idx.graph = g
	idx.pool.Grow(store.Capacity())
	idx.labels.reset(labels)
	idx.opts.metrics.RecordGrow(store.Capacity())
	return nil
}

var _ interface {
	io.WriterTo
	io.ReaderFrom
} = (*Index)(nil)
