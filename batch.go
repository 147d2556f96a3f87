package annex

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// AddBatch inserts vectors[i] under labels[i] using up to max threads
// workers. Capacity is grown once up front when growth is enabled. The
// first failure stops the remaining workers and is returned; items already
// inserted stay in the index. ctx is checked between items.
func (idx *Index) AddBatch(ctx context.Context, labels []uint32, vectors [][]float32) error {
	start := time.Now()
	failed, err := idx.addBatch(ctx, labels, vectors)
	idx.opts.metrics.RecordBatchInsert(len(labels), failed, time.Since(start))
	idx.opts.logger.LogBatchInsert(ctx, len(labels), failed)
	return err
}

func (idx *Index) addBatch(ctx context.Context, labels []uint32, vectors [][]float32) (int, error) {
	n := len(labels)
	if len(vectors) != n {
		return n, newConfigError("vectors", len(vectors), fmt.Sprintf("got %d vectors for %d labels", len(vectors), n))
	}
	if n == 0 {
		return 0, nil
	}
	if idx.opts.growth {
		if err := idx.reserve(ctx, idx.Size()+n); err != nil {
			return n, err
		}
	}

	var next, inserted atomic.Int64
	err := idx.parallel(ctx, n, func(ctx context.Context) error {
		s := idx.pool.Get()
		defer idx.pool.Put(s)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			i := int(next.Add(1) - 1)
			if i >= n {
				return nil
			}
			if err := idx.add(s, labels[i], vectors[i]); err != nil {
				return fmt.Errorf("item %d (label %d): %w", i, labels[i], err)
			}
			inserted.Add(1)
		}
	})
	return n - int(inserted.Load()), err
}

// SearchBatch runs Search for every query in parallel. The result at i
// belongs to queries[i].
func (idx *Index) SearchBatch(ctx context.Context, queries [][]float32, k int) ([]Matches, error) {
	n := len(queries)
	results := make([]Matches, n)
	if n == 0 {
		return results, nil
	}

	var next atomic.Int64
	err := idx.parallel(ctx, n, func(ctx context.Context) error {
		s := idx.pool.Get()
		defer idx.pool.Put(s)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			i := int(next.Add(1) - 1)
			if i >= n {
				return nil
			}
			start := time.Now()
			m, err := idx.search(s, queries[i], k)
			idx.opts.metrics.RecordSearch(k, time.Since(start), err)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = m
		}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// parallel runs min(max threads, items) copies of worker, each holding a
// background slot of the resource controller. The first error cancels the
// context passed to the others.
func (idx *Index) parallel(ctx context.Context, items int, worker func(context.Context) error) error {
	workers := min(idx.opts.maxThreads, items)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for range workers {
		g.Go(func() error {
			if err := idx.opts.resources.AcquireBackground(gctx); err != nil {
				return err
			}
			defer idx.opts.resources.ReleaseBackground()
			return worker(gctx)
		})
	}
	return g.Wait()
}
