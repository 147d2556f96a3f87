package annex

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/annex/blobstore"
	"github.com/hupe1980/annex/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemote_PublishFetch(t *testing.T) {
	src, data := buildIndex(t, 200)
	defer src.Close()

	local := filepath.Join(t.TempDir(), "local.anx")
	require.NoError(t, src.Save(local))
	raw, err := os.ReadFile(local)
	require.NoError(t, err)

	stores := map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}
	compressions := []persistence.Compression{
		persistence.CompressionNone,
		persistence.CompressionLZ4,
		persistence.CompressionZSTD,
	}
	ctx := context.Background()

	for storeName, store := range stores {
		for _, c := range compressions {
			t.Run(storeName+"/"+c.String(), func(t *testing.T) {
				name := "products.anx" + c.Extension()
				require.NoError(t, src.Publish(ctx, store, name, c))

				names, err := store.List(ctx, "products")
				require.NoError(t, err)
				assert.Contains(t, names, name)

				path := filepath.Join(t.TempDir(), "fetched.anx")
				dst, err := NewL2sq(8, "f16", 0, 0, 0)
				require.NoError(t, err)
				defer dst.Close()

				require.NoError(t, dst.Fetch(ctx, store, name, path, c))
				fetched, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(raw, fetched))

				require.NoError(t, dst.LoadFrom(ctx, store, name, c))
				assert.False(t, dst.ReadOnly())
				assertSameResults(t, src, dst, data[:10])

				require.NoError(t, dst.ViewFrom(ctx, store, name, path, c))
				assert.True(t, dst.ReadOnly())
				assertSameResults(t, src, dst, data[:10])
			})
		}
	}
}

func TestRemote_Errors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	idx, err := NewL2sq(8, "f16", 0, 0, 0)
	require.NoError(t, err)
	defer idx.Close()

	t.Run("MissingBlob", func(t *testing.T) {
		err := idx.LoadFrom(ctx, store, "missing.anx", persistence.CompressionNone)
		require.ErrorIs(t, err, ErrIO)
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("WrongCompression", func(t *testing.T) {
		src, _ := buildIndex(t, 20)
		defer src.Close()
		require.NoError(t, src.Publish(ctx, store, "plain.anx", persistence.CompressionNone))

		err := idx.LoadFrom(ctx, store, "plain.anx", persistence.CompressionZSTD)
		require.Error(t, err)
		assert.Equal(t, 0, idx.Size())
	})

	t.Run("CorruptBlob", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "garbage.anx", bytes.Repeat([]byte{0xAB}, 512)))
		err := idx.LoadFrom(ctx, store, "garbage.anx", persistence.CompressionNone)
		require.ErrorIs(t, err, ErrCorruptFile)
	})

	t.Run("UnknownCompression", func(t *testing.T) {
		err := idx.Publish(ctx, store, "unknown.anx", persistence.Compression(9))
		require.ErrorIs(t, err, ErrInvalidConfiguration)

		names, err := store.List(ctx, "unknown")
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("Closed", func(t *testing.T) {
		closed, err := NewL2sq(8, "f16", 0, 0, 0)
		require.NoError(t, err)
		require.NoError(t, closed.Close())

		require.ErrorIs(t, closed.Publish(ctx, store, "closed.anx", persistence.CompressionNone), ErrClosed)
		names, err := store.List(ctx, "closed")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

var errBlobWrite = errors.New("blob write failed")

// failingStore hands out blobs that fail once limit bytes were written.
type failingStore struct {
	*blobstore.MemoryStore
	limit int

	mu    sync.Mutex
	blobs []*failingBlob
}

func (s *failingStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	w, err := s.MemoryStore.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	b := &failingBlob{WritableBlob: w, limit: s.limit}
	s.mu.Lock()
	s.blobs = append(s.blobs, b)
	s.mu.Unlock()
	return b, nil
}

type failingBlob struct {
	blobstore.WritableBlob
	limit        int
	written      int
	aborted      bool
	afterAbort   int
	closedCalled bool
}

func (b *failingBlob) Write(p []byte) (int, error) {
	if b.aborted {
		b.afterAbort++
	}
	if b.written+len(p) > b.limit {
		return 0, errBlobWrite
	}
	b.written += len(p)
	return b.WritableBlob.Write(p)
}

func (b *failingBlob) Close() error {
	b.closedCalled = true
	return b.WritableBlob.Close()
}

func (b *failingBlob) Abort() error {
	b.aborted = true
	return b.WritableBlob.Abort()
}

func TestRemote_PublishWriteFailure(t *testing.T) {
	src, _ := buildIndex(t, 200)
	defer src.Close()
	ctx := context.Background()

	for _, c := range []persistence.Compression{
		persistence.CompressionNone,
		persistence.CompressionLZ4,
		persistence.CompressionZSTD,
	} {
		t.Run(c.String(), func(t *testing.T) {
			store := &failingStore{MemoryStore: blobstore.NewMemoryStore(), limit: 64}

			err := src.Publish(ctx, store, "broken.anx", c)
			require.ErrorIs(t, err, ErrIO)

			require.Len(t, store.blobs, 1)
			b := store.blobs[0]
			assert.True(t, b.aborted)
			assert.False(t, b.closedCalled)
			assert.Zero(t, b.afterAbort, "compressed stream must be flushed before the blob is aborted")

			_, err = store.Open(ctx, "broken.anx")
			assert.ErrorIs(t, err, blobstore.ErrNotFound)
		})
	}

	t.Run("Closed", func(t *testing.T) {
		idx, err := NewL2sq(8, "f16", 0, 0, 0)
		require.NoError(t, err)
		require.NoError(t, idx.Close())

		store := &failingStore{MemoryStore: blobstore.NewMemoryStore(), limit: 1 << 20}
		require.ErrorIs(t, idx.Publish(ctx, store, "closed.anx", persistence.CompressionZSTD), ErrClosed)
		require.Len(t, store.blobs, 1)
		assert.True(t, store.blobs[0].aborted)
		assert.Zero(t, store.blobs[0].afterAbort)
	})
}
