package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())

	info, err := f.Stat()
	assert.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	assert.NoError(t, f.Close())

	newPath := filepath.Join(dir, "renamed.txt")
	assert.NoError(t, lfs.Rename(fpath, newPath))
	info, err = lfs.Stat(newPath)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	_ = lfs.SyncDir(dir)

	assert.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS_FailAfterBytes(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule(".tmp", Fault{FailAfterBytes: 5})

	fpath := filepath.Join(t.TempDir(), "index.tmp")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	n, err := f.Write([]byte("hel"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.Write([]byte("lo!!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 2, n)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(fpath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFaultyFS_SyncCloseRename(t *testing.T) {
	custom := errors.New("disk on fire")
	tmp := t.TempDir()

	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true})
	ffs.AddRule("close", Fault{FailAfterBytes: -1, FailOnClose: true, Err: custom})
	ffs.AddRule("rename", Fault{FailAfterBytes: -1, FailOnRename: true})

	f, err := ffs.OpenFile(filepath.Join(tmp, "sync.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), ErrInjected)
	assert.NoError(t, f.Close())

	f, err = ffs.OpenFile(filepath.Join(tmp, "close.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Close(), custom)

	src := filepath.Join(tmp, "rename.bin")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	assert.ErrorIs(t, ffs.Rename(src, filepath.Join(tmp, "dst.bin")), ErrInjected)
	_, err = ffs.Stat(src)
	assert.NoError(t, err)
}

func TestFaultyFS_Delegation(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("other", Fault{FailOnSync: true})

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, ffs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("data"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())
	assert.NoError(t, f.Close())

	assert.NoError(t, ffs.Rename(fpath, fpath+".renamed"))
	_, err = ffs.Stat(fpath + ".renamed")
	assert.NoError(t, err)
	_ = ffs.SyncDir(dir)
	assert.NoError(t, ffs.Remove(fpath+".renamed"))
}
