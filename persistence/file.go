package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/hupe1980/annex/internal/fs"
)

const ioBufferSize = 256 * 1024

var tmpCounter atomic.Uint64

// SaveToFile writes a file atomically: data goes to a temp file in the same
// directory, which is synced, closed and renamed over filename. A failure
// leaves any previous file untouched.
func SaveToFile(fsys fs.FileSystem, filename string, writeFunc func(io.Writer) error) (err error) {
	if fsys == nil {
		fsys = fs.Default
	}
	dir := filepath.Dir(filename)
	tmpName := fmt.Sprintf("%s.tmp-%d-%d", filename, os.Getpid(), tmpCounter.Add(1))

	tmp, err := fsys.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if err != nil {
			_ = fsys.Remove(tmpName)
		}
	}()

	buf := bufio.NewWriterSize(tmp, ioBufferSize)
	if err = writeFunc(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = fsys.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	_ = fsys.SyncDir(dir)
	return nil
}

// LoadFromFile opens filename and passes a buffered reader and the file size
// to readFunc.
func LoadFromFile(fsys fs.FileSystem, filename string, readFunc func(r io.Reader, size int64) error) error {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(filename, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	return readFunc(bufio.NewReaderSize(f, ioBufferSize), fi.Size())
}
