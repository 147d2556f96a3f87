package persistence

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/annex/distance"
	"github.com/hupe1980/annex/internal/fs"
	"github.com/hupe1980/annex/internal/vectorstore"
	"github.com/hupe1980/annex/quantization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSections(t *testing.T) (Meta, vectorstore.Sections) {
	t.Helper()

	const dims = 3
	stride := quantization.F32.Stride(dims)
	s, err := vectorstore.New(stride, 2, 4)
	require.NoError(t, err)

	vec := func(b byte) []byte {
		v := make([]byte, stride)
		for i := range v {
			v[i] = b + byte(i)
		}
		return v
	}
	s.Init(0, 100, 0, vec(1))
	s.Init(1, 101, 2, vec(2))
	s.Init(2, 102, 1, vec(3))
	s.SetNeighbors(0, 0, []uint32{1, 2})
	s.SetNeighbors(1, 0, []uint32{0, 2})
	s.SetNeighbors(2, 0, []uint32{1})
	s.SetNeighbors(1, 1, []uint32{2})
	s.SetNeighbors(2, 1, []uint32{1})

	meta := Meta{
		Metric:          distance.L2sq,
		Quantization:    quantization.F32,
		Dimensions:      dims,
		ExpansionAdd:    128,
		ExpansionSearch: 64,
		EntryPoint:      1,
		MaxLevel:        2,
	}
	return meta, s.Export(3)
}

func encode(t *testing.T, meta Meta, sec vectorstore.Sections) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := Write(&buf, meta, sec)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	// Copy into a fresh allocation so uint32 views are aligned.
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

func assertSectionsEqual(t *testing.T, want, got vectorstore.Sections) {
	t.Helper()
	assert.Equal(t, want.Size, got.Size)
	assert.Equal(t, want.Stride, got.Stride)
	assert.Equal(t, want.M, got.M)
	assert.Equal(t, want.Vectors, got.Vectors)
	assert.Equal(t, want.Levels, got.Levels)
	assert.Equal(t, want.Base, got.Base)
	assert.Equal(t, want.UpperOffsets, got.UpperOffsets)
	assert.Equal(t, want.Upper, got.Upper)
	assert.Equal(t, want.Labels, got.Labels)
}

func TestHeaderSize(t *testing.T) {
	assert.Equal(t, HeaderSize, binary.Size(FileHeader{}))
}

func TestWriteReadRoundTrip(t *testing.T) {
	meta, sec := testSections(t)
	data := encode(t, meta, sec)

	h, got, err := Read(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, meta, h.Meta())
	assert.Equal(t, uint64(len(data)), h.FileSize)
	assertSectionsEqual(t, sec, got)

	for _, off := range h.Offsets {
		assert.Zero(t, off%sectionAlign)
	}

	_, err = vectorstore.FromSections(got, false)
	require.NoError(t, err)
}

func TestReadUnknownSize(t *testing.T) {
	meta, sec := testSections(t)
	data := encode(t, meta, sec)

	_, got, err := Read(bytes.NewReader(data), -1)
	require.NoError(t, err)
	assertSectionsEqual(t, sec, got)
}

func TestParseAliasesData(t *testing.T) {
	meta, sec := testSections(t)
	data := encode(t, meta, sec)

	h, got, err := Parse(data, true)
	require.NoError(t, err)
	assert.Equal(t, meta, h.Meta())
	assertSectionsEqual(t, sec, got)

	data[h.Offsets[SectionLabels]] = 0xEE
	assert.Equal(t, uint32(0xEE), got.Labels[0])
}

func TestEmptyIndex(t *testing.T) {
	s, err := vectorstore.New(quantization.F32.Stride(4), 16, 0)
	require.NoError(t, err)
	meta := Meta{Metric: distance.Cos, Quantization: quantization.F32, Dimensions: 4}

	data := encode(t, meta, s.Export(0))
	assert.Len(t, data, HeaderSize)

	h, sec, err := Read(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Zero(t, h.Size)
	assert.Zero(t, sec.Size)

	_, _, err = Parse(data, true)
	require.NoError(t, err)
}

func TestReadRejectsCorruption(t *testing.T) {
	meta, sec := testSections(t)
	orig := encode(t, meta, sec)

	mutateHeader := func(fn func(h *FileHeader)) []byte {
		var h FileHeader
		require.NoError(t, h.UnmarshalBinary(orig))
		fn(&h)
		hb, err := h.MarshalBinary()
		require.NoError(t, err)
		return append(hb, orig[HeaderSize:]...)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"Magic", mutateHeader(func(h *FileHeader) { h.Magic = 0xDEADBEEF }), ErrInvalidMagic},
		{"Version", mutateHeader(func(h *FileHeader) { h.Version = 9 }), ErrInvalidVersion},
		{"Connectivity", mutateHeader(func(h *FileHeader) { h.Connectivity = 1 }), ErrInvalidHeader},
		{"Metric", mutateHeader(func(h *FileHeader) { h.Metric = 77 }), ErrInvalidHeader},
		{"Stride", mutateHeader(func(h *FileHeader) { h.Stride = 4 }), ErrInvalidHeader},
		{"EntryPoint", mutateHeader(func(h *FileHeader) { h.EntryPoint = 3 }), ErrInvalidHeader},
		{"Size", mutateHeader(func(h *FileHeader) { h.Size = 1 << 40 }), ErrInvalidHeader},
		{"Offsets", mutateHeader(func(h *FileHeader) { h.Offsets[SectionLabels]++ }), ErrInvalidHeader},
		{"FileSize", mutateHeader(func(h *FileHeader) { h.FileSize++ }), ErrSizeMismatch},
		{"Checksum", mutateHeader(func(h *FileHeader) { h.Checksum ^= 1 }), ErrChecksumMismatch},
		{"ShortHeader", orig[:HeaderSize-1], ErrTruncated},
		{"ShortBody", orig[:len(orig)-4], ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read(bytes.NewReader(tt.data), int64(len(tt.data)))
			assert.ErrorIs(t, err, tt.want)

			buf := make([]byte, len(tt.data))
			copy(buf, tt.data)
			_, _, err = Parse(buf, true)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("StreamTruncated", func(t *testing.T) {
		_, _, err := Read(bytes.NewReader(orig[:len(orig)-4]), -1)
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func TestChecksumOnlyVerifiedOnRequest(t *testing.T) {
	meta, sec := testSections(t)
	data := encode(t, meta, sec)
	data[HeaderSize] ^= 0xFF

	_, _, err := Parse(data, false)
	require.NoError(t, err)

	_, _, err = Parse(data, true)
	var mismatch *ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.NotEqual(t, mismatch.Expected, mismatch.Actual)

	_, _, err = Read(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestWriteRejectsInconsistentSections(t *testing.T) {
	meta, sec := testSections(t)
	sec.Labels = sec.Labels[:2]

	_, err := Write(io.Discard, meta, sec)
	assert.ErrorIs(t, err, ErrInvalidSections)
}

func TestSaveToFileAndOpenMapped(t *testing.T) {
	meta, sec := testSections(t)
	path := filepath.Join(t.TempDir(), "index.anx")

	require.NoError(t, SaveToFile(nil, path, func(w io.Writer) error {
		_, err := Write(w, meta, sec)
		return err
	}))

	require.NoError(t, LoadFromFile(nil, path, func(r io.Reader, size int64) error {
		_, got, err := Read(r, size)
		if err == nil {
			assertSectionsEqual(t, sec, got)
		}
		return err
	}))

	mf, err := OpenMapped(path, true)
	require.NoError(t, err)
	assert.Equal(t, meta, mf.Header.Meta())
	assert.Equal(t, int(mf.Header.FileSize), mf.Size())
	assertSectionsEqual(t, sec, mf.Sections)

	store, err := vectorstore.FromSections(mf.Sections, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(101), store.Label(1))
	assert.Equal(t, []uint32{2}, store.Neighbors(nil, 1, 1))

	require.NoError(t, mf.Close())
	require.NoError(t, mf.Close())
}

func TestOpenMappedRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x42}, 512), 0o644))

	_, err := OpenMapped(path, false)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestSaveToFileFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.anx")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	payload := bytes.Repeat([]byte("x"), 4096)
	faults := []fs.Fault{
		{FailAfterBytes: 100},
		{FailAfterBytes: -1, FailOnSync: true},
		{FailAfterBytes: -1, FailOnClose: true},
		{FailAfterBytes: -1, FailOnRename: true},
	}
	for _, fault := range faults {
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule(".tmp-", fault)

		err := SaveToFile(ffs, path, func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		})
		require.ErrorIs(t, err, fs.ErrInjected)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "previous", string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp file left behind")
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	meta, sec := testSections(t)
	data := encode(t, meta, sec)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewCompressedWriter(&buf, c)
			require.NoError(t, err)
			_, err = w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := NewCompressedReader(&buf, c)
			require.NoError(t, err)
			defer r.Close()

			_, got, err := Read(r, -1)
			require.NoError(t, err)
			assertSectionsEqual(t, sec, got)
		})
	}

	_, err := NewCompressedWriter(io.Discard, Compression(9))
	assert.ErrorIs(t, err, ErrUnknownCompression)
	_, err = NewCompressedReader(bytes.NewReader(nil), Compression(9))
	assert.ErrorIs(t, err, ErrUnknownCompression)
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{
		"":     CompressionNone,
		"none": CompressionNone,
		"LZ4":  CompressionLZ4,
		"zstd": CompressionZSTD,
		"zst":  CompressionZSTD,
	} {
		got, err := ParseCompression(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseCompression("gzip")
	assert.ErrorIs(t, err, ErrUnknownCompression)

	assert.Equal(t, ".zst", CompressionZSTD.Extension())
	assert.Equal(t, ".lz4", CompressionLZ4.Extension())
	assert.Empty(t, CompressionNone.Extension())
}
