package annex

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annex/distance"
	"github.com/hupe1980/annex/internal/mmap"
	"github.com/hupe1980/annex/internal/searcher"
	"github.com/hupe1980/annex/internal/vectorstore"
	"github.com/hupe1980/annex/persistence"
	"github.com/hupe1980/annex/quantization"
	"github.com/hupe1980/annex/resource"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"checksum", persistence.ErrChecksumMismatch, ErrCorruptFile},
		{"magic", fmt.Errorf("header: %w", persistence.ErrInvalidMagic), ErrCorruptFile},
		{"truncated", persistence.ErrTruncated, ErrCorruptFile},
		{"inconsistent store", vectorstore.ErrInconsistent, ErrCorruptFile},
		{"map", mmap.ErrMapFailed, ErrMappingFailure},
		{"overflow", vectorstore.ErrCapacityOverflow, ErrAllocationFailure},
		{"memory limit", resource.ErrMemoryLimit, ErrAllocationFailure},
		{"read only store", vectorstore.ErrReadOnly, ErrReadOnly},
		{"slot", searcher.ErrInvalidSlot, ErrInvalidConfiguration},
		{"kind", quantization.ErrUnknownKind, ErrInvalidConfiguration},
		{"metric", distance.ErrUnknownMetric, ErrInvalidConfiguration},
		{"compression", persistence.ErrUnknownCompression, ErrInvalidConfiguration},
		{"public passes through", ErrClosed, ErrClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			require.ErrorIs(t, got, tt.target)
			assert.ErrorIs(t, got, tt.err, "cause must stay reachable")
		})
	}

	assert.NoError(t, translateError(nil))

	other := errors.New("other")
	assert.Same(t, other, translateError(other))
}

func TestTranslateIOError(t *testing.T) {
	assert.NoError(t, translateIOError("x", nil))

	err := translateIOError("/data/a.anx", os.ErrPermission)
	require.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Contains(t, err.Error(), "/data/a.anx")

	err = translateIOError("/data/a.anx", persistence.ErrSizeMismatch)
	var ce *CorruptFileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "/data/a.anx", ce.Path)
	assert.NotErrorIs(t, err, ErrIO)

	err = translateIOError("", ErrReadOnly)
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.NotErrorIs(t, err, ErrIO)
}

func TestErrorTypes(t *testing.T) {
	t.Run("ConfigError", func(t *testing.T) {
		err := newConfigError("connectivity", 1, "must be in [2, 1024]")
		assert.Equal(t, "invalid configuration: connectivity=1: must be in [2, 1024]", err.Error())
		assert.ErrorIs(t, err, ErrInvalidConfiguration)

		var ce *ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "connectivity", ce.Field)

		bare := &ConfigError{Field: "dimensions", Value: 0}
		assert.Equal(t, "invalid configuration: dimensions=0", bare.Error())
	})

	t.Run("DimensionMismatchError", func(t *testing.T) {
		err := dimensionMismatch(128, 64)
		assert.Equal(t, "dimension mismatch: expected 128, got 64", err.Error())
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		var de *DimensionMismatchError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, 128, de.Expected)
		assert.Equal(t, 64, de.Actual)
	})

	t.Run("CorruptFileError", func(t *testing.T) {
		err := &CorruptFileError{Reason: "bad magic", cause: persistence.ErrInvalidMagic}
		assert.Equal(t, "corrupt index: bad magic", err.Error())
		err.Path = "a.anx"
		assert.Equal(t, "corrupt index a.anx: bad magic", err.Error())
		assert.ErrorIs(t, err, ErrCorruptFile)
		assert.ErrorIs(t, err, persistence.ErrInvalidMagic)
	})
}
