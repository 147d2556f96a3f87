package annex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/annex/distance"
	"github.com/hupe1980/annex/internal/hnsw"
	"github.com/hupe1980/annex/internal/mmap"
	"github.com/hupe1980/annex/internal/searcher"
	"github.com/hupe1980/annex/internal/vectorstore"
	"github.com/hupe1980/annex/persistence"
	"github.com/hupe1980/annex/quantization"
	"github.com/hupe1980/annex/resource"
)

var (
	// ErrInvalidConfiguration is returned for bad construction parameters or
	// thread slots.
	ErrInvalidConfiguration = errors.New("annex: invalid configuration")

	// ErrDimensionMismatch is returned when a vector's length differs from the
	// index dimensionality. Errors carrying it are *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("annex: dimension mismatch")

	// ErrCapacityExceeded is returned when the index is full and growth is
	// disabled.
	ErrCapacityExceeded = errors.New("annex: capacity exceeded")

	// ErrAllocationFailure is returned when memory for a reservation cannot be
	// obtained.
	ErrAllocationFailure = errors.New("annex: allocation failure")

	// ErrIO is returned when the filesystem or a stream fails during
	// persistence.
	ErrIO = errors.New("annex: io error")

	// ErrCorruptFile is returned for structurally invalid index files.
	ErrCorruptFile = errors.New("annex: corrupt file")

	// ErrMappingFailure is returned when a file cannot be memory-mapped.
	ErrMappingFailure = errors.New("annex: mapping failure")

	// ErrDuplicateNotAllowed is returned when duplicate labels are disabled
	// and the label already exists.
	ErrDuplicateNotAllowed = errors.New("annex: duplicate label not allowed")

	// ErrReadOnly is returned when mutating a memory-mapped view.
	ErrReadOnly = errors.New("annex: index is read-only")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("annex: index is closed")
)

// ConfigError describes an invalid configuration value.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
	cause  error
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid configuration: %s=%v", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidConfiguration and the underlying error, if any.
func (e *ConfigError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrInvalidConfiguration}
	}
	return []error{ErrInvalidConfiguration, e.cause}
}

// DimensionMismatchError indicates a vector/query dimensionality mismatch.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Unwrap returns ErrDimensionMismatch.
func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// CorruptFileError describes why a persisted index was rejected.
//
// The original underlying error (if any) is reachable through errors.Is and
// errors.As.
type CorruptFileError struct {
	Path   string
	Reason string
	cause  error
}

func (e *CorruptFileError) Error() string {
	if e.Path == "" {
		return "corrupt index: " + e.Reason
	}
	return fmt.Sprintf("corrupt index %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrCorruptFile and the underlying error, if any.
func (e *CorruptFileError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrCorruptFile}
	}
	return []error{ErrCorruptFile, e.cause}
}

func newConfigError(field string, value any, reason string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

func dimensionMismatch(expected, actual int) error {
	return &DimensionMismatchError{Expected: expected, Actual: actual}
}

var publicErrors = []error{
	ErrInvalidConfiguration,
	ErrDimensionMismatch,
	ErrCapacityExceeded,
	ErrAllocationFailure,
	ErrIO,
	ErrCorruptFile,
	ErrMappingFailure,
	ErrDuplicateNotAllowed,
	ErrReadOnly,
	ErrClosed,
}

var corruptErrors = []error{
	persistence.ErrInvalidMagic,
	persistence.ErrInvalidVersion,
	persistence.ErrInvalidHeader,
	persistence.ErrTruncated,
	persistence.ErrSizeMismatch,
	persistence.ErrInvalidSections,
	persistence.ErrChecksumMismatch,
	persistence.ErrUnalignedAccess,
	vectorstore.ErrInconsistent,
	hnsw.ErrInvalidEntryPoint,
	mmap.ErrInvalidSize,
}

// translateError maps errors of the internal packages onto the public
// taxonomy. Errors already carrying a public sentinel pass through.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range publicErrors {
		if errors.Is(err, target) {
			return err
		}
	}

	for _, target := range corruptErrors {
		if errors.Is(err, target) {
			return &CorruptFileError{Reason: err.Error(), cause: err}
		}
	}

	switch {
	case errors.Is(err, mmap.ErrMapFailed):
		return fmt.Errorf("%w: %w", ErrMappingFailure, err)
	case errors.Is(err, vectorstore.ErrCapacityOverflow), errors.Is(err, resource.ErrMemoryLimit):
		return fmt.Errorf("%w: %w", ErrAllocationFailure, err)
	case errors.Is(err, vectorstore.ErrReadOnly):
		return fmt.Errorf("%w: %w", ErrReadOnly, err)
	case errors.Is(err, searcher.ErrInvalidSlot):
		return &ConfigError{Field: "thread", Reason: err.Error(), cause: err}
	case errors.Is(err, quantization.ErrUnknownKind):
		return &ConfigError{Field: "quantization", Reason: err.Error(), cause: err}
	case errors.Is(err, distance.ErrUnknownMetric):
		return &ConfigError{Field: "metric", Reason: err.Error(), cause: err}
	case errors.Is(err, distance.ErrIncompatible), errors.Is(err, distance.ErrInvalidDimension),
		errors.Is(err, quantization.ErrInvalidDimension), errors.Is(err, persistence.ErrUnknownCompression):
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return err
}

// translateIOError is translateError for persistence paths: anything left
// unclassified is an IO failure.
func translateIOError(path string, err error) error {
	if err == nil {
		return nil
	}
	err = translateError(err)
	var ce *CorruptFileError
	if errors.As(err, &ce) {
		if ce.Path == "" {
			ce.Path = path
		}
		return err
	}
	for _, target := range publicErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if path == "" {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
}
