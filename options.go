package annex

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/annex/internal/fs"
	"github.com/hupe1980/annex/internal/hnsw"
	"github.com/hupe1980/annex/resource"
)

// FileSystem is the filesystem Save and Load go through.
type FileSystem = fs.FileSystem

// File is a file opened by a FileSystem.
type File = fs.File

type options struct {
	logger       *Logger
	metrics      MetricsCollector
	resources    *resource.Controller
	maxThreads   int
	growth       bool
	duplicates   bool
	seed         uint64
	verifyOnView bool
	fsys         FileSystem
}

// Option configures index construction.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := annex.NewJSONLogger(slog.LevelInfo)
//	idx, _ := annex.NewCos(768, "f16", 0, 0, 0, annex.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetrics configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &annex.BasicMetricsCollector{}
//	idx, _ := annex.NewL2sq(128, "f32", 0, 0, 0, annex.WithMetrics(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithResourceController shares a memory budget, a batch worker limit and
// an IO rate limit between indexes.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMaxThreads sets the number of thread slots available to AddInThread
// and SearchInThread, and the parallelism of batch operations.
// Defaults to runtime.GOMAXPROCS(0).
func WithMaxThreads(n int) Option {
	return func(o *options) {
		o.maxThreads = n
	}
}

// WithGrowth controls whether Add grows a full index. When disabled, Add
// fails with ErrCapacityExceeded once Capacity is reached. Enabled by default.
func WithGrowth(enabled bool) Option {
	return func(o *options) {
		o.growth = enabled
	}
}

// WithDuplicates controls whether several nodes may share a label. Allowed
// by default; both nodes are then returned by searches.
func WithDuplicates(allowed bool) Option {
	return func(o *options) {
		o.duplicates = allowed
	}
}

// WithSeed seeds the level generator. Identical seeds and insertion orders
// build identical single-threaded graphs.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithVerifyOnView makes View verify the file checksum. This reads every
// page of the file once.
func WithVerifyOnView(verify bool) Option {
	return func(o *options) {
		o.verifyOnView = verify
	}
}

// WithFileSystem replaces the filesystem used by Save, Load and Fetch.
func WithFileSystem(fsys FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fsys = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:     NoopLogger(),
		metrics:    NoopMetricsCollector{},
		maxThreads: runtime.GOMAXPROCS(0),
		growth:     true,
		duplicates: true,
		seed:       hnsw.DefaultSeed,
		fsys:       fs.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
