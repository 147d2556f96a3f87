package annex

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/annex/internal/hnsw"
	"github.com/hupe1980/annex/resource"
	"gopkg.in/yaml.v3"
)

// DefaultConnectivity is substituted when connectivity is 0.
const DefaultConnectivity = 16

// MaxConnectivity is the largest accepted connectivity.
const MaxConnectivity = 1024

// Config is the declarative form of an index configuration, typically read
// from YAML:
//
//	metric: cos
//	dimensions: 768
//	quantization: f16
//	connectivity: 32
//	expansion_add: 200
//	capacity: 100000
//	resources:
//	  memory_limit_bytes: 4294967296
type Config struct {
	Metric          string `yaml:"metric"`
	Dimensions      int    `yaml:"dimensions"`
	Quantization    string `yaml:"quantization"`
	Connectivity    int    `yaml:"connectivity"`
	ExpansionAdd    int    `yaml:"expansion_add"`
	ExpansionSearch int    `yaml:"expansion_search"`

	// Capacity is reserved at construction.
	Capacity int `yaml:"capacity"`

	MaxThreads   int     `yaml:"max_threads"`
	Growth       *bool   `yaml:"growth"`
	Duplicates   *bool   `yaml:"duplicates"`
	Seed         *uint64 `yaml:"seed"`
	VerifyOnView bool    `yaml:"verify_on_view"`

	// Resources creates a dedicated controller when any limit is set.
	// WithResourceController takes precedence.
	Resources resource.Config `yaml:"resources"`
}

// DefaultConfig returns a cosine, f32 configuration with the default graph
// parameters. Dimensions must still be set.
func DefaultConfig() Config {
	return Config{
		Metric:          "cos",
		Quantization:    "f32",
		Connectivity:    DefaultConnectivity,
		ExpansionAdd:    hnsw.DefaultEF,
		ExpansionSearch: hnsw.DefaultEFSearch,
	}
}

// ParseConfig decodes a YAML configuration. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &ConfigError{Field: "yaml", Reason: err.Error(), cause: err}
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return ParseConfig(data)
}

// options converts the declarative settings into functional options, which
// run before any caller-supplied ones.
func (c Config) options() []Option {
	var opts []Option
	if c.MaxThreads > 0 {
		opts = append(opts, WithMaxThreads(c.MaxThreads))
	}
	if c.Growth != nil {
		opts = append(opts, WithGrowth(*c.Growth))
	}
	if c.Duplicates != nil {
		opts = append(opts, WithDuplicates(*c.Duplicates))
	}
	if c.Seed != nil {
		opts = append(opts, WithSeed(*c.Seed))
	}
	if c.VerifyOnView {
		opts = append(opts, WithVerifyOnView(true))
	}
	if c.Resources != (resource.Config{}) {
		opts = append(opts, WithResourceController(resource.NewController(c.Resources)))
	}
	return opts
}
