package spreadsheet

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxRows    = 100
	DefaultMaxColumns = 26
	DefaultTrigger    = "="
)

// Config holds the engine settings. zero Workers means GOMAXPROCS.
type Config struct {
	MaxRows           int    `yaml:"max_rows" toml:"max_rows" validate:"min=1,max=1048576"`
	MaxColumns        int    `yaml:"max_columns" toml:"max_columns" validate:"min=1,max=16384"`
	Workers           int    `yaml:"workers" toml:"workers" validate:"min=0,max=1024"`
	Trigger           string `yaml:"trigger" toml:"trigger" validate:"required,len=1"`
	ParallelThreshold int    `yaml:"parallel_threshold" toml:"parallel_threshold" validate:"min=0"`
}

// DefaultConfig returns the settings used when none are given
func DefaultConfig() Config {
	return Config{
		MaxRows:           DefaultMaxRows,
		MaxColumns:        DefaultMaxColumns,
		Workers:           runtime.GOMAXPROCS(0),
		Trigger:           DefaultTrigger,
		ParallelThreshold: defaultParallelThreshold,
	}
}

// Validate checks the config against its field constraints
func (c Config) Validate() error {
	if err := cellValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Bounds converts the configured extent into grid bounds
func (c Config) Bounds() (Bounds, error) {
	rows, err := safecast.Conv[uint32](c.MaxRows)
	if err != nil {
		return Bounds{}, fmt.Errorf("max_rows: %w", err)
	}
	cols, err := safecast.Conv[uint32](c.MaxColumns)
	if err != nil {
		return Bounds{}, fmt.Errorf("max_columns: %w", err)
	}
	return Bounds{MaxRows: rows, MaxColumns: cols}, nil
}

// LoadConfig reads a YAML or TOML file, chosen by extension, on top of the
// defaults. the result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%s: failed to read config: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("%s: unsupported config format, expected .yaml, .yml or .toml", path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
