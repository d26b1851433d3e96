package spreadsheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.MaxRows)
	assert.Equal(t, 26, cfg.MaxColumns)
	assert.Equal(t, "=", cfg.Trigger)
	assert.Positive(t, cfg.Workers)

	bounds, err := cfg.Bounds()
	require.NoError(t, err)
	assert.Equal(t, Bounds{MaxRows: 100, MaxColumns: 26}, bounds)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "gridcalc.yaml", `
max_rows: 500
max_columns: 52
workers: 2
trigger: "+"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.MaxRows)
	assert.Equal(t, 52, cfg.MaxColumns)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "+", cfg.Trigger)
	assert.Equal(t, defaultParallelThreshold, cfg.ParallelThreshold, "unset keys keep their default")
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "gridcalc.toml", `
max_rows = 10
max_columns = 5
parallel_threshold = 4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxRows)
	assert.Equal(t, 5, cfg.MaxColumns)
	assert.Equal(t, 4, cfg.ParallelThreshold)
	assert.Equal(t, "=", cfg.Trigger)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("unknown extension", func(t *testing.T) {
		_, err := LoadConfig(writeFile(t, "gridcalc.json", "{}"))
		assert.ErrorContains(t, err, "unsupported config format")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeFile(t, "gridcalc.yml", "max_rows: [oops"))
		assert.ErrorContains(t, err, "failed to parse YAML")
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := LoadConfig(writeFile(t, "gridcalc.toml", "max_rows = = 3"))
		assert.ErrorContains(t, err, "failed to parse TOML")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config")
	})

	t.Run("out of range values", func(t *testing.T) {
		_, err := LoadConfig(writeFile(t, "gridcalc.yaml", "max_columns: 20000\n"))
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("trigger must be one character", func(t *testing.T) {
		_, err := LoadConfig(writeFile(t, "gridcalc.yaml", "trigger: \"==\"\n"))
		assert.ErrorContains(t, err, "invalid config")
	})
}

func TestNewSpreadsheetWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRows = 5
	cfg.MaxColumns = 2

	s, err := NewSpreadsheetWithConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, Bounds{MaxRows: 5, MaxColumns: 2}, s.Bounds())

	cfg.MaxRows = 0
	_, err = NewSpreadsheetWithConfig(cfg)
	assert.Error(t, err)
}
