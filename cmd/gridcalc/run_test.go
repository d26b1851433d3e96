package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		// flag values outlive Execute
		_ = rootCmd.PersistentFlags().Set("color", "auto")
		_ = rootCmd.PersistentFlags().Set("log-level", "warn")
		_ = rootCmd.PersistentFlags().Set("trace", "false")
		_ = runCmd.Flags().Set("format", "grid")
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunCommand(t *testing.T) {
	path := writeScript(t, "sum.yaml", `
edits:
  - {cell: A1, text: "10"}
  - {cell: A2, text: "20"}
  - {cell: A3, text: "=SUM(A1:A2)"}
expect:
  A3: "30"
`)

	stdout, _, err := execute(t, "run", "--color", "off", path)
	require.NoError(t, err)
	assert.Equal(t, "  | A \n1 | 10\n2 | 20\n3 | 30\n", stdout)
}

func TestRunCommandJSON(t *testing.T) {
	path := writeScript(t, "sum.toml", `
[[edits]]
cell = "B1"
text = "=1/0"
`)

	stdout, _, err := execute(t, "run", "--format", "json", path)
	require.NoError(t, err)

	var cells []cellJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &cells))
	require.Len(t, cells, 1)
	assert.Equal(t, "B1", cells[0].Cell)
	assert.Equal(t, "#DIV/0!", cells[0].Error)
	assert.True(t, cells[0].Formula)
}

func TestRunCommandReportsFailures(t *testing.T) {
	path := writeScript(t, "bad.yaml", `
edits:
  - {cell: A1, text: "=A1"}
  - {cell: A2, text: "2"}
expect:
  A2: "3"
`)

	_, stderr, err := execute(t, "run", "--color", "off", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 rejected edit(s), 1 failed expectation(s)")
	assert.Contains(t, stderr, "error: step 1: A1:")
	assert.Contains(t, stderr, `error: A2: expected "3", got "2"`)
}

func TestRunCommandTrace(t *testing.T) {
	path := writeScript(t, "one.yaml", "edits:\n  - {cell: A1, text: \"=1+1\"}\n")

	_, stderr, err := execute(t, "run", "--trace", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"Name": "spreadsheet.Recalculate"`)
}

func TestFunctionsCommand(t *testing.T) {
	stdout, _, err := execute(t, "functions")
	require.NoError(t, err)
	assert.Contains(t, stdout, "AVERAGE\n")
	assert.Contains(t, stdout, "TRIM\n")
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "functions", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}
