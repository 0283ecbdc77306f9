package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stubModeEnv = "WHITEOUTBENCH_STUB_MODE"

func TestMain(m *testing.M) {
	switch os.Getenv(stubModeEnv) {
	case "ok":
		os.Exit(0)
	case "fail":
		os.Exit(2)
	}

	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func writeRunFile(t *testing.T, dir, mode string) string {
	t.Helper()

	path := filepath.Join(dir, "run.yaml")
	content := fmt.Sprintf(`
binary: %s
iterations: 2
env:
  - %s=%s
scenarios:
  - lines: 30
    decoration_rate: 0.1
    description: tiny
  - lines: 60
    decoration_rate: 0.5
    description: dense
stress:
  lines: 20
  workers: 2
  calls: 4
`, os.Args[0], stubModeEnv, mode)

	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "results.json")

	stdout, _, err := execute(t, "load", "--config", writeRunFile(t, dir, "ok"), "--output", out)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Testing: tiny")
	assert.Contains(t, stdout, "Testing: dense")
	assert.Less(t, strings.Index(stdout, "Testing: tiny"), strings.Index(stdout, "Testing: dense"))
	assert.Contains(t, stdout, "Bottlenecks:")
	assert.Contains(t, stdout, "Results saved to "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "tiny", decoded[0]["description"])
}

func TestLoadCommandFailingFilter(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "results.json")

	stdout, _, err := execute(t, "load", "--config", writeRunFile(t, dir, "fail"), "--output", out)
	require.NoError(t, err, "failed samples must not fail the run")

	assert.Contains(t, stdout, "Clean: no data")
	assert.Contains(t, stdout, "Slowest clean: no data")
}

func TestRunCommandJSON(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "results.yaml")

	stdout, _, err := execute(t, "run", "--config", writeRunFile(t, dir, "ok"),
		"--output", out, "--json", "--iterations", "1")
	require.NoError(t, err)

	assert.Contains(t, stdout, "=== Stress Testing ===")
	assert.Contains(t, stdout, "Processed 4 files")
	assert.Contains(t, stdout, `"description": "tiny"`)

	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestStressCommand(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, "stress", "--config", writeRunFile(t, dir, "ok"),
		"--workers", "3", "--calls", "6")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Running stress test with 3 concurrent operations")
	assert.Contains(t, stdout, "Processed 6 files")
	assert.NotContains(t, stdout, "Performance Report")
}

func TestStressCommandZeroRate(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, "stress", "--config", writeRunFile(t, dir, "ok"),
		"--stress-lines", "40", "--stress-rate", "0", "--calls", "2")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Workload: 40 lines, 0% decoration rate, 0 decorations")
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: -3\n"), 0o644))

	_, _, err := execute(t, "load", "--config", path)
	assert.Error(t, err)
}

func TestUnwritableReport(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "missing", "results.json")

	_, _, err := execute(t, "load", "--config", writeRunFile(t, dir, "ok"), "--output", out)
	assert.Error(t, err)
}

func TestGenerateCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sample.rs")

	_, stderr, err := execute(t, "generate", "--lines", "30", "--rate", "0.1", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "3 decorations")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "@whiteout")
}

func TestGenerateCommandInvalidRate(t *testing.T) {
	_, _, err := execute(t, "generate", "--rate", "3")
	assert.Error(t, err)
}
