// Package report summarizes load-test results: bottlenecks, per-line
// scaling, and a structured dump for later analysis.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weiihann/whiteoutbench/bench"
	"github.com/weiihann/whiteoutbench/harness"
)

// DefaultPath is the report file written to the working directory.
const DefaultPath = "load_test_results.json"

// Generate writes the bottleneck and scaling summary for results. An
// empty result set prints a no-data line and is not an error.
func Generate(w io.Writer, results []bench.ScenarioResult) error {
	fmt.Fprintln(w, "=== Performance Report ===")
	fmt.Fprintln(w)

	if len(results) == 0 {
		fmt.Fprintln(w, "No test results available")

		return nil
	}

	fmt.Fprintln(w, "Bottlenecks:")

	for _, op := range harness.Operations() {
		label := strings.ToLower(directionLabel(op))

		slowest, ok := Bottleneck(results, op)
		if !ok {
			fmt.Fprintf(w, "  Slowest %s: no data\n", label)

			continue
		}

		fmt.Fprintf(w, "  Slowest %s: %s (%s)\n",
			label, slowest.Description, formatMs(slowest.Direction(op).MeanMs))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance Scaling:")

	for _, r := range results {
		if r.Lines <= 0 {
			continue
		}

		fmt.Fprintf(w, "  %s:\n", r.Description)

		for _, op := range harness.Operations() {
			perK, ok := MsPerThousandLines(r, op)
			if !ok {
				fmt.Fprintf(w, "    %s: no data\n", directionLabel(op))

				continue
			}

			fmt.Fprintf(w, "    %s: %.2fms per 1K lines\n", directionLabel(op), perK)
		}
	}

	return nil
}

// Bottleneck returns the scenario with the highest mean latency for op,
// ignoring scenarios without successful samples.
func Bottleneck(results []bench.ScenarioResult, op harness.Operation) (bench.ScenarioResult, bool) {
	var (
		slowest bench.ScenarioResult
		found   bool
	)

	for _, r := range results {
		d := r.Direction(op)
		if !d.HasData() {
			continue
		}

		if !found || d.MeanMs > slowest.Direction(op).MeanMs {
			slowest = r
			found = true
		}
	}

	return slowest, found
}

// MsPerThousandLines returns the mean latency for op normalized to 1000
// input lines. It is undefined for empty inputs or missing data.
func MsPerThousandLines(r bench.ScenarioResult, op harness.Operation) (float64, bool) {
	d := r.Direction(op)
	if r.Lines <= 0 || !d.HasData() {
		return 0, false
	}

	return d.MeanMs / float64(r.Lines) * 1000, true
}

// Stress writes the summary of a stress run.
func Stress(w io.Writer, s bench.StressSummary) {
	fmt.Fprintf(w, "Processed %d files in %s\n", s.Calls, formatMs(s.TotalWallMs))

	if s.Calls == 0 {
		fmt.Fprintln(w, "No stress results available")

		return
	}

	fmt.Fprintf(w, "Average time per file: %s\n", formatMs(s.MeanMs))
	fmt.Fprintf(w, "Min/Max: %s / %s\n", formatMs(s.MinMs), formatMs(s.MaxMs))

	if s.Failed > 0 || s.SpawnErrors > 0 {
		fmt.Fprintf(w, "Failures: %d non-zero exits, %d spawn errors\n",
			s.Failed, s.SpawnErrors)
	}

	if s.Throughput != nil {
		fmt.Fprintf(w, "Throughput: %.1f files/second\n", *s.Throughput)
	} else {
		fmt.Fprintln(w, "Throughput: undefined")
	}
}

// GenerateJSON writes results as indented JSON to w.
func GenerateJSON(w io.Writer, results []bench.ScenarioResult) error {
	if results == nil {
		results = []bench.ScenarioResult{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

// GenerateYAML writes results as YAML to w.
func GenerateYAML(w io.Writer, results []bench.ScenarioResult) error {
	if results == nil {
		results = []bench.ScenarioResult{}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(results); err != nil {
		return err
	}

	return enc.Close()
}

// Save writes results to path, replacing any existing file. The format
// follows the extension: .yaml/.yml for YAML, JSON otherwise.
func Save(path string, results []bench.ScenarioResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = GenerateYAML(f, results)
	default:
		err = GenerateJSON(f, results)
	}

	if err != nil {
		f.Close()

		return fmt.Errorf("encode report %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}

	return nil
}

func directionLabel(op harness.Operation) string {
	switch op {
	case harness.OpClean:
		return "Clean"
	case harness.OpSmudge:
		return "Smudge"
	default:
		return string(op)
	}
}

func formatMs(ms float64) string {
	if ms < 1000 {
		return fmt.Sprintf("%.2fms", ms)
	}

	return fmt.Sprintf("%.2fs", ms/1000)
}
