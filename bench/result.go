// Package bench drives the timed invoker across the scenario matrix and
// runs the concurrent stress test.
package bench

import (
	"time"

	"github.com/weiihann/whiteoutbench/harness"
)

// DirectionResult holds the statistics for one operation direction.
// ThroughputKBps is nil when there was no successful sample.
type DirectionResult struct {
	harness.Stats  `yaml:",inline"`
	ThroughputKBps *float64 `json:"throughput_kb_per_sec,omitempty" yaml:"throughput_kb_per_sec,omitempty"`
}

// ScenarioResult is the outcome of a single load-test scenario.
type ScenarioResult struct {
	Description    string          `json:"description" yaml:"description"`
	Lines          int             `json:"lines" yaml:"lines"`
	DecorationRate float64         `json:"decoration_rate" yaml:"decoration_rate"`
	Decorations    int             `json:"decorations" yaml:"decorations"`
	FileSizeKB     float64         `json:"file_size_kb" yaml:"file_size_kb"`
	Clean          DirectionResult `json:"clean" yaml:"clean"`
	Smudge         DirectionResult `json:"smudge" yaml:"smudge"`
}

// Direction returns the result for op.
func (r ScenarioResult) Direction(op harness.Operation) DirectionResult {
	if op == harness.OpSmudge {
		return r.Smudge
	}

	return r.Clean
}

// StressResult is the outcome of one stress run. Latencies are in
// milliseconds and in completion order, not launch order.
type StressResult struct {
	Operation   harness.Operation
	Workers     int
	Latencies   []float64
	Failed      int
	SpawnErrors int
	TotalWall   time.Duration
}

// StressSummary aggregates a StressResult. Throughput is in calls per
// second and nil when it is undefined.
type StressSummary struct {
	Calls       int      `json:"calls" yaml:"calls"`
	Failed      int      `json:"failed" yaml:"failed"`
	SpawnErrors int      `json:"spawn_errors" yaml:"spawn_errors"`
	MeanMs      float64  `json:"mean_ms" yaml:"mean_ms"`
	MinMs       float64  `json:"min_ms" yaml:"min_ms"`
	MaxMs       float64  `json:"max_ms" yaml:"max_ms"`
	TotalWallMs float64  `json:"total_wall_ms" yaml:"total_wall_ms"`
	Throughput  *float64 `json:"throughput_calls_per_sec,omitempty" yaml:"throughput_calls_per_sec,omitempty"`
}

// Summary computes the aggregate statistics of r.
func (r StressResult) Summary() StressSummary {
	s := StressSummary{
		Calls:       len(r.Latencies),
		Failed:      r.Failed,
		SpawnErrors: r.SpawnErrors,
		TotalWallMs: float64(r.TotalWall) / float64(time.Millisecond),
	}

	if len(r.Latencies) == 0 {
		return s
	}

	s.MinMs, s.MaxMs = r.Latencies[0], r.Latencies[0]
	for _, l := range r.Latencies[1:] {
		s.MinMs = min(s.MinMs, l)
		s.MaxMs = max(s.MaxMs, l)
	}

	s.MeanMs, _ = harness.MeanStddev(r.Latencies)

	if s.MeanMs > 0 && s.TotalWallMs > 0 {
		tp := float64(s.Calls) / (s.TotalWallMs / 1000)
		s.Throughput = &tp
	}

	return s
}

func throughput(sizeKB, meanMs float64) *float64 {
	if meanMs <= 0 {
		return nil
	}

	tp := sizeKB / meanMs * 1000

	return &tp
}
