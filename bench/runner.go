package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/weiihann/whiteoutbench/harness"
	"github.com/weiihann/whiteoutbench/workload"
)

// DefaultIterations is the number of samples per scenario and direction.
const DefaultIterations = 5

// Invoker is the subset of harness.Invoker the runners depend on.
type Invoker interface {
	Invoke(ctx context.Context, op harness.Operation, content workload.Content) (harness.Sample, error)
	Measure(ctx context.Context, op harness.Operation, content workload.Content, iterations int) harness.Stats
}

// Scenario is one row of the load-test matrix.
type Scenario struct {
	Lines          int     `yaml:"lines" json:"lines" toml:"lines"`
	DecorationRate float64 `yaml:"decoration_rate" json:"decoration_rate" toml:"decoration_rate"`
	Description    string  `yaml:"description" json:"description" toml:"description"`
}

// DefaultScenarios returns the standard matrix, smallest input first.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{100, 0.1, "Small file, low decoration"},
		{1000, 0.1, "Medium file, low decoration"},
		{1000, 0.5, "Medium file, high decoration"},
		{10000, 0.1, "Large file, low decoration"},
		{10000, 0.5, "Large file, high decoration"},
		{50000, 0.1, "Very large file, low decoration"},
	}
}

// Runner measures every scenario strictly sequentially so that no
// measurement overlaps another.
type Runner struct {
	invoker    Invoker
	iterations int
	out        io.Writer
	logger     *slog.Logger
}

// NewRunner creates a Runner printing progress to out. Non-positive
// iterations fall back to DefaultIterations.
func NewRunner(inv Invoker, iterations int, out io.Writer, logger *slog.Logger) *Runner {
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	return &Runner{
		invoker:    inv,
		iterations: iterations,
		out:        out,
		logger:     logger,
	}
}

// Run measures the scenarios in order and returns one result per scenario,
// in the same order.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) ([]ScenarioResult, error) {
	fmt.Fprintln(r.out, "=== Whiteout Load Testing ===")
	fmt.Fprintln(r.out)

	results := make([]ScenarioResult, 0, len(scenarios))

	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("scenario %q: %w", sc.Description, err)
		}

		spec := workload.Spec{Lines: sc.Lines, DecorationRate: sc.DecorationRate}
		if err := spec.Validate(); err != nil {
			return results, fmt.Errorf("scenario %q: %w", sc.Description, err)
		}

		results = append(results, r.runScenario(ctx, sc, spec))
	}

	r.logger.InfoContext(ctx, "load test complete",
		slog.Int("scenarios", len(results)),
	)

	return results, nil
}

func (r *Runner) runScenario(
	ctx context.Context,
	sc Scenario,
	spec workload.Spec,
) ScenarioResult {
	fmt.Fprintf(r.out, "Testing: %s\n", sc.Description)
	fmt.Fprintf(r.out, "  Lines: %d, Decoration rate: %.0f%%\n",
		sc.Lines, sc.DecorationRate*100)

	content := workload.Generate(spec)
	sizeKB := content.SizeKB()

	fmt.Fprintf(r.out, "  File size: %.1f KB\n", sizeKB)
	fmt.Fprintf(r.out, "  Decorations: %d\n", content.Decorations)

	result := ScenarioResult{
		Description:    sc.Description,
		Lines:          sc.Lines,
		DecorationRate: sc.DecorationRate,
		Decorations:    content.Decorations,
		FileSizeKB:     sizeKB,
	}

	for _, op := range harness.Operations() {
		stats := r.invoker.Measure(ctx, op, content, r.iterations)
		dir := DirectionResult{
			Stats:          stats,
			ThroughputKBps: throughput(sizeKB, stats.MeanMs),
		}

		r.printDirection(op, dir)

		r.logger.DebugContext(ctx, "direction measured",
			slog.String("scenario", sc.Description),
			slog.String("op", string(op)),
			slog.Int("samples", stats.Samples),
			slog.Int("failed", stats.Failed),
		)

		if op == harness.OpSmudge {
			result.Smudge = dir
		} else {
			result.Clean = dir
		}
	}

	fmt.Fprintln(r.out)

	return result
}

func (r *Runner) printDirection(op harness.Operation, dir DirectionResult) {
	label := directionLabel(op)

	if !dir.HasData() {
		fmt.Fprintf(r.out, "  %s: no data (%d failed)\n", label, dir.Failed)

		return
	}

	fmt.Fprintf(r.out, "  %s: %.2fms ± %.2fms\n", label, dir.MeanMs, dir.StddevMs)

	if dir.ThroughputKBps != nil {
		fmt.Fprintf(r.out, "  %s throughput: %.1f KB/s\n", label, *dir.ThroughputKBps)
	}
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
