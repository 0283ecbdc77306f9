package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiihann/whiteoutbench/harness"
	"github.com/weiihann/whiteoutbench/workload"
)

// StressConfig controls a stress run. Zero Lines, Operation, Workers and
// Calls select 1000 lines, clean, NumCPU workers and ten calls per worker.
// DecorationRate is always used as given, so 0 means no decorations;
// start from DefaultStressConfig for the standard 20% rate.
type StressConfig struct {
	Lines          int
	DecorationRate float64
	Operation      harness.Operation
	Workers        int
	Calls          int
}

// DefaultStressConfig returns the standard stress workload.
func DefaultStressConfig() StressConfig {
	workers := runtime.NumCPU()

	return StressConfig{
		Lines:          1000,
		DecorationRate: 0.2,
		Operation:      harness.OpClean,
		Workers:        workers,
		Calls:          workers * 10,
	}
}

func (c StressConfig) withDefaults() StressConfig {
	def := DefaultStressConfig()

	if c.Lines <= 0 {
		c.Lines = def.Lines
	}
	if c.Operation == "" {
		c.Operation = def.Operation
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.Calls <= 0 {
		c.Calls = c.Workers * 10
	}

	return c
}

// Stress fans out single-iteration calls over a bounded pool of blocking
// workers. One failing call never stops the others.
type Stress struct {
	invoker Invoker
	out     io.Writer
	logger  *slog.Logger
}

// NewStress creates a stress coordinator printing progress to out.
func NewStress(inv Invoker, out io.Writer, logger *slog.Logger) *Stress {
	return &Stress{invoker: inv, out: out, logger: logger}
}

// Run generates the workload once and launches cfg.Calls invocations with
// at most cfg.Workers in flight.
func (s *Stress) Run(ctx context.Context, cfg StressConfig) (StressResult, error) {
	cfg = cfg.withDefaults()

	spec := workload.Spec{Lines: cfg.Lines, DecorationRate: cfg.DecorationRate}
	if err := spec.Validate(); err != nil {
		return StressResult{}, fmt.Errorf("stress workload: %w", err)
	}

	content := workload.Generate(spec)

	fmt.Fprintln(s.out, "=== Stress Testing ===")
	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "Running stress test with %d concurrent operations...\n",
		cfg.Workers)
	fmt.Fprintf(s.out, "Workload: %d lines, %.0f%% decoration rate, %d decorations\n\n",
		cfg.Lines, cfg.DecorationRate*100, content.Decorations)

	s.logger.InfoContext(ctx, "starting stress test",
		slog.Int("workers", cfg.Workers),
		slog.Int("calls", cfg.Calls),
		slog.String("op", string(cfg.Operation)),
	)

	type outcome struct {
		sample harness.Sample
		err    error
	}

	done := make(chan outcome, cfg.Calls)

	g := new(errgroup.Group)
	g.SetLimit(cfg.Workers)

	start := time.Now()

	for i := 0; i < cfg.Calls; i++ {
		own := content.Clone()

		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					done <- outcome{err: fmt.Errorf("invoke panicked: %v", r)}
				}
			}()

			sample, err := s.invoker.Invoke(ctx, cfg.Operation, own)
			done <- outcome{sample: sample, err: err}

			return nil
		})
	}

	g.Wait()
	total := time.Since(start)
	close(done)

	result := StressResult{
		Operation: cfg.Operation,
		Workers:   cfg.Workers,
		Latencies: make([]float64, 0, cfg.Calls),
		TotalWall: total,
	}

	for o := range done {
		if o.err != nil {
			result.SpawnErrors++
			s.logger.WarnContext(ctx, "stress call failed",
				slog.String("error", o.err.Error()),
			)

			continue
		}

		if !o.sample.Succeeded {
			result.Failed++
		}

		result.Latencies = append(result.Latencies, o.sample.ElapsedMs())
	}

	return result, nil
}
