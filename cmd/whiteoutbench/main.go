// Package main provides the CLI entry point for whiteoutbench, a load and
// stress benchmarking harness for the whiteout clean/smudge filter.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/weiihann/whiteoutbench/bench"
	"github.com/weiihann/whiteoutbench/config"
	"github.com/weiihann/whiteoutbench/harness"
	"github.com/weiihann/whiteoutbench/report"
	"github.com/weiihann/whiteoutbench/workload"
)

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error during testing: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	binary     string
	buildDir   string
	configPath string
	iterations int
	timeout    time.Duration
	output     string
	outputJSON bool
	verbose    bool

	stressLines   int
	stressRate    float64
	stressOp      string
	stressWorkers int
	stressCalls   int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "whiteoutbench",
		Short: "Load and stress benchmarks for the whiteout filter",
		Long: `Whiteoutbench measures the latency, throughput and scaling of the
whiteout clean/smudge filter by running it as a subprocess over synthetic
source files of varying size and decoration density.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.binary, "binary", "",
		"Path to the whiteout binary (default: search ./target and PATH)")
	pf.StringVar(&opts.buildDir, "build-dir", "",
		"Build the filter with cargo from this crate before benchmarking")
	pf.StringVar(&opts.configPath, "config", "",
		"Run file (.yaml, .json or .toml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(
		newRunCmd(opts, true, true),
		newRunCmd(opts, true, false),
		newRunCmd(opts, false, true),
		newGenerateCmd(),
	)

	return root
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// newRunCmd builds the run, load and stress commands, which differ only
// in which phases they execute.
func newRunCmd(opts *options, load, stress bool) *cobra.Command {
	cmd := &cobra.Command{
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

			return runBenchmark(cmd, logger, opts, load, stress)
		},
	}

	switch {
	case load && stress:
		cmd.Use = "run"
		cmd.Short = "Run the load test, the stress test and the report"
	case load:
		cmd.Use = "load"
		cmd.Short = "Run the load test scenarios and the report"
	default:
		cmd.Use = "stress"
		cmd.Short = "Run only the concurrent stress test"
	}

	flags := cmd.Flags()

	if load {
		flags.IntVar(&opts.iterations, "iterations", bench.DefaultIterations,
			"Samples per scenario and direction")
		flags.StringVar(&opts.output, "output", report.DefaultPath,
			"Report file (.json or .yaml), overwritten on each run")
		flags.BoolVar(&opts.outputJSON, "json", false,
			"Print the report as JSON instead of text")
	}

	flags.DurationVar(&opts.timeout, "timeout", 0,
		"Per-call timeout (0 = wait indefinitely)")

	if stress {
		def := bench.DefaultStressConfig()
		flags.IntVar(&opts.stressLines, "stress-lines", def.Lines,
			"Lines in the stress workload")
		flags.Float64Var(&opts.stressRate, "stress-rate", def.DecorationRate,
			"Decoration rate of the stress workload")
		flags.StringVar(&opts.stressOp, "stress-op", string(def.Operation),
			"Operation used by the stress test: clean or smudge")
		flags.IntVar(&opts.stressWorkers, "workers", def.Workers,
			"Concurrent stress workers")
		flags.IntVar(&opts.stressCalls, "calls", 0,
			"Total stress calls (default: 10 x workers)")
	}

	return cmd
}

func loadConfig(cmd *cobra.Command, opts *options) (*config.FileConfig, error) {
	cfg := &config.FileConfig{}

	if opts.configPath != "" {
		var err error

		cfg, err = config.LoadFile(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()

	if flags.Changed("binary") {
		cfg.Binary = opts.binary
	}
	if flags.Changed("iterations") {
		cfg.Iterations = opts.iterations
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout.String()
	}
	if flags.Changed("output") || cfg.Output == "" {
		cfg.Output = opts.output
	}
	if flags.Changed("stress-lines") {
		cfg.Stress.Lines = opts.stressLines
	}
	if flags.Changed("stress-rate") {
		rate := opts.stressRate
		cfg.Stress.DecorationRate = &rate
	}
	if flags.Changed("stress-op") {
		cfg.Stress.Operation = opts.stressOp
	}
	if flags.Changed("workers") {
		cfg.Stress.Workers = opts.stressWorkers
	}
	if flags.Changed("calls") {
		cfg.Stress.Calls = opts.stressCalls
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func resolveBinary(
	ctx context.Context,
	logger *slog.Logger,
	opts *options,
	cfg *config.FileConfig,
) (string, error) {
	if opts.buildDir != "" {
		return harness.Build(ctx, logger, opts.buildDir)
	}

	if cfg.Binary != "" {
		return cfg.Binary, nil
	}

	return harness.ResolveBinary(harness.DefaultCandidates()), nil
}

func runBenchmark(
	cmd *cobra.Command,
	logger *slog.Logger,
	opts *options,
	load, stress bool,
) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	logger = logger.With(slog.String("run_id", runID))

	// Step 1: Locate (or build) the filter binary.
	binary, err := resolveBinary(ctx, logger, opts, cfg)
	if err != nil {
		return fmt.Errorf("resolve binary: %w", err)
	}

	fmt.Fprintf(out, "Using whiteout binary: %s\n\n", binary)

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}

	inv := harness.NewInvoker(binary, cfg.Env, logger)
	inv.Prefix = "whiteoutbench-" + runID
	inv.Timeout = timeout

	// Step 2: Sequential load test over the scenario matrix.
	var results []bench.ScenarioResult

	if load {
		runner := bench.NewRunner(inv, cfg.Iterations, out, logger)

		results, err = runner.Run(ctx, cfg.ScenarioList())
		if err != nil {
			return fmt.Errorf("load test: %w", err)
		}
	}

	// Step 3: Concurrent stress test.
	if stress {
		st, err := bench.NewStress(inv, out, logger).Run(ctx, cfg.ToStressConfig())
		if err != nil {
			return fmt.Errorf("stress test: %w", err)
		}

		report.Stress(out, st.Summary())
	}

	if !load {
		return nil
	}

	// Step 4: Report and structured dump.
	fmt.Fprintln(out)

	if opts.outputJSON {
		if err := report.GenerateJSON(out, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(out, results); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	if err := report.Save(cfg.Output, results); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	fmt.Fprintf(out, "\nResults saved to %s\n", cfg.Output)

	logger.InfoContext(ctx, "benchmark complete",
		slog.Int("scenarios", len(results)),
		slog.String("output", cfg.Output),
	)

	return nil
}

func newGenerateCmd() *cobra.Command {
	var (
		lines   int
		rate    float64
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write one synthetic workload file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec := workload.Spec{Lines: lines, DecorationRate: rate}
			if err := spec.Validate(); err != nil {
				return err
			}

			content := workload.Generate(spec)

			w := cmd.OutOrStdout()

			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()

				w = f
			}

			if _, err := content.WriteTo(w); err != nil {
				return fmt.Errorf("write workload: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "generated %d lines, %d decorations, %.1f KB\n",
				len(content.Lines), content.Decorations, content.SizeKB())

			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&lines, "lines", 1000, "Number of source lines")
	flags.Float64Var(&rate, "rate", 0.1, "Fraction of lines carrying decorations")
	flags.StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")

	return cmd
}
