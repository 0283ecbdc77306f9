package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/weiihann/whiteoutbench/workload"
)

// DefaultSuffix matches the language the whiteout filter is usually
// configured for, so the tool picks its Rust comment style.
const DefaultSuffix = ".rs"

// Invoker times single runs of the filter binary. Every run gets its own
// temporary file, so an Invoker is safe for concurrent use.
//
// Each sample includes process spawn and teardown, which dominates for
// small inputs. That cost is part of what is measured.
type Invoker struct {
	BinaryPath string
	Env        []string
	TempDir    string
	Prefix     string
	Suffix     string
	// Timeout bounds a single call. Zero means wait for the process
	// however long it takes.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewInvoker creates an Invoker for the binary. Env is appended to the
// inherited environment of every call.
func NewInvoker(binaryPath string, env []string, logger *slog.Logger) *Invoker {
	return &Invoker{
		BinaryPath: binaryPath,
		Env:        env,
		Prefix:     "whiteoutbench",
		Suffix:     DefaultSuffix,
		Logger:     logger.With(slog.String("binary", binaryPath)),
	}
}

// Invoke writes content to a fresh temp file and runs
// `<binary> <op> <path>` once. A non-zero exit yields a failed Sample;
// an error means no process was reaped and there is no sample.
func (inv *Invoker) Invoke(
	ctx context.Context,
	op Operation,
	content workload.Content,
) (Sample, error) {
	path, err := inv.writeTemp(content)
	if err != nil {
		return Sample{}, err
	}
	defer os.Remove(path)

	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, inv.BinaryPath, string(op), path)

	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		return Sample{Elapsed: elapsed, Succeeded: true}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		inv.Logger.Debug("filter exited non-zero",
			slog.String("op", string(op)),
			slog.Int("exit_code", exitErr.ExitCode()),
			slog.String("stderr", stderr.String()),
		)

		return Sample{
			Elapsed:  elapsed,
			ExitCode: exitErr.ExitCode(),
		}, nil
	}

	return Sample{}, fmt.Errorf("run %s %s: %w", inv.BinaryPath, op, err)
}

// Measure runs Invoke iterations times sequentially and aggregates the
// successful samples. Calls that could not be spawned count as failed.
func (inv *Invoker) Measure(
	ctx context.Context,
	op Operation,
	content workload.Content,
	iterations int,
) Stats {
	samples := make([]Sample, 0, iterations)

	for i := 0; i < iterations; i++ {
		if ctx.Err() != nil {
			break
		}

		sample, err := inv.Invoke(ctx, op, content)
		if err != nil {
			inv.Logger.Warn("invocation failed",
				slog.String("op", string(op)),
				slog.String("error", err.Error()),
			)

			samples = append(samples, Sample{})

			continue
		}

		samples = append(samples, sample)
	}

	return Aggregate(samples)
}

func (inv *Invoker) writeTemp(content workload.Content) (string, error) {
	f, err := os.CreateTemp(inv.TempDir, inv.Prefix+"-*"+inv.Suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := content.WriteTo(f); err != nil {
		f.Close()
		os.Remove(f.Name())

		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())

		return "", fmt.Errorf("close temp file: %w", err)
	}

	return f.Name(), nil
}
