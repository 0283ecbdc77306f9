// Package harness runs the whiteout filter binary once per timing sample
// and aggregates the samples into latency statistics.
package harness

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrUnknownOperation is returned by ParseOperation for unsupported tokens.
var ErrUnknownOperation = errors.New("unknown operation")

// Operation selects the filter's transform direction.
type Operation string

const (
	OpClean  Operation = "clean"
	OpSmudge Operation = "smudge"
)

// Operations returns the supported operations in reporting order.
func Operations() []Operation {
	return []Operation{OpClean, OpSmudge}
}

// ParseOperation converts a CLI token into an Operation.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpClean, OpSmudge:
		return Operation(s), nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownOperation, s)
	}
}

// Sample is one timed invocation whose process was launched and reaped.
type Sample struct {
	Elapsed   time.Duration
	Succeeded bool
	ExitCode  int
}

// ElapsedMs returns Elapsed in fractional milliseconds.
func (s Sample) ElapsedMs() float64 {
	return float64(s.Elapsed) / float64(time.Millisecond)
}

// Stats aggregates the successful samples of a measurement. Samples == 0
// means there is no data; MeanMs and StddevMs are then zero.
type Stats struct {
	MeanMs   float64 `json:"mean_ms" yaml:"mean_ms"`
	StddevMs float64 `json:"stddev_ms" yaml:"stddev_ms"`
	Samples  int     `json:"samples" yaml:"samples"`
	Failed   int     `json:"failed" yaml:"failed"`
}

// HasData reports whether at least one sample succeeded.
func (s Stats) HasData() bool {
	return s.Samples > 0
}

// Aggregate computes Stats over the successful samples only. Stddev is the
// sample standard deviation and is zero for fewer than two samples.
func Aggregate(samples []Sample) Stats {
	var (
		stats Stats
		times = make([]float64, 0, len(samples))
	)

	for _, s := range samples {
		if !s.Succeeded {
			stats.Failed++

			continue
		}

		times = append(times, s.ElapsedMs())
	}

	stats.Samples = len(times)
	stats.MeanMs, stats.StddevMs = MeanStddev(times)

	return stats
}

// MeanStddev returns the mean and sample standard deviation of xs.
func MeanStddev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}

	var sum float64
	for _, x := range xs {
		sum += x
	}

	mean := sum / float64(len(xs))

	if len(xs) < 2 {
		return mean, 0
	}

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}

	return mean, math.Sqrt(sq / float64(len(xs)-1))
}
