package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// BinaryName is the literal fallback used when no candidate resolves.
const BinaryName = "whiteout"

// DefaultCandidates returns the binary locations tried in order: the
// cargo release and debug outputs in the working directory, then PATH.
func DefaultCandidates() []string {
	return []string{
		filepath.Join(".", "target", "release", BinaryName),
		filepath.Join(".", "target", "debug", BinaryName),
		BinaryName,
	}
}

// ResolveBinary returns the first candidate that exists on disk or
// resolves through PATH. If none does, the last candidate is returned
// unchanged and any failure surfaces on the first invocation.
func ResolveBinary(candidates []string) string {
	if len(candidates) == 0 {
		return BinaryName
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}

		if _, err := exec.LookPath(c); err == nil {
			return c
		}
	}

	return candidates[len(candidates)-1]
}

// Build compiles the filter from a cargo workspace at srcDir in release
// mode and returns the resulting binary path.
func Build(ctx context.Context, logger *slog.Logger, srcDir string) (string, error) {
	binPath := filepath.Join(srcDir, "target", "release", BinaryName)

	if _, err := os.Stat(filepath.Join(srcDir, "Cargo.toml")); err != nil {
		return "", fmt.Errorf("build %s: no Cargo.toml: %w", srcDir, err)
	}

	logger.InfoContext(ctx, "building filter",
		slog.String("source_dir", srcDir),
	)

	cmd := exec.CommandContext(ctx, "cargo", "build", "--release")
	cmd.Dir = srcDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build %s: %w", srcDir, err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf("build %s: binary not found at %s", srcDir, binPath)
	}

	logger.InfoContext(ctx, "filter built",
		slog.String("binary", binPath),
	)

	return binPath, nil
}
