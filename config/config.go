// Package config loads optional run files for whiteoutbench. A run file
// overrides the built-in scenario matrix and stress settings; explicit
// command-line flags override the run file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/whiteoutbench/bench"
	"github.com/weiihann/whiteoutbench/harness"
	"github.com/weiihann/whiteoutbench/workload"
)

// FileConfig is the on-disk run file.
type FileConfig struct {
	Binary     string           `yaml:"binary" json:"binary" toml:"binary"`
	Iterations int              `yaml:"iterations" json:"iterations" toml:"iterations"`
	Timeout    string           `yaml:"timeout" json:"timeout" toml:"timeout"`
	Output     string           `yaml:"output" json:"output" toml:"output"`
	Env        []string         `yaml:"env" json:"env" toml:"env"`
	Scenarios  []bench.Scenario `yaml:"scenarios" json:"scenarios" toml:"scenarios"`
	Stress     StressConfig     `yaml:"stress" json:"stress" toml:"stress"`
}

// StressConfig is the stress section of a run file. A nil DecorationRate
// keeps the default; an explicit 0 means no decorations.
type StressConfig struct {
	Lines          int     `yaml:"lines" json:"lines" toml:"lines"`
	DecorationRate *float64 `yaml:"decoration_rate" json:"decoration_rate" toml:"decoration_rate"`
	Operation      string  `yaml:"operation" json:"operation" toml:"operation"`
	Workers        int     `yaml:"workers" json:"workers" toml:"workers"`
	Calls          int     `yaml:"calls" json:"calls" toml:"calls"`
}

// LoadFile reads a YAML, JSON or TOML run file, chosen by extension.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &cfg, nil
}

// Validate checks value ranges.
func (f *FileConfig) Validate() error {
	if f.Iterations < 0 {
		return fmt.Errorf("iterations must be non-negative")
	}

	if _, err := f.TimeoutDuration(); err != nil {
		return err
	}

	for i, sc := range f.Scenarios {
		spec := workload.Spec{Lines: sc.Lines, DecorationRate: sc.DecorationRate}
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("scenarios[%d]: %w", i, err)
		}

		if sc.Description == "" {
			return fmt.Errorf("scenarios[%d]: description is required", i)
		}
	}

	st := f.Stress

	if st.Lines < 0 {
		return fmt.Errorf("stress.lines must be non-negative")
	}

	if r := st.DecorationRate; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("stress.decoration_rate must be between 0 and 1")
	}

	if st.Workers < 0 {
		return fmt.Errorf("stress.workers must be non-negative")
	}

	if st.Calls < 0 {
		return fmt.Errorf("stress.calls must be non-negative")
	}

	if st.Operation != "" {
		if _, err := harness.ParseOperation(st.Operation); err != nil {
			return fmt.Errorf("stress.operation: %w", err)
		}
	}

	return nil
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (f *FileConfig) TimeoutDuration() (time.Duration, error) {
	if f.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout: %w", err)
	}

	if d < 0 {
		return 0, fmt.Errorf("timeout must be non-negative")
	}

	return d, nil
}

// ScenarioList returns the configured scenarios, or the default matrix
// when none are set.
func (f *FileConfig) ScenarioList() []bench.Scenario {
	if len(f.Scenarios) == 0 {
		return bench.DefaultScenarios()
	}

	return f.Scenarios
}

// ToStressConfig merges the stress section over the defaults. Call
// Validate first.
func (f *FileConfig) ToStressConfig() bench.StressConfig {
	cfg := bench.DefaultStressConfig()
	st := f.Stress

	if st.Lines > 0 {
		cfg.Lines = st.Lines
	}
	if st.DecorationRate != nil {
		cfg.DecorationRate = *st.DecorationRate
	}
	if st.Operation != "" {
		cfg.Operation = harness.Operation(st.Operation)
	}
	if st.Workers > 0 {
		cfg.Workers = st.Workers
		cfg.Calls = st.Workers * 10
	}
	if st.Calls > 0 {
		cfg.Calls = st.Calls
	}

	return cfg
}
