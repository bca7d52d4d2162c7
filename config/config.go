// Package config holds the run configuration of the simulator: device
// geometry, workload, algorithm and the ambient logger/telemetry settings.
// Values come from Default, are overlaid by an optional YAML file and finally
// by command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sushant-115/gojoftl/core/flash"
	"github.com/sushant-115/gojoftl/core/workload"
	"github.com/sushant-115/gojoftl/pkg/logger"
	"github.com/sushant-115/gojoftl/pkg/telemetry"
)

var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInvalidAlgorithm    = errors.New("invalid algorithm")
	ErrInvalidDistribution = errors.New("invalid distribution")
	ErrInvalidWindowFlag   = errors.New("invalid window flag")
)

// Window limits how far ahead lookahead scoring may look.
type Window struct {
	Flag WindowFlag `yaml:"flag"`
	// Size is the number of future writes visible when Flag is WindowOn.
	Size uint64 `yaml:"size"`
}

// Workload describes the generated write sequence.
type Workload struct {
	Distribution     Distribution `yaml:"distribution"`
	workload.HotCold `yaml:",inline"`
}

// SteadyState controls when the steady counters start. A zero Threshold
// means one full pass over the logical space.
type SteadyState struct {
	Enabled   bool   `yaml:"enabled"`
	Threshold uint64 `yaml:"threshold"`
}

// Simulation is the complete configuration of one run.
type Simulation struct {
	flash.Geometry `yaml:",inline"`

	Window      Window      `yaml:"window"`
	Workload    Workload    `yaml:"workload"`
	Algorithm   Algorithm   `yaml:"algorithm"`
	Generations int         `yaml:"generations"` // 0 picks the heuristic
	SteadyState SteadyState `yaml:"steady_state"`
	PrintMode   bool        `yaml:"print_mode"`
	Seed        uint64      `yaml:"seed"`
	// OutputFile receives the report, appended. Empty means stdout.
	OutputFile string `yaml:"output_file"`
	// Sweep runs every listed algorithm on the same sequence instead of Algorithm.
	Sweep []Algorithm `yaml:"sweep,omitempty"`

	Logger    logger.Config    `yaml:"logger"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Default returns a small over-provisioned device under a uniform workload.
func Default() Simulation {
	return Simulation{
		Geometry: flash.Geometry{
			PhysicalBlocks: 128,
			LogicalBlocks:  100,
			PagesPerBlock:  32,
			PageSize:       4096,
			TotalPages:     200000,
		},
		Window: Window{Flag: WindowOff},
		Workload: Workload{
			Distribution: Uniform,
			HotCold:      workload.HotCold{HotPagePercentage: 20, HotProbability: 0.8},
		},
		Algorithm:   Greedy,
		SteadyState: SteadyState{Enabled: true},
		Logger: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "stderr",
		},
		Telemetry: telemetry.Config{
			ServiceName:      "gojoftl",
			PrometheusPort:   9464,
			TraceSampleRatio: 1.0,
		},
	}
}

// Load reads a YAML file over Default and validates the result.
func Load(path string) (Simulation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Simulation{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Simulation{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys are
// rejected.
func Parse(data []byte) (Simulation, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Simulation{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Simulation{}, err
	}
	return cfg, nil
}

// Validate checks every field against the device geometry.
func (s Simulation) Validate() error {
	if err := s.Geometry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if s.TotalPages == 0 {
		return fmt.Errorf("%w: number of pages must be positive", ErrInvalidConfig)
	}
	if s.Window.Flag == WindowOn && s.Window.Size > s.TotalPages {
		return fmt.Errorf("%w: window size %d not in [0,%d]", ErrInvalidConfig, s.Window.Size, s.TotalPages)
	}
	if s.Workload.Distribution == HotCold {
		if err := s.Workload.HotCold.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if spare := s.PhysicalBlocks - s.LogicalBlocks; s.Generations < 0 || s.Generations > spare {
		return fmt.Errorf("%w: generations %d not in [0,%d]", ErrInvalidConfig, s.Generations, spare)
	}
	for _, a := range append([]Algorithm{s.Algorithm}, s.Sweep...) {
		if _, ok := algorithmNames[a]; !ok {
			return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, ErrInvalidAlgorithm, int(a))
		}
	}
	return nil
}

// Algorithms lists the algorithms to run: the sweep if set, else Algorithm.
func (s Simulation) Algorithms() []Algorithm {
	if len(s.Sweep) > 0 {
		return s.Sweep
	}
	return []Algorithm{s.Algorithm}
}

// SteadyThreshold resolves the steady-state threshold in logical writes.
func (s Simulation) SteadyThreshold() uint64 {
	if s.SteadyState.Threshold == 0 {
		return uint64(s.LogicalPages())
	}
	return s.SteadyState.Threshold
}

// Dump writes the effective configuration as YAML.
func (s Simulation) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
