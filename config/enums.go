package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Algorithm is the reclamation strategy driven by the simulator.
type Algorithm int

const (
	Greedy Algorithm = iota
	GreedyLookahead
	Generational
	WritingAssignment
)

var algorithmNames = map[Algorithm]string{
	Greedy:            "greedy",
	GreedyLookahead:   "greedy_lookahead",
	Generational:      "generational",
	WritingAssignment: "writing_assignment",
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm maps a command line or YAML name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	for a, name := range algorithmNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, s)
}

func (a *Algorithm) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseAlgorithm(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*a = parsed
	return nil
}

func (a Algorithm) MarshalYAML() (any, error) { return a.String(), nil }

// Distribution selects how the write sequence is generated.
type Distribution int

const (
	Uniform Distribution = iota
	HotCold
)

func (d Distribution) String() string {
	switch d {
	case Uniform:
		return "uniform"
	case HotCold:
		return "hot_cold"
	default:
		return fmt.Sprintf("Distribution(%d)", int(d))
	}
}

// ParseDistribution accepts "uniform" or "hot_cold".
func ParseDistribution(s string) (Distribution, error) {
	switch s {
	case "uniform":
		return Uniform, nil
	case "hot_cold":
		return HotCold, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDistribution, s)
}

func (d *Distribution) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDistribution(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = parsed
	return nil
}

func (d Distribution) MarshalYAML() (any, error) { return d.String(), nil }

// WindowFlag toggles the lookahead window limit.
type WindowFlag int

const (
	WindowOff WindowFlag = iota
	WindowOn
)

func (w WindowFlag) String() string {
	if w == WindowOn {
		return "window_on"
	}
	return "window_off"
}

// ParseWindowFlag accepts "window_on" or "window_off".
func ParseWindowFlag(s string) (WindowFlag, error) {
	switch s {
	case "window_on":
		return WindowOn, nil
	case "window_off":
		return WindowOff, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWindowFlag, s)
}

func (w *WindowFlag) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseWindowFlag(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*w = parsed
	return nil
}

func (w WindowFlag) MarshalYAML() (any, error) { return w.String(), nil }
