// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package couplings

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Scenario is a named coupling configuration: slot names mapped to the
// values a scan point sets before computing.
type Scenario struct {
	Name   string
	Values map[string]complex128
}

// ApplyTo writes the scenario's values into s. Names are applied in
// sorted order so error reporting is deterministic.
func (sc Scenario) ApplyTo(s *Set) error {
	names := make([]string, 0, len(sc.Values))
	for name := range sc.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.Set(name, sc.Values[name]); err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}
	return nil
}

// ParseValue converts a scenario file value into a coupling value.
// Accepted forms: a bare number, a [re, im] pair, or a string in Go
// complex syntax such as "1+0.5i".
func ParseValue(v any) (complex128, error) {
	switch x := v.(type) {
	case int:
		return complex(float64(x), 0), nil
	case float64:
		return complex(x, 0), nil
	case string:
		c, err := strconv.ParseComplex(strings.ReplaceAll(x, " ", ""), 128)
		if err != nil {
			return 0, fmt.Errorf("value %q: %w", x, err)
		}
		return c, nil
	case []any:
		if len(x) != 2 {
			return 0, fmt.Errorf("value %v: pair form needs exactly [re, im]", x)
		}
		re, err := numeric(x[0])
		if err != nil {
			return 0, fmt.Errorf("value %v: %w", x, err)
		}
		im, err := numeric(x[1])
		if err != nil {
			return 0, fmt.Errorf("value %v: %w", x, err)
		}
		return complex(re, im), nil
	default:
		return 0, fmt.Errorf("value %v (%T): not a number, [re, im] pair, or complex string", v, v)
	}
}

func numeric(v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("%v (%T) is not numeric", v, v)
	}
}

// LoadScenarios reads a YAML scenario file: a mapping of scenario name to
// a {coupling: value} mapping. Every name and value is validated against
// the registry before the scenarios are returned, sorted by name.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	scenarios, err := ParseScenarios(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenarios, nil
}

// ParseScenarios decodes and validates scenario YAML.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing scenarios: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no scenarios defined")
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	scenarios := make([]Scenario, 0, len(names))
	for _, name := range names {
		sc := Scenario{Name: name, Values: make(map[string]complex128, len(raw[name]))}
		for coupling, rawVal := range raw[name] {
			v, err := ParseValue(rawVal)
			if err != nil {
				return nil, fmt.Errorf("scenario %s, coupling %s: %w", name, coupling, err)
			}
			sc.Values[coupling] = v
		}
		var scratch Set
		if err := sc.ApplyTo(&scratch); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// DefaultScenarios returns the built-in reference points on the
// (ghz1, ghz2, ghz4, ghz1_prime2) axes: the standard-model point, the
// three pure anomalous points, and the equal-rate mixtures.
func DefaultScenarios() []Scenario {
	points := []struct {
		name               string
		g1, g2, g4, prime2 float64
	}{
		{"sm", 1, 0, 0, 0},
		{"a2", 0, 1, 0, 0},
		{"a3", 0, 0, 1, 0},
		{"l1", 0, 0, 0, 1},
		{"mix_a2", 1, 1.663195, 0, 0},
		{"mix_a3", 1, 0, 2.55502, 0},
		{"mix_l1", 1, 0, 0, -12110.20},
	}
	out := make([]Scenario, 0, len(points))
	for _, p := range points {
		out = append(out, Scenario{
			Name: p.name,
			Values: map[string]complex128{
				"ghz1":        complex(p.g1, 0),
				"ghz2":        complex(p.g2, 0),
				"ghz4":        complex(p.g4, 0),
				"ghz1_prime2": complex(p.prime2, 0),
			},
		})
	}
	return out
}
