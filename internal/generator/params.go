package generator

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"SynthFeed/internal/domain/models"
)

type field struct {
	name string
	n    int
}

func lenOf[T any](name string, v []T) field { return field{name: name, n: len(v)} }

// sameLength checks that every per-asset vector has the length of the first
// and returns it.
func sameLength(kind string, fields ...field) (int, error) {
	if len(fields) == 0 {
		return 0, models.NewConfigError(kind, "", "no parameters")
	}
	if fields[0].n == 0 {
		return 0, models.NewConfigError(kind, fields[0].name, "at least one asset is required")
	}
	n := fields[0].n
	for _, f := range fields[1:] {
		if f.n != n {
			return 0, models.NewConfigError(kind, f.name, "has %d values, %s has %d", f.n, fields[0].name, n)
		}
	}
	return n, nil
}

func checkEach(kind, name string, v []float64, ok func(float64) bool, what string) error {
	for i, x := range v {
		if !ok(x) {
			return models.NewConfigError(kind, name, "value %g at index %d must be %s", x, i, what)
		}
	}
	return nil
}

func nonNegative(x float64) bool  { return x >= 0 }
func positive(x float64) bool     { return x > 0 }
func probability(x float64) bool  { return x >= 0 && x <= 1 }
func unitInterval(x float64) bool { return x > 0 && x <= 1 }

// Range is a [Min, Max] interval with a starting value inside it.
type Range struct {
	Min     float64 `yaml:"min" json:"min"`
	Nominal float64 `yaml:"nominal" json:"nominal"`
	Max     float64 `yaml:"max" json:"max"`
}

// UnmarshalYAML accepts either a mapping or a [min, nominal, max] sequence.
func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var v []float64
		if err := value.Decode(&v); err != nil {
			return err
		}
		if len(v) != 3 {
			return fmt.Errorf("line %d: range needs 3 values [min, nominal, max], got %d", value.Line, len(v))
		}
		*r = R(v[0], v[1], v[2])
		return nil
	}
	type plain Range
	return value.Decode((*plain)(r))
}

// R builds a Range.
func R(lo, nominal, hi float64) Range { return Range{Min: lo, Nominal: nominal, Max: hi} }

func checkRanges(kind, name string, rs []Range) error {
	for i, r := range rs {
		if !(r.Min <= r.Nominal && r.Nominal <= r.Max) {
			return models.NewConfigError(kind, name, "range %d must satisfy min <= nominal <= max, got [%g, %g, %g]",
				i, r.Min, r.Nominal, r.Max)
		}
	}
	return nil
}
