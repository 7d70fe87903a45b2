package objective

import (
	"fmt"
	"math"
)

// epsilon replaces a zero denominator when computing excursions.
const epsilon = 0.00001

// Target is the threshold a metric holds: a SingleValue or a Bounds.
type Target interface {
	isTarget()
}

// SingleValue is a one-sided threshold used by LessThan and GreaterThan.
type SingleValue struct {
	Value float64 `json:"value" yaml:"value"`
}

// Bounds is an inclusive [Min, Max] window used by Range.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (SingleValue) isTarget() {}
func (Bounds) isTarget()      {}

// Function decides whether a single observed value complies with a target and,
// when it does not, by how much it misses.
type Function interface {
	Name() string
	NonCompliant(value float64, target Target) bool
	// Excursion is 0 for a compliant value.
	Excursion(value float64, target Target) float64
	accepts(target Target) bool
}

// LessThan flags values that fall below the target.
type LessThan struct{}

// GreaterThan flags values that rise above the target.
type GreaterThan struct{}

// Range flags values outside [Min, Max].
type Range struct{}

func (LessThan) Name() string    { return "less_than" }
func (GreaterThan) Name() string { return "greater_than" }
func (Range) Name() string       { return "range" }

func (LessThan) accepts(t Target) bool    { _, ok := t.(SingleValue); return ok }
func (GreaterThan) accepts(t Target) bool { _, ok := t.(SingleValue); return ok }
func (Range) accepts(t Target) bool       { _, ok := t.(Bounds); return ok }

func (f LessThan) NonCompliant(value float64, target Target) bool {
	return value < mustSingle(f, target).Value
}

func (f LessThan) Excursion(value float64, target Target) float64 {
	t := mustSingle(f, target)
	if value >= t.Value {
		return 0
	}
	return math.Abs(t.Value/nonZero(value)) - 1
}

func (f GreaterThan) NonCompliant(value float64, target Target) bool {
	return value > mustSingle(f, target).Value
}

func (f GreaterThan) Excursion(value float64, target Target) float64 {
	t := mustSingle(f, target)
	if value <= t.Value {
		return 0
	}
	return math.Abs(value/nonZero(t.Value)) - 1
}

func (f Range) NonCompliant(value float64, target Target) bool {
	b := mustBounds(f, target)
	return value < b.Min || value > b.Max
}

func (f Range) Excursion(value float64, target Target) float64 {
	b := mustBounds(f, target)
	switch {
	case value < b.Min:
		return math.Abs(b.Min/nonZero(value)) - 1
	case value > b.Max:
		return math.Abs(value/nonZero(b.Max)) - 1
	default:
		return 0
	}
}

// FunctionByName resolves the names used in basin definitions.
func FunctionByName(name string) (Function, error) {
	switch name {
	case "less_than":
		return LessThan{}, nil
	case "greater_than":
		return GreaterThan{}, nil
	case "range":
		return Range{}, nil
	default:
		return nil, fmt.Errorf("unknown objective function %q", name)
	}
}

func nonZero(v float64) float64 {
	if v == 0 {
		return epsilon
	}
	return v
}

// mustSingle panics on a shape mismatch: pairing a range metric with a
// one-sided function is a programming error.
func mustSingle(f Function, target Target) SingleValue {
	t, ok := target.(SingleValue)
	if !ok {
		panic(fmt.Sprintf("objective: %s requires a single-value target, got %T", f.Name(), target))
	}
	return t
}

func mustBounds(f Function, target Target) Bounds {
	t, ok := target.(Bounds)
	if !ok {
		panic(fmt.Sprintf("objective: %s requires a range target, got %T", f.Name(), target))
	}
	return t
}
