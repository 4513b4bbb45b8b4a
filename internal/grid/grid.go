// Package grid defines the parameter grid of a sweep: one ordered axis of
// candidate values per recognized parameter. The set of recognized parameters
// is fixed and enumerated; unknown names are construction-time errors, never
// passed through. A grid is normalized exactly once, at build time: missing
// axes are filled with their single-valued default, and a missing w.init axis
// is filled with one seed drawn from the process-level random source and
// stored, so every later decode of the same grid sees the same seed.
package grid

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	// ErrInvalidAxis is returned for an empty override sequence, an
	// unrecognized parameter name, or a value of the wrong type.
	ErrInvalidAxis = errors.New("grid: invalid axis")

	// ErrGridTooLarge is returned when the combination count would exceed
	// MaxSize. Construction fails rather than silently overflowing.
	ErrGridTooLarge = errors.New("grid: combination count exceeds practical bound")
)

// MaxSize bounds the total combination count of a job space.
const MaxSize = 10_000_000

// Kind classifies the value type of a recognized parameter.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindEnum
	KindSeed
)

// paramSpec describes one recognized parameter: its canonical name, value
// kind, allowed enum values, and single-valued default.
type paramSpec struct {
	name string
	kind Kind
	enum []string
	def  any // nil for w.init: drawn at build time
}

// recognized is the fixed parameter table. Its order is load-bearing: it is
// the axis order of every grid, which in turn fixes the mixed-radix digit
// order of job decoding. Never reorder entries.
var recognized = []paramSpec{
	{name: "n.comp", kind: KindInt, def: 10},
	{name: "center.cols", kind: KindBool, def: true},
	{name: "scale.cols", kind: KindBool, def: true},
	{name: "w.init", kind: KindSeed},
	{name: "alg.typ", kind: KindEnum, enum: []string{"parallel", "deflation"}, def: "parallel"},
	{name: "fun", kind: KindEnum, enum: []string{"logcosh", "exp"}, def: "logcosh"},
	{name: "alpha", kind: KindFloat, def: 1.0},
	{name: "row.norm", kind: KindBool, def: false},
	{name: "maxit", kind: KindInt, def: 200},
	{name: "tol", kind: KindFloat, def: 1e-4},
	{name: "partition", kind: KindEnum, enum: []string{"fixed", "adaptive"}, def: "fixed"},
	{name: "threshold", kind: KindFloat, def: 3.0},
}

func specFor(name string) (paramSpec, bool) {
	for _, s := range recognized {
		if s.name == name {
			return s, true
		}
	}
	return paramSpec{}, false
}

// Names returns the canonical axis order of all recognized parameters.
func Names() []string {
	out := make([]string, len(recognized))
	for i, s := range recognized {
		out[i] = s.name
	}
	return out
}

// Axis is one parameter's ordered, non-empty candidate value sequence.
type Axis struct {
	Name   string `yaml:"name" json:"name"`
	Values []any  `yaml:"values,flow" json:"values"`
}

// Grid is a complete, normalized parameter grid: one axis per recognized
// parameter, in canonical order. Grids are immutable after construction.
type Grid struct {
	axes []Axis
	size int
}

// Build constructs a grid from per-parameter overrides. Parameters without an
// override get their single-valued default axis; w.init gets one random seed.
func Build(overrides map[string][]any) (*Grid, error) {
	for name := range overrides {
		if _, ok := specFor(name); !ok {
			return nil, fmt.Errorf("%w: unrecognized parameter %q", ErrInvalidAxis, name)
		}
	}

	axes := make([]Axis, 0, len(recognized))
	for _, spec := range recognized {
		values, supplied := overrides[spec.name]
		if !supplied {
			if spec.kind == KindSeed {
				values = []any{drawSeed()}
			} else {
				values = []any{spec.def}
			}
		}
		axis, err := normalizeAxis(spec, values)
		if err != nil {
			return nil, err
		}
		axes = append(axes, axis)
	}
	return fromNormalized(axes)
}

// FromAxes reconstructs a grid from a previously serialized axis list. The
// list must be complete and in canonical order; defaults are never re-derived
// here, so a reloaded grid decodes exactly as the original did.
func FromAxes(axes []Axis) (*Grid, error) {
	if len(axes) != len(recognized) {
		return nil, fmt.Errorf("%w: got %d axes, want %d", ErrInvalidAxis, len(axes), len(recognized))
	}
	normalized := make([]Axis, 0, len(axes))
	for i, spec := range recognized {
		if axes[i].Name != spec.name {
			return nil, fmt.Errorf("%w: axis %d is %q, want %q", ErrInvalidAxis, i, axes[i].Name, spec.name)
		}
		axis, err := normalizeAxis(spec, axes[i].Values)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, axis)
	}
	return fromNormalized(normalized)
}

func fromNormalized(axes []Axis) (*Grid, error) {
	size := 1
	for _, axis := range axes {
		size *= len(axis.Values)
		if size > MaxSize {
			return nil, fmt.Errorf("%w (max %d)", ErrGridTooLarge, MaxSize)
		}
	}
	return &Grid{axes: axes, size: size}, nil
}

// normalizeAxis validates and coerces every candidate value to the
// parameter's canonical Go type.
func normalizeAxis(spec paramSpec, values []any) (Axis, error) {
	if len(values) == 0 {
		return Axis{}, fmt.Errorf("%w: %q has an empty value sequence", ErrInvalidAxis, spec.name)
	}
	out := Axis{Name: spec.name, Values: make([]any, len(values))}
	for i, v := range values {
		nv, err := normalizeValue(spec, v)
		if err != nil {
			return Axis{}, err
		}
		out.Values[i] = nv
	}
	return out, nil
}

func normalizeValue(spec paramSpec, v any) (any, error) {
	fail := func() (any, error) {
		return nil, fmt.Errorf("%w: %q cannot hold %v (%T)", ErrInvalidAxis, spec.name, v, v)
	}
	switch spec.kind {
	case KindInt:
		n, ok := asInt64(v)
		if !ok {
			return fail()
		}
		return int(n), nil
	case KindSeed:
		n, ok := asInt64(v)
		if !ok || n <= 0 {
			return fail()
		}
		return n, nil
	case KindFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		default:
			if n, ok := asInt64(v); ok {
				return float64(n), nil
			}
			return fail()
		}
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return fail()
		}
		return b, nil
	case KindEnum:
		s, ok := v.(string)
		if !ok {
			return fail()
		}
		for _, allowed := range spec.enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %q must be one of %v, got %q", ErrInvalidAxis, spec.name, spec.enum, s)
	}
	return fail()
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}

// drawSeed draws the default w.init seed from the process-level source. It
// runs at most once per built grid; the result is stored, never redrawn.
func drawSeed() any {
	return rand.Int63n(math.MaxInt32-1) + 1
}

// AxisOrder returns the canonical parameter order of this grid.
func (g *Grid) AxisOrder() []string { return Names() }

// Axes returns a copy of the normalized axis list, in canonical order.
func (g *Grid) Axes() []Axis {
	out := make([]Axis, len(g.axes))
	for i, a := range g.axes {
		out[i] = Axis{Name: a.Name, Values: append([]any(nil), a.Values...)}
	}
	return out
}

// Axis returns the named axis.
func (g *Grid) Axis(name string) (Axis, bool) {
	for _, a := range g.axes {
		if a.Name == name {
			return a, true
		}
	}
	return Axis{}, false
}

// Size is the total combination count: the product of all axis cardinalities.
func (g *Grid) Size() int { return g.size }

// Radixes returns each axis's cardinality, in canonical order.
func (g *Grid) Radixes() []int {
	out := make([]int, len(g.axes))
	for i, a := range g.axes {
		out[i] = len(a.Values)
	}
	return out
}

// Combination resolves one positional digit per axis into a full parameter
// assignment. Digits follow the canonical axis order.
func (g *Grid) Combination(digits []int) (Combination, error) {
	if len(digits) != len(g.axes) {
		return nil, fmt.Errorf("%w: %d digits for %d axes", ErrInvalidAxis, len(digits), len(g.axes))
	}
	c := make(Combination, len(g.axes))
	for i, a := range g.axes {
		d := digits[i]
		if d < 0 || d >= len(a.Values) {
			return nil, fmt.Errorf("%w: digit %d out of range for %q", ErrInvalidAxis, d, a.Name)
		}
		c[a.Name] = a.Values[d]
	}
	return c, nil
}

// Digits performs the positional inverse of Combination.
func (g *Grid) Digits(c Combination) ([]int, error) {
	digits := make([]int, len(g.axes))
	for i, a := range g.axes {
		v, ok := c[a.Name]
		if !ok {
			return nil, fmt.Errorf("%w: combination is missing %q", ErrInvalidAxis, a.Name)
		}
		nv, err := normalizeValue(mustSpec(a.Name), v)
		if err != nil {
			return nil, err
		}
		found := -1
		for d, candidate := range a.Values {
			if candidate == nv {
				found = d
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("%w: %v is not a candidate of %q", ErrInvalidAxis, v, a.Name)
		}
		digits[i] = found
	}
	return digits, nil
}

func mustSpec(name string) paramSpec {
	s, ok := specFor(name)
	if !ok {
		panic("grid: unrecognized parameter in normalized grid: " + name)
	}
	return s
}
