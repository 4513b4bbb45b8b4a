package grid

import (
	"errors"
	"fmt"
)

// ErrBadCombination is returned when a combination's values cannot be decoded
// into typed settings.
var ErrBadCombination = errors.New("grid: malformed parameter combination")

// Combination is one fully resolved assignment: exactly one value per
// recognized parameter.
type Combination map[string]any

// Settings is the typed view of a combination, consumed by the pipeline.
type Settings struct {
	NComp      int
	CenterCols bool
	ScaleCols  bool
	WInit      int64
	AlgTyp     string
	Fun        string
	Alpha      float64
	RowNorm    bool
	MaxIt      int
	Tol        float64
	Partition  string
	Threshold  float64
}

// Settings decodes the combination into its typed form.
func (c Combination) Settings() (Settings, error) {
	var s Settings
	var err error
	get := func(name string) any {
		v, ok := c[name]
		if !ok && err == nil {
			err = fmt.Errorf("%w: missing %q", ErrBadCombination, name)
		}
		return v
	}
	intOf := func(name string) int {
		n, ok := asInt64(get(name))
		if !ok && err == nil {
			err = fmt.Errorf("%w: %q is not an integer", ErrBadCombination, name)
		}
		return int(n)
	}
	floatOf := func(name string) float64 {
		switch x := get(name).(type) {
		case float64:
			return x
		case int:
			return float64(x)
		case int64:
			return float64(x)
		default:
			if err == nil {
				err = fmt.Errorf("%w: %q is not numeric", ErrBadCombination, name)
			}
			return 0
		}
	}
	boolOf := func(name string) bool {
		b, ok := get(name).(bool)
		if !ok && err == nil {
			err = fmt.Errorf("%w: %q is not a bool", ErrBadCombination, name)
		}
		return b
	}
	stringOf := func(name string) string {
		v, ok := get(name).(string)
		if !ok && err == nil {
			err = fmt.Errorf("%w: %q is not a string", ErrBadCombination, name)
		}
		return v
	}

	s.NComp = intOf("n.comp")
	s.CenterCols = boolOf("center.cols")
	s.ScaleCols = boolOf("scale.cols")
	if n, ok := asInt64(get("w.init")); ok {
		s.WInit = n
	} else if err == nil {
		err = fmt.Errorf("%w: %q is not an integer seed", ErrBadCombination, "w.init")
	}
	s.AlgTyp = stringOf("alg.typ")
	s.Fun = stringOf("fun")
	s.Alpha = floatOf("alpha")
	s.RowNorm = boolOf("row.norm")
	s.MaxIt = intOf("maxit")
	s.Tol = floatOf("tol")
	s.Partition = stringOf("partition")
	s.Threshold = floatOf("threshold")
	if err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Clone returns an independent copy of the combination.
func (c Combination) Clone() Combination {
	out := make(Combination, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
