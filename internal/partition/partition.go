// Package partition converts the continuous per-gene weights of each ICA
// component into discrete module membership. Every component splits into two
// disjoint hemi-modules: genes with strongly positive weights and genes with
// strongly negative weights.
package partition

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/katiepod/DEXICA/internal/matrix"
)

// Method names accepted by the sweep's `partition` axis.
const (
	MethodFixed    = "fixed"
	MethodAdaptive = "adaptive"
)

// ErrBadThreshold is returned for non-positive fixed thresholds.
var ErrBadThreshold = errors.New("partition: threshold must be positive")

// ErrUnknownMethod is returned for unrecognized partition method names.
var ErrUnknownMethod = errors.New("partition: unknown method")

// HemiModule is one signed half of a partitioned component. Genes holds row
// indices into the source matrix the partitioner was given.
type HemiModule struct {
	Component int   // 1-based component number
	Sign      int   // +1 or -1
	Genes     []int // ascending row indices
}

// Name renders the conventional hemi-module label, e.g. "IC3+".
func (h HemiModule) Name() string {
	sign := "+"
	if h.Sign < 0 {
		sign = "-"
	}
	return fmt.Sprintf("IC%d%s", h.Component, sign)
}

// Partitioner turns a source matrix (genes × components) into hemi-modules.
// Empty hemi-modules are omitted from the result.
type Partitioner interface {
	Partition(s *matrix.Dense) ([]HemiModule, error)
}

// New returns the partitioner for a method name and its threshold parameter.
func New(method string, threshold float64) (Partitioner, error) {
	switch method {
	case MethodFixed:
		if threshold <= 0 {
			return nil, fmt.Errorf("%w: got %g", ErrBadThreshold, threshold)
		}
		return &Fixed{Threshold: threshold}, nil
	case MethodAdaptive:
		return &Adaptive{Floor: threshold}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// Fixed assigns a gene to a hemi-module when its weight lies more than
// Threshold standard deviations from the component mean.
type Fixed struct {
	Threshold float64
}

// Partition implements Partitioner.
func (f *Fixed) Partition(s *matrix.Dense) ([]HemiModule, error) {
	if f.Threshold <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrBadThreshold, f.Threshold)
	}
	var mods []HemiModule
	for c := 0; c < s.Cols(); c++ {
		col, err := s.Col(c)
		if err != nil {
			return nil, err
		}
		mu, sd := meanStddev(col)
		if sd == 0 {
			continue // constant component carries no membership signal
		}
		mods = appendSplit(mods, c+1, col, mu+f.Threshold*sd, mu-f.Threshold*sd)
	}
	return mods, nil
}

// Adaptive estimates each component's spread robustly (median and MAD) and
// derives a per-component cut from the expected extreme of that many draws,
// so heavy-tailed components do not flood their hemi-modules. Floor bounds
// the cut from below; the zero value falls back to 3.
type Adaptive struct {
	Floor float64
}

// Partition implements Partitioner.
func (a *Adaptive) Partition(s *matrix.Dense) ([]HemiModule, error) {
	floor := a.Floor
	if floor <= 0 {
		floor = 3
	}
	n := s.Rows()
	// Cut at the z-score where a standard normal of this size would be
	// expected to produce half a false member per tail.
	cut := quantileZ(0.5 / float64(n))
	if cut < floor {
		cut = floor
	}
	var mods []HemiModule
	for c := 0; c < s.Cols(); c++ {
		col, err := s.Col(c)
		if err != nil {
			return nil, err
		}
		med, mad := medianMAD(col)
		if mad == 0 {
			continue
		}
		sd := mad * 1.4826 // normal-consistency factor
		mods = appendSplit(mods, c+1, col, med+cut*sd, med-cut*sd)
	}
	return mods, nil
}

// appendSplit collects the positive and negative hemi-modules of one
// component, skipping empty halves.
func appendSplit(mods []HemiModule, component int, col []float64, upper, lower float64) []HemiModule {
	var pos, neg []int
	for i, v := range col {
		switch {
		case v > upper:
			pos = append(pos, i)
		case v < lower:
			neg = append(neg, i)
		}
	}
	if len(pos) > 0 {
		mods = append(mods, HemiModule{Component: component, Sign: 1, Genes: pos})
	}
	if len(neg) > 0 {
		mods = append(mods, HemiModule{Component: component, Sign: -1, Genes: neg})
	}
	return mods
}

func meanStddev(xs []float64) (mu, sd float64) {
	for _, x := range xs {
		mu += x
	}
	mu /= float64(len(xs))
	if len(xs) < 2 {
		return mu, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mu
		ss += d * d
	}
	return mu, math.Sqrt(ss / float64(len(xs)-1))
}

func medianMAD(xs []float64) (med, mad float64) {
	med = median(xs)
	dev := make([]float64, len(xs))
	for i, x := range xs {
		dev[i] = math.Abs(x - med)
	}
	return med, median(dev)
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// quantileZ returns the standard-normal z with upper-tail probability q.
func quantileZ(q float64) float64 {
	if q <= 0 {
		return math.Inf(1)
	}
	if q >= 1 {
		return math.Inf(-1)
	}
	return math.Sqrt2 * math.Erfinv(1-2*q)
}
