// Package jobspace composes the named input collections with a parameter grid
// into one dense, addressable space of jobs, and provides the bijection
// between an integer job id and a concrete (compendium, annotation set,
// parameter combination) triple.
//
// The space is a mixed-radix number system. The radix list, outermost first,
// is [|compendia|, |annmats|, |axis₁|, ..., |axisₖ|] with the grid axes in
// their canonical order. Job ids are the dense range [1, Total()]; id 1 is
// the all-zeros digit vector and id Total() the all-maximum one. Decoding
// needs only the (small, serializable) space description and O(axes) work,
// so any worker process can recover its configuration from its integer id
// alone, with no shared state and no materialized combination list.
package jobspace

import (
	"errors"
	"fmt"

	"github.com/katiepod/DEXICA/internal/grid"
)

var (
	// ErrJobIDOutOfRange is returned by Decode for ids outside [1, Total()].
	// There is no job id 0.
	ErrJobIDOutOfRange = errors.New("jobspace: job id out of range")

	// ErrEmptySpace is returned when a space is built without at least one
	// compendium and one annotation set.
	ErrEmptySpace = errors.New("jobspace: need at least one compendium and one annotation set")

	// ErrForeignJob is returned by Encode for a job not constructible from
	// this space.
	ErrForeignJob = errors.New("jobspace: job does not belong to this space")
)

// Job is one fully self-describing unit of work. It carries no reference to
// mutable batch state.
type Job struct {
	ID         int
	Compendium string
	Annmat     string
	Params     grid.Combination
}

// Space is the addressable composition of compendium names, annotation-set
// names, and a parameter grid. Order of the name lists is significant: it
// participates in decoding.
type Space struct {
	compendia []string
	annmats   []string
	grid      *grid.Grid
	radixes   []int
	total     int
}

// New builds a space. The total job count is
// |compendia| × |annmats| × grid.Size(), guarded by grid.MaxSize.
func New(compendia, annmats []string, g *grid.Grid) (*Space, error) {
	if len(compendia) == 0 || len(annmats) == 0 {
		return nil, ErrEmptySpace
	}
	radixes := make([]int, 0, 2+len(g.Radixes()))
	radixes = append(radixes, len(compendia), len(annmats))
	radixes = append(radixes, g.Radixes()...)

	total := 1
	for _, r := range radixes {
		total *= r
		if total > grid.MaxSize {
			return nil, fmt.Errorf("%w (max %d)", grid.ErrGridTooLarge, grid.MaxSize)
		}
	}
	return &Space{
		compendia: append([]string(nil), compendia...),
		annmats:   append([]string(nil), annmats...),
		grid:      g,
		radixes:   radixes,
		total:     total,
	}, nil
}

// Total is the job count; valid ids are exactly [1, Total()].
func (s *Space) Total() int { return s.total }

// Grid returns the space's parameter grid.
func (s *Space) Grid() *grid.Grid { return s.grid }

// Compendia returns the ordered compendium names.
func (s *Space) Compendia() []string { return append([]string(nil), s.compendia...) }

// Annmats returns the ordered annotation-set names.
func (s *Space) Annmats() []string { return append([]string(nil), s.annmats...) }

// Decode maps a job id to its unique configuration triple. Enumerating ids
// 1..Total() visits every combination exactly once, compendia varying
// slowest and the last grid axis fastest.
func (s *Space) Decode(id int) (Job, error) {
	if id < 1 || id > s.total {
		return Job{}, fmt.Errorf("%w: %d not in [1, %d]", ErrJobIDOutOfRange, id, s.total)
	}

	// Peel digits innermost-first, then read them back in canonical order.
	idx := id - 1
	digits := make([]int, len(s.radixes))
	for i := len(s.radixes) - 1; i >= 0; i-- {
		digits[i] = idx % s.radixes[i]
		idx /= s.radixes[i]
	}

	params, err := s.grid.Combination(digits[2:])
	if err != nil {
		return Job{}, err
	}
	return Job{
		ID:         id,
		Compendium: s.compendia[digits[0]],
		Annmat:     s.annmats[digits[1]],
		Params:     params,
	}, nil
}

// Encode maps a job back to its id by Horner accumulation over the canonical
// radix order. Encode(Decode(id)) == id for every valid id.
func (s *Space) Encode(j Job) (int, error) {
	digits := make([]int, 0, len(s.radixes))

	ci := indexOf(s.compendia, j.Compendium)
	if ci < 0 {
		return 0, fmt.Errorf("%w: unknown compendium %q", ErrForeignJob, j.Compendium)
	}
	ai := indexOf(s.annmats, j.Annmat)
	if ai < 0 {
		return 0, fmt.Errorf("%w: unknown annotation set %q", ErrForeignJob, j.Annmat)
	}
	digits = append(digits, ci, ai)

	gridDigits, err := s.grid.Digits(j.Params)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrForeignJob, err)
	}
	digits = append(digits, gridDigits...)

	idx := 0
	for i, d := range digits {
		idx = idx*s.radixes[i] + d
	}
	return idx + 1, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
