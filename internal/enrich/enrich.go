// Package enrich evaluates predicted hemi-modules against a binary
// annotation matrix by hypergeometric enrichment with Benjamini-Hochberg
// false-discovery-rate correction across all tested (annotation × hemi-module)
// pairs.
package enrich

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/katiepod/DEXICA/internal/matrix"
	"github.com/katiepod/DEXICA/internal/partition"
)

// ErrNoOverlap is returned when the module gene universe and the annotation
// matrix share no genes, which makes every test vacuous.
var ErrNoOverlap = errors.New("enrich: no genes shared between compendium and annotation matrix")

// Summary is the per-job evaluation outcome stored in the result record.
// The full per-pair adjusted p-value table is returned alongside but never
// written to the shared sink.
type Summary struct {
	AnnsSignificant int
	ModsSignificant int
	ModuleCount     int
	ModuleSizes     []int
}

// Pair is one tested (annotation, hemi-module) combination.
type Pair struct {
	Annotation string
	Module     string
	Overlap    int
	P          float64
	AdjustedP  float64
}

// Evaluate tests every hemi-module against every annotation column. geneNames
// labels the rows of the source matrix the modules index into; annotation
// rows are matched to it by name. alpha is the FDR significance level.
func Evaluate(mods []partition.HemiModule, geneNames []string, ann *matrix.Dense, alpha float64) (Summary, []Pair, error) {
	if alpha <= 0 || alpha >= 1 {
		return Summary{}, nil, fmt.Errorf("enrich: alpha %g not in (0,1)", alpha)
	}

	// Restrict the universe to genes present in both inputs.
	annIdx := ann.RowIndex()
	universe := make([]int, 0, len(geneNames)) // annotation row per module-universe gene
	moduleRow := make(map[int]int)             // source row -> position in universe
	for i, name := range geneNames {
		if j, ok := annIdx[name]; ok {
			moduleRow[i] = len(universe)
			universe = append(universe, j)
		}
	}
	n := len(universe)
	if n == 0 {
		return Summary{}, nil, ErrNoOverlap
	}

	// Per-annotation membership over the shared universe.
	terms := ann.Cols()
	annotated := make([][]bool, terms)
	annCount := make([]int, terms)
	for t := 0; t < terms; t++ {
		annotated[t] = make([]bool, n)
		for u, row := range universe {
			v, _ := ann.At(row, t)
			if v != 0 {
				annotated[t][u] = true
				annCount[t]++
			}
		}
	}

	summary := Summary{ModuleCount: len(mods)}
	var pairs []Pair
	for _, mod := range mods {
		// Project the module onto the shared universe.
		members := make([]int, 0, len(mod.Genes))
		for _, g := range mod.Genes {
			if u, ok := moduleRow[g]; ok {
				members = append(members, u)
			}
		}
		summary.ModuleSizes = append(summary.ModuleSizes, len(mod.Genes))
		if len(members) == 0 {
			continue
		}
		for t := 0; t < terms; t++ {
			if annCount[t] == 0 {
				continue
			}
			overlap := 0
			for _, u := range members {
				if annotated[t][u] {
					overlap++
				}
			}
			name := ""
			if ann.ColNames != nil {
				name = ann.ColNames[t]
			}
			pairs = append(pairs, Pair{
				Annotation: name,
				Module:     mod.Name(),
				Overlap:    overlap,
				P:          hyperUpperTail(n, annCount[t], len(members), overlap),
			})
		}
	}

	adjustBH(pairs)

	sigAnns := make(map[string]struct{})
	sigMods := make(map[string]struct{})
	for _, p := range pairs {
		if p.AdjustedP <= alpha {
			sigAnns[p.Annotation] = struct{}{}
			sigMods[p.Module] = struct{}{}
		}
	}
	summary.AnnsSignificant = len(sigAnns)
	summary.ModsSignificant = len(sigMods)
	return summary, pairs, nil
}

// hyperUpperTail returns P(X >= k) for X hypergeometric with population n,
// successes kk, and draws d, computed in log space.
func hyperUpperTail(n, kk, d, k int) float64 {
	if k <= 0 {
		return 1
	}
	max := d
	if kk < max {
		max = kk
	}
	if k > max {
		return 0
	}
	denom := logChoose(n, d)
	var total float64
	for i := k; i <= max; i++ {
		if d-i > n-kk {
			continue // more non-successes drawn than exist
		}
		total += math.Exp(logChoose(kk, i) + logChoose(n-kk, d-i) - denom)
	}
	if total > 1 {
		total = 1
	}
	return total
}

func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	ln1, _ := math.Lgamma(float64(n + 1))
	lk1, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - lk1 - lnk
}

// adjustBH fills AdjustedP with Benjamini-Hochberg adjusted p-values.
func adjustBH(pairs []Pair) {
	m := len(pairs)
	if m == 0 {
		return
	}
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return pairs[order[a]].P < pairs[order[b]].P })

	// Walk from largest rank down, enforcing monotonicity.
	prev := 1.0
	for rank := m; rank >= 1; rank-- {
		i := order[rank-1]
		adj := pairs[i].P * float64(m) / float64(rank)
		if adj > prev {
			adj = prev
		}
		pairs[i].AdjustedP = adj
		prev = adj
	}
}
