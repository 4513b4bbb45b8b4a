package executor

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/katiepod/DEXICA/internal/grid"
	"github.com/katiepod/DEXICA/internal/jobspace"
	"github.com/katiepod/DEXICA/internal/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInputs struct {
	comps map[string]*matrix.Dense
	anns  map[string]*matrix.Dense
}

func (f *fakeInputs) Compendium(name string) (*matrix.Dense, error) {
	m, ok := f.comps[name]
	if !ok {
		return nil, fmt.Errorf("no compendium %q", name)
	}
	return m, nil
}

func (f *fakeInputs) Annmat(name string) (*matrix.Dense, error) {
	m, ok := f.anns[name]
	if !ok {
		return nil, fmt.Errorf("no annotation matrix %q", name)
	}
	return m, nil
}

// fixtureInputs builds a 300-gene, 4-array compendium mixed from two
// heavy-tailed sources, plus a single-term annotation matrix covering the
// first 50 genes.
func fixtureInputs(t *testing.T) *fakeInputs {
	t.Helper()
	const genes, arrays = 300, 4

	rng := rand.New(rand.NewSource(21))
	mixing := [][]float64{
		{1.0, 0.4, 0.2, 0.6},
		{0.3, 1.0, 0.7, 0.1},
	}
	comp, err := matrix.NewDense(genes, arrays)
	require.NoError(t, err)
	names := make([]string, genes)
	for i := 0; i < genes; i++ {
		names[i] = fmt.Sprintf("g%03d", i)
		s := make([]float64, len(mixing))
		for c := range s {
			v := rng.ExpFloat64()
			if rng.Intn(2) == 0 {
				v = -v
			}
			s[c] = v
		}
		for j := 0; j < arrays; j++ {
			var sum float64
			for c := range s {
				sum += s[c] * mixing[c][j]
			}
			require.NoError(t, comp.Set(i, j, sum))
		}
	}
	require.NoError(t, comp.SetLabels(names, []string{"a1", "a2", "a3", "a4"}))

	ann, err := matrix.NewDense(genes, 1)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		require.NoError(t, ann.Set(i, 0, 1))
	}
	require.NoError(t, ann.SetLabels(names, []string{"term1"}))

	return &fakeInputs{
		comps: map[string]*matrix.Dense{"wormcomp": comp},
		anns:  map[string]*matrix.Dense{"go_bp": ann},
	}
}

func fixtureJob(t *testing.T, compendium, annmat string) jobspace.Job {
	t.Helper()
	g, err := grid.Build(map[string][]any{
		"n.comp":    {2},
		"w.init":    {4242},
		"maxit":     {2000},
		"threshold": {2.5},
	})
	require.NoError(t, err)

	comb, err := g.Combination(make([]int, len(g.AxisOrder())))
	require.NoError(t, err)
	return jobspace.Job{ID: 1, Compendium: compendium, Annmat: annmat, Params: comb}
}

func TestExecuteOK(t *testing.T) {
	e := New(fixtureInputs(t), 0.05)
	job := fixtureJob(t, "wormcomp", "go_bp")

	res := e.Execute(context.Background(), job)
	assert.Equal(t, StatusOK, res.Status)
	assert.Empty(t, res.FailedStage)
	assert.Empty(t, res.Reason)
	assert.Equal(t, 1, res.JobID)
	assert.Equal(t, "wormcomp", res.Compendium)
	assert.Equal(t, "go_bp", res.Annmat)
	assert.Equal(t, int64(4242), res.Seed)

	// Heavy-tailed weights always push some genes past the fixed cut.
	assert.GreaterOrEqual(t, res.ModuleCount, 1)
	assert.Len(t, res.ModuleSizes, res.ModuleCount)
}

func TestExecuteIsDeterministic(t *testing.T) {
	e := New(fixtureInputs(t), 0.05)
	job := fixtureJob(t, "wormcomp", "go_bp")

	a := e.Execute(context.Background(), job)
	b := e.Execute(context.Background(), job)
	assert.Equal(t, a, b)
}

func TestExecuteUnknownCompendium(t *testing.T) {
	e := New(fixtureInputs(t), 0.05)
	job := fixtureJob(t, "missing", "go_bp")

	res := e.Execute(context.Background(), job)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, StagePreprocessing, res.FailedStage)
	assert.Contains(t, res.Reason, "missing")
	assert.Equal(t, int64(4242), res.Seed)
}

func TestExecuteBadParamsFailPredicting(t *testing.T) {
	e := New(fixtureInputs(t), 0.05)
	job := fixtureJob(t, "wormcomp", "go_bp")

	// More components than arrays cannot be extracted.
	job.Params = job.Params.Clone()
	job.Params["n.comp"] = 9

	res := e.Execute(context.Background(), job)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, StagePredicting, res.FailedStage)
	assert.NotEmpty(t, res.Reason)
}

func TestExecuteUnknownAnnmat(t *testing.T) {
	e := New(fixtureInputs(t), 0.05)
	job := fixtureJob(t, "wormcomp", "missing")

	res := e.Execute(context.Background(), job)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, StageEvaluating, res.FailedStage)
}

func TestExecuteRecordsCombination(t *testing.T) {
	e := New(fixtureInputs(t), 0.05)
	job := fixtureJob(t, "wormcomp", "go_bp")

	res := e.Execute(context.Background(), job)
	require.NotNil(t, res.Params)
	assert.Equal(t, 2, res.Params["n.comp"])
	assert.Equal(t, "fixed", res.Params["partition"])

	// The recorded combination is a copy, not an alias of the job's map.
	res.Params["n.comp"] = 99
	assert.Equal(t, 2, job.Params["n.comp"])
}
