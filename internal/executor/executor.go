// Package executor runs one decoded job through the fixed four-stage
// pipeline: preprocess → predict → partition → evaluate. A stage failure
// never reaches the caller as an error; it becomes a failed Result, so one
// bad parameter combination cannot poison an independently dispatched sweep.
package executor

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/katiepod/DEXICA/internal/ctxlog"
	"github.com/katiepod/DEXICA/internal/enrich"
	"github.com/katiepod/DEXICA/internal/grid"
	"github.com/katiepod/DEXICA/internal/ica"
	"github.com/katiepod/DEXICA/internal/jobspace"
	"github.com/katiepod/DEXICA/internal/matrix"
	"github.com/katiepod/DEXICA/internal/partition"
	"github.com/katiepod/DEXICA/internal/preprocess"
)

// Stage names the pipeline states; it appears verbatim in failed records.
type Stage string

const (
	StagePreprocessing Stage = "preprocessing"
	StagePredicting    Stage = "predicting"
	StagePartitioning  Stage = "partitioning"
	StageEvaluating    Stage = "evaluating"
)

// Status values of a finished job.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Inputs resolves the named matrices a decoded job refers to. Workers load
// from files; tests inject fixtures.
type Inputs interface {
	Compendium(name string) (*matrix.Dense, error)
	Annmat(name string) (*matrix.Dense, error)
}

// Result is the self-describing outcome of one job. It carries enough to
// reconstruct the run (input names, the full combination, the resolved seed)
// plus the evaluation summary — never the full S/A matrices.
type Result struct {
	JobID      int
	Compendium string
	Annmat     string
	Params     grid.Combination
	Seed       int64

	Status      string
	FailedStage Stage
	Reason      string

	AnnsSignificant int
	ModsSignificant int
	ModuleCount     int
	ModuleSizes     []int
}

// Executor executes decoded jobs. It holds no per-job state; Execute is safe
// to call concurrently and repeatedly.
type Executor struct {
	inputs Inputs
	alpha  float64 // FDR significance level for the evaluation stage
}

// New returns an executor reading from inputs and evaluating at the given
// FDR level. A non-positive alpha falls back to 0.05.
func New(inputs Inputs, alpha float64) *Executor {
	if alpha <= 0 {
		alpha = 0.05
	}
	return &Executor{inputs: inputs, alpha: alpha}
}

// Execute runs the pipeline for one decoded job and always returns a Result;
// failures are recorded in it, never raised.
func (e *Executor) Execute(ctx context.Context, job jobspace.Job) Result {
	logger := ctxlog.FromContext(ctx).With("job", job.ID, "compendium", job.Compendium, "annmat", job.Annmat)

	res := Result{
		JobID:      job.ID,
		Compendium: job.Compendium,
		Annmat:     job.Annmat,
		Params:     job.Params.Clone(),
	}

	settings, err := job.Params.Settings()
	if err != nil {
		// A combination that fails to decode is a construction-time bug,
		// but workers still record it instead of dying.
		return fail(logger, res, StagePreprocessing, err)
	}
	res.Seed = settings.WInit

	// Preprocessing.
	logger.Debug("Stage started.", "stage", StagePreprocessing)
	comp, err := e.inputs.Compendium(job.Compendium)
	if err != nil {
		return fail(logger, res, StagePreprocessing, err)
	}
	prepped := preprocess.Run(comp, preprocess.Options{
		CenterCols: settings.CenterCols,
		ScaleCols:  settings.ScaleCols,
		RowNorm:    settings.RowNorm,
	})

	// Predicting. The random context is job-local, derived solely from the
	// resolved w.init seed — never from a shared generator or the clock.
	logger.Debug("Stage started.", "stage", StagePredicting)
	rng := rand.New(rand.NewSource(settings.WInit))
	s, _, err := ica.Predict(prepped, ica.Params{
		NComp: settings.NComp,
		Alg:   settings.AlgTyp,
		Fun:   settings.Fun,
		Alpha: settings.Alpha,
		MaxIt: settings.MaxIt,
		Tol:   settings.Tol,
	}, rng)
	if err != nil {
		return fail(logger, res, StagePredicting, err)
	}

	// Partitioning.
	logger.Debug("Stage started.", "stage", StagePartitioning)
	part, err := partition.New(settings.Partition, settings.Threshold)
	if err != nil {
		return fail(logger, res, StagePartitioning, err)
	}
	mods, err := part.Partition(s)
	if err != nil {
		return fail(logger, res, StagePartitioning, err)
	}

	// Evaluating.
	logger.Debug("Stage started.", "stage", StageEvaluating)
	ann, err := e.inputs.Annmat(job.Annmat)
	if err != nil {
		return fail(logger, res, StageEvaluating, err)
	}
	summary, _, err := enrich.Evaluate(mods, s.RowNames, ann, e.alpha)
	if err != nil {
		return fail(logger, res, StageEvaluating, err)
	}

	res.Status = StatusOK
	res.AnnsSignificant = summary.AnnsSignificant
	res.ModsSignificant = summary.ModsSignificant
	res.ModuleCount = summary.ModuleCount
	res.ModuleSizes = summary.ModuleSizes
	logger.Info("✅ Job finished.", "modules", res.ModuleCount, "anns_signif", res.AnnsSignificant, "mods_signif", res.ModsSignificant)
	return res
}

func fail(logger *slog.Logger, res Result, stage Stage, err error) Result {
	res.Status = StatusFailed
	res.FailedStage = stage
	res.Reason = err.Error()
	logger.Warn("Job stage failed.", "stage", stage, "error", err)
	return res
}
