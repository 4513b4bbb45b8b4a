// Package batch owns the BatchHandle: the immutable, serializable bundle of
// named input compendia, named annotation sets, a parameter grid, and an
// output target. A handle is constructed once per analysis design, saved to a
// bundle file, and distributed; every worker reconstructs the identical job
// space from the bundle and needs nothing but its integer job id beyond that.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/katiepod/DEXICA/internal/ctxlog"
	"github.com/katiepod/DEXICA/internal/executor"
	"github.com/katiepod/DEXICA/internal/grid"
	"github.com/katiepod/DEXICA/internal/jobspace"
	"github.com/katiepod/DEXICA/internal/matrix"
	"github.com/katiepod/DEXICA/internal/sink"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoOutput is returned when a handle is built without an output target.
	ErrNoOutput = errors.New("batch: output target is required")

	// ErrBadBundle is returned when a bundle file cannot be reconstructed
	// into a handle.
	ErrBadBundle = errors.New("batch: malformed bundle")
)

// Handle is the addressable batch. Immutable after construction; the output
// target is write-only and append-only.
type Handle struct {
	id        string
	name      string
	compendia *jobspace.NamedCollection[string] // name → matrix file path
	annmats   *jobspace.NamedCollection[string]
	output    string
	space     *jobspace.Space
	evalAlpha float64
}

// New builds a handle from named input paths, a grid, and an output target.
// The collections' insertion order becomes the decode order.
func New(name string, compendia, annmats *jobspace.NamedCollection[string], g *grid.Grid, output string) (*Handle, error) {
	if output == "" {
		return nil, ErrNoOutput
	}
	space, err := jobspace.New(compendia.Names(), annmats.Names(), g)
	if err != nil {
		return nil, err
	}
	return &Handle{
		id:        uuid.NewString(),
		name:      name,
		compendia: compendia,
		annmats:   annmats,
		output:    output,
		space:     space,
		evalAlpha: 0.05,
	}, nil
}

// ID is the batch identity stamped into every result record.
func (h *Handle) ID() string { return h.id }

// Name is the operator-chosen batch label.
func (h *Handle) Name() string { return h.name }

// Output is the shared result target.
func (h *Handle) Output() string { return h.output }

// Space exposes the job space for decode/encode.
func (h *Handle) Space() *jobspace.Space { return h.space }

// CountJobs returns the total job count; valid ids are [1, CountJobs()].
func (h *Handle) CountJobs() int { return h.space.Total() }

// RunJob decodes one job id, executes the pipeline, and appends the result
// to the output target. Decoding failures propagate without side effects.
// Re-running an id appends a second record: result history is append-only,
// and re-dispatch after a transient worker failure is the scheduler's call.
func (h *Handle) RunJob(ctx context.Context, id int) error {
	logger := ctxlog.FromContext(ctx)

	job, err := h.space.Decode(id)
	if err != nil {
		return err
	}
	logger.Info("🚀 Executing job.", "job", id, "of", h.space.Total(), "batch", h.name)

	exec := executor.New(h.inputs(), h.evalAlpha)
	res := exec.Execute(ctx, job)

	if err := sink.Append(ctx, h.output, sink.FromResult(h.id, res)); err != nil {
		return err
	}
	logger.Info("🏁 Result appended.", "job", id, "status", res.Status, "target", h.output)
	return nil
}

// inputs adapts the path collections to the executor's matrix resolver.
func (h *Handle) inputs() executor.Inputs {
	return &fileInputs{compendia: h.compendia, annmats: h.annmats}
}

type fileInputs struct {
	compendia *jobspace.NamedCollection[string]
	annmats   *jobspace.NamedCollection[string]
}

func (fi *fileInputs) Compendium(name string) (*matrix.Dense, error) {
	return loadNamed(fi.compendia, "compendium", name)
}

func (fi *fileInputs) Annmat(name string) (*matrix.Dense, error) {
	return loadNamed(fi.annmats, "annotation set", name)
}

func loadNamed(c *jobspace.NamedCollection[string], kind, name string) (*matrix.Dense, error) {
	path, ok := c.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown %s %q", kind, name)
	}
	return matrix.ReadFile(path)
}

// bundle is the on-disk YAML form of a handle.
type bundle struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Output    string        `yaml:"output"`
	Compendia []bundleInput `yaml:"compendia"`
	Annmats   []bundleInput `yaml:"annotations"`
	Axes      []grid.Axis   `yaml:"grid"`
}

type bundleInput struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Save writes the handle's bundle file.
func (h *Handle) Save(path string) error {
	b := bundle{
		ID:     h.id,
		Name:   h.name,
		Output: h.output,
		Axes:   h.space.Grid().Axes(),
	}
	for _, name := range h.compendia.Names() {
		p, _ := h.compendia.Get(name)
		b.Compendia = append(b.Compendia, bundleInput{Name: name, Path: p})
	}
	for _, name := range h.annmats.Names() {
		p, _ := h.annmats.Get(name)
		b.Annmats = append(b.Annmats, bundleInput{Name: name, Path: p})
	}
	data, err := yaml.Marshal(&b)
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	return nil
}

// Load reconstructs a handle from a bundle file. The grid is rebuilt from the
// stored axes verbatim — defaults (including the captured w.init seed) are
// never re-derived, so a reloaded handle decodes exactly as the original.
func Load(path string) (*Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	var b bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBundle, err)
	}
	if b.ID == "" || b.Output == "" {
		return nil, fmt.Errorf("%w: missing id or output", ErrBadBundle)
	}

	g, err := grid.FromAxes(b.Axes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBundle, err)
	}
	compendia := jobspace.NewNamedCollection[string]()
	for _, in := range b.Compendia {
		if err := compendia.Add(in.Name, in.Path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadBundle, err)
		}
	}
	annmats := jobspace.NewNamedCollection[string]()
	for _, in := range b.Annmats {
		if err := annmats.Add(in.Name, in.Path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadBundle, err)
		}
	}
	space, err := jobspace.New(compendia.Names(), annmats.Names(), g)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBundle, err)
	}
	return &Handle{
		id:        b.ID,
		name:      b.Name,
		compendia: compendia,
		annmats:   annmats,
		output:    b.Output,
		space:     space,
		evalAlpha: 0.05,
	}, nil
}
