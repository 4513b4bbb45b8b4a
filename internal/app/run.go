package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/katiepod/DEXICA/internal/batch"
	"github.com/katiepod/DEXICA/internal/ctxlog"
	"github.com/katiepod/DEXICA/internal/grid"
	"github.com/katiepod/DEXICA/internal/hclcfg"
	"github.com/katiepod/DEXICA/internal/jobspace"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run started.", "command", a.config.Command)

	switch a.config.Command {
	case CommandPlan:
		return a.plan(ctx)
	case CommandCount:
		return a.count(ctx)
	case CommandRun:
		return a.runJob(ctx)
	default:
		// NewConfig rejects unknown commands; this is unreachable.
		return fmt.Errorf("unknown command %q", a.config.Command)
	}
}

// plan loads a design file, builds and validates one handle per batch block,
// saves the bundles, and reports job counts. Configuration errors here are
// unrecoverable and surface immediately to the operator.
func (a *App) plan(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	designs, err := hclcfg.LoadFile(a.config.DesignPath)
	if err != nil {
		return err
	}
	if a.config.BundlePath != "" && len(designs) > 1 {
		return fmt.Errorf("-bundle names a single file but %s defines %d batches", a.config.DesignPath, len(designs))
	}

	for _, design := range designs {
		handle, err := buildHandle(design)
		if err != nil {
			return fmt.Errorf("batch %q: %w", design.Name, err)
		}

		bundlePath := a.config.BundlePath
		if bundlePath == "" {
			bundlePath = bundleFileName(design.Name)
		}
		if err := handle.Save(bundlePath); err != nil {
			return fmt.Errorf("batch %q: %w", design.Name, err)
		}

		logger.Info("Batch planned.", "batch", design.Name, "jobs", handle.CountJobs(), "bundle", bundlePath)
		fmt.Fprintf(a.outW, "planned batch %q: %d jobs, bundle %s, output %s\n",
			design.Name, handle.CountJobs(), bundlePath, handle.Output())
	}
	return nil
}

// buildHandle turns one decoded design into a validated, addressable handle.
func buildHandle(design *hclcfg.Design) (*batch.Handle, error) {
	g, err := grid.Build(design.Grid)
	if err != nil {
		return nil, err
	}
	compendia := jobspace.NewNamedCollection[string]()
	for _, in := range design.Compendia {
		if err := compendia.Add(in.Name, in.Path); err != nil {
			return nil, err
		}
	}
	annmats := jobspace.NewNamedCollection[string]()
	for _, in := range design.Annotations {
		if err := annmats.Add(in.Name, in.Path); err != nil {
			return nil, err
		}
	}
	return batch.New(design.Name, compendia, annmats, g, design.Output)
}

func bundleFileName(batchName string) string {
	name := strings.ReplaceAll(batchName, "/", "_")
	return name + ".batch.yaml"
}

func (a *App) count(ctx context.Context) error {
	handle, err := batch.Load(a.config.BundlePath)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Bundle loaded.", "batch", handle.Name(), "jobs", handle.CountJobs())
	fmt.Fprintf(a.outW, "%d\n", handle.CountJobs())
	return nil
}

func (a *App) runJob(ctx context.Context) error {
	handle, err := batch.Load(a.config.BundlePath)
	if err != nil {
		return err
	}
	return handle.RunJob(ctx, a.config.JobID)
}
