package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/katiepod/DEXICA/internal/jobspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDesign(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "design.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func wormDesign(output string) string {
	return fmt.Sprintf(`
batch "worm" {
  output = %q

  compendium "wormcomp" { path = "data/wormcomp.tsv" }
  annotation "go_bp"    { path = "data/go_bp.tsv" }

  grid {
    n_comp      = [5, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95, 100]
    center_cols = [true, false]
    scale_cols  = [true, false]
  }
}
`, output)
}

func newApp(t *testing.T, cfg Config) (*App, *bytes.Buffer) {
	t.Helper()
	config, err := NewConfig(cfg)
	require.NoError(t, err)
	var out bytes.Buffer
	return New(&out, &bytes.Buffer{}, config), &out
}

func TestPlanThenCount(t *testing.T) {
	dir := t.TempDir()
	design := writeDesign(t, dir, wormDesign(filepath.Join(dir, "results.jsonl")))
	bundle := filepath.Join(dir, "worm.batch.yaml")

	planApp, planOut := newApp(t, Config{
		Command:    CommandPlan,
		DesignPath: design,
		BundlePath: bundle,
		LogFormat:  "text",
		LogLevel:   "warn",
	})
	require.NoError(t, planApp.Run(context.Background()))
	assert.Contains(t, planOut.String(), `planned batch "worm": 80 jobs`)
	assert.FileExists(t, bundle)

	countApp, countOut := newApp(t, Config{
		Command:    CommandCount,
		BundlePath: bundle,
		LogFormat:  "text",
		LogLevel:   "warn",
	})
	require.NoError(t, countApp.Run(context.Background()))
	assert.Equal(t, "80\n", countOut.String())
}

func TestPlanDefaultBundleName(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(oldWD)) })
	design := writeDesign(t, dir, wormDesign(filepath.Join(dir, "results.jsonl")))

	app, out := newApp(t, Config{
		Command:    CommandPlan,
		DesignPath: design,
		LogFormat:  "text",
		LogLevel:   "warn",
	})
	require.NoError(t, app.Run(context.Background()))
	assert.FileExists(t, filepath.Join(dir, "worm.batch.yaml"))
	assert.Contains(t, out.String(), "worm.batch.yaml")
}

func TestPlanRejectsBundleFlagForMultipleBatches(t *testing.T) {
	dir := t.TempDir()
	src := `
batch "one" {
  output = "one.jsonl"
  compendium "c" { path = "c.tsv" }
  annotation "a" { path = "a.tsv" }
}

batch "two" {
  output = "two.jsonl"
  compendium "c" { path = "c.tsv" }
  annotation "a" { path = "a.tsv" }
}
`
	design := writeDesign(t, dir, src)

	app, _ := newApp(t, Config{
		Command:    CommandPlan,
		DesignPath: design,
		BundlePath: filepath.Join(dir, "only-one.batch.yaml"),
		LogFormat:  "text",
		LogLevel:   "warn",
	})
	err := app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 batches")
}

func TestPlanRejectsUnknownParameter(t *testing.T) {
	dir := t.TempDir()
	src := `
batch "x" {
  output = "x.jsonl"
  compendium "c" { path = "c.tsv" }
  annotation "a" { path = "a.tsv" }
  grid {
    n_components = [5]
  }
}
`
	design := writeDesign(t, dir, src)

	app, _ := newApp(t, Config{
		Command:    CommandPlan,
		DesignPath: design,
		BundlePath: filepath.Join(dir, "x.batch.yaml"),
		LogFormat:  "text",
		LogLevel:   "warn",
	})
	err := app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "n.components")
}

func TestRunRejectsOutOfRangeJob(t *testing.T) {
	dir := t.TempDir()
	design := writeDesign(t, dir, wormDesign(filepath.Join(dir, "results.jsonl")))
	bundle := filepath.Join(dir, "worm.batch.yaml")

	planApp, _ := newApp(t, Config{
		Command:    CommandPlan,
		DesignPath: design,
		BundlePath: bundle,
		LogFormat:  "text",
		LogLevel:   "warn",
	})
	require.NoError(t, planApp.Run(context.Background()))

	runApp, _ := newApp(t, Config{
		Command:    CommandRun,
		BundlePath: bundle,
		JobID:      81,
		LogFormat:  "text",
		LogLevel:   "warn",
	})
	err := runApp.Run(context.Background())
	assert.ErrorIs(t, err, jobspace.ErrJobIDOutOfRange)
}

func TestCountMissingBundle(t *testing.T) {
	app, _ := newApp(t, Config{
		Command:    CommandCount,
		BundlePath: filepath.Join(t.TempDir(), "nope.yaml"),
		LogFormat:  "text",
		LogLevel:   "warn",
	})
	assert.Error(t, app.Run(context.Background()))
}
