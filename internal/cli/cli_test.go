package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/katiepod/DEXICA/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"plan", "-design", "worm.hcl", "-bundle", "worm.batch.yaml"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, app.CommandPlan, cfg.Command)
	assert.Equal(t, "worm.hcl", cfg.DesignPath)
	assert.Equal(t, "worm.batch.yaml", cfg.BundlePath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParsePlanPositionalDesign(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"plan", "worm.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "worm.hcl", cfg.DesignPath)
}

func TestParseCount(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"count", "worm.batch.yaml"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, app.CommandCount, cfg.Command)
	assert.Equal(t, "worm.batch.yaml", cfg.BundlePath)
}

func TestParseRunWithJobFlag(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"run", "-bundle", "worm.batch.yaml", "-job", "17"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, app.CommandRun, cfg.Command)
	assert.Equal(t, 17, cfg.JobID)
}

func TestParseRunJobFromEnvironment(t *testing.T) {
	testCases := []struct {
		name string
		envs map[string]string
		want int
	}{
		{name: "slurm", envs: map[string]string{"SLURM_ARRAY_TASK_ID": "5"}, want: 5},
		{name: "sge", envs: map[string]string{"SGE_TASK_ID": "12"}, want: 12},
		{name: "lsf", envs: map[string]string{"LSB_JOBINDEX": "3"}, want: 3},
		{
			name: "slurm wins over sge",
			envs: map[string]string{"SLURM_ARRAY_TASK_ID": "5", "SGE_TASK_ID": "12"},
			want: 5,
		},
		{
			name: "unparsable value is skipped",
			envs: map[string]string{"SLURM_ARRAY_TASK_ID": "undefined", "SGE_TASK_ID": "12"},
			want: 12,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, v := range arrayVars {
				t.Setenv(v, "")
			}
			for k, v := range tc.envs {
				t.Setenv(k, v)
			}
			var out bytes.Buffer
			cfg, exit, err := Parse([]string{"run", "-bundle", "worm.batch.yaml"}, &out)
			require.NoError(t, err)
			require.False(t, exit)
			assert.Equal(t, tc.want, cfg.JobID)
		})
	}
}

func TestParseRunFlagBeatsEnvironment(t *testing.T) {
	t.Setenv("SLURM_ARRAY_TASK_ID", "5")
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"run", "-bundle", "worm.batch.yaml", "-job", "9"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.JobID)
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "unknown command", args: []string{"sweep"}},
		{name: "plan without design", args: []string{"plan"}},
		{name: "count without bundle", args: []string{"count"}},
		{name: "run without bundle", args: []string{"run", "-job", "1"}},
		{name: "run without job id", args: []string{"run", "-bundle", "b.yaml"}},
		{name: "bad log format", args: []string{"count", "-log-format", "xml", "b.yaml"}},
		{name: "bad log level", args: []string{"count", "-log-level", "loud", "b.yaml"}},
		{name: "unknown flag", args: []string{"count", "-frobnicate"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, v := range []string{"SLURM_ARRAY_TASK_ID", "SGE_TASK_ID", "LSB_JOBINDEX"} {
				t.Setenv(v, "")
			}
			var out bytes.Buffer
			_, exit, err := Parse(tc.args, &out)
			require.Error(t, err)
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}

func TestParseHelp(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}, {"--help"}, {"help"}} {
		var out bytes.Buffer
		cfg, exit, err := Parse(args, &out)
		require.NoError(t, err)
		assert.Nil(t, cfg)
		assert.True(t, exit)
		assert.True(t, strings.Contains(out.String(), "Usage:"))
	}
}

func TestParseLogOptions(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"count", "-log-format", "JSON", "-log-level", "DEBUG", "b.yaml"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}
