// Package cli parses the dexica command line into a validated app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/katiepod/DEXICA/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usageText = `
DEXICA - gene-module prediction sweeps via independent component analysis.

Usage:
  dexica plan  -design DESIGN.hcl [-bundle OUT.batch.yaml] [options]
  dexica count -bundle BATCH.batch.yaml [options]
  dexica run   -bundle BATCH.batch.yaml [-job N] [options]

Commands:
  plan    Validate an HCL batch design and write its distributable bundle.
  count   Print the total job count of a planned bundle.
  run     Execute one job id and append its result to the batch's output.
          Without -job, the id is taken from the cluster array environment
          (SLURM_ARRAY_TASK_ID, SGE_TASK_ID, or LSB_JOBINDEX).

Options:
`

// arrayVars are the cluster job-array environment variables consulted, in
// order, when -job is not given. The source of the id is external by design;
// these are merely the common spellings.
var arrayVars = []string{"SLURM_ARRAY_TASK_ID", "SGE_TASK_ID", "LSB_JOBINDEX"}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("dexica", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	designFlag := flagSet.String("design", "", "Path to the HCL batch design file (plan).")
	bundleFlag := flagSet.String("bundle", "", "Path to the batch bundle file.")
	jobFlag := flagSet.Int("job", 0, "Job id to execute (run); falls back to cluster array variables.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if len(args) == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	command := args[0]
	if command == "-h" || command == "--help" || command == "help" {
		flagSet.Usage()
		return nil, true, nil
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	// Positional fallbacks: `dexica plan design.hcl`, `dexica run bundle.yaml`.
	positional := flagSet.Arg(0)
	design := *designFlag
	bundle := *bundleFlag
	if positional != "" {
		if command == app.CommandPlan && design == "" {
			design = positional
		} else if design == "" && bundle == "" {
			bundle = positional
		}
	}

	jobID := *jobFlag
	if command == app.CommandRun && jobID == 0 {
		if id, ok := jobIDFromEnv(); ok {
			jobID = id
		}
	}

	config, err := app.NewConfig(app.Config{
		Command:    command,
		DesignPath: design,
		BundlePath: bundle,
		JobID:      jobID,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}

// jobIDFromEnv reads the first set cluster array variable.
func jobIDFromEnv() (int, bool) {
	for _, name := range arrayVars {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			continue
		}
		return id, true
	}
	return 0, false
}
