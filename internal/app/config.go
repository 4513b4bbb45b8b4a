package app

import "errors"

// Commands the application understands.
const (
	CommandPlan  = "plan"
	CommandCount = "count"
	CommandRun   = "run"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command string

	DesignPath string // plan: HCL batch design file
	BundlePath string // plan output; count/run input
	JobID      int    // run: job id in [1, CountJobs()]

	LogFormat string
	LogLevel  string
}

// NewConfig validates per-command required fields.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandPlan:
		if cfg.DesignPath == "" {
			return nil, errors.New("plan requires a design file path")
		}
	case CommandCount:
		if cfg.BundlePath == "" {
			return nil, errors.New("count requires a bundle file path")
		}
	case CommandRun:
		if cfg.BundlePath == "" {
			return nil, errors.New("run requires a bundle file path")
		}
		if cfg.JobID < 1 {
			return nil, errors.New("run requires a positive job id (-job or a cluster array variable)")
		}
	default:
		return nil, errors.New("unknown command: " + cfg.Command)
	}
	return &cfg, nil
}
