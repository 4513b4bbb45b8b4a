// Package app wires the batch sweep application: it turns a validated CLI
// config into planned bundles or executed jobs, owning the logger and all
// component construction.
package app

import (
	"io"
	"log/slog"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logW   io.Writer
	logger *slog.Logger
	config *Config
}

// New constructs an App with its own isolated logger. outW receives the
// operator-facing command output (job counts, bundle paths); logs go to logW.
func New(outW, logW io.Writer, config *Config) *App {
	return &App{
		outW:   outW,
		logW:   logW,
		logger: newLogger(config.LogLevel, config.LogFormat, logW),
		config: config,
	}
}
