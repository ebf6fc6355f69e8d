package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/hclblueprint"
	"github.com/specialistvlad/blueprintc/internal/lint"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	loader *hclblueprint.Loader
	lints  *lint.Config
}

// NewApp builds an App that prints reports to outW and logs to logW. The
// lint configuration is read once here; blueprint files are read on every
// pass.
func NewApp(outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	lints, err := lint.Load(cfg.LintConfigPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Lint configuration loaded.", "path", cfg.LintConfigPath, "levels", len(lints.Lints))

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: hclblueprint.NewLoader(),
		lints:  lints,
	}, nil
}

// Config returns the configuration the app was built with.
func (a *App) Config() *Config {
	return a.config
}

// withLogger attaches the app logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// pass loads the blueprint files and compiles them once. A nil output means
// the files could not be read or parsed.
func (a *App) pass(ctx context.Context) (*compiler.Output, error) {
	if len(a.config.BlueprintPaths) == 0 {
		return nil, fmt.Errorf("no blueprint paths given")
	}
	res, err := a.loader.Load(ctx, a.config.BlueprintPaths...)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(ctx, res.Blueprint, compiler.Options{
		Resolver: res.Symbols,
		Lints:    a.lints,
		Workers:  a.config.Workers,
	})
}
