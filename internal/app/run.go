package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/specialistvlad/blueprintc/internal/emit"
)

// Compile runs one pass and emits the plan artifact. With OutPath set the
// artifact goes to that file and the diagnostics are printed; otherwise the
// artifact, diagnostics included, is printed. The artifact is written even
// for a failed pass. A failed pass returns a *compiler.FailedError.
func (a *App) Compile(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Compile method started.")

	out, err := a.pass(ctx)
	if out == nil {
		return err
	}

	if a.config.OutPath == "" {
		if werr := emit.Write(a.outW, out); werr != nil {
			return fmt.Errorf("failed to write plan: %w", werr)
		}
	} else {
		if werr := emit.WriteFile(a.config.OutPath, out); werr != nil {
			return werr
		}
		a.logger.Info("Plan written.", "path", a.config.OutPath, "plans", len(out.Plans))
		if werr := emit.Diagnostics(a.outW, out.Diagnostics); werr != nil {
			return werr
		}
	}

	a.logger.Debug("App.Compile method finished.", "stage", out.Stage)
	return err
}

// Routes runs a pass and prints the route table. Diagnostics are printed
// instead when the pass stopped before the table was built or with errors.
func (a *App) Routes(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Routes method started.")

	out, err := a.pass(ctx)
	if out == nil {
		return err
	}

	var failed *compiler.FailedError
	if errors.As(err, &failed) {
		if derr := emit.Diagnostics(a.outW, out.Diagnostics); derr != nil {
			return derr
		}
		return err
	}
	if rerr := emit.Routes(a.outW, out); rerr != nil {
		return rerr
	}
	return err
}
