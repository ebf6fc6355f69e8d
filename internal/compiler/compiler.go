// Package compiler runs a blueprint through every stage of a compile pass:
// ingestion into the scope tree and component registry, routing, type
// resolution, dependency resolution and call-plan construction.
//
// Each stage processes every component before its diagnostics are checked,
// and a stage that reports any error stops the pass before the next one
// starts.
package compiler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/blueprintc/internal/blueprint"
	"github.com/specialistvlad/blueprintc/internal/callplan"
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/lint"
	"github.com/specialistvlad/blueprintc/internal/resolver"
	"github.com/specialistvlad/blueprintc/internal/router"
	"github.com/specialistvlad/blueprintc/internal/scope"
	"github.com/specialistvlad/blueprintc/internal/signature"
)

// Stage names one step of a compile pass.
type Stage string

const (
	StageIngest  Stage = "ingest"
	StageRoute   Stage = "route"
	StageTypes   Stage = "resolve_types"
	StageDeps    Stage = "resolve_deps"
	StagePlans   Stage = "build_plans"
	StageSuccess Stage = "done"
)

// Options configures a compile pass.
type Options struct {
	// Resolver provides callable and type signatures. Required.
	Resolver signature.Resolver
	// Lints sets lint levels; nil uses the defaults.
	Lints *lint.Config
	// Workers bounds concurrent signature lookups. Values below 1 mean 1.
	Workers int
	// FrameworkTypes overrides blueprint.FrameworkTypes when non-nil.
	FrameworkTypes []signature.Type
}

// Output is the result of a compile pass. When the pass fails, the fields
// of the stages that did not run are empty.
type Output struct {
	Pass        string
	Stage       Stage
	Registry    *component.Registry
	Scopes      *scope.Tree
	Routes      *router.Table
	Signatures  map[component.ID]*signature.Signature
	Resolution  *resolver.Result
	Plans       []*callplan.Plan
	Diagnostics []diag.Diagnostic
}

// Failed reports whether the pass stopped on an error.
func (o *Output) Failed() bool { return o.Stage != StageSuccess }

// FailedError is returned when a stage ends with error diagnostics.
type FailedError struct {
	Stage       Stage
	Diagnostics []diag.Diagnostic
}

func (e *FailedError) Error() string {
	n := 0
	for _, d := range e.Diagnostics {
		if d.Severity == diag.Error {
			n++
		}
	}
	return fmt.Sprintf("compilation failed during %s with %d error(s)", e.Stage, n)
}

// Compile runs a full pass over bp. A pass that stops on diagnostics returns
// the partial output together with a *FailedError; any other error means the
// pass could not run at all.
func Compile(ctx context.Context, bp *blueprint.Blueprint, opts Options) (*Output, error) {
	if bp == nil {
		return nil, fmt.Errorf("blueprint cannot be nil")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("a signature resolver is required")
	}
	framework := opts.FrameworkTypes
	if framework == nil {
		framework = blueprint.FrameworkTypes()
	}

	out := &Output{Pass: uuid.NewString()}
	ctx = ctxlog.WithPass(ctx, out.Pass)
	logger := ctxlog.FromContext(ctx)
	logger.Info("Compile pass started.", "registrations", bp.Len())

	var ds diag.Set
	halt := func(stage Stage) bool {
		out.Stage = stage
		out.Diagnostics = ds.Sorted()
		if !ds.HasErrors() {
			return false
		}
		logger.Info("Compile pass halted.", "stage", stage, "errors", ds.ErrorCount(), "warnings", ds.WarningCount())
		return true
	}
	failed := func() (*Output, error) {
		return out, &FailedError{Stage: out.Stage, Diagnostics: out.Diagnostics}
	}

	in, err := ingest(ctx, bp, &ds)
	if err != nil {
		return nil, err
	}
	out.Registry, out.Scopes = in.reg, in.tree
	if halt(StageIngest) {
		return failed()
	}

	out.Routes = router.Build(ctx, in.tree, in.routes, in.fallbacks, &ds)
	if halt(StageRoute) {
		return failed()
	}

	out.Signatures, err = resolveTypes(ctx, in.reg, opts, &ds)
	if err != nil {
		return nil, err
	}
	if halt(StageTypes) {
		return failed()
	}

	out.Resolution = resolver.Resolve(ctx, resolver.Input{
		Registry:   in.reg,
		Scopes:     in.tree,
		Signatures: out.Signatures,
	}, resolver.Options{FrameworkTypes: framework, Lints: opts.Lints}, &ds)
	if fields, ok := opts.Resolver.(signature.FieldLister); ok {
		checkPathParams(ctx, in.reg, out.Routes, out.Resolution, fields, &ds)
	}
	if halt(StageDeps) {
		return failed()
	}

	out.Plans, err = callplan.Build(ctx, in.reg, out.Signatures, out.Resolution)
	if err != nil {
		return nil, err
	}
	halt(StagePlans)
	out.Stage = StageSuccess

	logger.Info("Compile pass finished.",
		"routes", len(out.Routes.Rows),
		"plans", len(out.Plans),
		"warnings", ds.WarningCount(),
	)
	return out, nil
}
