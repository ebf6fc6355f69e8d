package hclblueprint

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/blueprintc/internal/blueprint"
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/lint"
	"github.com/specialistvlad/blueprintc/internal/signature"
	"github.com/specialistvlad/blueprintc/internal/symbols"
	"github.com/zclconf/go-cty/cty"
)

func (l *Loader) translateSymbol(block *hcl.Block, table *symbols.Table) error {
	var b SymbolBlock
	if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
		return diags
	}
	kind, err := signature.ParseCallableKind(b.Kind)
	if err != nil {
		return fmt.Errorf("%s: symbol %q: %w", location(block.DefRange), block.Labels[0], err)
	}
	inputs := make([]signature.Type, len(b.Inputs))
	for i, in := range b.Inputs {
		inputs[i] = signature.Type(in)
	}
	return table.AddSymbol(symbols.Symbol{
		Path:     block.Labels[0],
		Kind:     kind,
		Inputs:   inputs,
		Output:   signature.Type(b.Output),
		Error:    signature.Type(b.Error),
		Location: location(block.DefRange),
	})
}

func (l *Loader) translateType(block *hcl.Block, table *symbols.Table) error {
	var b TypeBlock
	if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
		return diags
	}
	return table.AddType(symbols.TypeInfo{
		Path:      block.Labels[0],
		Lifetimes: b.Lifetimes,
		Generics:  b.Generics,
		Fields:    b.Fields,
		Location:  location(block.DefRange),
	})
}

// translateRegistration converts a registration block into the agnostic model.
func (l *Loader) translateRegistration(ctx context.Context, block *hcl.Block) (*blueprint.Registration, error) {
	label := block.Labels[0]

	switch block.Type {
	case blockConstructor:
		var b ConstructorBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, diags
		}
		lifecycle, err := component.ParseLifecycle(b.Lifecycle)
		if err != nil {
			return nil, err
		}
		return newRegistration(component.Constructor, label, lifecycle, b.Cloning, b.ErrorHandler, b.Lints)

	case blockPrebuilt:
		var b PrebuiltBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, diags
		}
		return newRegistration(component.PrebuiltValue, label, component.Singleton, b.Cloning, "", b.Lints)

	case blockConfig:
		var b ConfigBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, diags
		}
		reg, err := newRegistration(component.ConfigValue, b.Type, component.Singleton, b.Cloning, "", b.Lints)
		if err != nil {
			return nil, err
		}
		cfg, err := translateConfig(ctx, label, &b)
		if err != nil {
			return nil, err
		}
		reg.Config = cfg
		return reg, nil

	case blockWrap, blockPreProcess, blockPostProcess:
		var b MiddlewareBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, diags
		}
		kind := map[string]component.Kind{
			blockWrap:        component.WrappingMiddleware,
			blockPreProcess:  component.PreProcessingMiddleware,
			blockPostProcess: component.PostProcessingMiddleware,
		}[block.Type]
		return newRegistration(kind, label, component.UnknownLifecycle, "", b.ErrorHandler, b.Lints)

	case blockErrorObserver:
		var b ObserverBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, diags
		}
		return newRegistration(component.ErrorObserver, label, component.UnknownLifecycle, "", "", b.Lints)

	case blockRoute:
		var b RouteBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, diags
		}
		reg, err := newRegistration(component.RequestHandler, b.Handler, component.UnknownLifecycle, "", b.ErrorHandler, b.Lints)
		if err != nil {
			return nil, err
		}
		reg.Route = &blueprint.Route{Methods: blueprint.SplitMethods(label), Path: block.Labels[1]}
		return reg, nil

	case blockFallback:
		var b FallbackBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &b); diags.HasErrors() {
			return nil, diags
		}
		return newRegistration(component.Fallback, label, component.UnknownLifecycle, "", b.ErrorHandler, b.Lints)

	default:
		return nil, fmt.Errorf("unsupported block type %q", block.Type)
	}
}

func newRegistration(kind component.Kind, identifier string, lifecycle component.Lifecycle, cloning, errorHandler string, lints map[string]string) (*blueprint.Registration, error) {
	reg := &blueprint.Registration{Kind: kind, Identifier: identifier, Lifecycle: lifecycle}

	if kind.Constructible() {
		reg.Cloning = component.NeverClone
		if cloning != "" {
			c, err := component.ParseCloning(cloning)
			if err != nil {
				return nil, err
			}
			reg.Cloning = c
		}
	}

	if errorHandler != "" {
		reg.ErrorHandler = &blueprint.ErrorHandlerRef{Identifier: errorHandler}
	}

	overrides, err := lint.ParseOverrides(lints)
	if err != nil {
		return nil, err
	}
	reg.Lints = overrides
	return reg, nil
}

func translateConfig(ctx context.Context, key string, b *ConfigBlock) (*component.Config, error) {
	cfg := &component.Config{Key: key, Type: b.Type, Default: cty.NilVal}

	strategy, err := component.ParseDefaultStrategy(b.DefaultStrategy)
	if err != nil {
		return nil, err
	}
	cfg.Strategy = strategy

	if isExprDefined(ctx, b.Default, "default") {
		val, diags := b.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value: %w", diags)
		}
		if b.DefaultStrategy != "" && strategy == component.Required {
			return nil, fmt.Errorf("a default value requires default_strategy = \"default_if_missing\"")
		}
		cfg.Strategy = component.DefaultIfMissing
		cfg.Default = val
	}
	return cfg, nil
}

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional expression fields with
// zero-width placeholder expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		return false
	}

	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}
