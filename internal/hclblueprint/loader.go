// Package hclblueprint loads blueprints and symbol declarations written in
// HCL. Every file contributes its registrations, in source order, to a single
// root blueprint; files are read in lexical path order.
package hclblueprint

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/blueprintc/internal/blueprint"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/fsutil"
	"github.com/specialistvlad/blueprintc/internal/symbols"
)

// Extension is the file extension of blueprint files.
const Extension = ".hcl"

// Result is everything read from a set of blueprint files.
type Result struct {
	Blueprint *blueprint.Blueprint
	Symbols   *symbols.Table
	Files     []string
}

// Loader reads HCL blueprint files.
type Loader struct{}

// NewLoader creates a new HCL blueprint loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every blueprint file found under paths. Directories are
// searched recursively for files with the .hcl extension.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no blueprint files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	res := newResult()
	res.Files = files
	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := l.decodeFile(ctx, hclFile.Body, res); err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.", "registrations", res.Blueprint.Len(), "declarations", res.Symbols.Len())
	return res, nil
}

// Parse decodes a single in-memory blueprint file.
func (l *Loader) Parse(ctx context.Context, filename string, src []byte) (*Result, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	res := newResult()
	res.Files = []string{filename}
	if err := l.decodeFile(ctx, hclFile.Body, res); err != nil {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, err)
	}
	return res, nil
}

func newResult() *Result {
	return &Result{Blueprint: blueprint.New(""), Symbols: symbols.NewTable()}
}

func (l *Loader) decodeFile(ctx context.Context, body hcl.Body, res *Result) error {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return diags
	}
	module, err := stringAttr(content, "module")
	if err != nil {
		return err
	}
	return l.decodeBlocks(ctx, content.Blocks, module, res.Blueprint, res.Symbols)
}

// decodeBlocks appends the registrations of blocks to bp, in source order.
func (l *Loader) decodeBlocks(ctx context.Context, blocks hcl.Blocks, module string, bp *blueprint.Blueprint, table *symbols.Table) error {
	for _, block := range blocks {
		loc := location(block.DefRange)

		switch block.Type {
		case blockSymbol:
			if err := l.translateSymbol(block, table); err != nil {
				return err
			}
		case blockType:
			if err := l.translateType(block, table); err != nil {
				return err
			}
		case blockNest:
			child, err := l.translateNest(ctx, block, module, table)
			if err != nil {
				return err
			}
			bp.Entries = append(bp.Entries, blueprint.Entry{Nest: child})
		default:
			reg, err := l.translateRegistration(ctx, block)
			if err != nil {
				return fmt.Errorf("%s: %s %q: %w", loc, block.Type, block.Labels[0], err)
			}
			reg.Module = module
			reg.Location = loc
			if reg.ErrorHandler != nil {
				reg.ErrorHandler.Location = loc
			}
			bp.Entries = append(bp.Entries, blueprint.Entry{Registration: reg})
		}
	}
	return nil
}

func (l *Loader) translateNest(ctx context.Context, block *hcl.Block, module string, table *symbols.Table) (*blueprint.Nest, error) {
	content, diags := block.Body.Content(nestSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	nest := &blueprint.Nest{Location: location(block.DefRange)}
	var err error
	if nest.Prefix, err = stringAttr(content, "prefix"); err != nil {
		return nil, err
	}
	if nest.Domain, err = stringAttr(content, "domain"); err != nil {
		return nil, err
	}
	childModule, err := stringAttr(content, "module")
	if err != nil {
		return nil, err
	}
	if childModule == "" {
		childModule = module
	}

	nest.Blueprint = blueprint.New(childModule)
	ctxlog.FromContext(ctx).Debug("Decoding nested blueprint.", "prefix", nest.Prefix, "domain", nest.Domain, "at", nest.Location.String())
	if err := l.decodeBlocks(ctx, content.Blocks, childModule, nest.Blueprint, table); err != nil {
		return nil, err
	}
	return nest, nil
}

func stringAttr(content *hcl.BodyContent, name string) (string, error) {
	attr, ok := content.Attributes[name]
	if !ok {
		return "", nil
	}
	var s string
	if diags := gohcl.DecodeExpression(attr.Expr, nil, &s); diags.HasErrors() {
		return "", diags
	}
	return s, nil
}

func location(r hcl.Range) diag.Location {
	return diag.Location{File: r.Filename, Line: r.Start.Line, Column: r.Start.Column}
}
