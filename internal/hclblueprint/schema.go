package hclblueprint

import (
	"github.com/hashicorp/hcl/v2"
)

// Block types understood in a blueprint body.
const (
	blockSymbol        = "symbol"
	blockType          = "type"
	blockConstructor   = "constructor"
	blockPrebuilt      = "prebuilt"
	blockConfig        = "config"
	blockWrap          = "wrap"
	blockPreProcess    = "pre_process"
	blockPostProcess   = "post_process"
	blockErrorObserver = "error_observer"
	blockRoute         = "route"
	blockFallback      = "fallback"
	blockNest          = "nest"
)

var blockSchemas = []hcl.BlockHeaderSchema{
	{Type: blockSymbol, LabelNames: []string{"path"}},
	{Type: blockType, LabelNames: []string{"path"}},
	{Type: blockConstructor, LabelNames: []string{"identifier"}},
	{Type: blockPrebuilt, LabelNames: []string{"type"}},
	{Type: blockConfig, LabelNames: []string{"key"}},
	{Type: blockWrap, LabelNames: []string{"identifier"}},
	{Type: blockPreProcess, LabelNames: []string{"identifier"}},
	{Type: blockPostProcess, LabelNames: []string{"identifier"}},
	{Type: blockErrorObserver, LabelNames: []string{"identifier"}},
	{Type: blockRoute, LabelNames: []string{"method", "path"}},
	{Type: blockFallback, LabelNames: []string{"handler"}},
	{Type: blockNest},
}

// fileSchema is the schema of a blueprint file body.
var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "module"}},
	Blocks:     blockSchemas,
}

// nestSchema is the schema of a nest block body.
var nestSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "module"}, {Name: "prefix"}, {Name: "domain"}},
	Blocks:     blockSchemas,
}

// SymbolBlock declares a callable.
type SymbolBlock struct {
	Kind   string   `hcl:"kind,optional"`
	Inputs []string `hcl:"inputs,optional"`
	Output string   `hcl:"output,optional"`
	Error  string   `hcl:"error,optional"`
}

// TypeBlock declares a type.
type TypeBlock struct {
	Lifetimes []string `hcl:"lifetimes,optional"`
	Generics  []string `hcl:"generics,optional"`
	Fields    []string `hcl:"fields,optional"`
}

// ConstructorBlock is the body of a constructor registration.
type ConstructorBlock struct {
	Lifecycle    string            `hcl:"lifecycle"`
	Cloning      string            `hcl:"cloning,optional"`
	ErrorHandler string            `hcl:"error_handler,optional"`
	Lints        map[string]string `hcl:"lints,optional"`
}

// PrebuiltBlock is the body of a prebuilt value registration.
type PrebuiltBlock struct {
	Cloning string            `hcl:"cloning,optional"`
	Lints   map[string]string `hcl:"lints,optional"`
}

// ConfigBlock is the body of a config value registration.
type ConfigBlock struct {
	Type            string            `hcl:"type"`
	DefaultStrategy string            `hcl:"default_strategy,optional"`
	Default         hcl.Expression    `hcl:"default,optional"`
	Cloning         string            `hcl:"cloning,optional"`
	Lints           map[string]string `hcl:"lints,optional"`
}

// MiddlewareBlock is the body of a wrapping, pre- or post-processing
// middleware registration.
type MiddlewareBlock struct {
	ErrorHandler string            `hcl:"error_handler,optional"`
	Lints        map[string]string `hcl:"lints,optional"`
}

// ObserverBlock is the body of an error observer registration.
type ObserverBlock struct {
	Lints map[string]string `hcl:"lints,optional"`
}

// RouteBlock is the body of a route registration.
type RouteBlock struct {
	Handler      string            `hcl:"handler"`
	ErrorHandler string            `hcl:"error_handler,optional"`
	Lints        map[string]string `hcl:"lints,optional"`
}

// FallbackBlock is the body of a fallback registration.
type FallbackBlock struct {
	ErrorHandler string            `hcl:"error_handler,optional"`
	Lints        map[string]string `hcl:"lints,optional"`
}
