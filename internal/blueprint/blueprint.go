// Package blueprint is the format-independent description of a service: an
// ordered list of registrations and nested scopes. Loaders (see hclblueprint)
// and tests produce a Blueprint; the compiler consumes it.
package blueprint

import (
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/lint"
	"github.com/zclconf/go-cty/cty"
)

// Blueprint is one scope worth of registrations. The root blueprint maps to
// the root scope; every Nest entry opens a child scope.
type Blueprint struct {
	// Module is the default module used to resolve relative identifiers.
	Module  string
	Entries []Entry
}

// Entry is either a registration or a nested blueprint.
type Entry struct {
	Registration *Registration
	Nest         *Nest
}

// Nest opens a child scope with an optional path prefix and domain guard.
type Nest struct {
	Prefix    string
	Domain    string
	Location  diag.Location
	Blueprint *Blueprint
}

// Route is the routing part of a request handler registration.
type Route struct {
	Methods []string
	Path    string
}

// ErrorHandlerRef points at the error handler of a registration.
type ErrorHandlerRef struct {
	Identifier string
	Location   diag.Location
}

// Registration declares one component. Module overrides the blueprint's
// default module for this registration only.
type Registration struct {
	Kind       component.Kind
	Identifier string
	Module     string
	Location   diag.Location

	Lifecycle    component.Lifecycle
	Cloning      component.Cloning
	ErrorHandler *ErrorHandlerRef
	Lints        lint.Overrides

	Route  *Route
	Config *component.Config
}

// New returns an empty blueprint for the given default module.
func New(module string) *Blueprint {
	return &Blueprint{Module: module}
}

func (b *Blueprint) add(r *Registration) *Registration {
	b.Entries = append(b.Entries, Entry{Registration: r})
	return r
}

// Constructor registers a constructor with the given lifecycle.
func (b *Blueprint) Constructor(identifier string, lifecycle component.Lifecycle) *Registration {
	return b.add(&Registration{Kind: component.Constructor, Identifier: identifier, Lifecycle: lifecycle, Cloning: component.NeverClone})
}

// Singleton is shorthand for Constructor(identifier, component.Singleton).
func (b *Blueprint) Singleton(identifier string) *Registration {
	return b.Constructor(identifier, component.Singleton)
}

// RequestScoped is shorthand for Constructor(identifier, component.RequestScoped).
func (b *Blueprint) RequestScoped(identifier string) *Registration {
	return b.Constructor(identifier, component.RequestScoped)
}

// Transient is shorthand for Constructor(identifier, component.Transient).
func (b *Blueprint) Transient(identifier string) *Registration {
	return b.Constructor(identifier, component.Transient)
}

// Prebuilt registers a value of the given type that is built outside the
// compiled application and handed to it at startup.
func (b *Blueprint) Prebuilt(typ string) *Registration {
	return b.add(&Registration{Kind: component.PrebuiltValue, Identifier: typ, Lifecycle: component.Singleton, Cloning: component.NeverClone})
}

// Config registers a configuration value of the given type under key.
func (b *Blueprint) Config(key, typ string) *Registration {
	return b.add(&Registration{
		Kind:       component.ConfigValue,
		Identifier: typ,
		Lifecycle:  component.Singleton,
		Cloning:    component.NeverClone,
		Config:     &component.Config{Key: key, Type: typ, Strategy: component.Required, Default: cty.NilVal},
	})
}

// Route registers a request handler for method and path. Several methods may
// be given as a comma-separated list.
func (b *Blueprint) Route(methods, path, handler string) *Registration {
	return b.add(&Registration{
		Kind:       component.RequestHandler,
		Identifier: handler,
		Route:      &Route{Methods: SplitMethods(methods), Path: path},
	})
}

// Fallback registers the handler invoked when no route of this scope matches.
func (b *Blueprint) Fallback(handler string) *Registration {
	return b.add(&Registration{Kind: component.Fallback, Identifier: handler})
}

// Wrap registers a wrapping middleware.
func (b *Blueprint) Wrap(identifier string) *Registration {
	return b.add(&Registration{Kind: component.WrappingMiddleware, Identifier: identifier})
}

// PreProcess registers a pre-processing middleware.
func (b *Blueprint) PreProcess(identifier string) *Registration {
	return b.add(&Registration{Kind: component.PreProcessingMiddleware, Identifier: identifier})
}

// PostProcess registers a post-processing middleware.
func (b *Blueprint) PostProcess(identifier string) *Registration {
	return b.add(&Registration{Kind: component.PostProcessingMiddleware, Identifier: identifier})
}

// ErrorObserver registers an error observer.
func (b *Blueprint) ErrorObserver(identifier string) *Registration {
	return b.add(&Registration{Kind: component.ErrorObserver, Identifier: identifier})
}

// Nest opens a child scope and returns its blueprint. The child inherits the
// parent's default module.
func (b *Blueprint) Nest(prefix, domain string) *Blueprint {
	child := New(b.Module)
	b.Entries = append(b.Entries, Entry{Nest: &Nest{Prefix: prefix, Domain: domain, Blueprint: child}})
	return child
}

// Len returns the number of registrations, nested ones included.
func (b *Blueprint) Len() int {
	n := 0
	for _, e := range b.Entries {
		if e.Registration != nil {
			n++
			if e.Registration.ErrorHandler != nil {
				n++
			}
		}
		if e.Nest != nil {
			n += e.Nest.Blueprint.Len()
		}
	}
	return n
}

// WithErrorHandler attaches an error handler.
func (r *Registration) WithErrorHandler(identifier string) *Registration {
	r.ErrorHandler = &ErrorHandlerRef{Identifier: identifier, Location: r.Location}
	return r
}

// CloneIfNecessary allows the value to be cloned for extra consumers.
func (r *Registration) CloneIfNecessary() *Registration {
	r.Cloning = component.CloneIfNecessary
	return r
}

// At sets the source location.
func (r *Registration) At(file string, line int) *Registration {
	r.Location = diag.Location{File: file, Line: line, Column: 1}
	if r.ErrorHandler != nil {
		r.ErrorHandler.Location = r.Location
	}
	return r
}

// Lint overrides the level of a lint for this component.
func (r *Registration) Lint(name lint.Name, level lint.Level) *Registration {
	if r.Lints == nil {
		r.Lints = lint.Overrides{}
	}
	r.Lints[name] = level
	return r
}

// DefaultIfMissing makes a config value optional, falling back to def.
// Pass cty.NilVal to rely on the type's zero value.
func (r *Registration) DefaultIfMissing(def cty.Value) *Registration {
	if r.Config != nil {
		r.Config.Strategy = component.DefaultIfMissing
		r.Config.Default = def
	}
	return r
}
