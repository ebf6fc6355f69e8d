// Package router builds the method and path table of a blueprint and rejects
// routes that could match the same request, as well as scopes that declare
// more than one fallback.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/blueprintc/internal/blueprint"
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/scope"
)

var knownMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {}, "PATCH": {},
	"HEAD": {}, "OPTIONS": {}, "CONNECT": {}, "TRACE": {},
	blueprint.AnyMethod: {},
}

// Route is a route registration with its scope prefix already applied.
type Route struct {
	Methods  []string
	Path     string
	Domain   string
	Scope    scope.ID
	Handler  component.ID
	Name     string
	Location diag.Location
}

// Fallback is a fallback registration.
type Fallback struct {
	Scope    scope.ID
	Handler  component.ID
	Name     string
	Location diag.Location
}

// Row is one entry of the route table. Fallback is the fallback that serves
// unmatched requests below the route's scope, or component.None.
type Row struct {
	Methods  []string
	Pattern  string
	Domain   string
	Scope    scope.ID
	Handler  component.ID
	Fallback component.ID
}

// Table is the finished route table.
type Table struct {
	Rows      []Row
	Fallbacks map[scope.ID]component.ID
}

// FallbackFor returns the fallback of the nearest scope that has one.
func (t *Table) FallbackFor(tree *scope.Tree, s scope.ID) component.ID {
	for _, a := range tree.Ancestors(s) {
		if fb, ok := t.Fallbacks[a]; ok {
			return fb
		}
	}
	return component.None
}

type parsedRoute struct {
	Route
	pattern Pattern
}

// Build validates every route and fallback and assembles the table. All
// routes are checked before returning so that independent conflicts surface
// together; invalid routes are left out of the table.
func Build(ctx context.Context, tree *scope.Tree, routes []Route, fallbacks []Fallback, ds *diag.Set) *Table {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Router: Starting route table construction.", "routes", len(routes), "fallbacks", len(fallbacks))

	table := &Table{Fallbacks: make(map[scope.ID]component.ID)}

	fallbackAt := make(map[scope.ID]Fallback)
	for _, fb := range fallbacks {
		if prev, dup := fallbackAt[fb.Scope]; dup {
			ds.Add(diag.Errorf(diag.DuplicateFallback, "scope already has fallback %q, cannot register %q as well", prev.Name, fb.Name).
				At(fb.Location).
				For(int(fb.Handler)).
				WithHelp("remove one of the fallbacks or move it into a nested scope (first registered at %s)", prev.Location))
			continue
		}
		fallbackAt[fb.Scope] = fb
		table.Fallbacks[fb.Scope] = fb.Handler
	}

	var parsed []parsedRoute
	for _, r := range routes {
		pr, ok := validate(r, ds)
		if ok {
			parsed = append(parsed, pr)
		}
	}

	conflicts := 0
	for j := range parsed {
		for i := 0; i < j; i++ {
			a, b := &parsed[i], &parsed[j]
			if a.Domain != b.Domain || !methodsOverlap(a.Methods, b.Methods) || !a.pattern.Unifies(b.pattern) {
				continue
			}
			conflicts++
			ds.Add(diag.Errorf(diag.RouteConflict, "%s %s (%s) conflicts with %s %s (%s): both match the same requests",
				strings.Join(b.Methods, ","), b.Path, b.Name, strings.Join(a.Methods, ","), a.Path, a.Name).
				At(b.Location).
				For(int(b.Handler)).
				WithHelp("the conflicting route is registered at %s; rename a path segment or use a distinct domain guard", a.Location))
		}
	}

	for _, pr := range parsed {
		table.Rows = append(table.Rows, Row{
			Methods:  pr.Methods,
			Pattern:  pr.pattern.String(),
			Domain:   pr.Domain,
			Scope:    pr.Scope,
			Handler:  pr.Handler,
			Fallback: table.FallbackFor(tree, pr.Scope),
		})
	}
	sort.SliceStable(table.Rows, func(i, j int) bool {
		a, b := table.Rows[i], table.Rows[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Pattern != b.Pattern {
			return a.Pattern < b.Pattern
		}
		return strings.Join(a.Methods, ",") < strings.Join(b.Methods, ",")
	})

	logger.Debug("Router: Route table complete.", "rows", len(table.Rows), "conflicts", conflicts)
	return table
}

func validate(r Route, ds *diag.Set) (parsedRoute, bool) {
	pattern, err := ParsePattern(r.Path)
	if err != nil {
		ds.Add(diag.Errorf(diag.InvalidPath, "invalid route path for %s: %v", r.Name, err).
			At(r.Location).
			For(int(r.Handler)))
		return parsedRoute{}, false
	}

	if len(r.Methods) == 0 {
		ds.Add(diag.Errorf(diag.InvalidBlueprint, "route %s (%s) has no HTTP method", r.Path, r.Name).
			At(r.Location).
			For(int(r.Handler)))
		return parsedRoute{}, false
	}

	methods := make([]string, 0, len(r.Methods))
	seen := make(map[string]struct{})
	for _, m := range r.Methods {
		m = strings.ToUpper(m)
		if _, ok := knownMethods[m]; !ok {
			ds.Add(diag.Errorf(diag.InvalidBlueprint, "route %s (%s) uses unknown HTTP method %q", r.Path, r.Name, m).
				At(r.Location).
				For(int(r.Handler)))
			return parsedRoute{}, false
		}
		if _, dup := seen[m]; !dup {
			seen[m] = struct{}{}
			methods = append(methods, m)
		}
	}
	sort.Strings(methods)

	r.Methods = methods
	return parsedRoute{Route: r, pattern: pattern}, true
}

func methodsOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y || x == blueprint.AnyMethod || y == blueprint.AnyMethod {
				return true
			}
		}
	}
	return false
}

// String renders a row as it appears in `blueprintc routes`.
func (r Row) String() string {
	host := ""
	if r.Domain != "" {
		host = fmt.Sprintf(" [%s]", r.Domain)
	}
	return fmt.Sprintf("%-8s %s%s", strings.Join(r.Methods, ","), r.Pattern, host)
}
