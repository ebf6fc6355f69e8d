package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/blueprintc/internal/blueprint"
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/dag"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/lint"
	"github.com/specialistvlad/blueprintc/internal/scope"
	"github.com/specialistvlad/blueprintc/internal/signature"
)

type resolver struct {
	in        Input
	opts      Options
	ds        *diag.Set
	framework map[signature.Type]struct{}

	// producers indexes constructible components by binding scope and output type.
	producers map[scope.ID]map[signature.Type][]component.ID
	bindings  map[component.ID][]Binding
	bound     map[component.ID]bool
	failed    map[component.ID]bool

	// contested holds the candidates of ambiguous lookups. They are not
	// reported as unused on top of the ambiguity.
	contested map[component.ID]bool
}

// Resolve builds and validates the dependency graph of every request handler
// and fallback. Diagnostics are appended to ds; a handler whose closure
// contains any failed component gets no graph.
func Resolve(ctx context.Context, in Input, opts Options, ds *diag.Set) *Result {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolver: Starting dependency resolution.", "components", in.Registry.Len())

	r := &resolver{
		in:        in,
		opts:      opts,
		ds:        ds,
		framework: make(map[signature.Type]struct{}, len(opts.FrameworkTypes)),
		producers: make(map[scope.ID]map[signature.Type][]component.ID),
		bindings:  make(map[component.ID][]Binding),
		bound:     make(map[component.ID]bool),
		failed:    make(map[component.ID]bool),
		contested: make(map[component.ID]bool),
	}
	for _, t := range opts.FrameworkTypes {
		r.framework[t] = struct{}{}
	}
	r.indexProducers()

	res := &Result{Graphs: make(map[component.ID]*Graph)}
	reached := make(map[component.ID]bool)

	for _, h := range in.Registry.Handlers() {
		g, ok := r.resolveHandler(h)
		for _, n := range g.Nodes {
			reached[n] = true
		}
		if !ok {
			logger.Debug("Resolver: Handler excluded.", "handler", in.Registry.Raw(h))
			res.Failed = append(res.Failed, h)
			continue
		}
		res.Graphs[h] = g
		res.Handled = append(res.Handled, h)
	}

	res.Unused = r.reportUnused(reached)

	logger.Info("Dependency resolution finished.",
		"handlers", len(res.Handled),
		"failed", len(res.Failed),
		"unused", len(res.Unused),
	)
	return res
}

func (r *resolver) indexProducers() {
	reg := r.in.Registry
	for _, id := range reg.All() {
		c := reg.Get(id)
		if !c.Kind.Constructible() {
			continue
		}
		sig, ok := r.in.Signatures[id]
		if !ok || sig == nil {
			continue
		}
		byType, ok := r.producers[c.Scope]
		if !ok {
			byType = make(map[signature.Type][]component.ID)
			r.producers[c.Scope] = byType
		}
		byType[sig.Output] = append(byType[sig.Output], id)
	}
}

// bind resolves the inputs of c once; the result is shared by every handler
// that reaches c.
func (r *resolver) bind(c component.ID) []Binding {
	if r.bound[c] {
		return r.bindings[c]
	}
	r.bound[c] = true

	reg := r.in.Registry
	comp := reg.Get(c)
	sig, ok := r.in.Signatures[c]
	if !ok || sig == nil {
		r.failed[c] = true
		return nil
	}

	var out []Binding
	for i, t := range sig.Inputs {
		b := Binding{Input: i, Type: t, Component: component.None}
		switch {
		case r.isError(comp, t):
			b.Source = FromError
		case r.isFramework(t):
			b.Source = FromFramework
		default:
			b.Source = FromComponent
			p, ok := r.search(comp, t)
			if !ok {
				r.failed[c] = true
				continue
			}
			b.Component = p
		}
		out = append(out, b)
	}

	r.bindings[c] = out
	r.checkLifecycle(comp, out)
	return out
}

// isFramework reports whether t, or the generic type t instantiates, is
// provided by the framework.
func (r *resolver) isFramework(t signature.Type) bool {
	if _, ok := r.framework[t]; ok {
		return true
	}
	if base, _, ok := blueprint.Instance(t); ok {
		_, ok = r.framework[base]
		return ok
	}
	return false
}

// isError reports whether input type t of c receives the in-flight error.
func (r *resolver) isError(c *component.Component, t signature.Type) bool {
	switch c.Kind {
	case component.ErrorObserver:
		return t == signature.ErrorInterface
	case component.ErrorHandler:
		if t == signature.ErrorInterface {
			return true
		}
		if owner, ok := r.in.Signatures[c.Owner]; ok && owner != nil && owner.Error != "" {
			return t == owner.Error
		}
	}
	return false
}

// search finds the producer of t for consumer c: the nearest scope with any
// producer wins, and it must have exactly one.
func (r *resolver) search(c *component.Component, t signature.Type) (component.ID, bool) {
	reg := r.in.Registry
	for _, s := range r.in.Scopes.Ancestors(c.Scope) {
		candidates := r.producers[s][t]
		switch len(candidates) {
		case 0:
			continue
		case 1:
			return candidates[0], true
		default:
			names := make([]string, len(candidates))
			for i, cand := range candidates {
				names[i] = reg.Describe(cand)
				r.contested[cand] = true
			}
			r.ds.AddOnce(fmt.Sprintf("ambiguous:%d:%s", s, t),
				diag.Errorf(diag.AmbiguousConstructor, "%s needs %q, but %d components in the same scope produce it: %s",
					reg.Describe(c.ID), t, len(candidates), strings.Join(names, ", ")).
					At(c.Location).
					For(int(c.ID)).
					WithHelp("keep a single constructor for %q in this scope, or move one of them into a nested scope", t))
			return component.None, false
		}
	}

	r.ds.Add(diag.Errorf(diag.MissingConstructor, "no constructor for %q, required by %s", t, reg.Describe(c.ID)).
		At(c.Location).
		For(int(c.ID)).
		WithHelp("register a constructor, prebuilt value or config value of type %q in the scope of %s or one of its ancestors", t, reg.Describe(c.ID)))
	return component.None, false
}

// lifecycleAllows reports whether a consumer with lifecycle consumer may
// depend on a producer with lifecycle producer.
func lifecycleAllows(consumer, producer component.Lifecycle) bool {
	switch consumer {
	case component.Singleton:
		return producer == component.Singleton
	case component.RequestScoped:
		return producer == component.Singleton || producer == component.RequestScoped
	default:
		return true
	}
}

// checkLifecycle applies only to constructors: handlers, middlewares,
// observers and error handlers run per request and may take anything.
func (r *resolver) checkLifecycle(c *component.Component, bindings []Binding) {
	if c.Kind != component.Constructor {
		return
	}
	reg := r.in.Registry
	for _, b := range bindings {
		switch b.Source {
		case FromComponent:
			p := reg.Get(b.Component)
			if lifecycleAllows(c.Lifecycle, p.Lifecycle) {
				continue
			}
			r.failed[c.ID] = true
			r.ds.Add(diag.Errorf(diag.LifecycleMismatch, "%s is %s but depends on %s, which is %s",
				reg.Describe(c.ID), c.Lifecycle, reg.Describe(p.ID), p.Lifecycle).
				At(c.Location).
				For(int(c.ID)).
				WithHelp("a %s can only depend on components that live at least as long as it does", c.Lifecycle))
		case FromFramework:
			if lifecycleAllows(c.Lifecycle, component.RequestScoped) {
				continue
			}
			r.failed[c.ID] = true
			r.ds.Add(diag.Errorf(diag.LifecycleMismatch, "%s is %s but depends on %q, which the framework provides per request",
				reg.Describe(c.ID), c.Lifecycle, b.Type).
				At(c.Location).
				For(int(c.ID)).
				WithHelp("make %s request_scoped or transient", reg.Describe(c.ID)))
		}
	}
}

// resolveHandler walks the closure of h and validates it.
func (r *resolver) resolveHandler(h component.ID) (*Graph, bool) {
	reg := r.in.Registry
	g := &Graph{
		Handler:  h,
		Bindings: make(map[component.ID][]Binding),
		deps:     dag.New[component.ID](),
	}

	var visit func(c component.ID)
	visit = func(c component.ID) {
		if g.deps.Has(c) {
			return
		}
		g.deps.AddNode(c)
		bindings := r.bind(c)
		g.Bindings[c] = bindings
		for _, b := range bindings {
			if b.Source != FromComponent || b.Component == component.None {
				continue
			}
			visit(b.Component)
			// Both nodes exist at this point.
			_ = g.deps.AddEdge(b.Component, c)
		}
		if eh := reg.ErrorHandlerOf(c); eh != component.None {
			visit(eh)
		}
	}

	visit(h)
	for _, m := range reg.Middlewares(h) {
		visit(m)
	}
	for _, o := range reg.ErrorObservers(h) {
		visit(o)
	}

	g.Nodes = g.deps.Nodes()
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i] < g.Nodes[j] })

	ok := r.checkCycles(g)
	if ok {
		ok = r.checkCloning(g)
	}
	for _, n := range g.Nodes {
		if r.failed[n] {
			ok = false
		}
	}
	return g, ok
}

func (r *resolver) checkCycles(g *Graph) bool {
	reg := r.in.Registry
	cycles := g.deps.DetectCycles()
	for _, cycle := range cycles {
		members := append([]component.ID(nil), cycle[:len(cycle)-1]...)
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		key := make([]string, len(members))
		for i, m := range members {
			key[i] = m.String()
			r.failed[m] = true
		}

		path := make([]string, len(cycle))
		for i, c := range cycle {
			path[i] = reg.Raw(c)
		}
		r.ds.AddOnce("cycle:"+strings.Join(key, ","),
			diag.Errorf(diag.DependencyCycle, "dependency cycle: %s", strings.Join(path, " -> ")).
				At(reg.Location(cycle[0])).
				For(int(cycle[0])).
				WithHelp("break the cycle by removing one of these dependencies"))
	}
	return len(cycles) == 0
}

// checkCloning rejects transient values that several closure members consume
// but that cannot be cloned.
func (r *resolver) checkCloning(g *Graph) bool {
	reg := r.in.Registry
	ok := true
	for _, n := range g.Nodes {
		c := reg.Get(n)
		if !c.Kind.Constructible() || c.Lifecycle != component.Transient || c.Cloning != component.NeverClone {
			continue
		}
		consumers := g.Consumers(n)
		if len(consumers) < 2 {
			continue
		}
		ok = false
		names := make([]string, len(consumers))
		for i, cons := range consumers {
			names[i] = reg.Describe(cons)
		}
		r.ds.AddOnce(fmt.Sprintf("clone:%d", n),
			diag.Errorf(diag.MustBeCloneable, "%s is transient and consumed by %d components (%s) but it is never cloned",
				reg.Describe(n), len(consumers), strings.Join(names, ", ")).
				At(c.Location).
				For(int(n)).
				WithHelp("set cloning = \"clone_if_necessary\" on %s", reg.Describe(n)))
	}
	return ok
}

func (r *resolver) reportUnused(reached map[component.ID]bool) []component.ID {
	reg := r.in.Registry
	var unused []component.ID
	for _, id := range reg.ByKind(component.Constructor) {
		if reached[id] || r.contested[id] {
			continue
		}
		unused = append(unused, id)

		var d diag.Diagnostic
		switch r.opts.Lints.Level(lint.Unused, reg.Lints(id)) {
		case lint.Allow:
			continue
		case lint.Deny:
			d = diag.Errorf(diag.UnusedComponent, "%s is never used by any handler", reg.Describe(id))
		default:
			d = diag.Warnf(diag.UnusedComponent, "%s is never used by any handler", reg.Describe(id))
		}
		r.ds.Add(d.At(reg.Location(id)).
			For(int(id)).
			WithHelp("remove the registration, or set lints = { unused = \"allow\" } on it"))
	}
	return unused
}
