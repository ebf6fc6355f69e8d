package callplan

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/dag"
	"github.com/specialistvlad/blueprintc/internal/resolver"
	"github.com/specialistvlad/blueprintc/internal/signature"
)

// Build produces a plan for every handler that resolved cleanly, in handler
// order.
func Build(ctx context.Context, reg *component.Registry, sigs map[component.ID]*signature.Signature, res *resolver.Result) ([]*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Planner: Starting call-plan build.", "handlers", len(res.Handled))

	var plans []*Plan
	var errs []string
	for _, h := range res.Handled {
		p, err := BuildOne(reg, sigs, res.Graphs[h])
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", reg.Describe(h), err))
			continue
		}
		logger.Debug("Planner: Plan built.", "handler", reg.Raw(h), "steps", len(p.Steps))
		plans = append(plans, p)
	}

	if len(errs) > 0 {
		return plans, fmt.Errorf("failed to build call plans:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Info("Call plans built.", "plans", len(plans))
	return plans, nil
}

type builder struct {
	reg       *component.Registry
	sigs      map[component.ID]*signature.Signature
	graph     *resolver.Graph
	wrapping  []component.ID
	observers []component.ID
	seq       int

	// routing holds the components whose error route is being built.
	routing map[component.ID]bool
}

// sequence is one linear run of steps with its own set of materialized
// values.
type sequence struct {
	b            *builder
	materialized map[component.ID]int
	steps        []Step
}

// BuildOne builds the plan of a single resolved handler graph.
func BuildOne(reg *component.Registry, sigs map[component.ID]*signature.Signature, g *resolver.Graph) (*Plan, error) {
	if g == nil {
		return nil, fmt.Errorf("no dependency graph")
	}
	h := g.Handler
	p := &Plan{Handler: h, Observers: append([]component.ID{}, reg.ErrorObservers(h)...)}
	for _, m := range reg.Middlewares(h) {
		switch reg.Kind(m) {
		case component.WrappingMiddleware:
			p.Wrapping = append(p.Wrapping, m)
		case component.PreProcessingMiddleware:
			p.Pre = append(p.Pre, m)
		case component.PostProcessingMiddleware:
			p.Post = append(p.Post, m)
		}
	}

	b := &builder{reg: reg, sigs: sigs, graph: g, wrapping: p.Wrapping, observers: p.Observers, routing: make(map[component.ID]bool)}
	run := b.newSequence(nil)

	for i, w := range p.Wrapping {
		if err := run.invoke(InvokeWrap, w, i, true); err != nil {
			return nil, err
		}
	}
	depth := len(p.Wrapping)
	for _, m := range p.Pre {
		if err := run.invoke(InvokePre, m, depth, true); err != nil {
			return nil, err
		}
	}
	if err := run.invoke(InvokeHandler, h, depth, true); err != nil {
		return nil, err
	}
	for _, m := range p.Post {
		if err := run.invoke(InvokePost, m, depth, true); err != nil {
			return nil, err
		}
	}
	p.Steps = run.steps
	return p, nil
}

func (b *builder) newSequence(from map[component.ID]int) *sequence {
	m := make(map[component.ID]int, len(from))
	for k, v := range from {
		m[k] = v
	}
	return &sequence{b: b, materialized: m}
}

func (b *builder) transient(id component.ID) bool {
	return b.reg.Kind(id).Constructible() && b.reg.Lifecycle(id) == component.Transient
}

func (b *builder) fallible(id component.ID) bool {
	sig, ok := b.sigs[id]
	return ok && sig != nil && sig.Fallible()
}

// producers returns the components whose values id consumes directly.
func (b *builder) producers(id component.ID) []component.ID {
	var out []component.ID
	for _, bd := range b.graph.Bindings[id] {
		if bd.Source == resolver.FromComponent && bd.Component != component.None {
			out = append(out, bd.Component)
		}
	}
	return out
}

// invoke materializes everything root still needs, in dependency order, and
// then appends the invocation of root.
func (s *sequence) invoke(kind StepKind, root component.ID, depth int, routed bool) error {
	order, err := s.pending(root)
	if err != nil {
		return err
	}
	for _, id := range order {
		s.materialized[id] = s.emit(Construct, id, depth, true)
	}
	s.emit(kind, root, depth, routed)
	return nil
}

// pending orders the non-transient values root transitively needs and that
// are not materialized yet. Transient values are walked through: they are
// built right before each consumer instead.
func (s *sequence) pending(root component.ID) ([]component.ID, error) {
	b := s.b
	deps := dag.New[component.ID]()

	// effective returns the non-transient producers reachable from id
	// through transient ones.
	var effective func(id component.ID) []component.ID
	effective = func(id component.ID) []component.ID {
		var out []component.ID
		for _, p := range b.producers(id) {
			if b.transient(p) {
				out = append(out, effective(p)...)
				continue
			}
			if _, done := s.materialized[p]; !done {
				out = append(out, p)
			}
		}
		return out
	}

	var collect func(id component.ID)
	collect = func(id component.ID) {
		for _, p := range effective(id) {
			if deps.Has(p) {
				continue
			}
			deps.AddNode(p)
			collect(p)
		}
	}
	collect(root)

	for _, id := range deps.Nodes() {
		for _, p := range effective(id) {
			if err := deps.AddEdge(p, id); err != nil {
				return nil, err
			}
		}
	}
	return deps.TopologicalSort()
}

// emit appends one step for id and returns its Seq. Transient inputs are
// constructed first, once for this step.
func (s *sequence) emit(kind StepKind, id component.ID, depth int, routed bool) int {
	b := s.b
	var inputs []Input
	for _, bd := range b.graph.Bindings[id] {
		in := Input{Type: bd.Type, Source: bd.Source, Component: bd.Component, From: NoStep}
		if bd.Source == resolver.FromComponent {
			if b.transient(bd.Component) {
				in.From = s.emit(Construct, bd.Component, depth, true)
			} else {
				in.From = s.materialized[bd.Component]
			}
		}
		inputs = append(inputs, in)
	}

	step := Step{Seq: b.seq, Kind: kind, Component: id, Inputs: inputs, Depth: depth}
	b.seq++
	if routed && b.fallible(id) {
		step.OnError = s.route(id, depth)
	}
	s.steps = append(s.steps, step)
	return step.Seq
}

// route picks the error handler for a failure of id: its own, else the one
// of the nearest enclosing wrapping middleware. The route's steps start from
// what is materialized when id fails, and its observer chain from what is
// materialized once the error handler has run.
func (s *sequence) route(id component.ID, depth int) *ErrorRoute {
	b := s.b
	r := &ErrorRoute{Handler: component.None, Via: component.None}
	// Failing again while its own failure is handled surfaces the error.
	if b.routing[id] {
		return r
	}
	b.routing[id] = true
	defer delete(b.routing, id)

	if eh := b.reg.ErrorHandlerOf(id); eh != component.None {
		r.Handler, r.Via = eh, id
	} else {
		for i := min(depth, len(b.wrapping)) - 1; i >= 0; i-- {
			w := b.wrapping[i]
			if eh := b.reg.ErrorHandlerOf(w); eh != component.None {
				r.Handler, r.Via = eh, w
				break
			}
		}
	}

	fork := b.newSequence(s.materialized)
	// The graph is acyclic once it reaches the planner.
	if r.Handled() {
		_ = fork.invoke(InvokeErrorHandler, r.Handler, depth, false)
		r.Steps = fork.steps
	}

	chain := b.newSequence(fork.materialized)
	for _, o := range b.observers {
		_ = chain.invoke(InvokeObserver, o, 0, false)
	}
	r.Observers = chain.steps
	return r
}
