package resolver

import (
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/dag"
	"github.com/specialistvlad/blueprintc/internal/lint"
	"github.com/specialistvlad/blueprintc/internal/scope"
	"github.com/specialistvlad/blueprintc/internal/signature"
)

// SourceKind tells where an input value comes from.
type SourceKind int

const (
	// FromComponent values are produced by a registered component.
	FromComponent SourceKind = iota
	// FromFramework values are provided by the framework for every request.
	FromFramework
	// FromError is the in-flight error handed to error handlers and observers.
	FromError
)

func (k SourceKind) String() string {
	switch k {
	case FromFramework:
		return "framework"
	case FromError:
		return "error"
	default:
		return "component"
	}
}

// Binding ties one input of a component to its source. Component is
// component.None unless Source is FromComponent.
type Binding struct {
	Input     int
	Type      signature.Type
	Source    SourceKind
	Component component.ID
}

// Input is what the resolver reads. Every map and structure is treated as
// read-only.
type Input struct {
	Registry   *component.Registry
	Scopes     *scope.Tree
	Signatures map[component.ID]*signature.Signature
}

// Options tunes resolution.
type Options struct {
	// FrameworkTypes are always satisfiable and request scoped.
	FrameworkTypes []signature.Type
	// Lints decides how unused constructors are reported. Nil means defaults.
	Lints *lint.Config
}

// Graph is the dependency closure of one handler: the handler, its
// middlewares and error observers, every error handler attached to a member,
// and everything they transitively depend on.
type Graph struct {
	Handler  component.ID
	Nodes    []component.ID
	Bindings map[component.ID][]Binding

	deps *dag.Graph[component.ID]
}

// Contains reports whether id belongs to the closure.
func (g *Graph) Contains(id component.ID) bool { return g.deps.Has(id) }

// Consumers returns the closure members that take id as an input.
func (g *Graph) Consumers(id component.ID) []component.ID {
	out, _ := g.deps.Dependents(id)
	return out
}

// Order returns the closure in dependency order with registration order
// breaking ties.
func (g *Graph) Order() ([]component.ID, error) {
	return g.deps.TopologicalSort()
}

// Result is the outcome of resolution. Graphs holds an entry for every
// handler that resolved cleanly; Failed lists the others.
type Result struct {
	Graphs  map[component.ID]*Graph
	Handled []component.ID
	Failed  []component.ID
	Unused  []component.ID
}
