package callplan

import (
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/resolver"
	"github.com/specialistvlad/blueprintc/internal/signature"
)

// StepKind tells the generator what a step does.
type StepKind int

const (
	Construct StepKind = iota
	InvokeWrap
	InvokePre
	InvokeHandler
	InvokePost
	InvokeErrorHandler
	InvokeObserver
)

func (k StepKind) String() string {
	switch k {
	case Construct:
		return "construct"
	case InvokeWrap:
		return "invoke_wrap"
	case InvokePre:
		return "invoke_pre"
	case InvokeHandler:
		return "invoke_handler"
	case InvokePost:
		return "invoke_post"
	case InvokeErrorHandler:
		return "invoke_error_handler"
	case InvokeObserver:
		return "invoke_observer"
	default:
		return "unknown"
	}
}

// NoStep marks an input that is not produced by a step of the plan.
const NoStep = -1

// Input is one argument of a step. From is the Seq of the step that produced
// the value, or NoStep for framework values and the in-flight error.
type Input struct {
	Type      signature.Type
	Source    resolver.SourceKind
	Component component.ID
	From      int
}

// Step is a single construction or invocation. Seq numbers are unique within
// a plan and increase in emission order. Depth is the number of wrapping
// middlewares enclosing the step.
type Step struct {
	Seq       int
	Kind      StepKind
	Component component.ID
	Inputs    []Input
	Depth     int
	OnError   *ErrorRoute
}

// ErrorRoute describes where the failure of a fallible step goes. Via is the
// component whose error handler is used: the failing component itself or an
// enclosing wrapping middleware. Steps materializes the error handler's
// remaining inputs and ends with its invocation. A route with no Handler is
// surfaced unhandled.
//
// Observers is the error-observer chain for this failure point. It runs at
// depth 0 once the error has left the outermost wrapping middleware, reusing
// every value built before the failure or by Steps.
type ErrorRoute struct {
	Handler   component.ID
	Via       component.ID
	Steps     []Step
	Observers []Step
}

// Handled reports whether an error handler takes the failure.
func (r *ErrorRoute) Handled() bool { return r.Handler != component.None }

// Plan is the full call plan of one request handler or fallback.
type Plan struct {
	Handler   component.ID
	Wrapping  []component.ID
	Pre       []component.ID
	Post      []component.ID
	Observers []component.ID

	// Steps run in order for every request. Failures branch off through
	// Step.OnError.
	Steps []Step
}

// Constructions returns the components constructed by Steps, in order, with
// transient components repeated once per consumption.
func (p *Plan) Constructions() []component.ID {
	var out []component.ID
	for _, s := range p.Steps {
		if s.Kind == Construct {
			out = append(out, s.Component)
		}
	}
	return out
}
