// Package diag defines the structured diagnostics produced by every compiler
// stage: a severity, a machine-readable kind, a human message, the source span
// it refers to and optional remediation text.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity orders diagnostics by how much they matter to the build.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Kind identifies the class of problem being reported.
type Kind string

const (
	UnknownSymbol              Kind = "unknown_symbol"
	AmbiguousSymbol            Kind = "ambiguous_symbol"
	UnsupportedCallableKind    Kind = "unsupported_callable_kind"
	NonStaticLifetime          Kind = "non_static_lifetime"
	GenericParameterUnresolved Kind = "generic_parameter_unresolved"
	RouteConflict              Kind = "route_conflict"
	DuplicateFallback          Kind = "duplicate_fallback"
	DependencyCycle            Kind = "dependency_cycle"
	MissingConstructor         Kind = "missing_constructor"
	AmbiguousConstructor       Kind = "ambiguous_constructor"
	LifecycleMismatch          Kind = "lifecycle_mismatch"
	MustBeCloneable            Kind = "must_be_cloneable"
	InvalidPath                Kind = "invalid_path"
	InvalidConfigKey           Kind = "invalid_config_key"
	DuplicateConfigKey         Kind = "duplicate_config_key"
	InvalidBlueprint           Kind = "invalid_blueprint"
	UnusedComponent            Kind = "unused_component"
	MissingPathParam           Kind = "missing_path_param"
)

// Location points at the place a component was registered.
type Location struct {
	File   string `yaml:"file"`
	Line   int    `yaml:"line"`
	Column int    `yaml:"column"`
}

// IsZero reports whether the location carries no information.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Column == 0
}

func (l Location) String() string {
	if l.IsZero() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Diagnostic is a single finding. Component is the raw component id the
// finding is attached to, or -1 when it is not tied to one.
type Diagnostic struct {
	Severity  Severity
	Kind      Kind
	Message   string
	Span      *Location
	Help      string
	Component int
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s]: %s", d.Severity, d.Kind, d.Message)
	if d.Span != nil {
		fmt.Fprintf(&sb, "\n  --> %s", d.Span)
	}
	if d.Help != "" {
		fmt.Fprintf(&sb, "\n  help: %s", d.Help)
	}
	return sb.String()
}

// Set accumulates diagnostics for a compile pass. The zero value is ready to use.
type Set struct {
	items []Diagnostic
	seen  map[string]struct{}
}

// Add appends a diagnostic.
func (s *Set) Add(d Diagnostic) {
	s.items = append(s.items, d)
}

// AddOnce appends a diagnostic unless another one with the same dedupe key
// was already recorded. Used when the same shared component is reached from
// many handlers.
func (s *Set) AddOnce(key string, d Diagnostic) bool {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.Add(d)
	return true
}

// Errorf builds an Error-severity diagnostic that is not attached to a component.
func Errorf(kind Kind, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Error, Kind: kind, Message: fmt.Sprintf(format, args...), Component: -1}
}

// Warnf builds a Warning-severity diagnostic that is not attached to a component.
func Warnf(kind Kind, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Warning, Kind: kind, Message: fmt.Sprintf(format, args...), Component: -1}
}

// At attaches a source span.
func (d Diagnostic) At(loc Location) Diagnostic {
	if !loc.IsZero() {
		d.Span = &loc
	}
	return d
}

// For attaches the diagnostic to a component id.
func (d Diagnostic) For(component int) Diagnostic {
	d.Component = component
	return d
}

// WithHelp sets the remediation text.
func (d Diagnostic) WithHelp(format string, args ...any) Diagnostic {
	d.Help = fmt.Sprintf(format, args...)
	return d
}

// Items returns the diagnostics in the order they were recorded.
func (s *Set) Items() []Diagnostic {
	out := make([]Diagnostic, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of recorded diagnostics.
func (s *Set) Len() int { return len(s.items) }

// HasErrors reports whether any Error-severity diagnostic was recorded.
func (s *Set) HasErrors() bool {
	return s.ErrorCount() > 0
}

// ErrorCount returns the number of Error-severity diagnostics.
func (s *Set) ErrorCount() int {
	n := 0
	for _, d := range s.items {
		if d.Severity == Error {
			n++
		}
	}
	return n
}

// WarningCount returns the number of Warning-severity diagnostics.
func (s *Set) WarningCount() int {
	return len(s.items) - s.ErrorCount()
}

// OfKind returns every diagnostic of the given kind.
func (s *Set) OfKind(kind Kind) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.items {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Sorted returns the diagnostics ordered errors first, then by source position.
// Diagnostics without a span come last and keep their recording order.
func (s *Set) Sorted() []Diagnostic {
	out := s.Items()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		a, b := out[i].Span, out[j].Span
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}
