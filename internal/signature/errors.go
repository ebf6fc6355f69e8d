package signature

import (
	"fmt"
	"strings"
)

// ErrorKind is the class of a resolution failure.
type ErrorKind string

const (
	UnknownSymbol              ErrorKind = "unknown_symbol"
	AmbiguousSymbol            ErrorKind = "ambiguous_symbol"
	UnsupportedCallableKind    ErrorKind = "unsupported_callable_kind"
	GenericParameterUnresolved ErrorKind = "generic_parameter_unresolved"
	NonStaticLifetime          ErrorKind = "non_static_lifetime"
)

// Error is a typed resolution failure. Candidates lists the matching paths
// of an ambiguous identifier.
type Error struct {
	Kind       ErrorKind
	Identifier string
	Candidates []string
	Detail     string
}

func (e *Error) Error() string {
	var sb strings.Builder
	switch e.Kind {
	case UnknownSymbol:
		fmt.Fprintf(&sb, "cannot find %q", e.Identifier)
	case AmbiguousSymbol:
		fmt.Fprintf(&sb, "%q is ambiguous: it matches %s", e.Identifier, strings.Join(e.Candidates, ", "))
	case UnsupportedCallableKind:
		fmt.Fprintf(&sb, "%q cannot be used here", e.Identifier)
	case GenericParameterUnresolved:
		fmt.Fprintf(&sb, "%q has unresolved generic parameters", e.Identifier)
	case NonStaticLifetime:
		fmt.Fprintf(&sb, "%q borrows data with a non-static lifetime", e.Identifier)
	default:
		fmt.Fprintf(&sb, "failed to resolve %q", e.Identifier)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}
