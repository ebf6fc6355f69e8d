// Package signature is the contract between the compiler and the type and
// callable resolution service: given a raw identifier and the module it was
// registered from, the service answers with the callable's input and output
// types or with a typed failure.
package signature

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/blueprintc/internal/component"
)

// Type is a fully qualified type reference, e.g. "*sql.DB" or "app.Config".
type Type string

// ErrorInterface is the universal error type every fallible callable's error
// can be observed as.
const ErrorInterface Type = "error"

// CallableKind classifies what an identifier resolved to.
type CallableKind string

const (
	Function CallableKind = "function"
	Method   CallableKind = "method"
	TypeDecl CallableKind = "type"
	Static   CallableKind = "static"
)

// ParseCallableKind parses the declared kind of a symbol. An empty string is a function.
func ParseCallableKind(s string) (CallableKind, error) {
	switch k := CallableKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return Function, nil
	case Function, Method, TypeDecl, Static:
		return k, nil
	default:
		return "", fmt.Errorf("invalid symbol kind %q: must be 'function', 'method', 'type' or 'static'", s)
	}
}

// Request asks for the signature of one component.
type Request struct {
	Component  component.ID
	Kind       component.Kind
	Identifier string
	Module     string
	Lifecycle  component.Lifecycle
}

// Signature is a resolved callable. For prebuilt and config values Inputs is
// empty and Output is the value's type.
type Signature struct {
	Path     string
	Callable CallableKind
	Inputs   []Type
	Output   Type

	// Error is empty when the callable cannot fail.
	Error Type
}

// Fallible reports whether the callable can fail.
func (s *Signature) Fallible() bool { return s.Error != "" }

// Resolver is the resolution service.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*Signature, error)
}

// FieldLister is implemented by resolvers that know the fields of declared
// struct types. ok is false when typ is not declared.
type FieldLister interface {
	Fields(typ Type) (fields []string, ok bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, req Request) (*Signature, error)

func (f ResolverFunc) Resolve(ctx context.Context, req Request) (*Signature, error) {
	return f(ctx, req)
}
