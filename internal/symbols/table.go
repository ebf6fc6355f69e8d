// Package symbols implements the resolution service from a table of declared
// callables and types. It lets the compiler run end to end from a blueprint
// that declares its own symbols instead of relying on a type checker.
package symbols

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/signature"
)

// Symbol is a declared callable.
type Symbol struct {
	Path     string
	Kind     signature.CallableKind
	Inputs   []signature.Type
	Output   signature.Type
	Error    signature.Type
	Location diag.Location
}

// TypeInfo is a declared type. Lifetimes lists non-static lifetime
// parameters, Generics lists generic parameters left unbound.
type TypeInfo struct {
	Path      string
	Lifetimes []string
	Generics  []string
	Fields    []string
	Location  diag.Location
}

// Table is a read-only set of declarations once filled. It is safe for
// concurrent use by Resolve.
type Table struct {
	symbols map[string]*Symbol
	types   map[string]*TypeInfo
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		symbols: make(map[string]*Symbol),
		types:   make(map[string]*TypeInfo),
	}
}

// AddSymbol declares a callable.
func (t *Table) AddSymbol(s Symbol) error {
	if s.Path == "" {
		return fmt.Errorf("symbol path cannot be empty")
	}
	if prev, ok := t.symbols[s.Path]; ok {
		return fmt.Errorf("symbol %q declared twice (first at %s)", s.Path, prev.Location)
	}
	if s.Kind == "" {
		s.Kind = signature.Function
	}
	t.symbols[s.Path] = &s
	return nil
}

// AddType declares a type.
func (t *Table) AddType(ti TypeInfo) error {
	if ti.Path == "" {
		return fmt.Errorf("type path cannot be empty")
	}
	if prev, ok := t.types[ti.Path]; ok {
		return fmt.Errorf("type %q declared twice (first at %s)", ti.Path, prev.Location)
	}
	t.types[ti.Path] = &ti
	return nil
}

// Merge copies every declaration of other into t.
func (t *Table) Merge(other *Table) error {
	for _, path := range sortedKeys(other.symbols) {
		if err := t.AddSymbol(*other.symbols[path]); err != nil {
			return err
		}
	}
	for _, path := range sortedKeys(other.types) {
		if err := t.AddType(*other.types[path]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of symbol and type declarations.
func (t *Table) Len() int { return len(t.symbols) + len(t.types) }

// Resolve implements signature.Resolver.
func (t *Table) Resolve(ctx context.Context, req signature.Request) (*signature.Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch req.Kind {
	case component.PrebuiltValue, component.ConfigValue:
		return t.resolveValue(req)
	default:
		return t.resolveCallable(req)
	}
}

func (t *Table) resolveValue(req signature.Request) (*signature.Signature, error) {
	path, err := lookup(t.types, req.Identifier, req.Module)
	if err != nil {
		if _, symErr := lookup(t.symbols, req.Identifier, req.Module); symErr == nil {
			return nil, &signature.Error{
				Kind:       signature.UnsupportedCallableKind,
				Identifier: req.Identifier,
				Detail:     fmt.Sprintf("a %s must name a type, not a callable", req.Kind),
			}
		}
		return nil, err
	}
	if err := t.checkConcrete(req.Identifier, signature.Type(path)); err != nil {
		return nil, err
	}
	return &signature.Signature{
		Path:     path,
		Callable: signature.TypeDecl,
		Output:   signature.Type(path),
	}, nil
}

func (t *Table) resolveCallable(req signature.Request) (*signature.Signature, error) {
	path, err := lookup(t.symbols, req.Identifier, req.Module)
	if err != nil {
		if _, typeErr := lookup(t.types, req.Identifier, req.Module); typeErr == nil {
			return nil, &signature.Error{
				Kind:       signature.UnsupportedCallableKind,
				Identifier: req.Identifier,
				Detail:     fmt.Sprintf("it is a type, a %s must be a function or a method", req.Kind),
			}
		}
		return nil, err
	}

	sym := t.symbols[path]
	if sym.Kind != signature.Function && sym.Kind != signature.Method {
		return nil, &signature.Error{
			Kind:       signature.UnsupportedCallableKind,
			Identifier: req.Identifier,
			Detail:     fmt.Sprintf("%s items cannot be registered as a %s", sym.Kind, req.Kind),
		}
	}
	if req.Kind == component.Constructor {
		if sym.Output == "" {
			return nil, &signature.Error{
				Kind:       signature.UnsupportedCallableKind,
				Identifier: req.Identifier,
				Detail:     "constructors must return a value",
			}
		}
		if req.Lifecycle == component.Singleton {
			if err := t.checkConcrete(req.Identifier, sym.Output); err != nil {
				return nil, err
			}
		}
	}

	return &signature.Signature{
		Path:     sym.Path,
		Callable: sym.Kind,
		Inputs:   append([]signature.Type(nil), sym.Inputs...),
		Output:   sym.Output,
		Error:    sym.Error,
	}, nil
}

// Fields returns the declared fields of typ.
func (t *Table) Fields(typ signature.Type) ([]string, bool) {
	ti, ok := t.types[string(typ)]
	if !ok {
		return nil, false
	}
	return ti.Fields, true
}

// checkConcrete rejects types that cannot outlive a single request.
func (t *Table) checkConcrete(identifier string, typ signature.Type) error {
	base := baseType(typ)
	if sigils := strings.TrimSuffix(string(typ), base); strings.Contains(sigils, "&") {
		return &signature.Error{
			Kind:       signature.NonStaticLifetime,
			Identifier: identifier,
			Detail:     fmt.Sprintf("%s is a borrowed reference and cannot be shared across requests", typ),
		}
	}
	ti, ok := t.types[base]
	if !ok {
		return nil
	}
	if len(ti.Lifetimes) > 0 {
		return &signature.Error{
			Kind:       signature.NonStaticLifetime,
			Identifier: identifier,
			Detail:     fmt.Sprintf("%s has lifetime parameters %s", ti.Path, strings.Join(ti.Lifetimes, ", ")),
		}
	}
	if len(ti.Generics) > 0 {
		return &signature.Error{
			Kind:       signature.GenericParameterUnresolved,
			Identifier: identifier,
			Detail:     fmt.Sprintf("%s has unbound parameters %s", ti.Path, strings.Join(ti.Generics, ", ")),
		}
	}
	return nil
}

// baseType strips pointer and reference sigils from a type reference.
func baseType(typ signature.Type) string {
	return strings.TrimLeft(string(typ), "*&[]")
}

// lookup resolves id to a declared path: exact match first, then relative to
// module, then by unique trailing name across all packages.
func lookup[V any](decls map[string]V, id, module string) (string, error) {
	if _, ok := decls[id]; ok {
		return id, nil
	}
	if module != "" {
		if q := module + "." + id; hasKey(decls, q) {
			return q, nil
		}
	}

	var candidates []string
	suffix := "." + id
	for path := range decls {
		if strings.HasSuffix(path, suffix) {
			candidates = append(candidates, path)
		}
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return "", &signature.Error{Kind: signature.UnknownSymbol, Identifier: id}
	case 1:
		return candidates[0], nil
	default:
		return "", &signature.Error{Kind: signature.AmbiguousSymbol, Identifier: id, Candidates: candidates}
	}
}

func hasKey[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ signature.Resolver = (*Table)(nil)
