package component

import (
	"fmt"

	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/lint"
)

// Spec describes a registration handed to Intern.
type Spec struct {
	Kind       Kind
	Identifier string
	Module     string
	Scope      ScopeID
	Location   diag.Location

	// Discriminator separates registrations that share kind, identifier and
	// scope but are still distinct components: the route of a handler, the
	// key of a config value or the owner of an error handler.
	Discriminator string

	Lifecycle Lifecycle
	Cloning   Cloning
	Config    *Config

	// Owner is the component an error handler handles errors for.
	Owner ID

	Middlewares []ID
	Observers   []ID
	Lints       lint.Overrides
}

// Component is a registered component record.
type Component struct {
	ID         ID
	Kind       Kind
	Identifier IdentifierID
	Raw        string
	Module     string
	Scope      ScopeID
	Location   diag.Location

	Lifecycle Lifecycle
	Cloning   Cloning
	Config    *Config

	ErrorHandler ID
	Owner        ID

	Middlewares []ID
	Observers   []ID
	Lints       lint.Overrides
}

// HasErrorHandler reports whether an error handler is attached.
func (c *Component) HasErrorHandler() bool { return c.ErrorHandler != None }

type internKey struct {
	kind          Kind
	identifier    IdentifierID
	scope         ScopeID
	discriminator string
}

// Registry is the component arena.
type Registry struct {
	components  []Component
	identifiers *Identifiers
	interned    map[internKey]ID
	byKind      map[Kind][]ID
	frozen      bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		identifiers: newIdentifiers(),
		interned:    make(map[internKey]ID),
		byKind:      make(map[Kind][]ID),
	}
}

func (r *Registry) mustBeMutable(op string) {
	if r.frozen {
		panic(fmt.Sprintf("component registry: %s after Freeze", op))
	}
}

// Intern registers a component. Registering the same kind, identifier, scope
// and discriminator again returns the id allocated the first time and false.
func (r *Registry) Intern(s Spec) (ID, bool) {
	r.mustBeMutable("Intern")

	ident := r.identifiers.Intern(s.Identifier)
	key := internKey{kind: s.Kind, identifier: ident, scope: s.Scope, discriminator: s.Discriminator}
	if id, ok := r.interned[key]; ok {
		return id, false
	}

	id := ID(len(r.components))
	c := Component{
		ID:           id,
		Kind:         s.Kind,
		Identifier:   ident,
		Raw:          s.Identifier,
		Module:       s.Module,
		Scope:        s.Scope,
		Location:     s.Location,
		Lifecycle:    s.Lifecycle,
		Cloning:      s.Cloning,
		Config:       s.Config,
		ErrorHandler: None,
		Owner:        None,
		Lints:        s.Lints,
	}
	switch {
	case s.Kind == PrebuiltValue || s.Kind == ConfigValue:
		c.Lifecycle = Singleton
	case s.Kind == ErrorHandler:
		c.Owner = s.Owner
	case s.Kind.Handler():
		c.Middlewares = append([]ID{}, s.Middlewares...)
		c.Observers = append([]ID{}, s.Observers...)
	}

	r.components = append(r.components, c)
	r.interned[key] = id
	r.byKind[s.Kind] = append(r.byKind[s.Kind], id)
	return id, true
}

// AttachErrorHandler records handler as the error handler of owner.
func (r *Registry) AttachErrorHandler(owner, handler ID) {
	r.mustBeMutable("AttachErrorHandler")
	r.components[owner].ErrorHandler = handler
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool { return r.frozen }

// Len returns the number of registered components.
func (r *Registry) Len() int { return len(r.components) }

// Get returns the component with the given id. The returned pointer must not
// be used to modify the record.
func (r *Registry) Get(id ID) *Component {
	return &r.components[id]
}

// Has reports whether id addresses a registered component.
func (r *Registry) Has(id ID) bool {
	return id != None && int(id) < len(r.components)
}

// All returns every component id in registration order.
func (r *Registry) All() []ID {
	out := make([]ID, len(r.components))
	for i := range r.components {
		out[i] = ID(i)
	}
	return out
}

// ByKind returns the ids of every component of the given kind in
// registration order.
func (r *Registry) ByKind(k Kind) []ID {
	return append([]ID(nil), r.byKind[k]...)
}

// Handlers returns request handlers and fallbacks in registration order.
func (r *Registry) Handlers() []ID {
	var out []ID
	for i := range r.components {
		if r.components[i].Kind.Handler() {
			out = append(out, ID(i))
		}
	}
	return out
}

// Identifiers exposes the identifier interner.
func (r *Registry) Identifiers() *Identifiers { return r.identifiers }

func (r *Registry) Raw(id ID) string               { return r.components[id].Raw }
func (r *Registry) Location(id ID) diag.Location   { return r.components[id].Location }
func (r *Registry) Lifecycle(id ID) Lifecycle      { return r.components[id].Lifecycle }
func (r *Registry) Cloning(id ID) Cloning          { return r.components[id].Cloning }
func (r *Registry) Middlewares(handler ID) []ID    { return r.components[handler].Middlewares }
func (r *Registry) ErrorObservers(handler ID) []ID { return r.components[handler].Observers }
func (r *Registry) Lints(id ID) lint.Overrides     { return r.components[id].Lints }
func (r *Registry) ErrorHandlerOf(id ID) ID        { return r.components[id].ErrorHandler }
func (r *Registry) Kind(id ID) Kind                { return r.components[id].Kind }
func (r *Registry) Scope(id ID) ScopeID            { return r.components[id].Scope }
func (r *Registry) Describe(id ID) string          { return describe(&r.components[id]) }

func describe(c *Component) string {
	if c.Kind == ConfigValue && c.Config != nil {
		return fmt.Sprintf("config %q (%s)", c.Config.Key, c.Raw)
	}
	return fmt.Sprintf("%s %q", c.Kind, c.Raw)
}
