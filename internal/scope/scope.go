// Package scope builds the tree of nested registration scopes. A component
// bound in a scope is visible to that scope and its descendants only; lookups
// walk parent pointers from the nearest scope outwards.
package scope

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/diag"
)

// ID addresses a scope node.
type ID = component.ScopeID

// Root is the application-wide scope.
const Root = component.RootScope

// Options configures a child scope. Prefix is prepended to the paths of every
// route registered below the scope; Domain restricts those routes to a single
// host.
type Options struct {
	Prefix   string
	Domain   string
	Location diag.Location
}

// Node is a single scope.
type Node struct {
	ID         ID
	Parent     ID
	HasParent  bool
	Children   []ID
	Components []component.ID
	Prefix     string
	Domain     string
	Location   diag.Location
}

// Tree is the rooted scope tree. Scopes can only be added through Create, so
// the structure is a tree by construction.
type Tree struct {
	nodes []Node
}

// New returns a tree holding only the root scope.
func New() *Tree {
	return &Tree{nodes: []Node{{ID: Root}}}
}

func (t *Tree) node(id ID) *Node {
	if int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("scope: unknown scope %d", id))
	}
	return &t.nodes[id]
}

// Create adds a child of parent and returns its id.
func (t *Tree) Create(parent ID, opts Options) ID {
	p := t.node(parent)
	id := ID(len(t.nodes))
	p.Children = append(p.Children, id)
	t.nodes = append(t.nodes, Node{
		ID:        id,
		Parent:    parent,
		HasParent: true,
		Prefix:    opts.Prefix,
		Domain:    opts.Domain,
		Location:  opts.Location,
	})
	return id
}

// Bind records that c is owned by scope s.
func (t *Tree) Bind(c component.ID, s ID) {
	n := t.node(s)
	n.Components = append(n.Components, c)
}

// Len returns the number of scopes, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns a copy of the scope record.
func (t *Tree) Node(id ID) Node {
	n := *t.node(id)
	n.Children = append([]ID(nil), n.Children...)
	n.Components = append([]component.ID(nil), n.Components...)
	return n
}

// Parent returns the parent of id. The root has none.
func (t *Tree) Parent(id ID) (ID, bool) {
	n := t.node(id)
	return n.Parent, n.HasParent
}

// Components returns the components bound directly in id, in binding order.
func (t *Tree) Components(id ID) []component.ID {
	return t.node(id).Components
}

// Ancestors returns id followed by its parent, grandparent and so on up to
// the root.
func (t *Tree) Ancestors(id ID) []ID {
	var out []ID
	for cur, ok := id, true; ok; {
		out = append(out, cur)
		cur, ok = t.Parent(cur)
	}
	return out
}

// Visible reports whether a component bound in owner can be seen from scope from.
func (t *Tree) Visible(owner, from ID) bool {
	for _, a := range t.Ancestors(from) {
		if a == owner {
			return true
		}
	}
	return false
}

// Prefix returns the concatenated path prefix of id and all its ancestors,
// outermost first.
func (t *Tree) Prefix(id ID) string {
	chain := t.Ancestors(id)
	var sb strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		sb.WriteString(strings.TrimSuffix(t.node(chain[i]).Prefix, "/"))
	}
	return sb.String()
}

// Domain returns the nearest domain guard, or "" when none applies.
func (t *Tree) Domain(id ID) string {
	for _, a := range t.Ancestors(id) {
		if d := t.node(a).Domain; d != "" {
			return d
		}
	}
	return ""
}
