package compiler

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/specialistvlad/blueprintc/internal/blueprint"
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/router"
	"github.com/specialistvlad/blueprintc/internal/scope"
)

var configKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ingested is the state built by the ingest stage.
type ingested struct {
	reg       *component.Registry
	tree      *scope.Tree
	routes    []router.Route
	fallbacks []router.Fallback
}

type ingester struct {
	ingested
	ds         *diag.Set
	configKeys map[string]diag.Location

	// middlewares and observers seen so far, in registration order.
	middlewares []component.ID
	observers   []component.ID
}

// ingest walks bp depth-first in entry order, creating a scope per nest and
// interning every registration. The registry is frozen on return.
func ingest(ctx context.Context, bp *blueprint.Blueprint, ds *diag.Set) (*ingested, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Ingest: Starting blueprint ingestion.")

	in := &ingester{
		ingested: ingested{
			reg:  component.NewRegistry(),
			tree: scope.New(),
		},
		ds:         ds,
		configKeys: make(map[string]diag.Location),
	}
	in.walk(bp, scope.Root, bp.Module)

	if err := in.reg.Validate(); err != nil {
		return nil, err
	}
	in.reg.Freeze()

	logger.Debug("Ingest: Finished.", "components", in.reg.Len(), "scopes", in.tree.Len(), "routes", len(in.routes))
	return &in.ingested, nil
}

func (in *ingester) walk(bp *blueprint.Blueprint, s scope.ID, module string) {
	if bp.Module != "" {
		module = bp.Module
	}
	for _, e := range bp.Entries {
		switch {
		case e.Nest != nil:
			in.nest(e.Nest, s, module)
		case e.Registration != nil:
			in.register(e.Registration, s, module)
		}
	}
}

func (in *ingester) nest(n *blueprint.Nest, parent scope.ID, module string) {
	prefix := n.Prefix
	if prefix != "" {
		if err := validatePrefix(prefix); err != nil {
			in.ds.Add(diag.Errorf(diag.InvalidPath, "invalid nest prefix: %v", err).
				At(n.Location).
				WithHelp("use a prefix such as \"/api\" or \"/users/{id}\""))
			prefix = ""
		}
	}
	child := in.tree.Create(parent, scope.Options{Prefix: prefix, Domain: n.Domain, Location: n.Location})
	if n.Blueprint != nil {
		in.walk(n.Blueprint, child, module)
	}
}

func validatePrefix(prefix string) error {
	p, err := router.ParsePattern(prefix)
	if err != nil {
		return err
	}
	for _, seg := range p.Segments {
		if seg.Kind == router.CatchAll {
			return fmt.Errorf("prefix %q cannot contain a catch-all parameter", prefix)
		}
	}
	return nil
}

func (in *ingester) invalid(r *blueprint.Registration, format string, args ...any) {
	in.ds.Add(diag.Errorf(diag.InvalidBlueprint, format, args...).At(r.Location))
}

func (in *ingester) register(r *blueprint.Registration, s scope.ID, module string) {
	if strings.TrimSpace(r.Identifier) == "" {
		in.invalid(r, "%s registration without an identifier", r.Kind)
		return
	}
	if r.Module != "" {
		module = r.Module
	}

	spec := component.Spec{
		Kind:       r.Kind,
		Identifier: r.Identifier,
		Module:     module,
		Scope:      s,
		Location:   r.Location,
		Lifecycle:  r.Lifecycle,
		Cloning:    r.Cloning,
		Lints:      r.Lints,
	}

	switch r.Kind {
	case component.Constructor:
		if r.Lifecycle == component.UnknownLifecycle {
			in.invalid(r, "constructor %q has no lifecycle", r.Identifier)
			return
		}
		if spec.Cloning == component.UnknownCloning {
			spec.Cloning = component.NeverClone
		}
	case component.PrebuiltValue:
		if spec.Cloning == component.UnknownCloning {
			spec.Cloning = component.NeverClone
		}
	case component.ConfigValue:
		if !in.configKey(r) {
			return
		}
		if spec.Cloning == component.UnknownCloning {
			spec.Cloning = component.NeverClone
		}
		spec.Config = r.Config
		spec.Discriminator = r.Config.Key
	case component.RequestHandler:
		if r.Route == nil {
			in.invalid(r, "request handler %q has no route", r.Identifier)
			return
		}
		spec.Discriminator = strings.Join(r.Route.Methods, ",") + " " + r.Route.Path
		spec.Middlewares, spec.Observers = in.applicable(s)
	case component.Fallback:
		spec.Middlewares, spec.Observers = in.applicable(s)
	case component.WrappingMiddleware, component.PreProcessingMiddleware, component.PostProcessingMiddleware, component.ErrorObserver:
	default:
		in.invalid(r, "%s %q cannot be registered directly", r.Kind, r.Identifier)
		return
	}

	if r.ErrorHandler != nil && !acceptsErrorHandler(r.Kind) {
		in.invalid(r, "%s %q cannot have an error handler", r.Kind, r.Identifier)
		return
	}

	id, fresh := in.reg.Intern(spec)
	if !fresh {
		// A repeated route still reaches the router, which reports it as a
		// conflict with the first registration.
		if r.Kind == component.RequestHandler {
			in.addRoute(r, s, id)
		}
		return
	}
	in.tree.Bind(id, s)

	switch r.Kind {
	case component.RequestHandler:
		in.addRoute(r, s, id)
	case component.Fallback:
		in.fallbacks = append(in.fallbacks, router.Fallback{Scope: s, Handler: id, Name: r.Identifier, Location: r.Location})
	case component.ErrorObserver:
		in.observers = append(in.observers, id)
	default:
		if r.Kind.Middleware() {
			in.middlewares = append(in.middlewares, id)
		}
	}

	if r.ErrorHandler != nil {
		eh, _ := in.reg.Intern(component.Spec{
			Kind:          component.ErrorHandler,
			Identifier:    r.ErrorHandler.Identifier,
			Module:        module,
			Scope:         s,
			Location:      r.ErrorHandler.Location,
			Owner:         id,
			Discriminator: id.String(),
		})
		in.tree.Bind(eh, s)
		in.reg.AttachErrorHandler(id, eh)
	}
}

func (in *ingester) addRoute(r *blueprint.Registration, s scope.ID, id component.ID) {
	in.routes = append(in.routes, router.Route{
		Methods:  r.Route.Methods,
		Path:     router.Join(in.tree.Prefix(s), r.Route.Path),
		Domain:   in.tree.Domain(s),
		Scope:    s,
		Handler:  id,
		Name:     r.Identifier,
		Location: r.Location,
	})
}

func acceptsErrorHandler(k component.Kind) bool {
	switch k {
	case component.Constructor, component.RequestHandler, component.Fallback:
		return true
	default:
		return k.Middleware()
	}
}

// configKey validates the key of a config registration and records it.
// Keys are unique across the whole blueprint.
func (in *ingester) configKey(r *blueprint.Registration) bool {
	if r.Config == nil {
		in.invalid(r, "config value %q has no key", r.Identifier)
		return false
	}
	key := r.Config.Key
	if !configKeyRe.MatchString(key) {
		in.ds.Add(diag.Errorf(diag.InvalidConfigKey, "invalid config key %q", key).
			At(r.Location).
			WithHelp("config keys start with a lowercase letter followed by lowercase letters, digits or underscores"))
		return false
	}
	if prev, ok := in.configKeys[key]; ok {
		in.ds.Add(diag.Errorf(diag.DuplicateConfigKey, "config key %q is already registered at %s", key, prev).
			At(r.Location).
			WithHelp("rename one of the keys; each key maps to one section of the application configuration"))
		return false
	}
	in.configKeys[key] = r.Location
	return true
}

// applicable returns the middlewares and observers that wrap a handler
// registered now in scope s: those registered earlier in s or an ancestor.
func (in *ingester) applicable(s scope.ID) (mws, obs []component.ID) {
	mws, obs = []component.ID{}, []component.ID{}
	for _, m := range in.middlewares {
		if in.tree.Visible(in.reg.Scope(m), s) {
			mws = append(mws, m)
		}
	}
	for _, o := range in.observers {
		if in.tree.Visible(in.reg.Scope(o), s) {
			obs = append(obs, o)
		}
	}
	return mws, obs
}
