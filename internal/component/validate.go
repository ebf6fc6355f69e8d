package component

import (
	"fmt"
	"strings"
)

// Validate checks the metadata invariants every later stage relies on:
// constructibles carry a lifecycle and a cloning strategy, handlers carry
// their middleware and observer lists, and every back-reference points at a
// component of the right kind.
func (r *Registry) Validate() error {
	var errs []string

	for i := range r.components {
		c := &r.components[i]
		if c.Kind.Constructible() {
			if c.Lifecycle == UnknownLifecycle {
				errs = append(errs, fmt.Sprintf("%s: missing lifecycle", describe(c)))
			}
			if c.Cloning == UnknownCloning {
				errs = append(errs, fmt.Sprintf("%s: missing cloning strategy", describe(c)))
			}
		}
		if c.Kind == ConfigValue && c.Config == nil {
			errs = append(errs, fmt.Sprintf("%s: missing config metadata", describe(c)))
		}
		if c.Kind.Handler() {
			if c.Middlewares == nil || c.Observers == nil {
				errs = append(errs, fmt.Sprintf("%s: missing middleware or observer list", describe(c)))
			}
			for _, m := range c.Middlewares {
				if !r.Has(m) || !r.components[m].Kind.Middleware() {
					errs = append(errs, fmt.Sprintf("%s: middleware reference %s is not a middleware", describe(c), m))
				}
			}
			for _, o := range c.Observers {
				if !r.Has(o) || r.components[o].Kind != ErrorObserver {
					errs = append(errs, fmt.Sprintf("%s: observer reference %s is not an error observer", describe(c), o))
				}
			}
		}
		if c.ErrorHandler != None && (!r.Has(c.ErrorHandler) || r.components[c.ErrorHandler].Kind != ErrorHandler) {
			errs = append(errs, fmt.Sprintf("%s: error handler reference %s is not an error handler", describe(c), c.ErrorHandler))
		}
		if c.Kind == ErrorHandler && !r.Has(c.Owner) {
			errs = append(errs, fmt.Sprintf("%s: error handler without owner", describe(c)))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("component registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
