package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/blueprintc/internal/blueprint"
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/resolver"
	"github.com/specialistvlad/blueprintc/internal/router"
	"github.com/specialistvlad/blueprintc/internal/signature"
)

// checkPathParams reports every component that extracts path parameters
// into a struct with fields the route template does not declare. Types the
// resolver has no field list for are not checked.
func checkPathParams(ctx context.Context, reg *component.Registry, routes *router.Table, res *resolver.Result, fields signature.FieldLister, ds *diag.Set) {
	logger := ctxlog.FromContext(ctx)
	checked := 0

	for _, row := range routes.Rows {
		g := res.Graphs[row.Handler]
		if g == nil {
			continue
		}
		pattern, err := router.ParsePattern(row.Pattern)
		if err != nil {
			continue
		}
		params := make(map[string]struct{})
		for _, p := range pattern.Params() {
			params[p] = struct{}{}
		}

		for _, node := range g.Nodes {
			for _, b := range g.Bindings[node] {
				if b.Source != resolver.FromFramework {
					continue
				}
				base, target, ok := blueprint.Instance(b.Type)
				if !ok || base != blueprint.PathParamsType {
					continue
				}
				declared, known := fields.Fields(target)
				if !known {
					continue
				}
				checked++

				var missing []string
				for _, f := range declared {
					if _, ok := params[f]; !ok {
						missing = append(missing, f)
					}
				}
				if len(missing) == 0 {
					continue
				}
				key := fmt.Sprintf("%d|%d|%s|%s", row.Handler, node, row.Domain, row.Pattern)
				ds.AddOnce(key, diag.Errorf(diag.MissingPathParam, "%s extracts %s, but route %s does not declare %s",
					reg.Describe(node), b.Type, row.Pattern, quoteAll(missing)).
					At(reg.Location(node)).
					For(int(node)).
					WithHelp("add %s to the route template or remove the field from %s", templateParams(missing), target))
			}
		}
	}

	logger.Debug("PathParams: Finished.", "checked", checked)
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

func templateParams(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "{" + n + "}"
	}
	return strings.Join(out, ", ")
}
