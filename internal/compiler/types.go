package compiler

import (
	"context"
	"errors"

	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/signature"
)

var signatureKinds = map[signature.ErrorKind]diag.Kind{
	signature.UnknownSymbol:              diag.UnknownSymbol,
	signature.AmbiguousSymbol:            diag.AmbiguousSymbol,
	signature.UnsupportedCallableKind:    diag.UnsupportedCallableKind,
	signature.GenericParameterUnresolved: diag.GenericParameterUnresolved,
	signature.NonStaticLifetime:          diag.NonStaticLifetime,
}

var signatureHelp = map[signature.ErrorKind]string{
	signature.UnknownSymbol:              "check the spelling and the module the identifier is resolved against",
	signature.AmbiguousSymbol:            "use a fully qualified path",
	signature.UnsupportedCallableKind:    "register a function or method, or a type for prebuilt and config values",
	signature.GenericParameterUnresolved: "bind every generic parameter of the type",
	signature.NonStaticLifetime:          "singletons cannot borrow request data; change the lifecycle or own the data",
}

// resolveTypes prefetches the signature of every component and turns
// resolution failures into diagnostics.
func resolveTypes(ctx context.Context, reg *component.Registry, opts Options, ds *diag.Set) (map[component.ID]*signature.Signature, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Types: Starting signature resolution.", "components", reg.Len(), "workers", opts.Workers)

	ids := reg.All()
	reqs := make([]signature.Request, len(ids))
	for i, id := range ids {
		c := reg.Get(id)
		reqs[i] = signature.Request{
			Component:  id,
			Kind:       c.Kind,
			Identifier: c.Raw,
			Module:     c.Module,
			Lifecycle:  c.Lifecycle,
		}
	}

	results, err := signature.Prefetch(ctx, opts.Resolver, reqs, opts.Workers)
	if err != nil {
		return nil, err
	}

	sigs := make(map[component.ID]*signature.Signature, len(results))
	for _, res := range results {
		id := res.Request.Component
		if res.Err == nil && res.Signature == nil {
			res.Err = &signature.Error{Kind: signature.UnknownSymbol, Identifier: res.Request.Identifier}
		}
		if res.Err != nil {
			ds.Add(signatureDiagnostic(reg, id, res.Err))
			continue
		}
		sigs[id] = res.Signature
	}

	logger.Debug("Types: Finished.", "resolved", len(sigs), "failed", len(results)-len(sigs))
	return sigs, nil
}

func signatureDiagnostic(reg *component.Registry, id component.ID, err error) diag.Diagnostic {
	kind := diag.UnknownSymbol
	help := ""
	var sigErr *signature.Error
	if errors.As(err, &sigErr) {
		if k, ok := signatureKinds[sigErr.Kind]; ok {
			kind = k
		}
		help = signatureHelp[sigErr.Kind]
	}
	d := diag.Errorf(kind, "%s: %v", reg.Describe(id), err).
		At(reg.Location(id)).
		For(int(id))
	if help != "" {
		d = d.WithHelp("%s", help)
	}
	return d
}
