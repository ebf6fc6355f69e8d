package app

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/specialistvlad/blueprintc/internal/devserver"
	"github.com/specialistvlad/blueprintc/internal/emit"
	"github.com/specialistvlad/blueprintc/internal/hclblueprint"
	"github.com/specialistvlad/blueprintc/internal/watch"
)

// Watch recompiles on every blueprint change until ctx is done. Each result
// is summarized on the output writer, written to OutPath when set, and
// broadcast by the dev server when ServeAddr is set.
func (a *App) Watch(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Watch method started.")

	var srv *devserver.Server
	if a.config.ServeAddr != "" {
		srv = devserver.New(a.config.ServeAddr)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Shutdown(context.WithoutCancel(ctx))
	} else {
		logger.Debug("Dev server not started: disabled")
	}

	w, err := watch.New[*compiler.Output](watch.Options{
		Paths:     a.config.BlueprintPaths,
		Extension: hclblueprint.Extension,
		Debounce:  a.config.Debounce,
	}, a.pass, func(out *compiler.Output, err error) {
		a.deliver(ctx, srv, out, err)
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// deliver reports one finished pass.
func (a *App) deliver(ctx context.Context, srv *devserver.Server, out *compiler.Output, err error) {
	logger := ctxlog.FromContext(ctx)
	ev := devserver.NewEvent(out, err, time.Now())

	fmt.Fprintln(a.outW, ev.Summary())
	for _, d := range ev.Diagnostics {
		fmt.Fprintf(a.outW, "%s\n\n", d)
	}

	if out != nil && a.config.OutPath != "" {
		if werr := emit.WriteFile(a.config.OutPath, out); werr != nil {
			logger.Error("Failed to write plan.", "path", a.config.OutPath, "error", werr)
		}
	}
	if srv != nil {
		srv.Publish(ctx, ev)
	}
}

// Listen prints the pass events of a running dev server until ctx is done.
func (a *App) Listen(ctx context.Context, url string) error {
	ctx = a.withLogger(ctx)
	return devserver.Listen(ctx, url, func(ev devserver.Event) {
		fmt.Fprintln(a.outW, ev.Summary())
		for _, r := range ev.Routes {
			fmt.Fprintf(a.outW, "  %s\n", r)
		}
		for _, d := range ev.Diagnostics {
			fmt.Fprintf(a.outW, "%s\n\n", d)
		}
	})
}
