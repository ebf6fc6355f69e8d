package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/blueprintc/internal/app"
	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/specialistvlad/blueprintc/internal/watch"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitFailed = 1
	ExitUsage  = 2
)

// DefaultListenURL is where `blueprintc listen` connects unless --url is given.
const DefaultListenURL = "http://127.0.0.1:8090"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// flags holds the values bound to command-line flags.
type flags struct {
	logFormat string
	logLevel  string
	workers   int
	lints     string
	out       string
	serve     string
	debounce  time.Duration
	url       string
}

// Execute runs the command line in args, never os.Args. Reports go to outW,
// logs to logW. Every returned error is an *ExitError.
func Execute(ctx context.Context, args []string, outW, logW io.Writer) error {
	if args == nil {
		args = []string{}
	}
	root := NewRootCommand(outW, logW)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Anything cobra reports on its own is a usage problem.
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// NewRootCommand builds the blueprintc command tree.
func NewRootCommand(outW, logW io.Writer) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "blueprintc",
		Short: "Compile HCL request-pipeline blueprints into call plans.",
		Long: `blueprintc reads blueprints that register constructors, middlewares and
routes, checks the dependency graph behind every route at build time and
emits the call plan of each request handler.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.IntVar(&f.workers, "workers", app.DefaultWorkers, "Number of concurrent signature lookups.")
	pf.StringVar(&f.lints, "lints", "", "Path to a YAML lint configuration.")

	compile := &cobra.Command{
		Use:   "compile PATH...",
		Short: "Compile blueprints and emit the plan artifact.",
		Args:  requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(f, args, outW, logW)
			if err != nil {
				return err
			}
			return exitCode(a.Compile(cmd.Context()))
		},
	}
	compile.Flags().StringVarP(&f.out, "out", "o", "", "Write the plan artifact to this file instead of stdout.")

	routes := &cobra.Command{
		Use:   "routes PATH...",
		Short: "Print the route table.",
		Args:  requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(f, args, outW, logW)
			if err != nil {
				return err
			}
			return exitCode(a.Routes(cmd.Context()))
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch PATH...",
		Short: "Recompile whenever a blueprint file changes.",
		Args:  requirePaths,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(f, args, outW, logW)
			if err != nil {
				return err
			}
			return exitCode(a.Watch(cmd.Context()))
		},
	}
	watchCmd.Flags().StringVarP(&f.out, "out", "o", "", "Rewrite the plan artifact at this path after every pass.")
	watchCmd.Flags().StringVar(&f.serve, "serve", "", "Address of the dev server pushing pass results, e.g. 127.0.0.1:8090. Empty is disabled.")
	watchCmd.Flags().DurationVar(&f.debounce, "debounce", watch.DefaultDebounce, "Quiet period after a change before recompiling.")

	listen := &cobra.Command{
		Use:   "listen",
		Short: "Print the pass results pushed by a running watch --serve.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(f, nil, outW, logW)
			if err != nil {
				return err
			}
			return exitCode(a.Listen(cmd.Context(), f.url))
		},
	}
	listen.Flags().StringVar(&f.url, "url", DefaultListenURL, "URL of the dev server.")

	root.AddCommand(compile, routes, watchCmd, listen)
	return root
}

func requirePaths(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return usageError("at least one blueprint file or directory is required")
	}
	return nil
}

// newApp validates the flags and builds the application.
func newApp(f *flags, paths []string, outW, logW io.Writer) (*app.App, error) {
	cfg, err := app.NewConfig(app.Config{
		BlueprintPaths: paths,
		OutPath:        f.out,
		LintConfigPath: f.lints,
		LogFormat:      strings.ToLower(f.logFormat),
		LogLevel:       strings.ToLower(f.logLevel),
		Workers:        f.workers,
		ServeAddr:      f.serve,
		Debounce:       f.debounce,
	})
	if err != nil {
		return nil, usageError("%v", err)
	}
	a, err := app.NewApp(outW, logW, cfg)
	if err != nil {
		return nil, &ExitError{Code: ExitFailed, Message: err.Error()}
	}
	return a, nil
}

// exitCode maps an application error to an ExitError.
func exitCode(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	var failed *compiler.FailedError
	if errors.As(err, &failed) {
		return &ExitError{Code: ExitFailed, Message: failed.Error()}
	}
	return &ExitError{Code: ExitFailed, Message: err.Error()}
}
