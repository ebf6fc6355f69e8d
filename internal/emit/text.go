package emit

import (
	"fmt"
	"io"

	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/diag"
)

// Diagnostics prints every diagnostic followed by a count line.
func Diagnostics(w io.Writer, ds []diag.Diagnostic) error {
	errs, warns := 0, 0
	for _, d := range ds {
		if d.Severity == diag.Error {
			errs++
		} else {
			warns++
		}
		if _, err := fmt.Fprintf(w, "%s\n\n", d); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d error(s), %d warning(s)\n", errs, warns)
	return err
}

// Routes prints the route table with handler and fallback names.
func Routes(w io.Writer, out *compiler.Output) error {
	if out.Routes == nil {
		return fmt.Errorf("no route table: the pass stopped during %s", out.Stage)
	}
	for _, r := range out.Routes.Rows {
		line := fmt.Sprintf("%s -> %s", r, out.Registry.Raw(r.Handler))
		if r.Fallback != component.None {
			line += fmt.Sprintf(" (fallback %s)", out.Registry.Raw(r.Fallback))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
