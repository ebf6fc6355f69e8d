package emit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/blueprintc/internal/callplan"
	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/specialistvlad/blueprintc/internal/component"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// Build converts a compile output into its artifact document. A failed pass
// still yields a document holding whatever the completed stages produced.
func Build(out *compiler.Output) (*Document, error) {
	doc := &Document{Stage: string(out.Stage)}

	if reg := out.Registry; reg != nil {
		for _, id := range reg.All() {
			cd, err := componentDoc(reg.Get(id), out)
			if err != nil {
				return nil, err
			}
			doc.Components = append(doc.Components, cd)
		}
	}

	if out.Routes != nil {
		for _, r := range out.Routes.Rows {
			doc.Routes = append(doc.Routes, RouteDoc{
				Methods:  r.Methods,
				Pattern:  r.Pattern,
				Domain:   r.Domain,
				Handler:  uint32(r.Handler),
				Fallback: optionalID(r.Fallback),
			})
		}
		scopes := make([]component.ScopeID, 0, len(out.Routes.Fallbacks))
		for s := range out.Routes.Fallbacks {
			scopes = append(scopes, s)
		}
		sort.Slice(scopes, func(i, j int) bool { return scopes[i] < scopes[j] })
		for _, s := range scopes {
			doc.Fallbacks = append(doc.Fallbacks, FallbackDoc{Scope: uint32(s), Handler: uint32(out.Routes.Fallbacks[s])})
		}
	}

	for _, p := range out.Plans {
		doc.Plans = append(doc.Plans, planDoc(p))
	}
	for _, d := range out.Diagnostics {
		doc.Diagnostics = append(doc.Diagnostics, diagnosticDoc(d))
	}
	return doc, nil
}

// Write encodes the artifact of out as YAML.
func Write(w io.Writer, out *compiler.Output) error {
	doc, err := Build(out)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode plan artifact: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the artifact to path, creating parent directories. The
// file is replaced atomically.
func WriteFile(path string, out *compiler.Output) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".blueprintc-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temporary output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, out); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}

func componentDoc(c *component.Component, out *compiler.Output) (ComponentDoc, error) {
	cd := ComponentDoc{
		ID:           uint32(c.ID),
		Kind:         c.Kind.String(),
		Identifier:   c.Raw,
		Scope:        uint32(c.Scope),
		ErrorHandler: optionalID(c.ErrorHandler),
	}
	if !c.Location.IsZero() {
		cd.Location = c.Location.String()
	}
	if sig, ok := out.Signatures[c.ID]; ok && sig != nil {
		cd.Path = sig.Path
	}
	if c.Kind.Constructible() {
		cd.Lifecycle = c.Lifecycle.String()
		cd.Cloning = c.Cloning.String()
	}
	if c.Config != nil {
		def, err := encodeDefault(c.Config.Default)
		if err != nil {
			return ComponentDoc{}, fmt.Errorf("config %q: %w", c.Config.Key, err)
		}
		cd.Config = &ConfigDoc{
			Key:      c.Config.Key,
			Type:     c.Config.Type,
			Strategy: c.Config.Strategy.String(),
			Default:  def,
		}
	}
	return cd, nil
}

// encodeDefault renders a config default as JSON. Null and absent defaults
// encode as the empty string.
func encodeDefault(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("default value is not known at compile time")
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", fmt.Errorf("failed to encode default value: %w", err)
	}
	return string(b), nil
}

func planDoc(p *callplan.Plan) PlanDoc {
	return PlanDoc{
		Handler:   uint32(p.Handler),
		Wrapping:  ids(p.Wrapping),
		Pre:       ids(p.Pre),
		Post:      ids(p.Post),
		Observers: ids(p.Observers),
		Steps:     stepDocs(p.Steps),
	}
}

func stepDocs(steps []callplan.Step) []StepDoc {
	if len(steps) == 0 {
		return nil
	}
	out := make([]StepDoc, len(steps))
	for i, s := range steps {
		sd := StepDoc{
			Seq:       s.Seq,
			Kind:      s.Kind.String(),
			Component: uint32(s.Component),
			Depth:     s.Depth,
		}
		for _, in := range s.Inputs {
			id := InputDoc{Type: string(in.Type), Source: in.Source.String()}
			if in.From != callplan.NoStep {
				from := in.From
				id.From = &from
			}
			sd.Inputs = append(sd.Inputs, id)
		}
		if r := s.OnError; r != nil {
			sd.OnError = &ErrorRouteDoc{
				Handler:   optionalID(r.Handler),
				Via:       optionalID(r.Via),
				Steps:     stepDocs(r.Steps),
				Observers: stepDocs(r.Observers),
			}
		}
		out[i] = sd
	}
	return out
}

func diagnosticDoc(d diag.Diagnostic) DiagnosticDoc {
	dd := DiagnosticDoc{
		Severity: d.Severity.String(),
		Kind:     string(d.Kind),
		Message:  d.Message,
		Help:     d.Help,
	}
	if d.Span != nil {
		dd.Location = d.Span.String()
	}
	if d.Component >= 0 {
		c := uint32(d.Component)
		dd.Component = &c
	}
	return dd
}

func ids(in []component.ID) []uint32 {
	if len(in) == 0 {
		return nil
	}
	out := make([]uint32, len(in))
	for i, id := range in {
		out[i] = uint32(id)
	}
	return out
}

func optionalID(id component.ID) *uint32 {
	if id == component.None {
		return nil
	}
	v := uint32(id)
	return &v
}
