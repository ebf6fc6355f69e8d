// Package emit renders the result of a compile pass as the YAML artifact a
// code generator consumes, and as the short human summaries printed by the
// command line.
package emit

// Document is the artifact of one compile pass. It carries no pass id so
// that identical input produces identical bytes.
type Document struct {
	Stage       string          `yaml:"stage"`
	Components  []ComponentDoc  `yaml:"components"`
	Routes      []RouteDoc      `yaml:"routes"`
	Fallbacks   []FallbackDoc   `yaml:"fallbacks,omitempty"`
	Plans       []PlanDoc       `yaml:"plans"`
	Diagnostics []DiagnosticDoc `yaml:"diagnostics,omitempty"`
}

type ComponentDoc struct {
	ID           uint32     `yaml:"id"`
	Kind         string     `yaml:"kind"`
	Identifier   string     `yaml:"identifier"`
	Path         string     `yaml:"path,omitempty"`
	Scope        uint32     `yaml:"scope"`
	Lifecycle    string     `yaml:"lifecycle,omitempty"`
	Cloning      string     `yaml:"cloning,omitempty"`
	ErrorHandler *uint32    `yaml:"error_handler,omitempty"`
	Config       *ConfigDoc `yaml:"config,omitempty"`
	Location     string     `yaml:"location,omitempty"`
}

// ConfigDoc describes a config value. Default is the JSON encoding of the
// declared default.
type ConfigDoc struct {
	Key      string `yaml:"key"`
	Type     string `yaml:"type"`
	Strategy string `yaml:"default_strategy"`
	Default  string `yaml:"default,omitempty"`
}

type RouteDoc struct {
	Methods  []string `yaml:"methods,flow"`
	Pattern  string   `yaml:"pattern"`
	Domain   string   `yaml:"domain,omitempty"`
	Handler  uint32   `yaml:"handler"`
	Fallback *uint32  `yaml:"fallback,omitempty"`
}

type FallbackDoc struct {
	Scope   uint32 `yaml:"scope"`
	Handler uint32 `yaml:"handler"`
}

type PlanDoc struct {
	Handler   uint32    `yaml:"handler"`
	Wrapping  []uint32  `yaml:"wrapping,flow,omitempty"`
	Pre       []uint32  `yaml:"pre_processing,flow,omitempty"`
	Post      []uint32  `yaml:"post_processing,flow,omitempty"`
	Observers []uint32  `yaml:"error_observers,flow,omitempty"`
	Steps     []StepDoc `yaml:"steps"`
}

type StepDoc struct {
	Seq       int            `yaml:"seq"`
	Kind      string         `yaml:"kind"`
	Component uint32         `yaml:"component"`
	Depth     int            `yaml:"depth,omitempty"`
	Inputs    []InputDoc     `yaml:"inputs,omitempty"`
	OnError   *ErrorRouteDoc `yaml:"on_error,omitempty"`
}

// InputDoc is one step argument. From is absent for values the framework
// provides and for the in-flight error.
type InputDoc struct {
	Type   string `yaml:"type"`
	Source string `yaml:"source"`
	From   *int   `yaml:"from,omitempty"`
}

// ErrorRouteDoc has no Handler when the failure is surfaced unhandled.
type ErrorRouteDoc struct {
	Handler   *uint32   `yaml:"handler,omitempty"`
	Via       *uint32   `yaml:"via,omitempty"`
	Steps     []StepDoc `yaml:"steps,omitempty"`
	Observers []StepDoc `yaml:"observers,omitempty"`
}

type DiagnosticDoc struct {
	Severity  string  `yaml:"severity"`
	Kind      string  `yaml:"kind"`
	Message   string  `yaml:"message"`
	Location  string  `yaml:"location,omitempty"`
	Help      string  `yaml:"help,omitempty"`
	Component *uint32 `yaml:"component,omitempty"`
}
