// Package lint holds the lint levels that decide whether non-fatal findings
// are reported, promoted to errors or silenced. Levels come from an optional
// YAML file and can be overridden per component in the blueprint.
package lint

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Name identifies a lint.
type Name string

// Unused fires for constructors that no handler ever reaches.
const Unused Name = "unused"

// Known lists every lint the compiler understands.
var Known = []Name{Unused}

// Level is the reporting level for a lint.
type Level string

const (
	Allow Level = "allow"
	Warn  Level = "warn"
	Deny  Level = "deny"
)

// ParseName validates a lint name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Known {
		if n == k {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown lint %q", s)
}

// ParseLevel validates a lint level.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case Allow, Warn, Deny:
		return l, nil
	default:
		return "", fmt.Errorf("invalid lint level %q: must be 'allow', 'warn' or 'deny'", s)
	}
}

// Overrides maps lints to levels for a single component.
type Overrides map[Name]Level

// ParseOverrides converts raw blueprint attributes into Overrides.
func ParseOverrides(raw map[string]string) (Overrides, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(Overrides, len(raw))
	var errs []error
	for k, v := range raw {
		name, err := ParseName(k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		level, err := ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("lint %q: %w", k, err))
			continue
		}
		out[name] = level
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Config is the project-wide lint configuration.
type Config struct {
	Lints map[Name]Level `yaml:"lints"`
}

// Default returns the built-in levels.
func Default() *Config {
	return &Config{Lints: map[Name]Level{Unused: Warn}}
}

// Load reads a YAML lint configuration. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lint config %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML lint configuration on top of the defaults.
func Parse(raw []byte) (*Config, error) {
	var file struct {
		Lints map[string]string `yaml:"lints"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode lint config: %w", err)
	}
	overrides, err := ParseOverrides(file.Lints)
	if err != nil {
		return nil, fmt.Errorf("invalid lint config: %w", err)
	}
	cfg := Default()
	for k, v := range overrides {
		cfg.Lints[k] = v
	}
	return cfg, nil
}

// Level resolves the effective level of a lint for a component, preferring
// the component's own override.
func (c *Config) Level(name Name, component Overrides) Level {
	if l, ok := component[name]; ok {
		return l
	}
	if c != nil {
		if l, ok := c.Lints[name]; ok {
			return l
		}
	}
	return Warn
}
