package component

import (
	"fmt"
	"math"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// ID addresses a component in the registry.
type ID uint32

// None marks an absent component reference.
const None ID = math.MaxUint32

func (id ID) String() string {
	if id == None {
		return "none"
	}
	return fmt.Sprintf("c%d", uint32(id))
}

// ScopeID addresses a node of the scope tree. It lives here so that
// components can record their binding scope without importing the tree.
type ScopeID uint32

// RootScope is the application-wide scope that exists before any registration.
const RootScope ScopeID = 0

// Kind is the closed set of component variants.
type Kind int

const (
	Constructor Kind = iota
	PrebuiltValue
	ConfigValue
	RequestHandler
	Fallback
	WrappingMiddleware
	PreProcessingMiddleware
	PostProcessingMiddleware
	ErrorObserver
	ErrorHandler
)

var kindNames = [...]string{
	Constructor:              "constructor",
	PrebuiltValue:            "prebuilt",
	ConfigValue:              "config",
	RequestHandler:           "request_handler",
	Fallback:                 "fallback",
	WrappingMiddleware:       "wrapping_middleware",
	PreProcessingMiddleware:  "pre_processing_middleware",
	PostProcessingMiddleware: "post_processing_middleware",
	ErrorObserver:            "error_observer",
	ErrorHandler:             "error_handler",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Constructible reports whether components of this kind produce a value
// other components can depend on.
func (k Kind) Constructible() bool {
	switch k {
	case Constructor, PrebuiltValue, ConfigValue:
		return true
	}
	return false
}

// Handler reports whether the kind is a request entry point.
func (k Kind) Handler() bool {
	return k == RequestHandler || k == Fallback
}

// Middleware reports whether the kind is one of the three middleware kinds.
func (k Kind) Middleware() bool {
	switch k {
	case WrappingMiddleware, PreProcessingMiddleware, PostProcessingMiddleware:
		return true
	}
	return false
}

// Lifecycle governs how often a constructible component is built.
type Lifecycle int

const (
	UnknownLifecycle Lifecycle = iota
	Singleton
	RequestScoped
	Transient
)

func (l Lifecycle) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case RequestScoped:
		return "request_scoped"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// ParseLifecycle parses the blueprint spelling of a lifecycle.
func ParseLifecycle(s string) (Lifecycle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "singleton":
		return Singleton, nil
	case "request_scoped", "requestscoped":
		return RequestScoped, nil
	case "transient":
		return Transient, nil
	default:
		return UnknownLifecycle, fmt.Errorf("invalid lifecycle %q: must be 'singleton', 'request_scoped' or 'transient'", s)
	}
}

// Cloning is the strategy applied when a value has several consumers.
type Cloning int

const (
	UnknownCloning Cloning = iota
	NeverClone
	CloneIfNecessary
)

func (c Cloning) String() string {
	switch c {
	case NeverClone:
		return "never_clone"
	case CloneIfNecessary:
		return "clone_if_necessary"
	default:
		return "unknown"
	}
}

// ParseCloning parses the blueprint spelling of a cloning strategy.
func ParseCloning(s string) (Cloning, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never_clone", "neverclone":
		return NeverClone, nil
	case "clone_if_necessary", "cloneifnecessary":
		return CloneIfNecessary, nil
	default:
		return UnknownCloning, fmt.Errorf("invalid cloning strategy %q: must be 'never_clone' or 'clone_if_necessary'", s)
	}
}

// DefaultStrategy decides what happens when a config key is absent at runtime.
type DefaultStrategy int

const (
	Required DefaultStrategy = iota
	DefaultIfMissing
)

func (d DefaultStrategy) String() string {
	if d == DefaultIfMissing {
		return "default_if_missing"
	}
	return "required"
}

// ParseDefaultStrategy parses the blueprint spelling of a default strategy.
// An empty string means Required.
func ParseDefaultStrategy(s string) (DefaultStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "required":
		return Required, nil
	case "default_if_missing", "defaultifmissing":
		return DefaultIfMissing, nil
	default:
		return Required, fmt.Errorf("invalid default strategy %q: must be 'required' or 'default_if_missing'", s)
	}
}

// Config carries the extra metadata of a config value.
type Config struct {
	Key      string
	Type     string
	Strategy DefaultStrategy

	// Default is cty.NilVal when no default was declared.
	Default cty.Value
}
