package router

import (
	"fmt"
	"regexp"
	"strings"
)

// SegmentKind classifies a path segment.
type SegmentKind int

const (
	Literal SegmentKind = iota
	Param
	CatchAll
)

// Segment is one '/'-separated component of a path pattern. Value is the
// literal text or the parameter name.
type Segment struct {
	Kind  SegmentKind
	Value string
}

func (s Segment) String() string {
	switch s.Kind {
	case Param:
		return "{" + s.Value + "}"
	case CatchAll:
		return "{*" + s.Value + "}"
	default:
		return s.Value
	}
}

// Pattern is a parsed route path.
type Pattern struct {
	Segments []Segment
}

func (p Pattern) String() string {
	if len(p.Segments) == 0 {
		return "/"
	}
	parts := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		parts[i] = s.String()
	}
	return "/" + strings.Join(parts, "/")
}

// Params returns the parameter names in order.
func (p Pattern) Params() []string {
	var out []string
	for _, s := range p.Segments {
		if s.Kind != Literal {
			out = append(out, s.Value)
		}
	}
	return out
}

// paramRegex matches a whole-segment parameter, e.g. `{id}` or `{*rest}`.
var paramRegex = regexp.MustCompile(`^\{(\*?)([A-Za-z_][A-Za-z0-9_]*)\}$`)

// ParsePattern parses a route path such as "/users/{id}/files/{*path}".
func ParsePattern(path string) (Pattern, error) {
	if !strings.HasPrefix(path, "/") {
		return Pattern{}, fmt.Errorf("path %q must start with '/'", path)
	}

	var p Pattern
	if path == "/" {
		return p, nil
	}

	seen := make(map[string]struct{})
	raw := strings.Split(path[1:], "/")
	for i, segment := range raw {
		last := i == len(raw)-1
		if segment == "" && !last {
			return Pattern{}, fmt.Errorf("path %q contains an empty segment", path)
		}

		if !strings.ContainsAny(segment, "{}") {
			p.Segments = append(p.Segments, Segment{Kind: Literal, Value: segment})
			continue
		}

		matches := paramRegex.FindStringSubmatch(segment)
		if matches == nil {
			return Pattern{}, fmt.Errorf("invalid path segment %q: parameters must span a whole segment and be named with an identifier", segment)
		}
		name := matches[2]
		if _, dup := seen[name]; dup {
			return Pattern{}, fmt.Errorf("path %q declares parameter %q twice", path, name)
		}
		seen[name] = struct{}{}

		kind := Param
		if matches[1] == "*" {
			if !last {
				return Pattern{}, fmt.Errorf("catch-all parameter %q must be the last segment of %q", name, path)
			}
			kind = CatchAll
		}
		p.Segments = append(p.Segments, Segment{Kind: kind, Value: name})
	}
	return p, nil
}

// Unifies reports whether some concrete path is matched by both patterns.
// Parameters match any single non-empty segment; a catch-all matches one or
// more trailing segments, the first of them non-empty.
func (p Pattern) Unifies(other Pattern) bool {
	a, b := p.Segments, other.Segments
	for i := 0; ; i++ {
		aDone, bDone := i >= len(a), i >= len(b)
		switch {
		case aDone && bDone:
			return true
		case aDone || bDone:
			return false
		}

		sa, sb := a[i], b[i]
		if sa.emptyLiteral() != sb.emptyLiteral() {
			return false
		}
		if sa.Kind == CatchAll || sb.Kind == CatchAll {
			return true
		}
		if sa.Kind == Literal && sb.Kind == Literal && sa.Value != sb.Value {
			return false
		}
	}
}

// emptyLiteral reports whether s is the empty segment of a trailing slash.
func (s Segment) emptyLiteral() bool { return s.Kind == Literal && s.Value == "" }

// Join appends path to a scope prefix.
func Join(prefix, path string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return path
	}
	if path == "/" {
		return prefix
	}
	return prefix + path
}
