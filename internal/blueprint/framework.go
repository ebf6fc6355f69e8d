package blueprint

import (
	"strings"

	"github.com/specialistvlad/blueprintc/internal/signature"
)

// Types the framework provides to every request without a constructor.
const (
	RequestType    signature.Type = "*http.Request"
	HeaderType     signature.Type = "http.Header"
	PathParamsType signature.Type = "blueprint.PathParams"
	NextType       signature.Type = "blueprint.Next"
	ResponseType   signature.Type = "blueprint.Response"
	ContextType    signature.Type = "context.Context"
)

// FrameworkTypes returns the request-scoped types that are always available.
func FrameworkTypes() []signature.Type {
	return []signature.Type{RequestType, HeaderType, PathParamsType, NextType, ResponseType, ContextType}
}

// Instance splits a generic instantiation such as
// "blueprint.PathParams[app.UserParams]" into its base type and argument.
// ok is false for non-generic types.
func Instance(t signature.Type) (base, arg signature.Type, ok bool) {
	s := string(t)
	open := strings.IndexByte(s, '[')
	if open <= 0 || !strings.HasSuffix(s, "]") {
		return t, "", false
	}
	return signature.Type(s[:open]), signature.Type(s[open+1 : len(s)-1]), true
}

// AnyMethod matches every HTTP method.
const AnyMethod = "ANY"

// SplitMethods parses a comma-separated method list into upper-case methods.
func SplitMethods(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			out = append(out, m)
		}
	}
	return out
}
