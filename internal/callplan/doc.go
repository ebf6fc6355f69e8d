// Package callplan turns a validated dependency graph into the ordered
// sequence of steps a code generator replays for one request: construction
// steps, middleware and handler invocations, and the error route of every
// fallible step with the error-observer chain that follows it.
//
// Within a group of steps the order is Kahn's topological order with
// component ids breaking ties. Singletons, request-scoped values, prebuilt
// values and config values are materialized at most once per plan; a
// transient value is constructed once for every input that consumes it.
package callplan
