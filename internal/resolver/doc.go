// Package resolver turns every request handler's required inputs into a
// validated construction graph.
//
// For each input the resolver searches the consumer's scope and then its
// ancestors, nearest first; the first scope that has producers of the type
// decides the binding, and more than one producer there is ambiguous.
// Producers' own inputs are resolved from the producer's scope, not the
// consumer's. The resulting per-handler graph is checked for cycles,
// lifecycle violations and values that would have to be cloned but cannot
// be. Constructors no handler reaches are reported as unused.
package resolver
