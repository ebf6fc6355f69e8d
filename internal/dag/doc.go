// Package dag provides a small ordered directed graph used to hold one
// handler's dependency closure. Iteration follows insertion order and
// topological sorting breaks ties by key order, so every traversal is
// reproducible for identical input.
package dag
