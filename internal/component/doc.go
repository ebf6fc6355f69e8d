// Package component provides the component registry: a dense, append-only
// arena of every constructor, prebuilt value, config value, handler,
// middleware, error observer and error handler declared in a blueprint.
//
// Components are addressed by ID, which is assigned in registration order and
// doubles as the deterministic tie-break for every later stage. The registry
// is filled during ingestion and frozen before type resolution starts; after
// Freeze every mutating call panics.
package component
