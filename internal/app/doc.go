// Package app contains the core application logic. It ties the blueprint
// loader, the compiler and the emitters together for each command, decoupled
// from any specific entrypoint like a CLI.
package app
