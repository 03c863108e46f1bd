// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the lifecycle of one protocol run: load,
// build, bake, report and optionally record, decoupled from any specific
// entrypoint like a CLI.
package app
