// Package main hosts the vidbatch CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in-process: `serve` keeps it alive
// behind the HTTP polling API, while `scan` and `convert` drive one session
// from the terminal and exit. `history`, `status` and `config` are read-only
// helpers around the history store, dependency checks and config scaffolding.
package main
