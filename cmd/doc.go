// Package cmd provides the command-line interface for bindery.
//
// This package implements the CLI commands using the Cobra framework. Every
// command scans a content directory for chapter sources, runs the build
// pipeline and reports the outcome.
//
// # Available Commands
//
//   - validate: Check chapter ordering and cross-references
//   - toc: Print the table of contents
//   - watch: Rebuild on every change and publish outcomes over websocket
//   - version: Show build information
//
// # Command Examples
//
//	// Validate the book in ./book
//	bindery validate book
//
//	// Fail on navigation warnings as well as errors
//	bindery validate --strict
//
//	// Table of contents as JSON
//	bindery toc book --format json
//
//	// Rebuild on change and feed a renderer at ws://localhost:8090/ws
//	bindery watch book --listen localhost:8090
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (BINDERY_*)
//  3. Configuration file (.bindery.yml)
//  4. Default values (lowest priority)
//
// # Exit Status
//
// A command exits non-zero when the build halts. The full report is printed
// before exiting so no re-run is needed to see every problem.
package cmd
