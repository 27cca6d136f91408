// Package cmd implements the command-line interface for gmeet-slash-cmd.
//
// This package provides the following commands:
//   - serve: Start the HTTP server answering the slash command
//   - version: Display version information
//
// Configuration is read from the environment; serve flags override it.
package cmd
