// Package logging provides structured logging utilities for the meet slash
// command service.
//
// This package centralizes logging patterns so every request leg logs with
// the same attribute names, using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from configuration (level, text or JSON output)
//   - Consistent attribute naming across the codebase
//   - Anonymized chat identities (team/user pairs are hashed)
//   - Token masking
//
// # Usage Patterns
//
// Create a logger for an operation and attach an anonymized identity:
//
//	logger := logging.WithOperation(slog.Default(), "auth.start")
//	logger.Info("authorization started",
//	    logging.UserHash(team, user),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Chat user ids are hashed so log lines can be correlated without exposing them
//   - Setup tokens, authorization codes and OAuth tokens are never logged directly
package logging
