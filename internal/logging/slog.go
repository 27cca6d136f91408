package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyTeam      = "team"
	KeyUserHash  = "user_hash"
	KeyPhase     = "phase"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyLeg       = "leg"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// WithLeg returns a logger tagged with the inbound request leg
// (command, auth, callback).
func WithLeg(logger *slog.Logger, leg string) *slog.Logger {
	return logger.With(slog.String(KeyLeg, leg))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Service returns a slog attribute for the service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Team returns a slog attribute for the chat workspace id.
// Team ids are low cardinality and not personal, so they are logged as is.
func Team(team string) slog.Attr {
	return slog.String(KeyTeam, team)
}

// Phase returns a slog attribute for an authorization phase.
func Phase(phase string) slog.Attr {
	return slog.String(KeyPhase, phase)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeUser returns a hashed representation of a team/user pair.
// The same pair always hashes to the same value so log entries of one
// authorization flow can be correlated.
func AnonymizeUser(team, user string) string {
	if user == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(team + "/" + user))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized team/user pair.
//
// Usage:
//
//	logger.Info("record saved", logging.UserHash(id.Team, id.ID))
func UserHash(team, user string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeUser(team, user))
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
