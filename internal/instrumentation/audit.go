package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/onemec/gmeet-slash-cmd/internal/logging"
)

// AuthEvent captures one authorization state machine transition for the
// audit trail.
//
// # Privacy Considerations
//
// User holds the raw Slack user ID. LogAttrs only emits the anonymized
// hash; LogAuditAttrs emits the raw ID and should go to a restricted stream.
type AuthEvent struct {
	Transition string

	Team string
	User string

	StartTime time.Time
	Duration  time.Duration
	Result    string
	Error     string

	TraceID string
	SpanID  string
}

// NewAuthEvent creates a new AuthEvent with timing started.
// Call Complete when the transition finishes.
func NewAuthEvent(transition string) *AuthEvent {
	return &AuthEvent{
		Transition: transition,
		StartTime:  time.Now(),
	}
}

// WithIdentity sets the Slack team and user.
func (e *AuthEvent) WithIdentity(team, user string) *AuthEvent {
	e.Team = team
	e.User = user
	return e
}

// WithSpanContext extracts trace context from the current span.
func (e *AuthEvent) WithSpanContext(ctx context.Context) *AuthEvent {
	e.TraceID = GetTraceID(ctx)
	e.SpanID = GetSpanID(ctx)
	return e
}

// Complete marks the event as finished with the given result.
func (e *AuthEvent) Complete(result string, err error) *AuthEvent {
	e.Duration = time.Since(e.StartTime)
	e.Result = result
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Success reports whether the transition committed.
func (e *AuthEvent) Success() bool {
	return e.Result == ResultSuccess
}

// LogAttrs returns slog attributes with the user anonymized.
func (e *AuthEvent) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("transition", e.Transition),
		slog.String(logging.KeyTeam, e.Team),
		slog.String(logging.KeyUserHash, logging.AnonymizeUser(e.Team, e.User)),
		slog.String("result", e.Result),
		slog.Duration(logging.KeyDuration, e.Duration),
	}
	return e.appendOptional(attrs, false)
}

// LogAuditAttrs returns slog attributes including the raw user ID.
func (e *AuthEvent) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("transition", e.Transition),
		slog.String(logging.KeyTeam, e.Team),
		slog.String("user", e.User),
		slog.String("result", e.Result),
		slog.Duration(logging.KeyDuration, e.Duration),
	}
	return e.appendOptional(attrs, true)
}

func (e *AuthEvent) appendOptional(attrs []slog.Attr, withSpan bool) []slog.Attr {
	if e.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", e.TraceID))
	}
	if withSpan && e.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", e.SpanID))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, e.Error))
	}
	return attrs
}

// AuditLogger writes AuthEvents to a structured logger.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger that anonymizes users.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogAuthEvent logs a transition. Committed transitions log at info,
// rejected or failed ones at warn. A nil AuditLogger is a no-op.
func (al *AuditLogger) LogAuthEvent(ctx context.Context, e *AuthEvent) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = e.LogAuditAttrs()
	} else {
		attrs = e.LogAttrs()
	}

	level := slog.LevelInfo
	msg := "auth_transition"
	if !e.Success() {
		level = slog.LevelWarn
		msg = "auth_transition_rejected"
	}
	al.logger.LogAttrs(ctx, level, msg, attrs...)
}
