package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/onemec/gmeet-slash-cmd/internal/identity"
	"github.com/onemec/gmeet-slash-cmd/internal/instrumentation"
	"github.com/onemec/gmeet-slash-cmd/internal/logging"
)

// CodeExchanger trades an authorization code for provider credentials.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Machine enforces the auth -> callback -> done protocol.
type Machine struct {
	store     *StateStore
	exchanger CodeExchanger
	issuer    TokenIssuer
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
}

// Option configures a Machine.
type Option func(*Machine)

// WithTokenIssuer replaces the default UUIDIssuer.
func WithTokenIssuer(issuer TokenIssuer) Option {
	return func(m *Machine) { m.issuer = issuer }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithMetrics records transition metrics.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Machine) { m.metrics = metrics }
}

// WithAuditLogger writes an audit entry per transition.
func WithAuditLogger(audit *instrumentation.AuditLogger) Option {
	return func(m *Machine) { m.audit = audit }
}

// NewMachine creates a Machine persisting through store and exchanging
// codes through exchanger.
func NewMachine(store *StateStore, exchanger CodeExchanger, opts ...Option) *Machine {
	m := &Machine{
		store:     store,
		exchanger: exchanger,
		issuer:    UUIDIssuer{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithService(m.logger, "auth")
	return m
}

// Start begins a new flow for id, replacing whatever record exists, and
// returns the setup token to embed in the authorization prompt.
func (m *Machine) Start(ctx context.Context, id identity.Identity) (setup string, err error) {
	ctx, done := m.observe(ctx, instrumentation.TransitionStart, id)
	defer func() { done(err) }()

	setup, err = m.issuer.Issue()
	if err != nil {
		return "", err
	}
	if err = m.store.Save(ctx, id, AuthPending{ID: id, Setup: setup}); err != nil {
		return "", err
	}
	return setup, nil
}

// VerifyAuthEdge reports whether id has an AuthPending record with setup.
func (m *Machine) VerifyAuthEdge(ctx context.Context, id identity.Identity, setup string) (bool, error) {
	st, err := m.store.Load(ctx, id)
	if err != nil {
		return false, err
	}
	return matchesAuthEdge(st, id, setup), nil
}

// AdvanceToCallback moves a verified AuthPending record to CallbackPending
// with the same setup token. It returns ErrEdgeMismatch if the auth edge
// does not verify, and ErrConflict if the record changed meanwhile.
func (m *Machine) AdvanceToCallback(ctx context.Context, id identity.Identity, setup string) (err error) {
	ctx, done := m.observe(ctx, instrumentation.TransitionAdvance, id)
	defer func() { done(err) }()

	st, raw, err := m.store.load(ctx, id)
	if err != nil {
		return err
	}
	if !matchesAuthEdge(st, id, setup) {
		m.logRejected(ctx, id, st)
		return ErrEdgeMismatch
	}
	return m.store.Replace(ctx, id, raw, CallbackPending{ID: id, Setup: setup})
}

// VerifyCallbackEdge reports whether id has a CallbackPending record with setup.
func (m *Machine) VerifyCallbackEdge(ctx context.Context, id identity.Identity, setup string) (bool, error) {
	st, err := m.store.Load(ctx, id)
	if err != nil {
		return false, err
	}
	return matchesCallbackEdge(st, id, setup), nil
}

// Finalize exchanges code for credentials and stores them. It re-checks the
// callback edge first. When the exchange fails nothing is written and the
// record stays CallbackPending.
func (m *Machine) Finalize(ctx context.Context, id identity.Identity, setup, code string) (err error) {
	ctx, done := m.observe(ctx, instrumentation.TransitionFinalize, id)
	defer func() { done(err) }()

	st, raw, err := m.store.load(ctx, id)
	if err != nil {
		return err
	}
	if !matchesCallbackEdge(st, id, setup) {
		m.logRejected(ctx, id, st)
		return ErrEdgeMismatch
	}

	tok, err := m.exchanger.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	if !HasCredentials(tok) {
		return ErrEmptyCredentials
	}
	return m.store.Replace(ctx, id, raw, Authorized{ID: id, Credentials: tok})
}

// IsReady reports whether id has completed the flow with usable credentials.
func (m *Machine) IsReady(ctx context.Context, id identity.Identity) (bool, error) {
	st, err := m.store.Load(ctx, id)
	if err != nil {
		return false, err
	}
	a, ok := st.(Authorized)
	return ok && a.Ready(), nil
}

// Credentials returns the stored credentials of an authorized identity,
// or ErrNotAuthorized.
func (m *Machine) Credentials(ctx context.Context, id identity.Identity) (*oauth2.Token, error) {
	st, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	a, ok := st.(Authorized)
	if !ok || !a.Ready() {
		return nil, ErrNotAuthorized
	}
	return a.Credentials, nil
}

func matchesAuthEdge(st State, id identity.Identity, setup string) bool {
	s, ok := st.(AuthPending)
	return ok && s.ID == id && s.Setup == setup
}

func matchesCallbackEdge(st State, id identity.Identity, setup string) bool {
	s, ok := st.(CallbackPending)
	return ok && s.ID == id && s.Setup == setup
}

// logRejected records why an edge failed. The reason stays in the logs and
// never reaches the HTTP response.
func (m *Machine) logRejected(ctx context.Context, id identity.Identity, st State) {
	m.logger.InfoContext(ctx, "authorization edge rejected",
		logging.Team(id.Team),
		logging.UserHash(id.Team, id.ID),
		logging.Phase(PhaseOf(st)))
}

// observe opens a span and returns a completion func that records the
// outcome as a span status, a metric and an audit entry.
func (m *Machine) observe(ctx context.Context, transition string, id identity.Identity) (context.Context, func(error)) {
	attrs := instrumentation.NewSpanAttributeBuilder().
		WithIdentity(id.Team, logging.AnonymizeUser(id.Team, id.ID)).
		Build()
	ctx, span := instrumentation.StartTransitionSpan(ctx, transition, attrs...)
	event := instrumentation.NewAuthEvent(transition).
		WithIdentity(id.Team, id.ID).
		WithSpanContext(ctx)

	return ctx, func(err error) {
		result := transitionResult(err)
		finishSpan(span, err)
		m.metrics.RecordAuthTransitionWithTeam(ctx, transition, result, id.Team)
		m.audit.LogAuthEvent(ctx, event.Complete(result, err))
	}
}

func finishSpan(span trace.Span, err error) {
	defer span.End()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return
	}
	instrumentation.SetSpanSuccess(span)
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return instrumentation.ResultSuccess
	case errors.Is(err, ErrEdgeMismatch):
		return instrumentation.ResultMismatch
	case errors.Is(err, ErrConflict):
		return instrumentation.ResultConflict
	default:
		return instrumentation.ResultError
	}
}
