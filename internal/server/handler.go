package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/onemec/gmeet-slash-cmd/internal/auth"
	"github.com/onemec/gmeet-slash-cmd/internal/calendar"
	"github.com/onemec/gmeet-slash-cmd/internal/identity"
	"github.com/onemec/gmeet-slash-cmd/internal/logging"
	"github.com/onemec/gmeet-slash-cmd/internal/slack"
)

// Generic response bodies. They never say why a request was rejected.
const (
	bodyBadRequest    = "Bad request."
	bodyAuthFailed    = "Authentication failed. Please check your credentials and try again."
	bodyCallbackOK    = "Callback verification successful. User is ready to use the service."
	bodyCallbackFail  = "Callback verification failed. Invalid setup or user information."
	bodyInternalError = "Internal server error."
)

// Request legs.
const (
	LegCommand  = "command"
	LegAuth     = "auth"
	LegCallback = "callback"
)

// AuthURLBuilder computes the provider authorization URL for a flow.
type AuthURLBuilder interface {
	AuthCodeURL(id identity.Identity, setup string) (string, error)
}

// Response is the outcome of one request leg.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Write sends r to w.
func (r Response) Write(w http.ResponseWriter) {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(r.StatusCode)
	_, _ = w.Write(r.Body)
}

func textResponse(status int, body string) Response {
	return Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       []byte(body),
	}
}

func jsonResponse(status int, v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return textResponse(http.StatusInternalServerError, bodyInternalError)
	}
	return Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       data,
	}
}

func redirectResponse(location string) Response {
	return Response{
		StatusCode: http.StatusFound,
		Header:     http.Header{"Location": []string{location}},
	}
}

// HandlerConfig holds the collaborators of a Handler.
type HandlerConfig struct {
	Machine  *auth.Machine
	OAuth    AuthURLBuilder
	Calendar calendar.CreatorFactory

	// PublicBaseURL is the host serving /auth, used in the prompt link.
	PublicBaseURL string

	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler turns the three inbound legs into responses.
type Handler struct {
	machine  *auth.Machine
	oauth    AuthURLBuilder
	calendar calendar.CreatorFactory
	baseURL  string
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	switch {
	case cfg.Machine == nil:
		return nil, fmt.Errorf("auth machine is required")
	case cfg.OAuth == nil:
		return nil, fmt.Errorf("oauth client is required")
	case cfg.Calendar == nil:
		return nil, fmt.Errorf("calendar factory is required")
	case cfg.PublicBaseURL == "":
		return nil, fmt.Errorf("public base URL is required")
	}

	h := &Handler{
		machine:  cfg.Machine,
		oauth:    cfg.OAuth,
		calendar: cfg.Calendar,
		baseURL:  cfg.PublicBaseURL,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h, nil
}

// Command handles a slash command invocation. An authorized user gets a
// meeting link posted to the channel; anyone else gets a private prompt
// to grant calendar access.
func (h *Handler) Command(ctx context.Context, body string) Response {
	logger := logging.WithLeg(h.logger, LegCommand)

	id, err := identity.ParseCommandBody(body)
	if err != nil {
		logger.InfoContext(ctx, "rejected command", logging.Err(err))
		return textResponse(http.StatusBadRequest, bodyBadRequest)
	}
	logger = logger.With(logging.Team(id.Team), logging.UserHash(id.Team, id.ID))

	ready, err := h.machine.IsReady(ctx, id)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load authorization", logging.Err(err))
		return textResponse(http.StatusInternalServerError, bodyInternalError)
	}

	if !ready {
		setup, err := h.machine.Start(ctx, id)
		if err != nil {
			logger.ErrorContext(ctx, "failed to start authorization", logging.Err(err))
			return textResponse(http.StatusInternalServerError, bodyInternalError)
		}
		return jsonResponse(http.StatusOK, slack.PromptMessage(slack.AuthLink(h.baseURL, id, setup)))
	}

	creds, err := h.machine.Credentials(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthorized) {
			logger.ErrorContext(ctx, "credentials missing for a ready identity", logging.Err(err))
		} else {
			logger.ErrorContext(ctx, "failed to load credentials", logging.Err(err))
		}
		return textResponse(http.StatusInternalServerError, bodyInternalError)
	}

	creator, err := h.calendar.ForCredentials(ctx, creds)
	if err != nil {
		logger.ErrorContext(ctx, "failed to build calendar client", logging.Err(err))
		return textResponse(http.StatusInternalServerError, bodyInternalError)
	}

	link := creator.CreateMeeting(ctx, h.now())
	logger.InfoContext(ctx, "meeting created", slog.Bool("has_link", link != ""))
	return jsonResponse(http.StatusOK, slack.MeetingMessage(link))
}

// AuthRedirect handles the link from the prompt. A matching flow is moved
// to the callback phase and the browser is sent to the provider.
func (h *Handler) AuthRedirect(ctx context.Context, query url.Values) Response {
	logger := logging.WithLeg(h.logger, LegAuth)

	id, err := identity.ParseQuery(query)
	setup := query.Get("setup")
	if err != nil || setup == "" {
		logger.InfoContext(ctx, "rejected auth redirect", logging.Err(err))
		return textResponse(http.StatusUnauthorized, bodyAuthFailed)
	}
	logger = logger.With(logging.Team(id.Team), logging.UserHash(id.Team, id.ID))

	ok, err := h.machine.VerifyAuthEdge(ctx, id, setup)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load authorization", logging.Err(err))
		return textResponse(http.StatusInternalServerError, bodyInternalError)
	}
	if !ok {
		return textResponse(http.StatusUnauthorized, bodyAuthFailed)
	}

	// The record only advances once there is a URL to send the browser to.
	location, err := h.oauth.AuthCodeURL(id, setup)
	if err != nil {
		logger.ErrorContext(ctx, "failed to build authorization URL", logging.Err(err))
		return textResponse(http.StatusInternalServerError, bodyInternalError)
	}

	if err := h.machine.AdvanceToCallback(ctx, id, setup); err != nil {
		if errors.Is(err, auth.ErrEdgeMismatch) || errors.Is(err, auth.ErrConflict) {
			return textResponse(http.StatusUnauthorized, bodyAuthFailed)
		}
		logger.ErrorContext(ctx, "failed to advance authorization", logging.Err(err))
		return textResponse(http.StatusInternalServerError, bodyInternalError)
	}
	return redirectResponse(location)
}

// Callback handles the provider redirect carrying the authorization code.
func (h *Handler) Callback(ctx context.Context, query url.Values) Response {
	logger := logging.WithLeg(h.logger, LegCallback)

	blob := query.Get("state")
	id, err := identity.ParseOpaqueState(blob)
	if err != nil {
		logger.InfoContext(ctx, "rejected callback", logging.Err(err))
		return textResponse(http.StatusBadRequest, bodyCallbackFail)
	}
	setup, err := identity.ExtractSetup(blob)
	if err != nil {
		logger.InfoContext(ctx, "rejected callback", logging.Err(err))
		return textResponse(http.StatusBadRequest, bodyCallbackFail)
	}
	logger = logger.With(logging.Team(id.Team), logging.UserHash(id.Team, id.ID))

	code := query.Get("code")
	if code == "" {
		// The provider sends error=access_denied instead of a code when the
		// user declines.
		logger.InfoContext(ctx, "callback without code", slog.String("provider_error", query.Get("error")))
		return textResponse(http.StatusBadRequest, bodyCallbackFail)
	}

	ok, err := h.machine.VerifyCallbackEdge(ctx, id, setup)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load authorization", logging.Err(err))
		return textResponse(http.StatusInternalServerError, bodyInternalError)
	}
	if !ok {
		return textResponse(http.StatusBadRequest, bodyCallbackFail)
	}

	logger.DebugContext(ctx, "exchanging authorization code", slog.String("code", logging.SanitizeToken(code)))
	if err := h.machine.Finalize(ctx, id, setup, code); err != nil {
		if errors.Is(err, auth.ErrEdgeMismatch) || errors.Is(err, auth.ErrConflict) {
			return textResponse(http.StatusBadRequest, bodyCallbackFail)
		}
		logger.ErrorContext(ctx, "failed to finalize authorization", logging.Err(err))
		return textResponse(http.StatusInternalServerError, bodyInternalError)
	}

	logger.InfoContext(ctx, "authorization completed")
	return textResponse(http.StatusOK, bodyCallbackOK)
}
