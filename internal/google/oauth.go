package google

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/onemec/gmeet-slash-cmd/internal/identity"
	"github.com/onemec/gmeet-slash-cmd/internal/instrumentation"
)

// ErrNoCredentials is returned when an authorized HTTP client is requested
// from a client built without a token.
var ErrNoCredentials = errors.New("oauth client has no credentials")

// Config holds the application's OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scopes defaults to DefaultOAuthScopes.
	Scopes []string

	// Endpoint defaults to google.Endpoint. Tests point it at a local server.
	Endpoint oauth2.Endpoint

	// HTTPClient is used for token and API requests. Defaults to an
	// HTTP/1.1 client.
	HTTPClient *http.Client
}

// Validate checks that the client registration is complete.
func (c Config) Validate() error {
	switch {
	case c.ClientID == "":
		return fmt.Errorf("google client ID is required")
	case c.ClientSecret == "":
		return fmt.Errorf("google client secret is required")
	case c.RedirectURL == "":
		return fmt.Errorf("google redirect URL is required")
	}
	return nil
}

// ClientFactory builds OAuth clients sharing one client registration.
type ClientFactory struct {
	conf       *oauth2.Config
	httpClient *http.Client
	metrics    *instrumentation.Metrics
}

// NewClientFactory creates a ClientFactory from cfg.
func NewClientFactory(cfg Config, metrics *instrumentation.Metrics) (*ClientFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient()
	}

	return &ClientFactory{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		httpClient: httpClient,
		metrics:    metrics,
	}, nil
}

// newHTTPClient returns a client restricted to HTTP/1.1.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
			TLSNextProto:      map[string]func(string, *tls.Conn) http.RoundTripper{},
		},
	}
}

// Build returns a client. With a non-nil token the client is authorized
// for API calls.
func (f *ClientFactory) Build(token *oauth2.Token) *Client {
	return &Client{
		conf:       f.conf,
		token:      token,
		httpClient: f.httpClient,
		metrics:    f.metrics,
	}
}

// AuthCodeURL is Build(nil).AuthCodeURL.
func (f *ClientFactory) AuthCodeURL(id identity.Identity, setup string) (string, error) {
	return f.Build(nil).AuthCodeURL(id, setup)
}

// Exchange is Build(nil).Exchange.
func (f *ClientFactory) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return f.Build(nil).Exchange(ctx, code)
}

// Client is an OAuth client, optionally holding user credentials.
type Client struct {
	conf       *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	metrics    *instrumentation.Metrics
}

// AuthCodeURL returns the consent URL for id. It requests offline access
// and carries {team, id, setup} as the state parameter, which Google
// echoes back on the callback.
func (c *Client) AuthCodeURL(id identity.Identity, setup string) (string, error) {
	state, err := identity.EncodeOpaqueState(id, setup)
	if err != nil {
		return "", err
	}
	return c.conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for a token. It is attempted once.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth, instrumentation.OperationExchangeCode)
	defer span.End()
	start := time.Now()

	tok, err := c.conf.Exchange(c.withHTTPClient(ctx), code)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth, instrumentation.OperationExchangeCode, status, time.Since(start))
	c.metrics.RecordOAuthCodeExchange(ctx, status)

	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

// HTTPClient returns an *http.Client that authorizes requests with the
// client's token, refreshing it in memory when it expires.
func (c *Client) HTTPClient(ctx context.Context) (*http.Client, error) {
	if c.token == nil {
		return nil, ErrNoCredentials
	}
	ctx = c.withHTTPClient(ctx)
	return oauth2.NewClient(ctx, c.conf.TokenSource(ctx, c.token)), nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}
