package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/onemec/gmeet-slash-cmd/internal/auth"
	"github.com/onemec/gmeet-slash-cmd/internal/calendar"
	"github.com/onemec/gmeet-slash-cmd/internal/google"
	"github.com/onemec/gmeet-slash-cmd/internal/identity"
	"github.com/onemec/gmeet-slash-cmd/internal/kv"
)

var (
	testID  = identity.Identity{Team: "T1", ID: "U1"}
	testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
)

// countingStore counts writes to the wrapped memory store.
type countingStore struct {
	*kv.MemoryStore
	writes atomic.Int64
}

func (c *countingStore) Put(ctx context.Context, key string, value []byte) error {
	c.writes.Add(1)
	return c.MemoryStore.Put(ctx, key, value)
}

func (c *countingStore) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	c.writes.Add(1)
	return c.MemoryStore.CompareAndSwap(ctx, key, prev, next)
}

// brokenStore fails every operation.
type brokenStore struct{}

var errBackendDown = errors.New("backend down")

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errBackendDown }
func (brokenStore) Put(context.Context, string, []byte) error   { return errBackendDown }
func (brokenStore) Ping(context.Context) error                  { return errBackendDown }
func (brokenStore) Close() error                                { return nil }

type fixedIssuer struct {
	mu     sync.Mutex
	tokens []string
}

func (f *fixedIssuer) Issue() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) == 0 {
		return "", errors.New("no more tokens")
	}
	tok := f.tokens[0]
	f.tokens = f.tokens[1:]
	return tok, nil
}

type fakeExchanger struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (f *fakeExchanger) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

type fakeCreator struct {
	link  string
	calls []time.Time
}

func (f *fakeCreator) CreateMeeting(_ context.Context, now time.Time) string {
	f.calls = append(f.calls, now)
	return f.link
}

type fakeCalendar struct {
	creator *fakeCreator
	err     error
	tokens  []*oauth2.Token
}

func (f *fakeCalendar) ForCredentials(_ context.Context, token *oauth2.Token) (calendar.MeetingCreator, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.creator, nil
}

func userToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       testNow.Add(time.Hour),
	}
}

type harness struct {
	store     *countingStore
	machine   *auth.Machine
	exchanger *fakeExchanger
	calendar  *fakeCalendar
	handler   *Handler
}

func newHarness(t *testing.T, setups ...string) *harness {
	t.Helper()

	h := &harness{
		store:     &countingStore{MemoryStore: kv.NewMemoryStore()},
		exchanger: &fakeExchanger{token: userToken()},
		calendar:  &fakeCalendar{creator: &fakeCreator{link: "https://meet.google.com/abc-defg-hij"}},
	}
	h.machine = auth.NewMachine(
		auth.NewStateStore(h.store, nil),
		h.exchanger,
		auth.WithTokenIssuer(&fixedIssuer{tokens: setups}),
	)

	oauth, err := google.NewClientFactory(google.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://meet.example.com/callback",
	}, nil)
	require.NoError(t, err)

	h.handler, err = NewHandler(HandlerConfig{
		Machine:       h.machine,
		OAuth:         oauth,
		Calendar:      h.calendar,
		PublicBaseURL: "meet.example.com",
		Now:           func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return h
}

// authorize drives id through the whole flow with setup.
func (h *harness) authorize(t *testing.T, id identity.Identity) {
	t.Helper()
	ctx := context.Background()

	setup, err := h.machine.Start(ctx, id)
	require.NoError(t, err)
	require.NoError(t, h.machine.AdvanceToCallback(ctx, id, setup))
	require.NoError(t, h.machine.Finalize(ctx, id, setup, "code"))
}

func (h *harness) raw(t *testing.T, id identity.Identity) []byte {
	t.Helper()
	v, err := h.store.MemoryStore.Get(context.Background(), auth.Key(id))
	require.NoError(t, err)
	return v
}

var _ kv.Swapper = (*countingStore)(nil)
