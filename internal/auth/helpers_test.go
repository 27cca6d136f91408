package auth

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"

	"github.com/onemec/gmeet-slash-cmd/internal/identity"
	"github.com/onemec/gmeet-slash-cmd/internal/kv"
)

var (
	testID    = identity.Identity{Team: "T1", ID: "U1"}
	otherUser = identity.Identity{Team: "T1", ID: "U2"}
	otherTeam = identity.Identity{Team: "T2", ID: "U1"}
)

// sequenceIssuer hands out predetermined setup tokens.
type sequenceIssuer struct {
	mu     sync.Mutex
	tokens []string
}

func (s *sequenceIssuer) Issue() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tokens) == 0 {
		return "", errors.New("no more tokens")
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return tok, nil
}

// fakeExchanger returns a fixed token or error and counts calls.
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

// plainStore hides the Swapper capability of the wrapped store.
type plainStore struct {
	inner *kv.MemoryStore
}

func (p plainStore) Get(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Get(ctx, key)
}

func (p plainStore) Put(ctx context.Context, key string, value []byte) error {
	return p.inner.Put(ctx, key, value)
}

func (p plainStore) Ping(ctx context.Context) error { return p.inner.Ping(ctx) }
func (p plainStore) Close() error                   { return p.inner.Close() }

// racingStore runs interfere once, right after the next Get, to simulate
// another worker writing between verification and the conditional write.
type racingStore struct {
	*kv.MemoryStore
	interfere func()
}

func (r *racingStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.MemoryStore.Get(ctx, key)
	if f := r.interfere; f != nil {
		r.interfere = nil
		f()
	}
	return v, err
}

// failingStore fails every operation.
type failingStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errStoreDown }
func (failingStore) Put(context.Context, string, []byte) error   { return errStoreDown }
func (failingStore) Ping(context.Context) error                  { return errStoreDown }
func (failingStore) Close() error                                { return nil }

func validToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "ya29.access",
		TokenType:    "Bearer",
		RefreshToken: "1//refresh",
	}
}
