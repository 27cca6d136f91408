package auth

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/onemec/gmeet-slash-cmd/internal/identity"
)

// Phase is the position of a record in the authorization protocol.
type Phase string

const (
	PhaseAuth     Phase = "auth"
	PhaseCallback Phase = "callback"
	PhaseDone     Phase = "done"
)

// State is a persisted authorization record. The concrete type is one of
// AuthPending, CallbackPending or Authorized.
type State interface {
	Identity() identity.Identity
	Phase() Phase
	isState()
}

// AuthPending is written by Start and waits for the auth redirect leg.
type AuthPending struct {
	ID    identity.Identity
	Setup string
}

// CallbackPending waits for the provider callback leg.
type CallbackPending struct {
	ID    identity.Identity
	Setup string
}

// Authorized holds the credentials obtained from the code exchange.
type Authorized struct {
	ID          identity.Identity
	Credentials *oauth2.Token
}

func (s AuthPending) Identity() identity.Identity     { return s.ID }
func (s CallbackPending) Identity() identity.Identity { return s.ID }
func (s Authorized) Identity() identity.Identity      { return s.ID }

func (AuthPending) Phase() Phase     { return PhaseAuth }
func (CallbackPending) Phase() Phase { return PhaseCallback }
func (Authorized) Phase() Phase      { return PhaseDone }

func (AuthPending) isState()     {}
func (CallbackPending) isState() {}
func (Authorized) isState()      {}

// Ready reports whether the record carries usable credentials.
func (s Authorized) Ready() bool {
	return HasCredentials(s.Credentials)
}

// HasCredentials reports whether tok carries an access or refresh token.
func HasCredentials(tok *oauth2.Token) bool {
	return tok != nil && (tok.AccessToken != "" || tok.RefreshToken != "")
}

// PhaseOf returns the phase of s, or "" for no record.
func PhaseOf(s State) string {
	if s == nil {
		return ""
	}
	return string(s.Phase())
}

// tokenResponseFields are the fields of Google's token endpoint response.
// The exchange keeps them as token extras, and they are stored alongside
// the token so that scope and id_token survive a reload.
var tokenResponseFields = []string{
	"access_token",
	"expires_in",
	"id_token",
	"refresh_token",
	"refresh_token_expires_in",
	"scope",
	"token_type",
}

// storedToken is an oauth2.Token plus the provider response it came with.
type storedToken struct {
	*oauth2.Token
	Extra map[string]any `json:"token_extra,omitempty"`
}

func newStoredToken(tok *oauth2.Token) *storedToken {
	if tok == nil {
		return nil
	}
	extra := make(map[string]any)
	for _, key := range tokenResponseFields {
		switch v := tok.Extra(key).(type) {
		case nil:
		case string:
			if v != "" {
				extra[key] = v
			}
		default:
			extra[key] = v
		}
	}
	if len(extra) == 0 {
		extra = nil
	}
	return &storedToken{Token: tok, Extra: extra}
}

func (t *storedToken) token() *oauth2.Token {
	if t == nil || t.Token == nil {
		return nil
	}
	if len(t.Extra) == 0 {
		return t.Token
	}
	return t.Token.WithExtra(t.Extra)
}

// record is the stored JSON shape.
type record struct {
	Team   string       `json:"team"`
	ID     string       `json:"id"`
	Status Phase        `json:"status"`
	Setup  string       `json:"setup,omitempty"`
	Tokens *storedToken `json:"tokens,omitempty"`
}

// MarshalState encodes s into its stored form.
func MarshalState(s State) ([]byte, error) {
	var r record
	switch s := s.(type) {
	case AuthPending:
		r = record{Team: s.ID.Team, ID: s.ID.ID, Status: PhaseAuth, Setup: s.Setup}
	case CallbackPending:
		r = record{Team: s.ID.Team, ID: s.ID.ID, Status: PhaseCallback, Setup: s.Setup}
	case Authorized:
		r = record{Team: s.ID.Team, ID: s.ID.ID, Status: PhaseDone, Tokens: newStoredToken(s.Credentials)}
	default:
		return nil, fmt.Errorf("unknown state type %T", s)
	}
	return json.Marshal(r)
}

// UnmarshalState decodes a stored record. Records with an unknown status,
// a missing identity, or a pending phase without a setup token are rejected.
func UnmarshalState(data []byte) (State, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	id := identity.Identity{Team: r.Team, ID: r.ID}
	if !id.Valid() {
		return nil, fmt.Errorf("record has no identity")
	}

	switch r.Status {
	case PhaseAuth:
		if r.Setup == "" {
			return nil, fmt.Errorf("%s record has no setup token", r.Status)
		}
		return AuthPending{ID: id, Setup: r.Setup}, nil
	case PhaseCallback:
		if r.Setup == "" {
			return nil, fmt.Errorf("%s record has no setup token", r.Status)
		}
		return CallbackPending{ID: id, Setup: r.Setup}, nil
	case PhaseDone:
		return Authorized{ID: id, Credentials: r.Tokens.token()}, nil
	default:
		return nil, fmt.Errorf("unknown record status %q", r.Status)
	}
}
