package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrMalformedRequest is returned when an inbound payload cannot be parsed
	// or lacks the identity fields.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrInvalidState is returned when the round-tripped state blob is not
	// one this service produced.
	ErrInvalidState = errors.New("invalid state")
)

// Identity is the composite natural key of an authorization record.
type Identity struct {
	Team string `json:"team"`
	ID   string `json:"id"`
}

// Valid reports whether both parts of the key are present. Neither part
// may contain "/", the separator of the storage key.
func (i Identity) Valid() bool {
	return validPart(i.Team) && validPart(i.ID)
}

func validPart(s string) bool {
	return s != "" && !strings.Contains(s, "/")
}

func (i Identity) String() string {
	return i.Team + "/" + i.ID
}

// opaqueState is the payload carried through the provider's state parameter.
type opaqueState struct {
	Team  string `json:"team"`
	ID    string `json:"id"`
	Setup string `json:"setup"`
}

// ParseCommandBody decodes a slash command form body.
func ParseCommandBody(body string) (Identity, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	id := Identity{
		Team: values.Get("team_id"),
		ID:   values.Get("user_id"),
	}
	if !id.Valid() {
		return Identity{}, fmt.Errorf("%w: team_id and user_id are required and must not contain \"/\"", ErrMalformedRequest)
	}
	return id, nil
}

// ParseQuery reads the id and team parameters of the auth redirect link.
func ParseQuery(query url.Values) (Identity, error) {
	id := Identity{
		Team: query.Get("team"),
		ID:   query.Get("id"),
	}
	if !id.Valid() {
		return Identity{}, fmt.Errorf("%w: id and team are required and must not contain \"/\"", ErrMalformedRequest)
	}
	return id, nil
}

// EncodeOpaqueState builds the state blob embedded in the authorization URL.
func EncodeOpaqueState(id Identity, setup string) (string, error) {
	data, err := json.Marshal(opaqueState{Team: id.Team, ID: id.ID, Setup: setup})
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}
	return string(data), nil
}

// ParseOpaqueState recovers the identity from an echoed state blob.
func ParseOpaqueState(blob string) (Identity, error) {
	st, err := decodeOpaqueState(blob)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Team: st.Team, ID: st.ID}, nil
}

// ExtractSetup recovers the setup token from an echoed state blob.
func ExtractSetup(blob string) (string, error) {
	st, err := decodeOpaqueState(blob)
	if err != nil {
		return "", err
	}
	return st.Setup, nil
}

func decodeOpaqueState(blob string) (opaqueState, error) {
	var st opaqueState
	if blob == "" {
		return st, fmt.Errorf("%w: empty", ErrInvalidState)
	}
	if err := json.Unmarshal([]byte(blob), &st); err != nil {
		return st, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if !(Identity{Team: st.Team, ID: st.ID}).Valid() || st.Setup == "" {
		return st, fmt.Errorf("%w: team, id and setup are required", ErrInvalidState)
	}
	return st, nil
}
