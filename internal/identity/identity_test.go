package identity

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Identity
		wantErr bool
	}{
		{
			name: "slash command payload",
			body: "token=x&team_id=T1&team_domain=acme&channel_id=C1&user_id=U1&user_name=jane&command=%2Fmeet&text=",
			want: Identity{Team: "T1", ID: "U1"},
		},
		{name: "minimal", body: "team_id=T1&user_id=U1", want: Identity{Team: "T1", ID: "U1"}},
		{name: "missing user", body: "team_id=T1", wantErr: true},
		{name: "missing team", body: "user_id=U1", wantErr: true},
		{name: "empty", body: "", wantErr: true},
		{name: "bad escape", body: "team_id=%zz&user_id=U1", wantErr: true},
		{name: "slash in team", body: "team_id=a%2Fb&user_id=c", wantErr: true},
		{name: "slash in user", body: "team_id=a&user_id=b%2Fc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommandBody(tt.body)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQuery(t *testing.T) {
	got, err := ParseQuery(url.Values{"id": {"U1"}, "team": {"T1"}, "setup": {"S"}})
	require.NoError(t, err)
	assert.Equal(t, Identity{Team: "T1", ID: "U1"}, got)

	_, err = ParseQuery(url.Values{"id": {"U1"}})
	assert.ErrorIs(t, err, ErrMalformedRequest)

	_, err = ParseQuery(url.Values{"id": {"c"}, "team": {"a/b"}})
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestIdentity_Valid(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want bool
	}{
		{name: "valid", id: Identity{Team: "T1", ID: "U1"}, want: true},
		{name: "missing team", id: Identity{ID: "U1"}},
		{name: "missing id", id: Identity{Team: "T1"}},
		{name: "slash in team", id: Identity{Team: "a/b", ID: "c"}},
		{name: "slash in id", id: Identity{Team: "a", ID: "b/c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.Valid())
		})
	}
}

func TestOpaqueState_RoundTrip(t *testing.T) {
	id := Identity{Team: "T1", ID: "U1"}
	blob, err := EncodeOpaqueState(id, "S")
	require.NoError(t, err)
	assert.JSONEq(t, `{"team":"T1","id":"U1","setup":"S"}`, blob)

	gotID, err := ParseOpaqueState(blob)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)

	setup, err := ExtractSetup(blob)
	require.NoError(t, err)
	assert.Equal(t, "S", setup)
}

func TestParseOpaqueState_Invalid(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"not json", "team=T1"},
		{"missing setup", `{"team":"T1","id":"U1"}`},
		{"missing team", `{"id":"U1","setup":"S"}`},
		{"wrong type", `{"team":1,"id":"U1","setup":"S"}`},
		{"slash in id", `{"team":"T1","id":"U/1","setup":"S"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOpaqueState(tt.blob)
			assert.ErrorIs(t, err, ErrInvalidState)

			_, err = ExtractSetup(tt.blob)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestIdentity_String(t *testing.T) {
	assert.Equal(t, "T1/U1", Identity{Team: "T1", ID: "U1"}.String())
	assert.False(t, Identity{Team: "T1"}.Valid())
}
