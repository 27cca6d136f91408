// Package identity recovers the (team, user) pair that addresses one
// authorization record from each of the three inbound request legs.
//
// The slash command delivers a form encoded body with team_id and user_id,
// the auth redirect link carries id and team as query parameters, and the
// provider callback echoes back the opaque JSON state this service embedded
// in the authorization URL.
package identity
