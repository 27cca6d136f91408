// Package auth implements the authorization state machine that binds the
// three HTTP legs of the Google OAuth flow into one logical flow.
//
// Each (team, user) identity owns exactly one record stored under
// "<team>/<id>/auth". The record moves strictly through three phases:
//
//	auth -> callback -> done
//
// A setup token issued by Start is carried unchanged from the auth phase
// into the callback phase. Every leg must present it, and it is compared
// by exact equality. Identity alone is visible to anyone in the Slack
// workspace, so the token is what keeps one user from completing another
// user's pending authorization.
//
// Start always overwrites. The two advancing writes (AdvanceToCallback and
// Finalize) are conditional on the record still being the one that was
// verified, when the backing store supports compare-and-swap.
package auth
