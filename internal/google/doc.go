// Package google builds Google OAuth2 clients from the application's static
// client credentials.
//
// A client built without a token can only produce the consent URL and
// exchange an authorization code. A client built with a token also yields
// an authorized *http.Client for calling Google APIs on the user's behalf.
package google
