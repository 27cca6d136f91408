// Package server exposes the slash command over HTTP.
//
// # Request legs
//
// Handler implements the three legs of the authorization protocol as
// functions from request data to a Response:
//   - POST /create: the slash command. Replies with a meeting link when the
//     user is authorized, otherwise with a private authorization prompt.
//   - GET /auth: the link in the prompt. Advances the flow and redirects to
//     Google's consent screen.
//   - GET /callback: Google's redirect. Exchanges the code and stores the
//     credentials.
//
// Rejections use fixed bodies that never reveal why verification failed.
//
// # Operations
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed; readiness
// pings the storage backend. MetricsServer serves Prometheus metrics on a
// dedicated port.
package server
