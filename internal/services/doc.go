// Package services wraps the upstream Spotify Web API behind the [Client]
// interface and owns credential freshness via [Authenticator].
//
// # Client
//
// [SpotifyClient] is a stateless wrapper: the bearer token is an argument on
// every call so one instance serves every user in a fleet run. Operations are
// single network calls with no local retry; non-2xx responses surface as
// [*UpstreamError] so callers can distinguish credential failures (401) from
// transient ones.
//
// # Authentication
//
// [Authenticator] implements "get a valid access token" for a user: it hands
// back the stored token while unexpired and otherwise refreshes through the
// OAuth token endpoint, persisting rotated credentials via [TokenPersister].
// Refresh failures are per-user failures and never abort sibling users.
package services
