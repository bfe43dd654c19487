// Package server provides the administrative HTTP surface and the OAuth
// callback listener.
//
// # Routing
//
// [BasicRouter] wraps [http.ServeMux] with a middleware stack; middleware is
// snapshotted when a handler is registered, so handlers added before an
// authentication middleware stay open (used for /health).
//
// # Endpoints
//
//   - POST /jobs/run : manual fleet trigger, 409 while a run is active
//   - GET  /jobs/latest : most recent execution log entry
//   - GET  /health : liveness probe, unauthenticated
//   - GET  /callback : one-shot OAuth2 authorization code callback used by
//     the CLI login flow
//
// Job endpoints require the static admin token from configuration as a
// bearer credential.
package server
