// Package api implements the typed HTTP client for the TasteOS cook
// backend.
//
// # Endpoints
//
// [Client] wraps the cook-session surface: session start, active-session
// lookup, the single sparse PATCH mutation, session end, autoflow
// suggestion retrieval, the stateless assist endpoint, and the SSE event
// stream.
//
// # Request scoping
//
// Every request carries the deployment's auth context: a bearer token
// attached through an [oauth2.TokenSource]-backed client, and a workspace
// identifier header whose name is configurable per deployment. The client
// is constructed once from [shared.APIConfig] and passed down explicitly;
// no ambient globals.
//
// # Error Handling
//
// Methods wrap failures with typed errors from the shared package:
//   - [shared.ErrNoActiveSession] : 404 from the active-session lookup,
//     which is "no session", not a failure
//   - [shared.ErrSessionNotFound] : 404 on a session-scoped call
//   - [shared.ErrAPIRequest] : any other non-2xx response
//
// # Event Stream
//
// [Client.StreamEvents] consumes a single connection of the session event
// stream and decodes named "session" events. Reconnect policy (fixed
// backoff, close on loss of interest) belongs to the sync layer, not here.
package api
