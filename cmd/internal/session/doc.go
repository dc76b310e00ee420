// Package session holds the dashboard's client session: the signed-in user's profile and the
// access/refresh token pair, mirrored into durable storage.
//
// State changes are split in two:
//   - Reduce is a pure transition (Session, Action) -> Session.
//   - Persist is the effect runner that writes the fields an action owns to storage.
//
// Store glues both together behind Dispatch and is the only mutation entry point used by the
// login, refresh and logout handlers.
package session
