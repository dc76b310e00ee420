// Package guard gates protected views behind the presence of a persisted access credential.
//
// Every request to a wrapped view is one mount. A mount starts in StateChecking, reads the
// credential once and settles in StateDenied (one navigation to the login path, nothing rendered)
// or StateAllowed (the view is served unchanged). Decisions are never cached across mounts.
package guard
