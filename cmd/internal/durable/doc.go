// Package durable is the client-persisted key/value layer behind the session store and guard.
//
// In production the storage is the browser cookie jar, reached through one HTTP exchange:
// reads come from the request's Cookie header and writes leave as Set-Cookie headers.
// Memory is a map-backed stand-in for tests and tools.
package durable
