package session

import "errors"

// ErrNoStorage is returned by Persist when no storage is bound.
var ErrNoStorage = errors.New("session: no durable storage")
