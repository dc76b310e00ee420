package identity

import "errors"

// Error kinds wrapped by OpError, ConflictError and NotFoundError. The text is a stable code
// placed after the operation name. The auth endpoints map ErrInvalidCredentials to 401; the
// admin seed treats ErrConflict as "already created".
var (
	ErrInvalidInput       = errors.New("invalid_input")
	ErrNotFound           = errors.New("not_found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid_credentials")
)
