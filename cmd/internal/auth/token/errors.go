package token

import "errors"

var (
	// ErrInvalidToken is returned when a token fails signature, issuer, expiry or type checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid token config")
)
