package password

import "errors"

// Policy errors are returned by Validate and Hash. The create-user command and the admin seed
// print them as-is, so the text is written for an operator.
var (
	ErrPasswordTooShort = errors.New("password: shorter than BACKOFFICE_PASSWORD_MIN_LEN")
	ErrPasswordTooLong  = errors.New("password: longer than BACKOFFICE_PASSWORD_MAX_LEN")
	ErrWeakPassword     = errors.New("password: too weak")
)

// ErrInvalidHash means a stored hash is not a $argon2id$ PHC string this package can read.
var ErrInvalidHash = errors.New("password: invalid argon2id hash")
