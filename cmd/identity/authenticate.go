package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"backoffice/cmd/security/password"
)

// Authenticator checks login/password pairs against a Store.
type Authenticator struct {
	Store    Store
	Password password.Config

	// Now is overridable for tests.
	Now func() time.Time
}

// Authenticate returns the user for a valid login/password pair.
//
// Unknown logins and wrong passwords both yield ErrInvalidCredentials, and an unknown login
// still pays for one Argon2id verification. A correct password stored with outdated
// parameters is rehashed best-effort.
func (a Authenticator) Authenticate(ctx context.Context, login, plain string) (User, error) {
	const op = "identity.Authenticate"

	login = strings.TrimSpace(login)
	if login == "" || plain == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}

	creds, err := a.Store.FindForLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			a.Password.VerifyDummy(plain)
			return User{}, OpError{Op: op, Kind: ErrInvalidCredentials}
		}
		return User{}, err
	}

	ok, err := a.Password.Verify(creds.PasswordHash, plain)
	if err != nil || !ok {
		return User{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}

	if a.Password.NeedsRehash(creds.PasswordHash) {
		if h, err := a.Password.Hash(plain); err == nil {
			_ = a.Store.UpdatePasswordHash(ctx, creds.User.ID, h, a.now())
		}
	}
	return creds.User, nil
}

func (a Authenticator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}
