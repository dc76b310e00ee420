// Package identity holds dashboard operator accounts: users, their roles and password
// credentials, and the stores that persist them.
//
// Passwords are hashed with cmd/security/password; the plain password never leaves this package.
package identity
