// Package token issues and verifies the dashboard's access/refresh token pair.
//
// Both tokens are PASETO v4.public, signed with one Ed25519 key and told apart by the "typ"
// claim. They are stateless: the server keeps no session rows, the client keeps the pair in
// cookies through the session store.
package token
