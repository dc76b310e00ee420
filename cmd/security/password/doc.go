// Package password hashes and verifies dashboard operator passwords with Argon2id.
//
// Hashes use the PHC string format ($argon2id$v=19$m=...,t=...,p=...$salt$key). Stored hashes
// are treated as untrusted input: Verify refuses parameters far above the configured cost.
package password
