package identity

import (
	"context"
	"strings"
	"time"

	"backoffice/cmd/security/password"
)

// User is a dashboard operator.
type User struct {
	ID          string
	Username    string
	Email       string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
}

// Credentials pairs a user with the stored password hash. Only login paths see it.
type Credentials struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a new operator. Username and Password are required; Email is
// optional; an empty Role defaults to RoleEditor.
type CreateUserInput struct {
	Username    string
	Email       string
	DisplayName string
	Role        Role
	Password    string
	Now         time.Time
}

// Store is the identity persistence boundary.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// FindForLogin resolves a username, or an email when login contains "@".
	// A missing user is a NotFoundError.
	FindForLogin(ctx context.Context, login string) (Credentials, error)

	GetUserByID(ctx context.Context, id string) (User, error)

	// UpdatePasswordHash replaces the stored hash, used when hashing parameters change.
	UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error
}

// newUser validates in and produces the row to store. Shared by every Store.
func newUser(op string, in CreateUserInput, pw password.Config) (Credentials, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return Credentials{}, invalid(op, "username is required")
	}
	if strings.Contains(username, "@") {
		return Credentials{}, invalid(op, "username must not contain @")
	}

	email := strings.TrimSpace(in.Email)
	if email != "" && !isEmailLogin(email) {
		return Credentials{}, invalid(op, "email is malformed")
	}

	role := in.Role
	if role == "" {
		role = RoleEditor
	}
	if _, ok := ParseRole(string(role)); !ok {
		return Credentials{}, invalid(op, "unknown role")
	}

	hash, err := pw.Hash(in.Password)
	if err != nil {
		return Credentials{}, invalid(op, err.Error())
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := NewULID(now)
	if err != nil {
		return Credentials{}, err
	}

	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = username
	}

	return Credentials{
		User: User{
			ID:          id,
			Username:    username,
			Email:       email,
			DisplayName: display,
			Role:        role,
			CreatedAt:   now,
		},
		PasswordHash: hash,
	}, nil
}
