package identity

import (
	"context"
	"sync"
	"time"

	"backoffice/cmd/security/password"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	pw password.Config

	mu         sync.RWMutex
	byID       map[string]Credentials
	byUsername map[string]string
	byEmail    map[string]string
}

// NewMemoryStore returns an empty store hashing with pw.
func NewMemoryStore(pw password.Config) *MemoryStore {
	return &MemoryStore{
		pw:         pw,
		byID:       make(map[string]Credentials),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	// Hash outside the lock; Argon2id is slow.
	creds, err := newUser(op, in, s.pw)
	if err != nil {
		return User{}, err
	}
	un := NormalizeUsername(creds.User.Username)
	en := NormalizeEmail(creds.User.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[un]; ok {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	if en != "" {
		if _, ok := s.byEmail[en]; ok {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		s.byEmail[en] = creds.User.ID
	}
	s.byUsername[un] = creds.User.ID
	s.byID[creds.User.ID] = creds

	return creds.User, nil
}

func (s *MemoryStore) FindForLogin(ctx context.Context, login string) (Credentials, error) {
	const op = "identity.FindForLogin"

	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		id string
		ok bool
	)
	if isEmailLogin(login) {
		id, ok = s.byEmail[NormalizeEmail(login)]
	} else {
		id, ok = s.byUsername[NormalizeUsername(login)]
	}
	if !ok {
		return Credentials{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.byID[id], nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return c.User, nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, userID, hash string, _ time.Time) error {
	const op = "identity.UpdatePasswordHash"

	if err := ctx.Err(); err != nil {
		return err
	}
	if hash == "" {
		return invalid(op, "empty hash")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	c.PasswordHash = hash
	s.byID[userID] = c
	return nil
}
