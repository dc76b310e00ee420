package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"backoffice/cmd/security/password"
)

func cheapPassword() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	s := NewMemoryStore(cheapPassword())
	ctx := context.Background()

	u, err := s.CreateUser(ctx, CreateUserInput{
		Username: "Navid",
		Email:    "Navid@Example.com",
		Password: "correct horse battery",
		Role:     RoleAdmin,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if len(u.ID) != 26 {
		t.Fatalf("expected ULID id, got %q", u.ID)
	}
	if u.DisplayName != "Navid" {
		t.Fatalf("display name should default to username, got %q", u.DisplayName)
	}

	byName, err := s.FindForLogin(ctx, "  nAvId ")
	if err != nil {
		t.Fatalf("FindForLogin(username): %v", err)
	}
	if byName.User.ID != u.ID || byName.PasswordHash == "" {
		t.Fatalf("unexpected credentials: %+v", byName)
	}

	byEmail, err := s.FindForLogin(ctx, "navid@example.COM")
	if err != nil {
		t.Fatalf("FindForLogin(email): %v", err)
	}
	if byEmail.User.ID != u.ID {
		t.Fatalf("email lookup returned %q", byEmail.User.ID)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Role != RoleAdmin {
		t.Fatalf("role=%q", got.Role)
	}
}

func TestMemoryStore_Conflicts(t *testing.T) {
	s := NewMemoryStore(cheapPassword())
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, CreateUserInput{Username: "navid", Email: "n@example.com", Password: "correct horse battery"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err := s.CreateUser(ctx, CreateUserInput{Username: "NAVID", Password: "correct horse battery"})
	if !IsConflict(err) {
		t.Fatalf("expected username conflict, got %v", err)
	}

	_, err = s.CreateUser(ctx, CreateUserInput{Username: "other", Email: "N@EXAMPLE.com", Password: "correct horse battery"})
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestMemoryStore_InvalidInput(t *testing.T) {
	s := NewMemoryStore(cheapPassword())
	ctx := context.Background()

	cases := []CreateUserInput{
		{Username: "", Password: "correct horse battery"},
		{Username: "a@b", Password: "correct horse battery"},
		{Username: "navid", Email: "not-an-email", Password: "correct horse battery"},
		{Username: "navid", Role: "owner", Password: "correct horse battery"},
		{Username: "navid", Password: "short"},
	}
	for i, in := range cases {
		if _, err := s.CreateUser(ctx, in); !IsInvalidInput(err) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestMemoryStore_DefaultRoleIsEditor(t *testing.T) {
	s := NewMemoryStore(cheapPassword())

	u, err := s.CreateUser(context.Background(), CreateUserInput{Username: "sara", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Role != RoleEditor {
		t.Fatalf("role=%q", u.Role)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	s := NewMemoryStore(cheapPassword())
	ctx := context.Background()

	if _, err := s.FindForLogin(ctx, "ghost"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetUserByID(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.UpdatePasswordHash(ctx, "missing", "$argon2id$x", time.Now()); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore(cheapPassword())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.FindForLogin(ctx, "navid"); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
