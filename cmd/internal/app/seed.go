package app

import (
	"context"
	"errors"
	"time"

	"backoffice/cmd/identity"
	"backoffice/cmd/security/password"
)

// seedAdmin creates the configured admin account when it does not exist yet.
func seedAdmin(ctx context.Context, cfg Config, users identity.Store, log Logger) error {
	if cfg.SeedAdminUsername == "" {
		return nil
	}
	if cfg.SeedAdminPassword == "" {
		return errors.New("seed admin: BACKOFFICE_SEED_ADMIN_PASSWORD is required with BACKOFFICE_SEED_ADMIN_USERNAME")
	}

	u, err := users.CreateUser(ctx, identity.CreateUserInput{
		Username:    cfg.SeedAdminUsername,
		Email:       cfg.SeedAdminEmail,
		DisplayName: cfg.SeedAdminUsername,
		Role:        identity.RoleAdmin,
		Password:    cfg.SeedAdminPassword,
		Now:         time.Now().UTC(),
	})
	switch {
	case err == nil:
		log.Info("seed.admin.created", "user_id", u.ID, "username", u.Username)
		return nil
	case identity.IsConflict(err):
		log.Info("seed.admin.exists", "username", cfg.SeedAdminUsername)
		return nil
	default:
		return err
	}
}

// CreateUser opens the configured identity store, creates one user and closes the store.
func CreateUser(ctx context.Context, cfg Config, log Logger, in identity.CreateUserInput) (identity.User, error) {
	pw, err := password.FromEnv()
	if err != nil {
		return identity.User{}, err
	}
	if cfg.DatabaseURL == "" {
		return identity.User{}, errors.New("create user: BACKOFFICE_DATABASE_URL is required (the in-memory store does not outlive the process)")
	}

	users, st, _, _, err := newUserStore(ctx, cfg, pw, log)
	if err != nil {
		return identity.User{}, err
	}
	defer func() { _ = st.Close(ctx) }()

	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return users.CreateUser(ctx, in)
}
