package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"backoffice/cmd/security/password"
)

// PostgresStore persists operators in PostgreSQL.
//
// The pool is owned by the caller and never closed here. Schema and table identifiers are
// quoted through pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	pw     password.Config
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the schema (default "backoffice"). It must be a legal identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// WithPasswordConfig overrides the hashing configuration used by CreateUser.
func WithPasswordConfig(cfg password.Config) PostgresOption {
	return func(s *PostgresStore) error {
		s.pw = cfg
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "backoffice",
		pw:     password.DefaultConfig(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// EnsureSchema creates the schema and tables if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	users := pgIdent(s.schema, "users")
	creds := pgIdent(s.schema, "user_credentials")

	ddl := fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %s;

CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  username_norm TEXT NOT NULL,
  email TEXT NULL,
  email_norm TEXT NULL,
  display_name TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),

  CONSTRAINT chk_users_id_ulid_len CHECK (char_length(id) = 26),
  CONSTRAINT chk_users_role CHECK (role IN ('admin', 'editor')),
  CONSTRAINT uq_users_username_norm UNIQUE (username_norm),
  CONSTRAINT uq_users_email_norm UNIQUE (email_norm)
);

CREATE TABLE IF NOT EXISTS %s (
  user_id TEXT PRIMARY KEY REFERENCES %s(id) ON DELETE CASCADE,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
		pgx.Identifier{s.schema}.Sanitize(), users, creds, users)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("identity: ensure schema: %w", err)
	}
	return nil
}

// CreateUser inserts the user and its credentials in one transaction.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	c, err := newUser(op, in, s.pw)
	if err != nil {
		return User{}, err
	}
	u := c.User

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO `+pgIdent(s.schema, "users")+` (
		     id, username, username_norm, email, email_norm, display_name, role, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID,
		u.Username,
		NormalizeUsername(u.Username),
		nullIfEmpty(u.Email),
		nullIfEmpty(NormalizeEmail(u.Email)),
		u.DisplayName,
		string(u.Role),
		u.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO `+pgIdent(s.schema, "user_credentials")+` (user_id, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)`,
		u.ID, c.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

const pgUserColumns = `u.id, u.username, COALESCE(u.email, ''), u.display_name, u.role, u.created_at`

func (s *PostgresStore) FindForLogin(ctx context.Context, login string) (Credentials, error) {
	const op = "identity.FindForLogin"

	col, key := "u.username_norm", NormalizeUsername(login)
	if isEmailLogin(login) {
		col, key = "u.email_norm", NormalizeEmail(login)
	}

	var (
		c    Credentials
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT `+pgUserColumns+`, c.password_hash
		   FROM `+pgIdent(s.schema, "users")+` u
		   JOIN `+pgIdent(s.schema, "user_credentials")+` c ON c.user_id = u.id
		  WHERE `+col+` = $1`,
		key,
	).Scan(&c.User.ID, &c.User.Username, &c.User.Email, &c.User.DisplayName, &role, &c.User.CreatedAt, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credentials{}, NotFoundError{Op: op, Resource: "user"}
		}
		return Credentials{}, err
	}
	c.User.Role = Role(role)
	return c, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if strings.TrimSpace(id) == "" {
		return User{}, invalid(op, "missing id")
	}

	var (
		u    User
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT `+pgUserColumns+` FROM `+pgIdent(s.schema, "users")+` u WHERE u.id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error {
	const op = "identity.UpdatePasswordHash"

	if hash == "" {
		return invalid(op, "empty hash")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+pgIdent(s.schema, "user_credentials")+`
		    SET password_hash = $2, updated_at = $3
		  WHERE user_id = $1`,
		userID, hash, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// ---- helpers ----

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_users_username_norm", strings.Contains(c, "username"):
		return "username", true
	case c == "uq_users_email_norm", strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
