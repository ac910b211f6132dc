// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/store"
)

// Unique constraint names from the users migration.
const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

const userColumns = `id, username, email, password_hash, verify_code, verify_code_expiry,
		       is_verified, is_accepting_messages, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	conn store.Connector
}

var _ auth.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn store.Connector) *UserRepository {
	return &UserRepository{conn: conn}
}

func (r *UserRepository) db(ctx context.Context) (store.DB, error) {
	db, err := r.conn.Connect(ctx)
	if err != nil {
		return nil, oops.In("user_repository").Wrap(err)
	}
	return db, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return r.getOne(ctx, "id", id.String(), `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())
}

// GetByIdentifier retrieves a user whose username or email equals identifier.
// A username match wins when both exist.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	return r.getOne(ctx, "identifier", identifier, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 OR email = $1
		ORDER BY (username = $1) DESC
		LIMIT 1
	`, identifier)
}

// GetByUsername retrieves a user by username, optionally only when verified.
func (r *UserRepository) GetByUsername(ctx context.Context, username string, verifiedOnly bool) (*auth.User, error) {
	return r.getOne(ctx, "username", username, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 AND (is_verified OR NOT $2)
	`, username, verifiedOnly)
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, "email", email, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
}

func (r *UserRepository) getOne(ctx context.Context, key, value, query string, args ...any) (*auth.User, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	user, err := scanUser(db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With(key, value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by "+key).
			With(key, value).
			Wrap(err)
	}
	return user, nil
}

// Create stores a new pending user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, verify_code, verify_code_expiry,
			is_verified, is_accepting_messages, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.VerifyCode,
		user.VerifyCodeExpiry,
		user.IsVerified,
		user.IsAcceptingMessages,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return oops.Code("USER_DUPLICATE").
				With("username", user.Username).
				With("email", user.Email).
				Wrap(dup)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// UpdatePending overwrites the credentials of an unverified user.
func (r *UserRepository) UpdatePending(ctx context.Context, user *auth.User) error {
	return r.execOne(ctx, "update pending user", user.ID, `
		UPDATE users SET
			password_hash = $2,
			verify_code = $3,
			verify_code_expiry = $4,
			verify_attempts = 0,
			updated_at = $5
		WHERE id = $1 AND NOT is_verified
	`, user.ID.String(), user.PasswordHash, user.VerifyCode, user.VerifyCodeExpiry, user.UpdatedAt)
}

// ReclaimPending hands an unverified row whose code expired at or before
// now to a new registrant. The row keeps its ID and username.
func (r *UserRepository) ReclaimPending(ctx context.Context, user *auth.User, now time.Time) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	result, err := db.Exec(ctx, `
		UPDATE users SET
			email = $2,
			password_hash = $3,
			verify_code = $4,
			verify_code_expiry = $5,
			verify_attempts = 0,
			updated_at = $6
		WHERE id = $1 AND NOT is_verified AND verify_code_expiry <= $7
	`, user.ID.String(), user.Email, user.PasswordHash, user.VerifyCode, user.VerifyCodeExpiry, user.UpdatedAt, now)
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return oops.Code("USER_DUPLICATE").
				With("id", user.ID.String()).
				With("email", user.Email).
				Wrap(dup)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "reclaim pending user").
			With("id", user.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", user.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// RecordFailedCode counts a wrong code against an unverified user and
// expires the code at at once maxAttempts misses accumulate.
func (r *UserRepository) RecordFailedCode(ctx context.Context, id ulid.ULID, at time.Time, maxAttempts int) error {
	return r.execOne(ctx, "record failed code", id, `
		UPDATE users SET
			verify_attempts = verify_attempts + 1,
			verify_code_expiry = CASE
				WHEN verify_attempts + 1 >= $3 THEN LEAST(verify_code_expiry, $2)
				ELSE verify_code_expiry
			END,
			updated_at = $2
		WHERE id = $1 AND NOT is_verified
	`, id.String(), at, maxAttempts)
}

// MarkVerified flags the user verified and expires the outstanding code at at.
func (r *UserRepository) MarkVerified(ctx context.Context, id ulid.ULID, at time.Time) error {
	return r.execOne(ctx, "mark verified", id, `
		UPDATE users SET
			is_verified = TRUE,
			verify_code_expiry = $2,
			updated_at = $2
		WHERE id = $1
	`, id.String(), at)
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return r.execOne(ctx, "update password", id, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
}

// SetAcceptingMessages toggles whether the inbox accepts new messages.
func (r *UserRepository) SetAcceptingMessages(ctx context.Context, id ulid.ULID, accepting bool) error {
	return r.execOne(ctx, "set accepting messages", id, `
		UPDATE users SET is_accepting_messages = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), accepting, time.Now().UTC())
}

// execOne runs an UPDATE that must touch exactly one row.
func (r *UserRepository) execOne(ctx context.Context, operation string, id ulid.ULID, query string, args ...any) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	result, err := db.Exec(ctx, query, args...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", operation).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// duplicateKey maps a unique violation to the matching auth sentinel.
// Returns nil for any other error.
func duplicateKey(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return auth.ErrDuplicateUsername
	case emailConstraint:
		return auth.ErrDuplicateEmail
	default:
		return auth.ErrDuplicateKey
	}
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u     auth.User
		idStr string
	)
	err := row.Scan(
		&idStr,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.VerifyCode,
		&u.VerifyCodeExpiry,
		&u.IsVerified,
		&u.IsAcceptingMessages,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}

	u.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ID").With("id", idStr).Wrap(err)
	}
	return &u, nil
}
