// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/auth/postgres"
	"github.com/whisperbox/whisperbox/internal/store"
	"github.com/whisperbox/whisperbox/pkg/errutil"
)

var userCols = []string{
	"id", "username", "email", "password_hash", "verify_code", "verify_code_expiry",
	"is_verified", "is_accepting_messages", "created_at", "updated_at",
}

func newRepo(t *testing.T) (*postgres.UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return postgres.NewUserRepository(store.Static{DB: mock}), mock
}

func sampleUser() *auth.User {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &auth.User{
		ID:                  ulid.Make(),
		Username:            "alice",
		Email:               "alice@example.com",
		PasswordHash:        "$argon2id$hash",
		VerifyCode:          "123456",
		VerifyCodeExpiry:    now.Add(time.Hour),
		IsVerified:          false,
		IsAcceptingMessages: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func userRow(u *auth.User) *pgxmock.Rows {
	return pgxmock.NewRows(userCols).AddRow(
		u.ID.String(), u.Username, u.Email, u.PasswordHash, u.VerifyCode, u.VerifyCodeExpiry,
		u.IsVerified, u.IsAcceptingMessages, u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserRepository_GetByID(t *testing.T) {
	t.Run("returns the stored user", func(t *testing.T) {
		repo, mock := newRepo(t)
		want := sampleUser()
		mock.ExpectQuery(`FROM users`).
			WithArgs(want.ID.String()).
			WillReturnRows(userRow(want))

		got, err := repo.GetByID(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("maps no rows to not found", func(t *testing.T) {
		repo, mock := newRepo(t)
		id := ulid.Make()
		mock.ExpectQuery(`FROM users`).
			WithArgs(id.String()).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), id)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("wraps query failures", func(t *testing.T) {
		repo, mock := newRepo(t)
		id := ulid.Make()
		mock.ExpectQuery(`FROM users`).
			WithArgs(id.String()).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.GetByID(context.Background(), id)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_GET_FAILED")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("rejects a corrupt id", func(t *testing.T) {
		repo, mock := newRepo(t)
		u := sampleUser()
		rows := pgxmock.NewRows(userCols).AddRow(
			"not-a-ulid", u.Username, u.Email, u.PasswordHash, u.VerifyCode, u.VerifyCodeExpiry,
			u.IsVerified, u.IsAcceptingMessages, u.CreatedAt, u.UpdatedAt,
		)
		mock.ExpectQuery(`FROM users`).
			WithArgs(u.ID.String()).
			WillReturnRows(rows)

		_, err := repo.GetByID(context.Background(), u.ID)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_CORRUPT_ID")
	})
}

func TestUserRepository_GetByUsername(t *testing.T) {
	tests := []struct {
		name         string
		verifiedOnly bool
	}{
		{name: "any state", verifiedOnly: false},
		{name: "verified only", verifiedOnly: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepo(t)
			want := sampleUser()
			want.IsVerified = true
			mock.ExpectQuery(`WHERE username = \$1 AND \(is_verified OR NOT \$2\)`).
				WithArgs("alice", tt.verifiedOnly).
				WillReturnRows(userRow(want))

			got, err := repo.GetByUsername(context.Background(), "alice", tt.verifiedOnly)
			require.NoError(t, err)
			assert.Equal(t, want.ID, got.ID)
			assert.True(t, got.IsVerified)
		})
	}
}

func TestUserRepository_GetByIdentifier(t *testing.T) {
	repo, mock := newRepo(t)
	want := sampleUser()
	mock.ExpectQuery(`WHERE username = \$1 OR email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(userRow(want))

	got, err := repo.GetByIdentifier(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, want.Email, got.Email)
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	errutil.AssertErrorContext(t, err, "email", "nobody@example.com")
}

func TestUserRepository_Create(t *testing.T) {
	uniqueViolation := func(constraint string) error {
		return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
	}

	tests := []struct {
		name     string
		execErr  error
		wantIs   error
		wantCode string
	}{
		{name: "inserts the user"},
		{
			name:     "duplicate username",
			execErr:  uniqueViolation("users_username_key"),
			wantIs:   auth.ErrDuplicateUsername,
			wantCode: "USER_DUPLICATE",
		},
		{
			name:     "duplicate email",
			execErr:  uniqueViolation("users_email_key"),
			wantIs:   auth.ErrDuplicateEmail,
			wantCode: "USER_DUPLICATE",
		},
		{
			name:     "unknown unique constraint",
			execErr:  uniqueViolation("users_pkey"),
			wantIs:   auth.ErrDuplicateKey,
			wantCode: "USER_DUPLICATE",
		},
		{
			name:     "other database failure",
			execErr:  &pgconn.PgError{Code: pgerrcode.NotNullViolation},
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepo(t)
			u := sampleUser()
			exp := mock.ExpectExec(`INSERT INTO users`).
				WithArgs(
					u.ID.String(), u.Username, u.Email, u.PasswordHash, u.VerifyCode, u.VerifyCodeExpiry,
					u.IsVerified, u.IsAcceptingMessages, u.CreatedAt, u.UpdatedAt,
				)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := repo.Create(context.Background(), u)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
				assert.ErrorIs(t, err, auth.ErrDuplicateKey)
			} else {
				assert.NotErrorIs(t, err, auth.ErrDuplicateKey)
			}
		})
	}
}

func TestUserRepository_Updates(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pattern string
		run     func(repo *postgres.UserRepository, u *auth.User) error
		args    func(u *auth.User) []any
	}{
		{
			name:    "update pending",
			pattern: `(?s)UPDATE users SET.*verify_attempts = 0.*AND NOT is_verified`,
			run: func(repo *postgres.UserRepository, u *auth.User) error {
				return repo.UpdatePending(ctx, u)
			},
			args: func(u *auth.User) []any {
				return []any{u.ID.String(), u.PasswordHash, u.VerifyCode, u.VerifyCodeExpiry, u.UpdatedAt}
			},
		},
		{
			name:    "reclaim pending",
			pattern: `(?s)email = \$2.*verify_attempts = 0.*verify_code_expiry <= \$7`,
			run: func(repo *postgres.UserRepository, u *auth.User) error {
				return repo.ReclaimPending(ctx, u, at)
			},
			args: func(u *auth.User) []any {
				return []any{u.ID.String(), u.Email, u.PasswordHash, u.VerifyCode, u.VerifyCodeExpiry, u.UpdatedAt, at}
			},
		},
		{
			name:    "record failed code",
			pattern: `(?s)verify_attempts = verify_attempts \+ 1.*>= \$3.*AND NOT is_verified`,
			run: func(repo *postgres.UserRepository, u *auth.User) error {
				return repo.RecordFailedCode(ctx, u.ID, at, auth.MaxVerifyAttempts)
			},
			args: func(u *auth.User) []any {
				return []any{u.ID.String(), at, auth.MaxVerifyAttempts}
			},
		},
		{
			name:    "mark verified",
			pattern: `is_verified = TRUE`,
			run: func(repo *postgres.UserRepository, u *auth.User) error {
				return repo.MarkVerified(ctx, u.ID, at)
			},
			args: func(u *auth.User) []any {
				return []any{u.ID.String(), at}
			},
		},
		{
			name:    "update password",
			pattern: `SET password_hash = \$2`,
			run: func(repo *postgres.UserRepository, u *auth.User) error {
				return repo.UpdatePassword(ctx, u.ID, "$argon2id$new")
			},
			args: func(u *auth.User) []any {
				return []any{u.ID.String(), "$argon2id$new", pgxmock.AnyArg()}
			},
		},
		{
			name:    "set accepting messages",
			pattern: `SET is_accepting_messages = \$2`,
			run: func(repo *postgres.UserRepository, u *auth.User) error {
				return repo.SetAcceptingMessages(ctx, u.ID, false)
			},
			args: func(u *auth.User) []any {
				return []any{u.ID.String(), false, pgxmock.AnyArg()}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" succeeds", func(t *testing.T) {
			repo, mock := newRepo(t)
			u := sampleUser()
			mock.ExpectExec(tt.pattern).
				WithArgs(tt.args(u)...).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))

			require.NoError(t, tt.run(repo, u))
		})

		t.Run(tt.name+" reports missing rows", func(t *testing.T) {
			repo, mock := newRepo(t)
			u := sampleUser()
			mock.ExpectExec(tt.pattern).
				WithArgs(tt.args(u)...).
				WillReturnResult(pgxmock.NewResult("UPDATE", 0))

			err := tt.run(repo, u)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrNotFound)
			errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
		})

		t.Run(tt.name+" wraps failures", func(t *testing.T) {
			repo, mock := newRepo(t)
			u := sampleUser()
			mock.ExpectExec(tt.pattern).
				WithArgs(tt.args(u)...).
				WillReturnError(errors.New("deadlock detected"))

			err := tt.run(repo, u)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "USER_UPDATE_FAILED")
			errutil.AssertErrorContext(t, err, "id", u.ID.String())
		})
	}
}

type failingConnector struct{}

func (failingConnector) Connect(context.Context) (store.DB, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestUserRepository_ConnectFailure(t *testing.T) {
	repo := postgres.NewUserRepository(failingConnector{})

	_, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	err = repo.Create(context.Background(), sampleUser())
	require.Error(t, err)
}

func TestUserRepository_ReclaimPending_DuplicateEmail(t *testing.T) {
	repo, mock := newRepo(t)
	u := sampleUser()
	at := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	mock.ExpectExec(`email = \$2`).
		WithArgs(u.ID.String(), u.Email, u.PasswordHash, u.VerifyCode, u.VerifyCodeExpiry, u.UpdatedAt, at).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

	err := repo.ReclaimPending(context.Background(), u, at)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
	errutil.AssertErrorCode(t, err, "USER_DUPLICATE")
	errutil.AssertErrorContext(t, err, "id", u.ID.String())
}
