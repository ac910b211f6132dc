// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Authenticator verifies credentials and issues session tokens.
type Authenticator struct {
	users    UserRepository
	hasher   PasswordHasher
	sessions *SessionIssuer
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. A nil logger selects slog.Default.
func NewAuthenticator(users UserRepository, hasher PasswordHasher, sessions *SessionIssuer, logger *slog.Logger) (*Authenticator, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session issuer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger,
	}, nil
}

// dummyPasswordHash is verified when the identifier matches nobody so that
// unknown and known identifiers take the same time.
//
//nolint:gosec // G101: not a credential, never matches any password.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Login authenticates identifier (username or email) and password.
// Failures carry CodeNoSuchUser, CodeEmailNotVerified or CodeInvalidPassword.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (principal Principal, token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	user, lookupErr := a.users.GetByIdentifier(ctx, identifier)
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return Principal{}, "", oops.Code(CodeLoginFailed).
				With("operation", "get user by identifier").
				Wrap(lookupErr)
		}
		//nolint:errcheck // result discarded, only the timing matters
		a.hasher.Verify(password, dummyPasswordHash)
		return Principal{}, "", oops.Code(CodeNoSuchUser).
			With("identifier", identifier).
			Errorf("No user found with this email or username")
	}

	if !user.IsVerified {
		return Principal{}, "", oops.Code(CodeEmailNotVerified).
			With("user_id", user.ID.String()).
			Errorf("Please verify your email to login")
	}

	valid, err := a.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return Principal{}, "", oops.Code(CodeLoginFailed).
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !valid {
		return Principal{}, "", oops.Code(CodeInvalidPassword).
			With("user_id", user.ID.String()).
			Errorf("Invalid password")
	}

	if a.hasher.NeedsUpgrade(user.PasswordHash) {
		a.upgradeHash(ctx, user, password)
	}

	principal = user.Principal()
	token, _, err = a.sessions.Issue(principal)
	if err != nil {
		return Principal{}, "", oops.Code(CodeLoginFailed).
			With("operation", "issue session").
			Wrap(err)
	}
	return principal, token, nil
}

// upgradeHash re-hashes a legacy password with argon2id. Failures are logged
// and do not fail the login.
func (a *Authenticator) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := a.hasher.Hash(password)
	if err == nil {
		err = a.users.UpdatePassword(ctx, user.ID, hash)
	}
	if err != nil {
		a.logger.WarnContext(ctx, "password hash upgrade failed",
			"user_id", user.ID.String(),
			"error", err)
		return
	}
	user.PasswordHash = hash
}

// Authenticate resolves a session token to its principal.
func (a *Authenticator) Authenticate(token string) (Principal, error) {
	return a.sessions.Parse(token)
}

// SessionTTL returns the lifetime of issued tokens.
func (a *Authenticator) SessionTTL() time.Duration {
	return a.sessions.TTL()
}
