// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Credential validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRegex    = regexp.MustCompile(`.+@.+\..+`)
)

// User is an account and inbox owner.
type User struct {
	ID                  ulid.ULID
	Username            string
	Email               string
	PasswordHash        string
	VerifyCode          string
	VerifyCodeExpiry    time.Time
	IsVerified          bool
	IsAcceptingMessages bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewPendingUser creates an unverified user that accepts messages.
func NewPendingUser(username, email, passwordHash, code string, expiry time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidation).Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:                  ulid.Make(),
		Username:            username,
		Email:               email,
		PasswordHash:        passwordHash,
		VerifyCode:          code,
		VerifyCodeExpiry:    expiry,
		IsVerified:          false,
		IsAcceptingMessages: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// ResetPending replaces the credentials of an unverified user.
func (u *User) ResetPending(passwordHash, code string, expiry time.Time) {
	u.PasswordHash = passwordHash
	u.VerifyCode = code
	u.VerifyCodeExpiry = expiry
	u.UpdatedAt = time.Now().UTC()
}

// ReclaimFor hands an unverified user with an expired code to a new
// registrant under the same username.
func (u *User) ReclaimFor(email, passwordHash, code string, expiry time.Time) {
	u.Email = strings.TrimSpace(email)
	u.ResetPending(passwordHash, code, expiry)
}

// Principal returns the session view of the user.
func (u *User) Principal() Principal {
	return Principal{
		ID:                  u.ID,
		Username:            u.Username,
		IsVerified:          u.IsVerified,
		IsAcceptingMessages: u.IsAcceptingMessages,
	}
}

// ValidateUsername checks length and character set.
func ValidateUsername(username string) error {
	switch {
	case len(username) < MinUsernameLength:
		return oops.Code(CodeValidation).
			With("field", "username").
			With("min", MinUsernameLength).
			Errorf("Username must be at least %d characters", MinUsernameLength)
	case len(username) > MaxUsernameLength:
		return oops.Code(CodeValidation).
			With("field", "username").
			With("max", MaxUsernameLength).
			Errorf("Username must be no more than %d characters", MaxUsernameLength)
	case !usernameRegex.MatchString(username):
		return oops.Code(CodeValidation).
			With("field", "username").
			Errorf("Username must not contain special characters")
	}
	return nil
}

// ValidateEmail applies the loose address pattern.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return oops.Code(CodeValidation).
			With("field", "email").
			Errorf("Invalid email address")
	}
	return nil
}

// ValidatePassword enforces the minimum length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code(CodeValidation).
			With("field", "password").
			With("min", MinPasswordLength).
			Errorf("Password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByIdentifier retrieves a user whose username or email equals identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	// GetByUsername retrieves a user by exact username. With verifiedOnly,
	// unverified owners are treated as absent.
	GetByUsername(ctx context.Context, username string, verifiedOnly bool) (*User, error)

	// GetByEmail retrieves a user by exact email, verified or not.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create stores a new pending user. Returns an error wrapping
	// ErrDuplicateUsername or ErrDuplicateEmail on a unique violation.
	Create(ctx context.Context, user *User) error

	// UpdatePending overwrites password hash, code and expiry of an unverified user.
	UpdatePending(ctx context.Context, user *User) error

	// ReclaimPending gives an unverified row whose code expired at or before
	// now a new email, password hash, code and expiry. Returns an error
	// wrapping ErrNotFound when the row was verified or refreshed meanwhile.
	ReclaimPending(ctx context.Context, user *User, now time.Time) error

	// RecordFailedCode counts a wrong code and expires the outstanding code
	// at at after maxAttempts misses.
	RecordFailedCode(ctx context.Context, id ulid.ULID, at time.Time, maxAttempts int) error

	// MarkVerified flags the user verified and expires the outstanding code.
	MarkVerified(ctx context.Context, id ulid.ULID, at time.Time) error

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetAcceptingMessages toggles whether the inbox accepts new messages.
	SetAcceptingMessages(ctx context.Context, id ulid.ULID, accepting bool) error
}
