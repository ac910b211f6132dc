// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
)

// RegistrationService handles sign-up, username availability and email
// confirmation.
type RegistrationService struct {
	users  UserRepository
	hasher PasswordHasher
	sender CodeSender
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistrationService creates a RegistrationService. A nil logger selects slog.Default.
func NewRegistrationService(users UserRepository, hasher PasswordHasher, sender CodeSender, logger *slog.Logger) (*RegistrationService, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if sender == nil {
		return nil, oops.Errorf("code sender is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationService{
		users:  users,
		hasher: hasher,
		sender: sender,
		logger: logger,
		now:    time.Now,
	}, nil
}

func usernameTaken(username string) error {
	return oops.Code(CodeUsernameTaken).With("username", username).Errorf("Username is already taken")
}

func emailTaken(email string) error {
	return oops.Code(CodeEmailTaken).With("email", email).Errorf("Email is already registered")
}

// Register creates a pending account, or refreshes the credentials of an
// unverified account with the same email, then emails a verification code.
//
// When delivery fails the account is still persisted and the returned error
// carries CodeEmailDelivery together with the user.
func (s *RegistrationService) Register(ctx context.Context, username, email, password string) (user *User, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	span.SetAttributes(attribute.String("username", username))

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	// Fast path only; the unique index decides on write.
	if _, err := s.users.GetByUsername(ctx, username, true); err == nil {
		return nil, usernameTaken(username)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeRegistrationFailed).
			With("operation", "get user by username").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code(CodeRegistrationFailed).
			With("operation", "hash password").
			Wrap(err)
	}

	code, expiry, err := IssueCode(s.now())
	if err != nil {
		return nil, oops.Code(CodeRegistrationFailed).
			With("operation", "issue code").
			Wrap(err)
	}

	user, err = s.persistPending(ctx, username, email, hash, code, expiry)
	if err != nil {
		return nil, err
	}

	if err := s.sender.SendVerificationCode(ctx, user.Email, user.Username, code); err != nil {
		return user, oops.Code(CodeEmailDelivery).
			With("user_id", user.ID.String()).
			With("email", user.Email).
			Wrapf(err, "Failed to send verification email")
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"username", user.Username)
	return user, nil
}

// persistPending reuses an unverified row owning email or inserts a new one.
func (s *RegistrationService) persistPending(ctx context.Context, username, email, hash, code string, expiry time.Time) (*User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.IsVerified:
		return nil, emailTaken(email)

	case err == nil:
		existing.ResetPending(hash, code, expiry)
		if err := s.users.UpdatePending(ctx, existing); err != nil {
			return nil, oops.Code(CodeRegistrationFailed).
				With("operation", "update pending user").
				With("user_id", existing.ID.String()).
				Wrap(err)
		}
		return existing, nil

	case errors.Is(err, ErrNotFound):
		user, err := NewPendingUser(username, email, hash, code, expiry)
		if err != nil {
			return nil, err
		}
		if err := s.users.Create(ctx, user); err != nil {
			switch {
			case errors.Is(err, ErrDuplicateUsername):
				return s.reclaimExpired(ctx, username, email, hash, code, expiry)
			case errors.Is(err, ErrDuplicateEmail):
				return nil, emailTaken(email)
			}
			return nil, oops.Code(CodeRegistrationFailed).
				With("operation", "create user").
				Wrap(err)
		}
		return user, nil

	default:
		return nil, oops.Code(CodeRegistrationFailed).
			With("operation", "get user by email").
			Wrap(err)
	}
}

// reclaimExpired takes over an unverified username whose code has expired.
// A live pending registration keeps the name.
func (s *RegistrationService) reclaimExpired(ctx context.Context, username, email, hash, code string, expiry time.Time) (*User, error) {
	now := s.now()
	holder, err := s.users.GetByUsername(ctx, username, false)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, usernameTaken(username)
	case err != nil:
		return nil, oops.Code(CodeRegistrationFailed).
			With("operation", "get pending username holder").
			Wrap(err)
	case holder.IsVerified || now.Before(holder.VerifyCodeExpiry):
		return nil, usernameTaken(username)
	}

	holder.ReclaimFor(email, hash, code, expiry)
	if err := s.users.ReclaimPending(ctx, holder, now); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, usernameTaken(username)
		case errors.Is(err, ErrDuplicateEmail):
			return nil, emailTaken(email)
		}
		return nil, oops.Code(CodeRegistrationFailed).
			With("operation", "reclaim pending user").
			With("user_id", holder.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "expired pending username reclaimed",
		"user_id", holder.ID.String())
	return holder, nil
}

// CheckUsername reports whether username is valid and not owned by a
// verified user.
func (s *RegistrationService) CheckUsername(ctx context.Context, username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	_, err := s.users.GetByUsername(ctx, username, true)
	switch {
	case err == nil:
		return usernameTaken(username)
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return oops.Code("AUTH_USERNAME_CHECK_FAILED").
			With("username", username).
			Wrap(err)
	}
}

// VerifyCode confirms the email of username with the emailed code.
// Confirming an already verified account succeeds without changes.
func (s *RegistrationService) VerifyCode(ctx context.Context, username, code string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.VerifyCode")
	defer func() { endSpan(span, err) }()

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username), false)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeUserNotFound).With("username", username).Errorf("User not found")
		}
		return oops.Code("VERIFY_CODE_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}
	if user.IsVerified {
		return nil
	}

	now := s.now()
	if err := CheckCode(user, strings.TrimSpace(code), now); err != nil {
		if now.Before(user.VerifyCodeExpiry) {
			s.recordMiss(ctx, user, now)
		}
		return err
	}

	if err := s.users.MarkVerified(ctx, user.ID, now); err != nil {
		return oops.Code("VERIFY_CODE_FAILED").
			With("operation", "mark verified").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "email verified", "user_id", user.ID.String())
	return nil
}

// recordMiss counts a wrong code. Failures are logged and do not change the
// verification result.
func (s *RegistrationService) recordMiss(ctx context.Context, user *User, now time.Time) {
	if err := s.users.RecordFailedCode(ctx, user.ID, now, MaxVerifyAttempts); err != nil {
		s.logger.WarnContext(ctx, "recording failed verification code",
			"user_id", user.ID.String(),
			"error", err)
	}
}
