// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned when a write violates a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// Field-specific duplicates. Both match ErrDuplicateKey with errors.Is.
var (
	ErrDuplicateUsername = fmt.Errorf("username: %w", ErrDuplicateKey)
	ErrDuplicateEmail    = fmt.Errorf("email: %w", ErrDuplicateKey)
)

// Error codes returned by the services in this package. The HTTP layer maps
// them to statuses and public messages.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeUsernameTaken      = "AUTH_USERNAME_TAKEN"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeEmailDelivery      = "AUTH_EMAIL_DELIVERY_FAILED"
	CodeNoSuchUser         = "AUTH_NO_SUCH_USER"
	CodeEmailNotVerified   = "AUTH_EMAIL_NOT_VERIFIED"
	CodeInvalidPassword    = "AUTH_INVALID_PASSWORD"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeVerifyCodeInvalid  = "VERIFY_CODE_INVALID"
	CodeVerifyCodeExpired  = "VERIFY_CODE_EXPIRED"
	CodeSessionRequired    = "SESSION_REQUIRED"
	CodeSessionInvalid     = "SESSION_INVALID"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeRegistrationFailed = "AUTH_REGISTRATION_FAILED"
	CodeLoginFailed        = "AUTH_LOGIN_FAILED"
)
