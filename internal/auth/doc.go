// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package auth provides account registration, email verification and
// login for Whisperbox.
//
// # Domain Types
//
// Users should be created with NewPendingUser, which validates username and
// email and starts the account unverified and accepting messages. A pending
// user that signs up again keeps its row; ResetPending swaps in the new
// password hash and verification code.
//
// # Services
//
//   - RegistrationService - sign-up, username availability, code confirmation
//   - Authenticator - login and session token parsing
//
// Services are created with New* constructors that validate dependencies.
//
// # Errors
//
// Every failure is an oops error with one of the Code* constants. Callers
// choose public messages from the code; the error itself keeps the context
// for logging.
package auth
