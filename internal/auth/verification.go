// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// Verification code configuration.
const (
	VerifyCodeMin    = 100000
	VerifyCodeMax    = 999999
	VerifyCodeExpiry = time.Hour

	// MaxVerifyAttempts wrong codes expire the outstanding one.
	MaxVerifyAttempts = 5
)

var verifyCodeSpan = big.NewInt(VerifyCodeMax - VerifyCodeMin + 1)

// CodeSender delivers verification codes to users.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, email, username, code string) error
}

// IssueCode returns a 6-digit code drawn uniformly from
// [VerifyCodeMin, VerifyCodeMax] and its expiry relative to now.
func IssueCode(now time.Time) (code string, expiry time.Time, err error) {
	n, err := rand.Int(rand.Reader, verifyCodeSpan)
	if err != nil {
		return "", time.Time{}, oops.Code("VERIFY_CODE_GENERATE_FAILED").Wrap(err)
	}
	return strconv.FormatInt(n.Int64()+VerifyCodeMin, 10), now.Add(VerifyCodeExpiry), nil
}

// CheckCode validates a submitted code against the user's outstanding one.
// A code is invalid at or after its expiry.
func CheckCode(u *User, submitted string, now time.Time) error {
	if !now.Before(u.VerifyCodeExpiry) {
		return oops.Code(CodeVerifyCodeExpired).
			With("expired_at", u.VerifyCodeExpiry).
			Errorf("Verification code has expired. Please sign up again to get a new code")
	}
	if u.VerifyCode == "" || subtle.ConstantTimeCompare([]byte(u.VerifyCode), []byte(submitted)) != 1 {
		return oops.Code(CodeVerifyCodeInvalid).Errorf("Incorrect verification code")
	}
	return nil
}
