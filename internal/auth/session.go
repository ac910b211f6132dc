// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	DefaultSessionTTL = 30 * 24 * time.Hour
	MinSecretLength   = 32
	sessionIssuer     = "whisperbox"
)

// Principal is the authenticated identity carried by a session token.
type Principal struct {
	ID                  ulid.ULID `json:"id"`
	Username            string    `json:"username"`
	IsVerified          bool      `json:"isVerified"`
	IsAcceptingMessages bool      `json:"isAcceptingMessages"`
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Username            string `json:"username"`
	IsVerified          bool   `json:"isVerified"`
	IsAcceptingMessages bool   `json:"isAcceptingMessages"`
}

// SessionIssuer signs and parses stateless HS256 session tokens.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer creates a SessionIssuer. A zero ttl selects DefaultSessionTTL.
func NewSessionIssuer(secret []byte, ttl time.Duration) (*SessionIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("SESSION_SECRET_INVALID").
			With("min", MinSecretLength).
			Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionIssuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for p. Returns the token and its expiry.
func (s *SessionIssuer) Issue(p Principal) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:            p.Username,
		IsVerified:          p.IsVerified,
		IsAcceptingMessages: p.IsAcceptingMessages,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token and returns its principal.
func (s *SessionIssuer) Parse(token string) (Principal, error) {
	if token == "" {
		return Principal{}, oops.Code(CodeSessionRequired).Errorf("session token cannot be empty")
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, oops.Code(CodeSessionExpired).Errorf("session has expired")
		}
		return Principal{}, oops.Code(CodeSessionInvalid).Wrapf(err, "invalid session token")
	}
	if !parsed.Valid {
		return Principal{}, oops.Code(CodeSessionInvalid).Errorf("invalid session token")
	}

	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, oops.Code(CodeSessionInvalid).With("subject", claims.Subject).Wrap(err)
	}

	return Principal{
		ID:                  id,
		Username:            claims.Username,
		IsVerified:          claims.IsVerified,
		IsAcceptingMessages: claims.IsAcceptingMessages,
	}, nil
}
