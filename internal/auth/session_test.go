// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperbox/whisperbox/pkg/errutil"
)

var testSecret = []byte(strings.Repeat("k", MinSecretLength))

func testPrincipal() Principal {
	return Principal{
		ID:                  ulid.Make(),
		Username:            "alice",
		IsVerified:          true,
		IsAcceptingMessages: true,
	}
}

func TestNewSessionIssuer(t *testing.T) {
	t.Run("rejects short secret", func(t *testing.T) {
		_, err := NewSessionIssuer([]byte("short"), time.Hour)
		errutil.AssertErrorCode(t, err, "SESSION_SECRET_INVALID")
	})

	t.Run("defaults ttl", func(t *testing.T) {
		s, err := NewSessionIssuer(testSecret, 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultSessionTTL, s.TTL())
	})
}

func TestSessionIssuer_RoundTrip(t *testing.T) {
	s, err := NewSessionIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	p := testPrincipal()
	token, expiresAt, err := s.Issue(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestSessionIssuer_Parse(t *testing.T) {
	s, err := NewSessionIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	t.Run("empty token", func(t *testing.T) {
		_, err := s.Parse("")
		errutil.AssertErrorCode(t, err, CodeSessionRequired)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := s.Parse("not.a.token")
		errutil.AssertErrorCode(t, err, CodeSessionInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewSessionIssuer([]byte(strings.Repeat("z", MinSecretLength)), time.Hour)
		require.NoError(t, err)
		token, _, err := other.Issue(testPrincipal())
		require.NoError(t, err)

		_, err = s.Parse(token)
		errutil.AssertErrorCode(t, err, CodeSessionInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		token, _, err := s.Issue(testPrincipal())
		require.NoError(t, err)

		later, err := NewSessionIssuer(testSecret, time.Hour)
		require.NoError(t, err)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		_, err = later.Parse(token)
		errutil.AssertErrorCode(t, err, CodeSessionExpired)
	})

	t.Run("rejects none algorithm", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   ulid.Make().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = s.Parse(token)
		errutil.AssertErrorCode(t, err, CodeSessionInvalid)
	})

	t.Run("rejects foreign issuer", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   ulid.Make().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)

		_, err = s.Parse(token)
		errutil.AssertErrorCode(t, err, CodeSessionInvalid)
	})
}
