// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package web

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"

	"github.com/whisperbox/whisperbox/internal/auth"
)

// SessionCookie names the cookie carrying the session token.
const SessionCookie = "session-token"

const principalKey = "principal"

// sessionToken returns the token from the session cookie or, failing that,
// an Authorization bearer header.
func sessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookie); token != "" {
		return token
	}
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticated reports whether the request carries a valid session.
func (s *Server) authenticated(c *fiber.Ctx) bool {
	_, err := s.deps.Sessions.Authenticate(sessionToken(c))
	return err == nil
}

// requireSession rejects requests without a valid session and stores the
// principal for the handler.
func (s *Server) requireSession(c *fiber.Ctx) error {
	p, err := s.deps.Sessions.Authenticate(sessionToken(c))
	if err != nil {
		return s.respondError(c, err, fiber.StatusUnauthorized, "Unauthorized")
	}
	c.Locals(principalKey, p)
	return c.Next()
}

// principal returns the principal stored by requireSession.
func principal(c *fiber.Ctx) (auth.Principal, error) {
	p, ok := c.Locals(principalKey).(auth.Principal)
	if !ok {
		return auth.Principal{}, oops.Code(auth.CodeSessionRequired).Errorf("Unauthorized")
	}
	return p, nil
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		Secure:   c.Protocol() == "https",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.Protocol() == "https",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
