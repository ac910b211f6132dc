// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package web

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/pkg/errutil"
)

// GET /api/check-username-unique?username=
func (s *Server) handleCheckUsername(c *fiber.Ctx) error {
	err := s.deps.Registrar.CheckUsername(c.UserContext(), c.Query("username"))
	if err == nil {
		return ok(c, "Username is available")
	}
	if errutil.Code(err) == auth.CodeUsernameTaken {
		return s.respondError(c, err, http.StatusConflict, "Username is already taken")
	}
	return s.fail(c, err, "Error checking username")
}

// POST /api/sign-up
func (s *Server) handleSignUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := s.schemas.decode(c.Body(), &req); err != nil {
		s.countSignup("invalid")
		return s.fail(c, err, "Error registering user")
	}

	_, err := s.deps.Registrar.Register(c.UserContext(), req.Username, req.Email, req.Password)
	switch code := errutil.Code(err); {
	case err == nil:
		s.countSignup("registered")
		return ok(c, "User registered successfully. Please check your email to verify your account.")
	case code == auth.CodeEmailDelivery:
		s.countSignup("email_failed")
		return s.respondError(c, err, http.StatusInternalServerError, "Failed to send verification email")
	case code == auth.CodeUsernameTaken, code == auth.CodeEmailTaken:
		s.countSignup("conflict")
	case statusFor(code) == http.StatusBadRequest:
		s.countSignup("invalid")
	default:
		s.countSignup("error")
	}
	return s.fail(c, err, "Error registering user")
}

// POST /api/verify-code
func (s *Server) handleVerifyCode(c *fiber.Ctx) error {
	var req verifyCodeRequest
	if err := s.schemas.decode(c.Body(), &req); err != nil {
		return s.fail(c, err, "Error verifying user")
	}

	if err := s.deps.Registrar.VerifyCode(c.UserContext(), req.Username, req.Code); err != nil {
		return s.fail(c, err, "Error verifying user")
	}
	return ok(c, "Account verified successfully")
}

// POST /api/auth/sign-in
func (s *Server) handleSignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := s.schemas.decode(c.Body(), &req); err != nil {
		s.countLogin("invalid")
		return s.fail(c, err, msgAuthorizationFailed)
	}

	p, token, err := s.deps.Sessions.Login(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		status := statusFor(errutil.Code(err))
		if status == http.StatusUnauthorized {
			s.countLogin("rejected")
		} else {
			s.countLogin("error")
			status = http.StatusInternalServerError
		}
		return s.respondError(c, err, status, msgAuthorizationFailed)
	}

	s.countLogin("success")
	s.setSessionCookie(c, token, s.deps.Sessions.SessionTTL())
	return c.JSON(envelope{Success: true, Message: "Signed in", User: &p})
}

// POST /api/auth/sign-out
func (s *Server) handleSignOut(c *fiber.Ctx) error {
	s.clearSessionCookie(c)
	return ok(c, "Signed out")
}

// GET /api/auth/session
func (s *Server) handleSession(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return s.fail(c, err, "Unauthorized")
	}
	return c.JSON(envelope{Success: true, Message: "Authenticated", User: &p})
}
