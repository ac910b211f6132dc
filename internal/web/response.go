// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/inbox"
	"github.com/whisperbox/whisperbox/pkg/errutil"
)

// envelope is the shape of every JSON API response.
type envelope struct {
	Success             bool              `json:"success"`
	Message             string            `json:"message"`
	IsAcceptingMessages *bool             `json:"isAcceptingMessages,omitempty"`
	User                *auth.Principal   `json:"user,omitempty"`
	Errors              map[string]string `json:"errors,omitempty"`
}

// messagesEnvelope always carries the messages key, even when empty.
type messagesEnvelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Messages []inbox.Message `json:"messages"`
}

// Public message for every authentication failure on sign-in.
const msgAuthorizationFailed = "Authorization failed"

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case auth.CodeValidation, auth.CodeVerifyCodeInvalid, auth.CodeVerifyCodeExpired,
		auth.CodeUsernameTaken, auth.CodeEmailTaken:
		return http.StatusBadRequest
	case auth.CodeNoSuchUser, auth.CodeEmailNotVerified, auth.CodeInvalidPassword,
		auth.CodeSessionRequired, auth.CodeSessionInvalid, auth.CodeSessionExpired:
		return http.StatusUnauthorized
	case inbox.CodeNotAccepting:
		return http.StatusForbidden
	case auth.CodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func ok(c *fiber.Ctx, message string) error {
	return c.JSON(envelope{Success: true, Message: message})
}

// fail writes the error response for err. Client errors carry the error's
// own message; server errors carry fallback.
func (s *Server) fail(c *fiber.Ctx, err error, fallback string) error {
	status := statusFor(errutil.Code(err))
	message := fallback
	if status < http.StatusInternalServerError {
		message = publicMessage(err, fallback)
	}
	return s.respondError(c, err, status, message)
}

// respondError writes status and message. Server errors are logged with
// their code and context; client errors only at debug level.
func (s *Server) respondError(c *fiber.Ctx, err error, status int, message string) error {
	body := envelope{Success: false, Message: message}

	if status < http.StatusInternalServerError {
		if field := fieldOf(err); field != "" && status == http.StatusBadRequest {
			body.Errors = map[string]string{field: message}
		}
		s.logger.DebugContext(c.UserContext(), "request rejected",
			"path", c.Path(),
			"status", status,
			"code", errutil.Code(err),
			"error", err)
	} else {
		errutil.LogErrorContext(c.UserContext(), s.logger, "request failed", err)
	}

	return c.Status(status).JSON(body)
}

// publicMessage returns the message of the outermost oops error, which for
// domain errors is the text written for users.
func publicMessage(err error, fallback string) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if msg := oopsErr.Error(); msg != "" {
			return msg
		}
	}
	return fallback
}

func fieldOf(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if field, ok := oopsErr.Context()["field"].(string); ok {
			return field
		}
	}
	return ""
}

// errorHandler renders errors that escape handlers: fiber errors such as
// unknown routes and anything recovered from a panic.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(envelope{Success: false, Message: fiberErr.Message})
	}
	return s.respondError(c, err, http.StatusInternalServerError, "Internal server error")
}
