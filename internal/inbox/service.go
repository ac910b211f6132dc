// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package inbox

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/whisperbox/whisperbox/internal/auth"
)

var tracer = otel.Tracer("github.com/whisperbox/whisperbox/internal/inbox")

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Service implements the inbox operations.
type Service struct {
	messages MessageRepository
	users    auth.UserRepository
	logger   *slog.Logger
}

// NewService creates a Service. A nil logger selects slog.Default.
func NewService(messages MessageRepository, users auth.UserRepository, logger *slog.Logger) (*Service, error) {
	if messages == nil {
		return nil, oops.Errorf("message repository is required")
	}
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{messages: messages, users: users, logger: logger}, nil
}

func sessionRequired() error {
	return oops.Code(auth.CodeSessionRequired).Errorf("Unauthorized")
}

func userNotFound(key, value string) error {
	return oops.Code(auth.CodeUserNotFound).With(key, value).Errorf("User not found")
}

// List returns the principal's messages, newest first.
func (s *Service) List(ctx context.Context, p auth.Principal) (msgs []Message, err error) {
	ctx, span := tracer.Start(ctx, "inbox.List")
	defer func() { endSpan(span, err) }()

	if p.ID.IsZero() {
		return nil, sessionRequired()
	}
	span.SetAttributes(attribute.String("owner_id", p.ID.String()))

	msgs, err = s.messages.ListByOwner(ctx, p.ID)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, userNotFound("owner_id", p.ID.String())
	}
	if err != nil {
		return nil, oops.Code(CodeListFailed).
			With("owner_id", p.ID.String()).
			Wrapf(err, "Failed to retrieve user messages")
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

// Send appends content to the inbox of the verified user named username.
func (s *Service) Send(ctx context.Context, username, content string) (msg *Message, err error) {
	ctx, span := tracer.Start(ctx, "inbox.Send")
	defer func() { endSpan(span, err) }()

	username = strings.TrimSpace(username)
	span.SetAttributes(attribute.String("recipient", username))

	owner, err := s.users.GetByUsername(ctx, username, true)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, userNotFound("username", username)
	}
	if err != nil {
		return nil, oops.Code(CodeSendFailed).With("username", username).Wrapf(err, "Error sending message")
	}
	if !owner.IsAcceptingMessages {
		return nil, oops.Code(CodeNotAccepting).
			With("username", username).
			Errorf("User is not accepting messages")
	}

	msg, err = NewMessage(owner.ID, content)
	if err != nil {
		return nil, err
	}

	err = s.messages.Append(ctx, msg)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, userNotFound("username", username)
	}
	if err != nil {
		return nil, oops.Code(CodeSendFailed).With("username", username).Wrapf(err, "Error sending message")
	}

	s.logger.DebugContext(ctx, "message delivered",
		"owner_id", owner.ID.String(),
		"message_id", msg.ID.String())
	return msg, nil
}

// AcceptingMessages reports the stored accept flag of the principal. The
// flag in the session token may be stale, so the store is consulted.
func (s *Service) AcceptingMessages(ctx context.Context, p auth.Principal) (accepting bool, err error) {
	ctx, span := tracer.Start(ctx, "inbox.AcceptingMessages")
	defer func() { endSpan(span, err) }()

	if p.ID.IsZero() {
		return false, sessionRequired()
	}

	user, err := s.users.GetByID(ctx, p.ID)
	if errors.Is(err, auth.ErrNotFound) {
		return false, userNotFound("owner_id", p.ID.String())
	}
	if err != nil {
		return false, oops.Code(CodeStatusFailed).
			With("owner_id", p.ID.String()).
			Wrapf(err, "Error retrieving message acceptance status")
	}
	return user.IsAcceptingMessages, nil
}

// SetAcceptingMessages updates whether the principal's inbox accepts new
// messages.
func (s *Service) SetAcceptingMessages(ctx context.Context, p auth.Principal, accepting bool) (err error) {
	ctx, span := tracer.Start(ctx, "inbox.SetAcceptingMessages")
	defer func() { endSpan(span, err) }()

	if p.ID.IsZero() {
		return sessionRequired()
	}
	span.SetAttributes(attribute.Bool("accepting", accepting))

	err = s.users.SetAcceptingMessages(ctx, p.ID, accepting)
	if errors.Is(err, auth.ErrNotFound) {
		return userNotFound("owner_id", p.ID.String())
	}
	if err != nil {
		return oops.Code(CodeStatusFailed).
			With("owner_id", p.ID.String()).
			Wrapf(err, "Failed to update user status to accept messages")
	}
	return nil
}
