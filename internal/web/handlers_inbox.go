// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package web

import (
	"github.com/gofiber/fiber/v2"
)

// GET /api/get-messages
func (s *Server) handleGetMessages(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return s.fail(c, err, "Unauthorized")
	}

	msgs, err := s.deps.Inbox.List(c.UserContext(), p)
	if err != nil {
		return s.fail(c, err, "Failed to retrieve user messages")
	}
	return c.JSON(messagesEnvelope{Success: true, Message: "Messages retrieved", Messages: msgs})
}

// GET /api/accept-messages
func (s *Server) handleGetAcceptMessages(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return s.fail(c, err, "Unauthorized")
	}

	accepting, err := s.deps.Inbox.AcceptingMessages(c.UserContext(), p)
	if err != nil {
		return s.fail(c, err, "Error retrieving message acceptance status")
	}
	return c.JSON(envelope{
		Success:             true,
		Message:             "Message acceptance status retrieved",
		IsAcceptingMessages: &accepting,
	})
}

// POST /api/accept-messages
func (s *Server) handleSetAcceptMessages(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return s.fail(c, err, "Unauthorized")
	}

	var req acceptMessagesRequest
	if err := s.schemas.decode(c.Body(), &req); err != nil {
		return s.fail(c, err, "Failed to update user status to accept messages")
	}

	if err := s.deps.Inbox.SetAcceptingMessages(c.UserContext(), p, req.AcceptMessages); err != nil {
		return s.fail(c, err, "Failed to update user status to accept messages")
	}
	return c.JSON(envelope{
		Success:             true,
		Message:             "Message acceptance status updated successfully",
		IsAcceptingMessages: &req.AcceptMessages,
	})
}

// POST /api/send-message
func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := s.schemas.decode(c.Body(), &req); err != nil {
		return s.fail(c, err, "Error sending message")
	}

	if _, err := s.deps.Inbox.Send(c.UserContext(), req.Username, req.Content); err != nil {
		return s.fail(c, err, "Error sending message")
	}
	return ok(c, "Message sent successfully")
}
