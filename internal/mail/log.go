// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/observability"
)

const providerLog = "log"

// LogSender writes verification emails to the log instead of sending them.
// For development only: the code appears in plain text.
type LogSender struct {
	logger *slog.Logger
}

var _ auth.CodeSender = (*LogSender)(nil)

// NewLogSender creates a LogSender. A nil logger selects slog.Default.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// SendVerificationCode logs the rendered email.
func (s *LogSender) SendVerificationCode(ctx context.Context, email, username, code string) error {
	msg, err := RenderVerification(username, code)
	if err != nil {
		observability.RecordEmail(providerLog, outcomeFailed)
		return err
	}
	observability.RecordEmail(providerLog, outcomeSent)
	s.logger.InfoContext(ctx, "verification email",
		"provider", providerLog,
		"to", email,
		"subject", msg.Subject,
		"code", code)
	return nil
}
