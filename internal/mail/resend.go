// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/samber/oops"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/observability"
)

const providerResend = "resend"

// emailClient is the part of the Resend client used here.
type emailClient interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSender delivers verification codes through the Resend API.
type ResendSender struct {
	emails emailClient
	from   string
	logger *slog.Logger
}

var _ auth.CodeSender = (*ResendSender)(nil)

// NewResendSender creates a sender for apiKey. An empty from selects
// DefaultFrom; a nil logger selects slog.Default.
func NewResendSender(apiKey, from string, logger *slog.Logger) (*ResendSender, error) {
	if apiKey == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("resend api key is required")
	}
	return newResendSender(resend.NewClient(apiKey).Emails, from, logger), nil
}

func newResendSender(emails emailClient, from string, logger *slog.Logger) *ResendSender {
	if from == "" {
		from = DefaultFrom
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResendSender{emails: emails, from: from, logger: logger}
}

// SendVerificationCode emails code to the user.
func (s *ResendSender) SendVerificationCode(ctx context.Context, email, username, code string) error {
	msg, err := RenderVerification(username, code)
	if err != nil {
		return err
	}

	resp, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		observability.RecordEmail(providerResend, outcomeFailed)
		return oops.In("mail").
			With("provider", providerResend).
			With("to", email).
			Wrap(fmt.Errorf("%w: %w", ErrDeliveryFailed, err))
	}

	observability.RecordEmail(providerResend, outcomeSent)
	id := ""
	if resp != nil {
		id = resp.Id
	}
	s.logger.InfoContext(ctx, "verification email sent",
		"provider", providerResend,
		"email_id", id,
		"username", username)
	return nil
}
