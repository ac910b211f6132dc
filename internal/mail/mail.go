// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package mail delivers verification codes by email.
package mail

import (
	"bytes"
	"errors"
	"text/template"

	"github.com/samber/oops"
	"github.com/yuin/goldmark"
)

// ErrDeliveryFailed marks every error caused by a failed delivery attempt.
var ErrDeliveryFailed = errors.New("email delivery failed")

// Subject of the verification email.
const Subject = "Whisperbox - Verify your email"

// DefaultFrom is the sender address used when none is configured.
const DefaultFrom = "Whisperbox <onboarding@resend.dev>"

// Delivery outcomes recorded in metrics.
const (
	outcomeSent   = "sent"
	outcomeFailed = "failed"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`# Hello {{.Username}},

Thank you for registering. Please use the following verification code to
complete your registration:

**{{.Code}}**

The code expires in one hour. If you did not request this code, please
ignore this email.
`))

var markdown = goldmark.New()

// Rendered is a verification email ready to send.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// RenderVerification builds the verification email for username.
func RenderVerification(username, code string) (Rendered, error) {
	var text bytes.Buffer
	err := verificationTemplate.Execute(&text, struct{ Username, Code string }{username, code})
	if err != nil {
		return Rendered{}, oops.In("mail").With("template", "verification").Wrap(err)
	}

	var html bytes.Buffer
	if err := markdown.Convert(text.Bytes(), &html); err != nil {
		return Rendered{}, oops.In("mail").With("template", "verification").Wrap(err)
	}

	return Rendered{
		Subject: Subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
