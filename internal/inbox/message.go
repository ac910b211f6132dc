// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package inbox

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/whisperbox/whisperbox/internal/auth"
)

// Content length bounds, in characters, after trimming.
const (
	MinContentLength = 1
	MaxContentLength = 300
)

// Message is a single anonymous message in an inbox.
type Message struct {
	ID        ulid.ULID `json:"id"`
	OwnerID   ulid.ULID `json:"-"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage creates a message for owner with trimmed, validated content.
func NewMessage(owner ulid.ULID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	return &Message{
		ID:        ulid.Make(),
		OwnerID:   owner,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ValidateContent checks the character count of already trimmed content.
func ValidateContent(content string) error {
	n := utf8.RuneCountInString(content)
	switch {
	case n < MinContentLength:
		return oops.Code(auth.CodeValidation).
			With("field", "content").
			Errorf("Message cannot be empty")
	case n > MaxContentLength:
		return oops.Code(auth.CodeValidation).
			With("field", "content").
			With("max", MaxContentLength).
			Errorf("Message must be no longer than %d characters", MaxContentLength)
	}
	return nil
}

// MessageRepository persists messages.
type MessageRepository interface {
	// Append stores msg. Returns auth.ErrNotFound when the owner does not exist.
	Append(ctx context.Context, msg *Message) error

	// ListByOwner returns the owner's messages, newest first with ties
	// broken by descending id. Returns auth.ErrNotFound when the owner does
	// not exist and an empty slice when the inbox is empty.
	ListByOwner(ctx context.Context, owner ulid.ULID) ([]Message, error)
}
