// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package postgres implements inbox.MessageRepository on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/inbox"
	"github.com/whisperbox/whisperbox/internal/store"
)

// MessageRepository implements inbox.MessageRepository using PostgreSQL.
type MessageRepository struct {
	conn store.Connector
}

var _ inbox.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(conn store.Connector) *MessageRepository {
	return &MessageRepository{conn: conn}
}

// Append stores a message.
func (r *MessageRepository) Append(ctx context.Context, msg *inbox.Message) error {
	db, err := r.conn.Connect(ctx)
	if err != nil {
		return oops.In("message_repository").Wrap(err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO messages (id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4)
	`, msg.ID.String(), msg.OwnerID.String(), msg.Content, msg.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return oops.Code("USER_NOT_FOUND").
				With("owner_id", msg.OwnerID.String()).
				Wrap(auth.ErrNotFound)
		}
		return oops.Code("MESSAGE_APPEND_FAILED").
			With("operation", "insert message").
			With("owner_id", msg.OwnerID.String()).
			Wrap(err)
	}
	return nil
}

// ListByOwner returns the owner's messages, newest first.
func (r *MessageRepository) ListByOwner(ctx context.Context, owner ulid.ULID) ([]inbox.Message, error) {
	db, err := r.conn.Connect(ctx)
	if err != nil {
		return nil, oops.In("message_repository").Wrap(err)
	}

	var exists bool
	err = db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, owner.String()).Scan(&exists)
	if err != nil {
		return nil, oops.Code("MESSAGE_LIST_FAILED").
			With("operation", "check owner").
			With("owner_id", owner.String()).
			Wrap(err)
	}
	if !exists {
		return nil, oops.Code("USER_NOT_FOUND").
			With("owner_id", owner.String()).
			Wrap(auth.ErrNotFound)
	}

	rows, err := db.Query(ctx, `
		SELECT id, content, created_at
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, owner.String())
	if err != nil {
		return nil, oops.Code("MESSAGE_LIST_FAILED").
			With("operation", "query messages").
			With("owner_id", owner.String()).
			Wrap(err)
	}
	defer rows.Close()

	msgs := []inbox.Message{}
	for rows.Next() {
		var (
			msg   inbox.Message
			idStr string
		)
		if err := rows.Scan(&idStr, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, oops.Code("MESSAGE_SCAN_FAILED").With("owner_id", owner.String()).Wrap(err)
		}
		msg.ID, err = ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("MESSAGE_CORRUPT_ID").With("id", idStr).Wrap(err)
		}
		msg.OwnerID = owner
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("MESSAGE_LIST_FAILED").
			With("operation", "iterate messages").
			With("owner_id", owner.String()).
			Wrap(err)
	}
	return msgs, nil
}
