// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/whisperbox/whisperbox/internal/auth"
	authpg "github.com/whisperbox/whisperbox/internal/auth/postgres"
	"github.com/whisperbox/whisperbox/internal/inbox"
	"github.com/whisperbox/whisperbox/internal/inbox/postgres"
)

var _ = Describe("MessageRepository", func() {
	var (
		ctx   context.Context
		repo  *postgres.MessageRepository
		owner *auth.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewMessageRepository(testConn)

		db, err := testConn.Connect(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.Exec(ctx, `TRUNCATE users CASCADE`)
		Expect(err).NotTo(HaveOccurred())

		owner, err = auth.NewPendingUser("alice", "alice@example.com", "$argon2id$hash", "123456", time.Now().Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(authpg.NewUserRepository(testConn).Create(ctx, owner)).To(Succeed())
	})

	It("lists an empty inbox as an empty slice", func() {
		msgs, err := repo.ListByOwner(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).NotTo(BeNil())
		Expect(msgs).To(BeEmpty())
	})

	It("lists messages newest first", func() {
		base := time.Now().UTC().Truncate(time.Microsecond)
		for i, content := range []string{"first", "second", "third"} {
			Expect(repo.Append(ctx, &inbox.Message{
				ID:        ulid.Make(),
				OwnerID:   owner.ID,
				Content:   content,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			})).To(Succeed())
		}

		msgs, err := repo.ListByOwner(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(3))
		Expect(msgs[0].Content).To(Equal("third"))
		Expect(msgs[2].Content).To(Equal("first"))
		for i := 1; i < len(msgs); i++ {
			Expect(msgs[i-1].CreatedAt).NotTo(BeTemporally("<", msgs[i].CreatedAt))
		}
	})

	It("rejects messages for unknown owners", func() {
		msg, err := inbox.NewMessage(ulid.Make(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Append(ctx, msg)).To(MatchError(auth.ErrNotFound))

		_, err = repo.ListByOwner(ctx, ulid.Make())
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})
