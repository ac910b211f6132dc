// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/auth/postgres"
)

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewUserRepository(testConn)

		db, err := testConn.Connect(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.Exec(ctx, `TRUNCATE users CASCADE`)
		Expect(err).NotTo(HaveOccurred())
	})

	newUser := func(username, email string) *auth.User {
		u, err := auth.NewPendingUser(username, email, "$argon2id$hash", "123456",
			time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond))
		Expect(err).NotTo(HaveOccurred())
		u.CreatedAt = u.CreatedAt.Truncate(time.Microsecond)
		u.UpdatedAt = u.UpdatedAt.Truncate(time.Microsecond)
		return u
	}

	It("round-trips a pending user", func() {
		u := newUser("alice", "alice@example.com")
		Expect(repo.Create(ctx, u)).To(Succeed())

		stored, err := repo.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Username).To(Equal("alice"))
		Expect(stored.IsVerified).To(BeFalse())
		Expect(stored.IsAcceptingMessages).To(BeTrue())
		Expect(stored.VerifyCodeExpiry).To(BeTemporally("~", u.VerifyCodeExpiry, time.Microsecond))
	})

	It("rejects a second user with the same username", func() {
		Expect(repo.Create(ctx, newUser("alice", "alice@example.com"))).To(Succeed())

		err := repo.Create(ctx, newUser("alice", "other@example.com"))
		Expect(err).To(MatchError(auth.ErrDuplicateUsername))
	})

	It("rejects a second user with the same email", func() {
		Expect(repo.Create(ctx, newUser("alice", "alice@example.com"))).To(Succeed())

		err := repo.Create(ctx, newUser("bob", "alice@example.com"))
		Expect(err).To(MatchError(auth.ErrDuplicateEmail))
	})

	It("hides unverified users from verified-only lookups", func() {
		u := newUser("alice", "alice@example.com")
		Expect(repo.Create(ctx, u)).To(Succeed())

		_, err := repo.GetByUsername(ctx, "alice", true)
		Expect(err).To(MatchError(auth.ErrNotFound))

		Expect(repo.MarkVerified(ctx, u.ID, time.Now())).To(Succeed())

		got, err := repo.GetByUsername(ctx, "alice", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.IsVerified).To(BeTrue())
	})

	It("finds a user by username or email", func() {
		u := newUser("alice", "alice@example.com")
		Expect(repo.Create(ctx, u)).To(Succeed())

		byName, err := repo.GetByIdentifier(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		byEmail, err := repo.GetByIdentifier(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(byName.ID).To(Equal(u.ID))
		Expect(byEmail.ID).To(Equal(u.ID))
	})

	It("only overwrites pending users", func() {
		u := newUser("alice", "alice@example.com")
		Expect(repo.Create(ctx, u)).To(Succeed())

		u.ResetPending("$argon2id$other", "654321", time.Now().Add(time.Hour))
		Expect(repo.UpdatePending(ctx, u)).To(Succeed())

		Expect(repo.MarkVerified(ctx, u.ID, time.Now())).To(Succeed())
		err := repo.UpdatePending(ctx, u)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("expires the code after repeated misses", func() {
		u := newUser("alice", "alice@example.com")
		Expect(repo.Create(ctx, u)).To(Succeed())

		at := time.Now().UTC().Truncate(time.Microsecond)
		for range auth.MaxVerifyAttempts - 1 {
			Expect(repo.RecordFailedCode(ctx, u.ID, at, auth.MaxVerifyAttempts)).To(Succeed())
		}
		got, err := repo.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.VerifyCodeExpiry).To(BeTemporally("~", u.VerifyCodeExpiry, time.Microsecond))

		Expect(repo.RecordFailedCode(ctx, u.ID, at, auth.MaxVerifyAttempts)).To(Succeed())
		got, err = repo.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.VerifyCodeExpiry).To(BeTemporally("~", at, time.Microsecond))

		u.ResetPending("$argon2id$other", "654321", time.Now().Add(time.Hour))
		Expect(repo.UpdatePending(ctx, u)).To(Succeed())
		Expect(repo.RecordFailedCode(ctx, u.ID, at, auth.MaxVerifyAttempts)).To(Succeed())
		got, err = repo.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.VerifyCodeExpiry.After(at)).To(BeTrue())
	})

	It("reclaims a username only once its code has expired", func() {
		u := newUser("alice", "first@example.com")
		Expect(repo.Create(ctx, u)).To(Succeed())

		now := time.Now().UTC()
		u.ReclaimFor("second@example.com", "$argon2id$other", "654321", now.Add(time.Hour))
		Expect(repo.ReclaimPending(ctx, u, now)).To(MatchError(auth.ErrNotFound))

		Expect(repo.ReclaimPending(ctx, u, now.Add(2*time.Hour))).To(Succeed())
		got, err := repo.GetByUsername(ctx, "alice", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(u.ID))
		Expect(got.Email).To(Equal("second@example.com"))
	})

	It("toggles message acceptance", func() {
		u := newUser("alice", "alice@example.com")
		Expect(repo.Create(ctx, u)).To(Succeed())

		Expect(repo.SetAcceptingMessages(ctx, u.ID, false)).To(Succeed())
		got, err := repo.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.IsAcceptingMessages).To(BeFalse())
	})
})
