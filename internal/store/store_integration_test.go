// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

//go:build integration

package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/whisperbox/whisperbox/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = migrator.Close() })
	})

	It("starts at version zero", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())
	})

	It("applies every embedded migration", func() {
		Expect(migrator.Up()).To(Succeed())

		latest, err := store.LatestVersion()
		Expect(err).NotTo(HaveOccurred())

		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(Equal(latest))
		Expect(status.Pending).To(BeEmpty())
		Expect(status.Applied).To(HaveLen(2))
	})

	It("treats a repeated up as a no-op", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("steps down and back up", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))

		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Pending).To(HaveLen(1))
		Expect(status.Pending[0].Name).To(Equal("000002_create_messages"))

		Expect(migrator.Up()).To(Succeed())
	})

	It("rolls everything back and re-applies", func() {
		Expect(migrator.Down()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())

		Expect(migrator.Up()).To(Succeed())
	})
})

var _ = Describe("PoolConnector", func() {
	It("connects once and reuses the pool", func() {
		ctx := context.Background()
		conn, err := store.NewPoolConnector(connStr, store.WithMaxConns(2))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(conn.Close)

		first, err := conn.Connect(ctx)
		Expect(err).NotTo(HaveOccurred())
		second, err := conn.Connect(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeIdenticalTo(first))

		Expect(conn.Ping(ctx)).To(Succeed())

		var one int
		Expect(first.QueryRow(ctx, "SELECT 1").Scan(&one)).To(Succeed())
		Expect(one).To(Equal(1))
	})

	It("reconnects after Close", func() {
		ctx := context.Background()
		conn, err := store.NewPoolConnector(connStr)
		Expect(err).NotTo(HaveOccurred())

		_, err = conn.Connect(ctx)
		Expect(err).NotTo(HaveOccurred())
		conn.Close()

		Expect(conn.Ping(ctx)).To(Succeed())
		conn.Close()
	})
})
