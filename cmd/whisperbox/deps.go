// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/config"
	"github.com/whisperbox/whisperbox/internal/mail"
	"github.com/whisperbox/whisperbox/internal/observability"
	"github.com/whisperbox/whisperbox/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// ConnectorFactory opens the database connector.
	// Default: store.NewPoolConnector
	ConnectorFactory func(databaseURL string, maxConns int32) (Connector, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// SenderFactory creates the verification email sender.
	// Default: newCodeSender
	SenderFactory func(cfg config.MailConfig, logger *slog.Logger) (auth.CodeSender, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.ConnectorFactory == nil {
		out.ConnectorFactory = func(databaseURL string, maxConns int32) (Connector, error) {
			return store.NewPoolConnector(databaseURL, store.WithMaxConns(maxConns))
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = openMigrator
	}
	if out.SenderFactory == nil {
		out.SenderFactory = newCodeSender
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	return &out
}

// Connector wraps the methods used from store.PoolConnector.
type Connector interface {
	store.Connector
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func openMigrator(databaseURL string) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// newCodeSender picks the email sender named by cfg.Provider.
func newCodeSender(cfg config.MailConfig, logger *slog.Logger) (auth.CodeSender, error) {
	switch cfg.Provider {
	case config.MailProviderResend:
		sender, err := mail.NewResendSender(cfg.APIKey, cfg.From, logger)
		if err != nil {
			return nil, err
		}
		return sender, nil
	case config.MailProviderLog, "":
		return mail.NewLogSender(logger), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "mail.provider").
			Errorf("unknown mail provider %q", cfg.Provider)
	}
}
