// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/whisperbox/whisperbox/internal/auth"
	authpostgres "github.com/whisperbox/whisperbox/internal/auth/postgres"
	"github.com/whisperbox/whisperbox/internal/config"
	"github.com/whisperbox/whisperbox/internal/inbox"
	inboxpostgres "github.com/whisperbox/whisperbox/internal/inbox/postgres"
	"github.com/whisperbox/whisperbox/internal/logging"
	"github.com/whisperbox/whisperbox/internal/web"
	"github.com/whisperbox/whisperbox/pkg/errutil"
)

const (
	serviceName        = "whisperbox"
	startupPingTimeout = 30 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the public HTTP server (JSON API and gated pages) and the
observability server (metrics and health checks).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps = deps.withDefaults()

	path, err := resolveConfigFile()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, level)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := deps.ConnectorFactory(cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "create connector").Wrap(err)
	}
	defer conn.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, startupPingTimeout)
	err = conn.Ping(pingCtx)
	pingCancel()
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "ping database").Wrap(err)
	}

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(deps.MigratorFactory, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	services, err := buildServices(cfg, conn, deps, logger)
	if err != nil {
		return err
	}

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, conn.Ping)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		services.Metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	server, err := web.New(web.Config{
		Pages:          cfg.HTTP.Pages,
		Origins:        cfg.HTTP.Origins,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		RateLimitMax:   cfg.RateLimit.Max,
		RateLimitEvery: cfg.RateLimit.Window,
		ProxyHeader:    cfg.HTTP.ProxyHeader,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, services)
	if err != nil {
		return oops.Code("HTTP_SETUP_FAILED").Wrap(err)
	}

	httpErrCh := make(chan error, 1)
	go func() {
		httpErrCh <- server.Listen(cfg.HTTP.Addr)
	}()

	cmd.Println("Whisperbox started")

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-httpErrCh:
		if err != nil {
			serveErr = oops.Code("HTTP_SERVE_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping http server", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "error stopping observability server", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}

// buildServices wires repositories and services over conn.
func buildServices(cfg *config.Config, conn Connector, deps *ServeDeps, logger *slog.Logger) (web.Deps, error) {
	users := authpostgres.NewUserRepository(conn)
	messages := inboxpostgres.NewMessageRepository(conn)
	hasher := auth.NewArgon2idHasher()

	issuer, err := auth.NewSessionIssuer([]byte(cfg.Session.Secret), cfg.Session.TTL)
	if err != nil {
		return web.Deps{}, err
	}

	sender, err := deps.SenderFactory(cfg.Mail, logger)
	if err != nil {
		return web.Deps{}, err
	}

	registrar, err := auth.NewRegistrationService(users, hasher, sender, logger)
	if err != nil {
		return web.Deps{}, err
	}
	authenticator, err := auth.NewAuthenticator(users, hasher, issuer, logger)
	if err != nil {
		return web.Deps{}, err
	}
	inboxService, err := inbox.NewService(messages, users, logger)
	if err != nil {
		return web.Deps{}, err
	}

	return web.Deps{
		Registrar: registrar,
		Sessions:  authenticator,
		Inbox:     inboxService,
		Logger:    logger,
	}, nil
}

// autoMigrate applies pending migrations before serving.
func autoMigrate(factory func(string) (Migrator, error), databaseURL string, logger *slog.Logger) (err error) {
	m, err := factory(databaseURL)
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			errutil.LogError(logger, "error closing migrator", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error arrives, the channel closes, or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
