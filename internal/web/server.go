// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package web serves the Whisperbox JSON API and the gated page routes.
package web

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/oops"

	"github.com/whisperbox/whisperbox/internal/auth"
	"github.com/whisperbox/whisperbox/internal/inbox"
	"github.com/whisperbox/whisperbox/internal/observability"
)

// Registrar covers sign-up, username availability and code confirmation.
type Registrar interface {
	Register(ctx context.Context, username, email, password string) (*auth.User, error)
	CheckUsername(ctx context.Context, username string) error
	VerifyCode(ctx context.Context, username, code string) error
}

// Sessions covers login and token verification.
type Sessions interface {
	Login(ctx context.Context, identifier, password string) (auth.Principal, string, error)
	Authenticate(token string) (auth.Principal, error)
	SessionTTL() time.Duration
}

// Inbox covers message listing, sending and the accept toggle.
type Inbox interface {
	List(ctx context.Context, p auth.Principal) ([]inbox.Message, error)
	Send(ctx context.Context, username, content string) (*inbox.Message, error)
	AcceptingMessages(ctx context.Context, p auth.Principal) (bool, error)
	SetAcceptingMessages(ctx context.Context, p auth.Principal, accepting bool) error
}

// Deps are the services behind the API. Metrics and Logger are optional.
type Deps struct {
	Registrar Registrar
	Sessions  Sessions
	Inbox     Inbox
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// Config tunes the HTTP layer.
type Config struct {
	// Pages is the directory of static pages; empty disables page serving.
	Pages          string
	Origins        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RateLimitMax   int
	RateLimitEvery time.Duration
	// ProxyHeader names the header carrying the client IP behind a reverse
	// proxy, such as X-Forwarded-For. Empty uses the socket address.
	ProxyHeader    string
	// TrustedProxies restricts ProxyHeader to requests from these addresses
	// or CIDR ranges. Empty trusts every peer.
	TrustedProxies []string
}

// Server is the public HTTP server.
type Server struct {
	app     *fiber.App
	deps    Deps
	logger  *slog.Logger
	gate    *Gate
	schemas *schemas
}

// New builds the server and registers every route.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Registrar == nil || deps.Sessions == nil || deps.Inbox == nil {
		return nil, oops.Errorf("registrar, sessions and inbox are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 10
	}
	if cfg.RateLimitEvery <= 0 {
		cfg.RateLimitEvery = time.Minute
	}
	if len(cfg.Origins) == 0 {
		cfg.Origins = []string{"*"}
	}

	s := &Server{
		deps:    deps,
		logger:  deps.Logger,
		gate:    NewGate(),
		schemas: newSchemas(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:                 "whisperbox",
		DisableStartupMessage:   true,
		ReadTimeout:             cfg.ReadTimeout,
		WriteTimeout:            cfg.WriteTimeout,
		ErrorHandler:            s.errorHandler,
		ProxyHeader:             cfg.ProxyHeader,
		EnableTrustedProxyCheck: len(cfg.TrustedProxies) > 0,
		TrustedProxies:          cfg.TrustedProxies,
	})

	s.app.Use(s.requestLogger())
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	s.routes(cfg)
	return s, nil
}

func (s *Server) routes(cfg Config) {
	// Each route gets its own per-client bucket.
	rateLimit := func() fiber.Handler {
		return limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitEvery,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(envelope{
					Success: false,
					Message: "Too many requests, please try again later",
				})
			},
		})
	}

	api := s.app.Group("/api")
	api.Get("/check-username-unique", s.handleCheckUsername)
	api.Post("/sign-up", rateLimit(), s.handleSignUp)
	api.Post("/verify-code", rateLimit(), s.handleVerifyCode)
	api.Post("/auth/sign-in", rateLimit(), s.handleSignIn)
	api.Post("/auth/sign-out", s.handleSignOut)
	api.Get("/auth/session", s.requireSession, s.handleSession)
	api.Get("/get-messages", s.requireSession, s.handleGetMessages)
	api.Get("/accept-messages", s.requireSession, s.handleGetAcceptMessages)
	api.Post("/accept-messages", s.requireSession, s.handleSetAcceptMessages)
	api.Post("/send-message", s.handleSendMessage)

	s.app.Use(s.gate.Middleware(s.authenticated))
	if cfg.Pages != "" {
		s.app.Static("/", cfg.Pages, fiber.Static{Index: "index.html"})
	}
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server started", "addr", addr)
	if err := s.app.Listen(addr); err != nil {
		return oops.With("addr", addr).Wrap(err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return oops.With("operation", "shutdown_http_server").Wrap(err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) countSignup(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.SignupsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countLogin(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}
