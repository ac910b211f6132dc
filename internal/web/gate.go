// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package web

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/gofiber/fiber/v2"
)

// Redirect targets.
const (
	DashboardPath = "/dashboard"
	SignInPath    = "/sign-in"
)

var (
	// guestOnly pages bounce signed-in users to the dashboard.
	guestOnly = []string{"/", "/sign-in", "/sign-up", "/verify", "/verify/**"}
	// membersOnly pages bounce anonymous users to sign-in.
	membersOnly = []string{"/dashboard", "/dashboard/**"}
)

// Gate decides whether a page request passes or is redirected, based only
// on the path and whether the request carries a valid session.
type Gate struct {
	guestOnly   []glob.Glob
	membersOnly []glob.Glob
}

// NewGate compiles the page route patterns.
func NewGate() *Gate {
	return &Gate{
		guestOnly:   mustCompile(guestOnly),
		membersOnly: mustCompile(membersOnly),
	}
}

func mustCompile(patterns []string) []glob.Glob {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, glob.MustCompile(p, '/'))
	}
	return out
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// normalize folds path the way the router does: case-insensitive, with
// trailing slashes ignored.
func normalize(path string) string {
	path = strings.TrimRight(strings.ToLower(path), "/")
	if path == "" {
		return "/"
	}
	return path
}

// Guards reports whether path is one of the gated page routes.
func (g *Gate) Guards(path string) bool {
	path = normalize(path)
	return matchAny(g.guestOnly, path) || matchAny(g.membersOnly, path)
}

// Decide returns the redirect target for path, and false when the request
// should pass through.
func (g *Gate) Decide(authenticated bool, path string) (string, bool) {
	path = normalize(path)
	switch {
	case authenticated && matchAny(g.guestOnly, path):
		return DashboardPath, true
	case !authenticated && matchAny(g.membersOnly, path):
		return SignInPath, true
	default:
		return "", false
	}
}

// Middleware applies the gate to page routes and ignores every other path.
// authenticated reports whether the request carries a valid session.
func (g *Gate) Middleware(authenticated func(c *fiber.Ctx) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if !g.Guards(path) {
			return c.Next()
		}
		if target, redirect := g.Decide(authenticated(c), path); redirect {
			return c.Redirect(target, fiber.StatusFound)
		}
		return c.Next()
	}
}
