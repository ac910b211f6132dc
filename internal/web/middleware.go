// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package web

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// requestLogger logs each request and counts it by route.
func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Render now so the logged status matches the response.
			if herr := s.errorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		status := c.Response().StatusCode()
		route := c.Route().Path
		if s.deps.Metrics != nil {
			s.deps.Metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		}
		s.logger.InfoContext(c.UserContext(), "http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start))
		return err
	}
}
