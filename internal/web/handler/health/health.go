// Package health exposes the liveness endpoint and the Prometheus
// metrics endpoint.
package health

import (
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// CheckAlivePath is the liveness endpoint used by load balancers.
	CheckAlivePath = "/checkalive"

	// MetricsPath is the Prometheus scrape endpoint.
	MetricsPath = "/metrics"
)

// Service answers liveness probes. Alive flips to false during graceful
// shutdown so load balancers drain the instance.
type Service struct {
	alive *atomic.Bool
}

// Init registers the routes. The alive flag is owned by the web service.
func Init(app *fiber.App, alive *atomic.Bool) *Service {
	s := &Service{alive: alive}

	app.Get(CheckAlivePath, s.CheckAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	return s
}

// CheckAlive reports 200 while serving and 503 during shutdown drain.
func (s *Service) CheckAlive(c *fiber.Ctx) error {
	if s.alive != nil && !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}
