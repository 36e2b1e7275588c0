package http

import (
	"time"

	"triage_server/pkg/httputil"
	"triage_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// CircuitReporter exposes the gateway breaker state ("closed", "half-open", "open").
type CircuitReporter interface {
	State() string
}

type HealthHandler struct {
	provider string
	circuit  CircuitReporter
	pools    []httputil.ClientPoolStats
}

// NewHealthHandler builds the probe handler. circuit may be nil when the
// breaker is disabled.
func NewHealthHandler(provider string, circuit CircuitReporter, pools ...httputil.ClientPoolStats) *HealthHandler {
	return &HealthHandler{
		provider: provider,
		circuit:  circuit,
		pools:    pools,
	}
}

func (h *HealthHandler) Register(app fiber.Router) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports 503 while the gateway circuit is open.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	circuit := "disabled"
	if h.circuit != nil {
		circuit = h.circuit.State()
	}

	latency := make(map[string]any)
	for name, stats := range metrics.Latency.AllStats() {
		latency[name] = stats.ToMap()
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if circuit == "open" {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"gateway": fiber.Map{
			"provider": h.provider,
			"circuit":  circuit,
		},
		"latency":    latency,
		"http_pools": h.pools,
	})
}
