package controller

import (
	"ai-answer-engine-be/internal/pkg/serverutils"
	"ai-answer-engine-be/pkg/cache"
	"ai-answer-engine-be/pkg/pool"
	"ai-answer-engine-be/pkg/resilience"
	"ai-answer-engine-be/pkg/searxng"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Liveness(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type healthController struct {
	search   *searxng.Client
	cache    *cache.Manager
	connPool *pool.ConnectionPool
	breakers []*resilience.CircuitBreaker
}

func NewHealthController(
	search *searxng.Client,
	cacheManager *cache.Manager,
	connPool *pool.ConnectionPool,
	breakers []*resilience.CircuitBreaker,
) IHealthController {
	return &healthController{
		search:   search,
		cache:    cacheManager,
		connPool: connPool,
		breakers: breakers,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/health/v1")
	h.Get("", c.Liveness)
	h.Get("/status", c.Status)
}

func (c *healthController) Liveness(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

// Status reports the search backend, cache regions, connection pool and
// breaker states in one payload.
func (c *healthController) Status(ctx *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}

	if c.search != nil {
		healthy := c.search.HealthCheck(ctx.Context())
		status["search_backend"] = fiber.Map{"healthy": healthy}
		if !healthy {
			status["status"] = "degraded"
		}
	}

	if c.cache != nil {
		status["cache"] = c.cache.Stats()
	}

	if c.connPool != nil {
		created, idle := c.connPool.Usage()
		status["connection_pool"] = fiber.Map{"created": created, "idle": idle}
	}

	breakerStates := make([]fiber.Map, 0, len(c.breakers))
	for _, cb := range c.breakers {
		if cb == nil {
			continue
		}
		state := cb.State()
		breakerStates = append(breakerStates, fiber.Map{
			"name":     cb.Name(),
			"state":    string(state),
			"failures": cb.Failures(),
		})
		if state == resilience.StateOpen {
			status["status"] = "degraded"
		}
	}
	status["circuit_breakers"] = breakerStates

	return ctx.JSON(serverutils.SuccessResponse("Success health status", status))
}
