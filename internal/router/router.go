package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/crm-analytics/api/handler"
)

type Handlers struct {
	Analytics *apiHandler.AnalyticsHandler
	Health    *apiHandler.HealthHandler
	// Metrics serves the Prometheus exposition; nil leaves /metrics unrouted.
	Metrics fasthttp.RequestHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", handlers.Metrics)
	}

	// Protected routes
	r.GET("/api/v1/customers/{id}/analytics", authMiddleware(handlers.Analytics.GetCustomerAnalytics))

	return r
}
