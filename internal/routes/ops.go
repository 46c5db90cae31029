package routes

import (
	"net/http"

	"github.com/dukerupert/storefront/internal/router"
)

// RegisterOpsRoutes registers /health and /metrics. Neither requires auth;
// restrict /metrics at the network edge in production.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Handle(http.MethodGet, "/health", deps.HealthHandler)
	if deps.MetricsHandler != nil {
		r.Handle(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
}
