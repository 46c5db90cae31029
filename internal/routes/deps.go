package routes

import (
	"net/http"

	"github.com/dukerupert/storefront/internal/handler/api"
	"github.com/dukerupert/storefront/internal/middleware"
)

// APIDeps contains dependencies for the shopper-facing JSON API.
type APIDeps struct {
	// Auth guards every cart and checkout route.
	Auth *middleware.Authenticator

	ProductHandler  *api.ProductHandler
	CartHandler     *api.CartHandler
	CheckoutHandler *api.CheckoutHandler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}

// OpsDeps contains dependencies for health and metrics endpoints.
type OpsDeps struct {
	HealthHandler  http.Handler
	MetricsHandler http.Handler
}
