package routes

import (
	"github.com/dukerupert/storefront/internal/router"
)

// RegisterAPIRoutes registers the catalog, cart and checkout routes.
// Catalog reads are public. Everything else requires a bearer token.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Catalog
	r.Get("/products", deps.ProductHandler.List)
	r.Get("/products/top-selling", deps.ProductHandler.TopSelling)
	r.Get("/products/{id}", deps.ProductHandler.Get)

	shopper := r.Group(deps.Auth.RequireIdentity)

	// Cart
	shopper.Get("/cart", deps.CartHandler.Get)
	shopper.Post("/cart", deps.CartHandler.Add)
	shopper.Delete("/cart", deps.CartHandler.Clear)
	shopper.Patch("/cart/{lineId}", deps.CartHandler.UpdateQuantity)
	shopper.Delete("/cart/{lineId}", deps.CartHandler.RemoveLine)

	// Checkout
	shopper.Post("/checkout/session", deps.CheckoutHandler.CreateSession)
	shopper.Post("/checkout/settle", deps.CheckoutHandler.Settle)
	shopper.Get("/checkout/settlements/{sessionRef}", deps.CheckoutHandler.GetSettlement)
}
