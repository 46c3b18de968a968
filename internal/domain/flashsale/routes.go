package flashsale

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bazaar/bazaar-api/internal/middleware"
)

// Routes wires the authenticated campaign management surface
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.With(middleware.RequireShop()).Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Get("/{id}/stats", h.Stats)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireModerator())
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
		r.Delete("/{id}", h.Delete)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireShop())
		r.Post("/{id}/products", h.AddProducts)
		r.Patch("/{id}/products/{productID}", h.UpdateAllocation)
		r.Delete("/{id}/products/{productID}", h.RemoveProduct)
	})

	return r
}

// StorefrontRoutes wires the public, unauthenticated surface
func (h *StorefrontHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{campaign}", h.GetBySlug)
	r.Post("/{campaign}/views", h.RecordView)
	r.Post("/{campaign}/clicks", h.RecordClick)

	return r
}

// CheckoutRoutes wires the service-to-service sale recording surface
func (h *CheckoutHandler) Routes(serviceTokenMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(serviceTokenMiddleware)

	r.Post("/sales", h.RecordSale)

	return r
}
