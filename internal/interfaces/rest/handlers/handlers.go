// Package handlers exposes the checkout engine over HTTP. The handlers are a
// thin adapter: they decode input, call the checkout service, and encode the
// result. All behavior lives in the services.
package handlers

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/application/services"
)

type Handlers struct {
	checkout *services.CheckoutService
	catalog  application.ProductCatalog
	logger   *slog.Logger
}

func NewHandlers(
	checkout *services.CheckoutService,
	catalog application.ProductCatalog,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkout: checkout,
		catalog:  catalog,
		logger:   logger,
	}
}

// Routes builds the checkout route tree.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Put("/buyer", h.UpdateBuyer)
			r.Put("/add-ons/{addOnID}", h.ToggleAddOn)
			r.Post("/coupon", h.ApplyCoupon)
			r.Delete("/coupon", h.RemoveCoupon)
			r.Post("/payment", h.InitiatePayment)
			r.Post("/offer-decision", h.DecideOffer)
			r.Get("/transaction", h.GetTransaction)
		})

		r.Post("/transactions/{transactionID}/check", h.ManualCheck)
	})

	return r
}
