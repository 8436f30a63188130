package httpx

import (
	"github.com/ariefcatur/mitra-storefront/internal/actor"
	"github.com/ariefcatur/mitra-storefront/internal/events"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/redisx"
	"github.com/ariefcatur/mitra-storefront/internal/sales"
	"github.com/ariefcatur/mitra-storefront/internal/shipping"
	"github.com/go-chi/chi/v5"
	"net/http"
)

// API holds what the handlers share. Cache and Events may be nil.
type API struct {
	Orders   *orders.Service
	Sales    *sales.Ledger
	Settings shipping.Publisher
	Cache    *redisx.Cache
	Events   *events.Emitter
	Tokens   actor.Tokens
	// Limited turns on the sentinel guards; InitLimiter must have succeeded.
	Limited bool
}

func (a *API) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(authenticate(a.Tokens))

		r.Post("/orders/quote", a.quoteOrder)
		r.Get("/shipping/quote", a.quoteShipping)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(actor.RoleBuyer, actor.RoleAdmin))
			r.With(a.guard(ResCheckout)).Post("/orders", a.createOrder)
			r.Get("/orders/{id}", a.getOrder)
			r.Get("/orders/{id}/status", a.getOrderStatus)
			r.Get("/orders/{id}/history", a.getOrderHistory)
			r.Post("/orders/{id}/cancel", a.cancelOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(actor.RoleAdmin))
			r.Post("/orders/{id}/status", a.transitionOrder)
			r.Put("/shipping/settings", a.publishSetting)
			r.Post("/sales/assignments", a.assign)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(actor.RoleAgent, actor.RoleAdmin))
			r.Get("/sales/assignments", a.listAssignments)
			r.Get("/sales/assignments/{id}/movements", a.listMovements)
			r.Post("/sales/assignments/{id}/sales", a.recordSale)
			r.Post("/sales/assignments/{id}/returns", a.recordReturn)
			r.With(a.guard(ResSalesTransaction)).Post("/sales/transactions", a.recordTransaction)
		})
	})
}

func (a *API) guard(resource string) func(next http.Handler) http.Handler {
	if !a.Limited {
		return func(next http.Handler) http.Handler { return next }
	}
	return limit(resource)
}
