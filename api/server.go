/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/properties/*     Properties, their costs, base price, rules,
                        calendar and financial summary
  /api/bookings/*       Booking lifecycle
  /api/costs/*          Cost chain operations by version id
  /api/pricing-rules/*  Rule update/delete by id

SECURITY NOTE:
  No authentication middleware. X-Actor is a trusted pass-through header
  recorded for audit; front the service with a gateway for real auth.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Property routes
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", h.ListProperties)
			r.Post("/", h.CreateProperty)
			r.Get("/{id}", h.GetProperty)
			r.Get("/{id}/bookings", h.ListBookings)

			r.Get("/{id}/costs", h.ListCosts)
			r.Post("/{id}/costs", h.CreateCost)

			r.Post("/{id}/base-price/modify", h.ModifyBasePrice)
			r.Post("/{id}/base-price/revert", h.RevertBasePrice)
			r.Get("/{id}/base-price/history", h.BasePriceHistory)

			r.Get("/{id}/pricing-rules", h.ListPricingRules)
			r.Post("/{id}/pricing-rules", h.CreatePricingRule)

			r.Get("/{id}/calendar", h.GetCalendar)
			r.Get("/{id}/financial-summary", h.GetFinancialSummary)
		})

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
			r.Put("/{id}", h.UpdateBooking)
			r.Post("/{id}/accept", h.AcceptBooking)
			r.Post("/{id}/cancel", h.CancelBooking)
			r.Delete("/{id}", h.DeleteBooking)
		})

		// Cost chain routes (by version id)
		r.Route("/costs", func(r chi.Router) {
			r.Post("/{id}/modify", h.ModifyCost)
			r.Post("/{id}/revert", h.RevertCost)
			r.Get("/{id}/history", h.CostHistory)
			r.Delete("/{id}", h.DeleteCost)
		})

		// Pricing rule routes (by rule id)
		r.Route("/pricing-rules", func(r chi.Router) {
			r.Put("/{id}", h.UpdatePricingRule)
			r.Delete("/{id}", h.DeletePricingRule)
		})
	})

	return r
}
