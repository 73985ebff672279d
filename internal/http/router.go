package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Laminito/event-app-pro-backend/internal/idempotency"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
	"github.com/Laminito/event-app-pro-backend/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(IdentityMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyMiddleware(idemp))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/tickets", func(r chi.Router) {
			r.Post("/reserve", h.Reserve)
			r.Post("/purchase", h.Purchase)
			r.Get("/my-tickets", h.MyTickets)
			r.Get("/{id}", h.GetTicket)
			r.Post("/{id}/validate", h.ValidateTicket)
		})

		r.Get("/reservations/{id}", h.GetReservation)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Get("/featured", h.FeaturedEvents)
			r.Get("/categories", h.EventCategories)
			r.Get("/search/suggestions", h.SearchSuggestions)
			r.Get("/{id}", h.GetEvent)
		})

		r.Route("/organizer", func(r chi.Router) {
			r.Get("/events", h.OrganizerEvents)
			r.Post("/events", h.CreateEvent)
			r.Patch("/events/{id}", h.UpdateEvent)
			r.Delete("/events/{id}", h.DeleteEvent)
			r.Post("/events/{id}/publish", h.PublishEvent)
			r.Post("/events/{id}/unpublish", h.UnpublishEvent)
			r.Get("/stats", h.OrganizerStats)
			r.Get("/tickets", h.OrganizerTickets)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Post("/{id}/read", h.MarkNotificationRead)
		})

		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
