package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Laminito/event-app-pro-backend/internal/adapters/mongo"
	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

const inventoryCacheTTL = 10 * time.Second

// ListEvents serves the public catalog with filtering and pagination.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := mongo.ListFilter{
		Category:      q.Get("category"),
		Search:        q.Get("search"),
		PublishedOnly: true,
	}
	if q.Get("upcoming") == "true" {
		now := time.Now().UTC()
		filter.From = &now
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	events, total, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  total,
	})
}

func (h *Handlers) FeaturedEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.catalog.Featured(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handlers) EventCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handlers) SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	if prefix == "" {
		writeJSON(w, http.StatusOK, map[string]any{"suggestions": []string{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	suggestions, err := h.catalog.Suggestions(r.Context(), prefix, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

type availabilityResponse struct {
	Label     string `json:"label"`
	Price     string `json:"price"`
	Remaining int    `json:"remaining"`
}

// GetEvent joins the catalog document with live availability from the
// ledger. The availability snapshot may lag by up to inventoryCacheTTL.
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid event id")
		return
	}

	event, err := h.catalog.GetEvent(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	inv, err := h.eventInventory(r, eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	availability := make([]availabilityResponse, 0, len(inv.Types))
	for _, t := range inv.Types {
		availability = append(availability, availabilityResponse{
			Label:     t.Label,
			Price:     t.Price.StringFixed(2),
			Remaining: t.Remaining,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"event":        event,
		"availability": availability,
		"sold":         inv.Sold,
	})
}

func (h *Handlers) eventInventory(r *http.Request, eventID uuid.UUID) (*domain.EventInventory, error) {
	if cached, err := h.cache.GetInventory(r.Context(), eventID.String()); err == nil && cached != nil {
		return cached, nil
	}
	inv, err := h.repo.EventInventory(r.Context(), eventID)
	if err != nil {
		return nil, err
	}
	if err := h.cache.CacheInventory(r.Context(), inv, inventoryCacheTTL); err != nil {
		h.logger.WithError(err).Warn("cache inventory snapshot")
	}
	return inv, nil
}
