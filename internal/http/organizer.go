package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/Laminito/event-app-pro-backend/internal/adapters/mongo"
	"github.com/Laminito/event-app-pro-backend/internal/booking"
	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

func requireOrganizer(w http.ResponseWriter, r *http.Request) (booking.Identity, bool) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return booking.Identity{}, false
	}
	if id.Role != booking.RoleOrganizer && id.Role != booking.RoleAdmin {
		writeDomainError(w, domain.ErrForbidden)
		return booking.Identity{}, false
	}
	return id, true
}

// ownedEvent loads the event and checks the caller owns it (admins bypass).
func (h *Handlers) ownedEvent(w http.ResponseWriter, r *http.Request, id booking.Identity) (*mongo.EventDoc, bool) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid event id")
		return nil, false
	}
	event, err := h.catalog.GetEvent(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if event.OrganizerID != id.UserID && id.Role != booking.RoleAdmin {
		writeDomainError(w, domain.ErrForbidden)
		return nil, false
	}
	return event, true
}

type ticketTypeRequest struct {
	Label       string `json:"label"`
	Price       string `json:"price"`
	Total       int    `json:"total"`
	Description string `json:"description"`
}

type eventRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Date        time.Time           `json:"date"`
	Time        string              `json:"time"`
	Location    string              `json:"location"`
	ImageURL    string              `json:"image_url"`
	Tags        []string            `json:"tags"`
	TicketTypes []ticketTypeRequest `json:"ticket_types"`
}

// CreateEvent writes the catalog document and seeds the inventory ledger.
// Events start unpublished.
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := requireOrganizer(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return
	}
	if req.Title == "" || len(req.TicketTypes) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "title and ticket_types are required")
		return
	}

	types := make([]domain.TicketType, 0, len(req.TicketTypes))
	for _, tt := range req.TicketTypes {
		price, err := decimal.NewFromString(tt.Price)
		if err != nil || price.IsNegative() || tt.Total < 1 || tt.Label == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid ticket type")
			return
		}
		types = append(types, domain.TicketType{
			Label:       tt.Label,
			Price:       price,
			Total:       tt.Total,
			Description: tt.Description,
		})
	}

	event := mongo.EventDoc{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
		Time:        req.Time,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		OrganizerID: id.UserID,
		Tags:        req.Tags,
	}

	if err := h.repo.SetupInventory(r.Context(), event.ID, types); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.catalog.CreateEvent(r.Context(), event); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"event": event})
}

// UpdateEvent changes catalog metadata only. Ticket types and stock are
// immutable after creation.
func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := requireOrganizer(w, r)
	if !ok {
		return
	}
	event, ok := h.ownedEvent(w, r, id)
	if !ok {
		return
	}

	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Category    *string    `json:"category"`
		Date        *time.Time `json:"date"`
		Time        *string    `json:"time"`
		Location    *string    `json:"location"`
		ImageURL    *string    `json:"image_url"`
		Tags        *[]string  `json:"tags"`
		Featured    *bool      `json:"featured"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return
	}

	set := bson.M{}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Category != nil {
		set["category"] = *req.Category
	}
	if req.Date != nil {
		set["date"] = *req.Date
	}
	if req.Time != nil {
		set["time"] = *req.Time
	}
	if req.Location != nil {
		set["location"] = *req.Location
	}
	if req.ImageURL != nil {
		set["image_url"] = *req.ImageURL
	}
	if req.Tags != nil {
		set["tags"] = *req.Tags
	}
	if req.Featured != nil {
		set["featured"] = *req.Featured
	}
	if len(set) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "nothing to update")
		return
	}

	if err := h.catalog.UpdateEvent(r.Context(), event.ID, set); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteEvent refuses while sold tickets exist.
func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := requireOrganizer(w, r)
	if !ok {
		return
	}
	event, ok := h.ownedEvent(w, r, id)
	if !ok {
		return
	}

	if err := h.repo.DeleteInventory(r.Context(), event.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.catalog.DeleteEvent(r.Context(), event.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) PublishEvent(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

func (h *Handlers) UnpublishEvent(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *Handlers) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	id, ok := requireOrganizer(w, r)
	if !ok {
		return
	}
	event, ok := h.ownedEvent(w, r, id)
	if !ok {
		return
	}
	if err := h.catalog.SetPublished(r.Context(), event.ID, published); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) OrganizerEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := requireOrganizer(w, r)
	if !ok {
		return
	}
	events, err := h.catalog.ListByOrganizer(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// OrganizerStats aggregates the dashboard numbers, fanning the independent
// queries out in parallel.
func (h *Handlers) OrganizerStats(w http.ResponseWriter, r *http.Request) {
	id, ok := requireOrganizer(w, r)
	if !ok {
		return
	}

	events, err := h.catalog.ListByOrganizer(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	eventIDs := make([]uuid.UUID, 0, len(events))
	published := 0
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
		if e.Published {
			published++
		}
	}

	var (
		ticketsSold int
		revenue     decimal.Decimal
	)
	if len(eventIDs) > 0 {
		g, gctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			ticketsSold, err = h.repo.CountTicketsByEvents(gctx, eventIDs)
			return err
		})
		g.Go(func() error {
			var err error
			revenue, err = h.repo.RevenueByEvents(gctx, eventIDs)
			return err
		})
		if err := g.Wait(); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_events":     len(events),
		"published_events": published,
		"tickets_sold":     ticketsSold,
		"revenue":          revenue.StringFixed(2),
	})
}

// OrganizerTickets lists tickets sold across the organizer's events.
func (h *Handlers) OrganizerTickets(w http.ResponseWriter, r *http.Request) {
	id, ok := requireOrganizer(w, r)
	if !ok {
		return
	}

	events, err := h.catalog.ListByOrganizer(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(events) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"tickets": []ticketResponse{}, "total": 0})
		return
	}
	eventIDs := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
	}

	var status *domain.TicketStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.TicketStatus(s)
		status = &st
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	tickets, total, err := h.repo.TicketsByEvents(r.Context(), eventIDs, status, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tickets": toTicketResponses(tickets),
		"total":   total,
	})
}
