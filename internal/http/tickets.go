package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Laminito/event-app-pro-backend/internal/booking"
	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

type reservationResponse struct {
	ID            uuid.UUID           `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	Items         []domain.LineItem   `json:"items"`
	Total         string              `json:"total"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	Customer      domain.CustomerInfo `json:"customer"`
	CreatedAt     time.Time           `json:"created_at"`
}

func toReservationResponse(res *domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:            res.ID,
		EventID:       res.EventID,
		Items:         res.Items,
		Total:         res.Total.StringFixed(2),
		Status:        string(res.Status),
		PaymentStatus: string(res.PaymentStatus),
		ExpiresAt:     res.ExpiresAt,
		Customer:      res.Customer,
		CreatedAt:     res.CreatedAt,
	}
}

type ticketResponse struct {
	ID           uuid.UUID  `json:"id"`
	Number       string     `json:"number"`
	EventID      uuid.UUID  `json:"event_id"`
	TicketType   string     `json:"ticket_type"`
	Price        string     `json:"price"`
	Verification string     `json:"verification"`
	Status       string     `json:"status"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toTicketResponse(t domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:           t.ID,
		Number:       t.Number,
		EventID:      t.EventID,
		TicketType:   t.TicketType,
		Price:        t.Price.StringFixed(2),
		Verification: t.Verification,
		Status:       string(t.Status),
		UsedAt:       t.UsedAt,
		CreatedAt:    t.CreatedAt,
	}
}

func toTicketResponses(ts []domain.Ticket) []ticketResponse {
	out := make([]ticketResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTicketResponse(t))
	}
	return out
}

// Reserve places a time-bounded hold. Nothing is decremented from the ledger
// until purchase.
func (h *Handlers) Reserve(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		EventID  uuid.UUID            `json:"event_id"`
		Items    []domain.ItemRequest `json:"items"`
		Customer domain.CustomerInfo  `json:"customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return
	}

	res, err := h.reservations.Reserve(r.Context(), id.UserID, req.EventID, req.Items, req.Customer)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReservationResponse(&res))
}

// Purchase commits a pending reservation. Safe to retry: a completed
// reservation replays its order and tickets.
func (h *Handlers) Purchase(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		ReservationID uuid.UUID           `json:"reservation_id"`
		PaymentMethod string              `json:"payment_method"`
		Customer      domain.CustomerInfo `json:"customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		return
	}

	existing, err := h.reservations.Get(r.Context(), req.ReservationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if existing.UserID != id.UserID && id.Role != booking.RoleAdmin {
		writeDomainError(w, domain.ErrForbidden)
		return
	}

	res, tickets, err := h.fulfillment.Commit(r.Context(), req.ReservationID, req.PaymentMethod, req.Customer)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reservation": toReservationResponse(res),
		"tickets":     toTicketResponses(tickets),
	})
}

func (h *Handlers) MyTickets(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
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

	tickets, err := h.repo.TicketsByUser(r.Context(), id.UserID, status, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": toTicketResponses(tickets)})
}

// GetTicket returns one ticket, visible to its owner, the event organizer
// or an admin.
func (h *Handlers) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ticketID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid ticket id")
		return
	}

	t, err := h.repo.GetTicket(r.Context(), ticketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if t.UserID != id.UserID && id.Role != booking.RoleAdmin {
		organizerID, err := h.catalog.EventOrganizer(r.Context(), t.EventID)
		if err != nil || organizerID != id.UserID {
			writeDomainError(w, domain.ErrForbidden)
			return
		}
	}

	writeJSON(w, http.StatusOK, toTicketResponse(*t))
}

// ValidateTicket is the door-scan endpoint: organizer of the event or admin
// only. Used and cancelled tickets come back as structured rejections with
// 200, not errors.
func (h *Handlers) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ticketID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid ticket id")
		return
	}

	result, ticket, err := h.validation.Validate(r.Context(), ticketID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{
		"valid":  result.Valid,
		"ticket": toTicketResponse(*ticket),
	}
	if !result.Valid {
		resp["reason"] = result.Reason
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetReservation lets the holder check their reservation before paying.
func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	resID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid reservation id")
		return
	}

	res, err := h.reservations.Get(r.Context(), resID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if res.UserID != id.UserID && id.Role != booking.RoleAdmin {
		writeDomainError(w, domain.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}
