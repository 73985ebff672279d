package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationRefunded  ReservationStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// ItemRequest is a client-supplied {type, quantity} pair.
type ItemRequest struct {
	TicketType string `json:"type"`
	Quantity   int    `json:"quantity"`
}

// LineItem snapshots the unit price at hold time. Prices are locked here and
// not re-validated at commit, even if the event price changes in between.
type LineItem struct {
	TicketType string          `json:"ticket_type"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Reservation is a time-bounded priced hold; once completed it doubles as the
// order record. ExpiresAt is set only while Status is pending.
type Reservation struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	EventID       uuid.UUID
	Items         []LineItem
	Total         decimal.Decimal
	Status        ReservationStatus
	PaymentMethod string
	PaymentStatus PaymentStatus
	ExpiresAt     *time.Time
	Customer      CustomerInfo
	CreatedAt     time.Time
}

// NewReservation prices the requested items against the current inventory and
// returns a pending reservation expiring after ttl. It fails with
// ErrTicketsUnavailable if any requested type is missing or short on stock;
// nothing is persisted by this constructor.
func NewReservation(userID uuid.UUID, inv EventInventory, reqs []ItemRequest, customer CustomerInfo, now time.Time, ttl time.Duration) (Reservation, error) {
	if len(reqs) == 0 {
		return Reservation{}, ErrInvalidInput
	}

	items := make([]LineItem, 0, len(reqs))
	total := decimal.Zero
	for _, req := range reqs {
		if req.Quantity < 1 || req.TicketType == "" {
			return Reservation{}, ErrInvalidInput
		}
		if !inv.CheckAvailability(req.TicketType, req.Quantity) {
			return Reservation{}, ErrTicketsUnavailable
		}
		tt := inv.TicketType(req.TicketType)
		subtotal := tt.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
		items = append(items, LineItem{
			TicketType: req.TicketType,
			Quantity:   req.Quantity,
			UnitPrice:  tt.Price,
			Subtotal:   subtotal,
		})
		total = total.Add(subtotal)
	}

	expiresAt := now.Add(ttl)
	return Reservation{
		ID:            uuid.New(),
		UserID:        userID,
		EventID:       inv.EventID,
		Items:         items,
		Total:         total,
		Status:        ReservationPending,
		PaymentStatus: PaymentPending,
		ExpiresAt:     &expiresAt,
		Customer:      customer,
		CreatedAt:     now,
	}, nil
}

// Expired reports whether a pending reservation can no longer be committed.
func (r *Reservation) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// TotalQuantity is the number of tickets this reservation will mint.
func (r *Reservation) TotalQuantity() int {
	n := 0
	for _, item := range r.Items {
		n += item.Quantity
	}
	return n
}
