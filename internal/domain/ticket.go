package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
	TicketRefunded  TicketStatus = "refunded"
)

// Ticket is one admission unit minted at fulfillment time. Status moves
// valid -> used exactly once; used and cancelled are terminal.
type Ticket struct {
	ID            uuid.UUID
	Number        string
	ReservationID uuid.UUID
	EventID       uuid.UUID
	UserID        uuid.UUID
	TicketType    string
	Price         decimal.Decimal
	Verification  string
	Status        TicketStatus
	UsedAt        *time.Time
	UsedBy        *uuid.UUID
	Customer      CustomerInfo
	CreatedAt     time.Time
}

// MintTicketNumber draws a TKT-YYYYMMDD-NNNNN number. The 5-digit suffix is
// random and can collide; callers rely on the unique index on ticket_number
// and remint on conflict.
func MintTicketNumber(now time.Time) string {
	return fmt.Sprintf("TKT-%s-%05d", now.Format("20060102"), rand.IntN(100000))
}

// VerificationPayload is the content behind a ticket's QR code. It is
// self-contained: scanning yields the ticket id without a lookup, but the
// state check still requires a round-trip to Validate.
type VerificationPayload struct {
	TicketID uuid.UUID `json:"ticket_id"`
	IssuedAt time.Time `json:"issued_at"`
	Token    uuid.UUID `json:"token"`
}

func NewVerificationPayload(ticketID uuid.UUID, now time.Time) VerificationPayload {
	return VerificationPayload{
		TicketID: ticketID,
		IssuedAt: now,
		Token:    uuid.New(),
	}
}

// Encode renders the payload as a compact base64url blob, ready for an
// external QR renderer.
func (p VerificationPayload) Encode() string {
	data, _ := json.Marshal(p)
	return base64.RawURLEncoding.EncodeToString(data)
}

func DecodeVerificationPayload(encoded string) (VerificationPayload, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return VerificationPayload{}, errors.Wrap(ErrInvalidInput, "decode verification payload")
	}
	var p VerificationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return VerificationPayload{}, errors.Wrap(ErrInvalidInput, "unmarshal verification payload")
	}
	if p.TicketID == uuid.Nil || p.Token == uuid.Nil {
		return VerificationPayload{}, ErrInvalidInput
	}
	return p, nil
}

// ScanResult is the structured outcome of a validation attempt. A rejected
// scan is a negative result, not an error.
type ScanResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

const (
	ScanReasonAlreadyUsed = "already used"
	ScanReasonCancelled   = "ticket cancelled"
	ScanReasonRefunded    = "ticket refunded"
)

// Scan decides the validation outcome for the ticket's current status.
// Only TicketValid yields a usable result; every other status is an
// idempotent rejection with no state change.
func (t *Ticket) Scan() ScanResult {
	switch t.Status {
	case TicketValid:
		return ScanResult{Valid: true}
	case TicketUsed:
		return ScanResult{Valid: false, Reason: ScanReasonAlreadyUsed}
	case TicketCancelled:
		return ScanResult{Valid: false, Reason: ScanReasonCancelled}
	default:
		return ScanResult{Valid: false, Reason: ScanReasonRefunded}
	}
}
