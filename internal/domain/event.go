package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketType is one price bucket of an event's inventory. Remaining is only
// ever decremented by the fulfillment commit, never by reservations.
type TicketType struct {
	Label       string
	Price       decimal.Decimal
	Total       int
	Remaining   int
	Description string
}

// EventInventory holds the sellable stock of a single event. Sold is
// maintained transactionally alongside Remaining so that at any point
// sold == sum(total - remaining) across all types.
type EventInventory struct {
	EventID uuid.UUID
	Types   []TicketType
	Sold    int
}

// TicketType returns the type with the given label, or nil.
func (inv *EventInventory) TicketType(label string) *TicketType {
	for i := range inv.Types {
		if inv.Types[i].Label == label {
			return &inv.Types[i]
		}
	}
	return nil
}

// CheckAvailability reports whether the named type exists and has at least
// qty units remaining. Point-in-time read, no side effect.
func (inv *EventInventory) CheckAvailability(label string, qty int) bool {
	t := inv.TicketType(label)
	return t != nil && t.Remaining >= qty
}
