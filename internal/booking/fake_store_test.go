package booking_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Laminito/event-app-pro-backend/internal/booking"
	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

// fakeStore is an in-memory booking.Store with copy-on-begin transaction
// semantics: an error inside WithTx restores the pre-transaction state, so
// partial-commit behavior can be asserted without a database.
type fakeStore struct {
	inventories  map[uuid.UUID]*domain.EventInventory
	reservations map[uuid.UUID]*domain.Reservation
	tickets      map[uuid.UUID]domain.Ticket
	numbers      map[string]uuid.UUID
	outbox       []booking.OutboxEvent

	// forcedNumberConflicts makes the next N ticket inserts collide.
	forcedNumberConflicts int
	inTx                  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		inventories:  map[uuid.UUID]*domain.EventInventory{},
		reservations: map[uuid.UUID]*domain.Reservation{},
		tickets:      map[uuid.UUID]domain.Ticket{},
		numbers:      map[string]uuid.UUID{},
	}
}

func (s *fakeStore) addInventory(inv domain.EventInventory) {
	c := inv
	c.Types = append([]domain.TicketType(nil), inv.Types...)
	s.inventories[inv.EventID] = &c
}

func (s *fakeStore) snapshot() *fakeStore {
	c := newFakeStore()
	for _, inv := range s.inventories {
		c.addInventory(*inv)
	}
	for id, r := range s.reservations {
		rc := *r
		rc.Items = append([]domain.LineItem(nil), r.Items...)
		c.reservations[id] = &rc
	}
	for id, t := range s.tickets {
		c.tickets[id] = t
	}
	for n, id := range s.numbers {
		c.numbers[n] = id
	}
	c.outbox = append([]booking.OutboxEvent(nil), s.outbox...)
	return c
}

func (s *fakeStore) restore(from *fakeStore) {
	s.inventories = from.inventories
	s.reservations = from.reservations
	s.tickets = from.tickets
	s.numbers = from.numbers
	s.outbox = from.outbox
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx {
		return fn(ctx)
	}
	s.inTx = true
	defer func() { s.inTx = false }()

	before := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(before)
		return err
	}
	return nil
}

func (s *fakeStore) EventInventory(ctx context.Context, eventID uuid.UUID) (*domain.EventInventory, error) {
	inv, ok := s.inventories[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *inv
	c.Types = append([]domain.TicketType(nil), inv.Types...)
	return &c, nil
}

func (s *fakeStore) DecrementRemaining(ctx context.Context, eventID uuid.UUID, label string, qty int) error {
	inv, ok := s.inventories[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	tt := inv.TicketType(label)
	if tt == nil || tt.Remaining < qty {
		return domain.ErrTicketsUnavailable
	}
	tt.Remaining -= qty
	return nil
}

func (s *fakeStore) IncrementSold(ctx context.Context, eventID uuid.UUID, qty int) error {
	inv, ok := s.inventories[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Sold += qty
	return nil
}

func (s *fakeStore) CreateReservation(ctx context.Context, res domain.Reservation) error {
	c := res
	c.Items = append([]domain.LineItem(nil), res.Items...)
	s.reservations[res.ID] = &c
	return nil
}

func (s *fakeStore) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *r
	c.Items = append([]domain.LineItem(nil), r.Items...)
	return &c, nil
}

func (s *fakeStore) GetReservationForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return s.GetReservation(ctx, id)
}

func (s *fakeStore) CompleteReservation(ctx context.Context, id uuid.UUID, paymentMethod string, customer domain.CustomerInfo) error {
	r, ok := s.reservations[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = domain.ReservationCompleted
	r.PaymentStatus = domain.PaymentPaid
	r.PaymentMethod = paymentMethod
	r.Customer = customer
	r.ExpiresAt = nil
	return nil
}

func (s *fakeStore) InsertTicket(ctx context.Context, t domain.Ticket) error {
	if s.forcedNumberConflicts > 0 {
		s.forcedNumberConflicts--
		return domain.ErrTicketNumberTaken
	}
	if _, taken := s.numbers[t.Number]; taken {
		return domain.ErrTicketNumberTaken
	}
	s.numbers[t.Number] = t.ID
	s.tickets[t.ID] = t
	return nil
}

func (s *fakeStore) TicketsByReservation(ctx context.Context, reservationID uuid.UUID) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range s.tickets {
		if t.ReservationID == reservationID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) GetTicketForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *fakeStore) MarkTicketUsed(ctx context.Context, id, validator uuid.UUID, at time.Time) error {
	t, ok := s.tickets[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = domain.TicketUsed
	t.UsedAt = &at
	t.UsedBy = &validator
	s.tickets[id] = t
	return nil
}

func (s *fakeStore) InsertOutbox(ctx context.Context, ev booking.OutboxEvent) error {
	s.outbox = append(s.outbox, ev)
	return nil
}

type fakeDirectory struct {
	organizers map[uuid.UUID]uuid.UUID
}

func (d *fakeDirectory) EventOrganizer(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	org, ok := d.organizers[eventID]
	if !ok {
		return uuid.Nil, domain.ErrNotFound
	}
	return org, nil
}

type recordingAuditor struct {
	scans []domain.ScanResult
}

func (a *recordingAuditor) RecordScan(ctx context.Context, ticketID, validatorID uuid.UUID, result domain.ScanResult) {
	a.scans = append(a.scans, result)
}
