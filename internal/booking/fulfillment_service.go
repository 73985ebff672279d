package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Laminito/event-app-pro-backend/internal/clock"
	"github.com/Laminito/event-app-pro-backend/internal/domain"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
)

const (
	mintAttempts = 5
	txAttempts   = 3
)

// FulfillmentService commits a paid reservation: the status flip, the
// inventory decrement, the ticket minting and the outbox record all land in
// one transaction, or none of them do. The caller confirms payment capture
// before invoking Commit; this service never talks to a gateway.
type FulfillmentService struct {
	store Store
	clock clock.Clock
}

func NewFulfillmentService(store Store, clk clock.Clock) *FulfillmentService {
	return &FulfillmentService{store: store, clock: clk}
}

// Commit is retry-safe: re-invoking it for an already completed reservation
// returns the existing order and tickets without any further mutation.
func (f *FulfillmentService) Commit(ctx context.Context, reservationID uuid.UUID, paymentMethod string, customer domain.CustomerInfo) (*domain.Reservation, []domain.Ticket, error) {
	if paymentMethod == "" {
		return nil, nil, domain.ErrInvalidInput
	}

	var (
		res     *domain.Reservation
		tickets []domain.Ticket
	)

	run := func(txCtx context.Context) error {
		res, tickets = nil, nil

		loaded, err := f.store.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		res = loaded

		switch res.Status {
		case domain.ReservationCompleted:
			tickets, err = f.store.TicketsByReservation(txCtx, res.ID)
			return err
		case domain.ReservationCancelled, domain.ReservationRefunded:
			// Swept or refunded holds are permanently un-committable.
			return domain.ErrReservationExpired
		}

		now := f.clock.Now()
		if res.Expired(now) {
			return domain.ErrReservationExpired
		}

		if err := f.store.CompleteReservation(txCtx, res.ID, paymentMethod, customer); err != nil {
			return err
		}
		res.Status = domain.ReservationCompleted
		res.PaymentStatus = domain.PaymentPaid
		res.PaymentMethod = paymentMethod
		res.Customer = customer
		res.ExpiresAt = nil

		for _, item := range res.Items {
			if err := f.store.DecrementRemaining(txCtx, res.EventID, item.TicketType, item.Quantity); err != nil {
				return err
			}
		}
		if err := f.store.IncrementSold(txCtx, res.EventID, res.TotalQuantity()); err != nil {
			return err
		}

		tickets, err = f.mintTickets(txCtx, res, now)
		if err != nil {
			return err
		}

		return f.enqueueCompleted(txCtx, res, tickets)
	}

	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = f.store.WithTx(ctx, run)
		if !errors.Is(err, domain.ErrSerializationFailure) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrTicketsUnavailable) {
			observability.OversellRejections.Inc()
		}
		observability.CommitsTotal.WithLabelValues("failure").Inc()
		return nil, nil, err
	}

	observability.CommitsTotal.WithLabelValues("success").Inc()
	observability.TicketsMinted.Add(float64(len(tickets)))
	return res, tickets, nil
}

func (f *FulfillmentService) mintTickets(ctx context.Context, res *domain.Reservation, now time.Time) ([]domain.Ticket, error) {
	tickets := make([]domain.Ticket, 0, res.TotalQuantity())
	for _, item := range res.Items {
		for i := 0; i < item.Quantity; i++ {
			t := domain.Ticket{
				ID:            uuid.New(),
				ReservationID: res.ID,
				EventID:       res.EventID,
				UserID:        res.UserID,
				TicketType:    item.TicketType,
				Price:         item.UnitPrice,
				Status:        domain.TicketValid,
				Customer:      res.Customer,
				CreatedAt:     now,
			}
			t.Verification = domain.NewVerificationPayload(t.ID, now).Encode()

			if err := f.insertWithFreshNumber(ctx, &t, now); err != nil {
				return nil, err
			}
			tickets = append(tickets, t)
		}
	}
	return tickets, nil
}

// insertWithFreshNumber remints on unique-index collisions: the random
// 5-digit suffix is not trusted to be unique on its own.
func (f *FulfillmentService) insertWithFreshNumber(ctx context.Context, t *domain.Ticket, now time.Time) error {
	for attempt := 0; attempt < mintAttempts; attempt++ {
		t.Number = domain.MintTicketNumber(now)
		err := f.store.InsertTicket(ctx, *t)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrTicketNumberTaken) {
			return err
		}
	}
	return errors.Wrapf(domain.ErrTicketNumberTaken, "gave up after %d attempts", mintAttempts)
}

func (f *FulfillmentService) enqueueCompleted(ctx context.Context, res *domain.Reservation, tickets []domain.Ticket) error {
	numbers := make([]string, len(tickets))
	for i, t := range tickets {
		numbers[i] = t.Number
	}
	payload, err := json.Marshal(map[string]any{
		"reservation_id": res.ID,
		"event_id":       res.EventID,
		"user_id":        res.UserID,
		"total":          res.Total,
		"tickets":        numbers,
	})
	if err != nil {
		return err
	}
	return f.store.InsertOutbox(ctx, OutboxEvent{
		AggregateType: "order",
		AggregateID:   res.ID,
		EventType:     "order.completed",
		Payload:       payload,
	})
}
