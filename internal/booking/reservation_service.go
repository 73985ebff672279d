package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Laminito/event-app-pro-backend/internal/clock"
	"github.com/Laminito/event-app-pro-backend/internal/domain"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
)

const defaultHoldTTL = 15 * time.Minute

// ReservationService turns a cart of {type, quantity} pairs into a priced,
// time-bounded hold. It never decrements inventory: availability here is a
// best-effort read, and races are resolved at commit time by the ledger.
type ReservationService struct {
	store   Store
	clock   clock.Clock
	holdTTL time.Duration
}

func NewReservationService(store Store, clk clock.Clock, holdTTL time.Duration) *ReservationService {
	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	return &ReservationService{store: store, clock: clk, holdTTL: holdTTL}
}

func (s *ReservationService) Reserve(ctx context.Context, userID, eventID uuid.UUID, items []domain.ItemRequest, customer domain.CustomerInfo) (domain.Reservation, error) {
	inv, err := s.store.EventInventory(ctx, eventID)
	if err != nil {
		return domain.Reservation{}, err
	}

	res, err := domain.NewReservation(userID, *inv, items, customer, s.clock.Now(), s.holdTTL)
	if err != nil {
		return domain.Reservation{}, err
	}

	if err := s.store.CreateReservation(ctx, res); err != nil {
		return domain.Reservation{}, err
	}

	observability.ReservationsTotal.Inc()
	return res, nil
}

func (s *ReservationService) Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}
