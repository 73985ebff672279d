package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

// Identity is the already-verified caller supplied by the auth collaborator.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// Store is the transactional persistence surface the services run on. All
// mutating methods honor a transaction carried in ctx by WithTx; the crdb
// adapter is the production implementation.
type Store interface {
	// WithTx runs fn inside one serializable transaction. fn observing an
	// error rolls everything back; domain.ErrSerializationFailure signals a
	// retryable conflict.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	EventInventory(ctx context.Context, eventID uuid.UUID) (*domain.EventInventory, error)
	// DecrementRemaining re-verifies remaining >= qty and decrements, or
	// fails with domain.ErrTicketsUnavailable without touching the row.
	DecrementRemaining(ctx context.Context, eventID uuid.UUID, label string, qty int) error
	IncrementSold(ctx context.Context, eventID uuid.UUID, qty int) error

	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	CompleteReservation(ctx context.Context, id uuid.UUID, paymentMethod string, customer domain.CustomerInfo) error

	// InsertTicket fails with domain.ErrTicketNumberTaken when the generated
	// number collides with the unique index.
	InsertTicket(ctx context.Context, t domain.Ticket) error
	TicketsByReservation(ctx context.Context, reservationID uuid.UUID) ([]domain.Ticket, error)
	GetTicketForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	MarkTicketUsed(ctx context.Context, id, validator uuid.UUID, at time.Time) error

	InsertOutbox(ctx context.Context, ev OutboxEvent) error
}

// OutboxEvent is written in the same transaction as the commit and drained
// by the outbox publisher; notification failures never reach the commit.
type OutboxEvent struct {
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
}

// OrganizerDirectory resolves the organizer owning an event (catalog lookup).
type OrganizerDirectory interface {
	EventOrganizer(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error)
}

// ScanAuditor records validation attempts, best-effort.
type ScanAuditor interface {
	RecordScan(ctx context.Context, ticketID, validatorID uuid.UUID, result domain.ScanResult)
}
