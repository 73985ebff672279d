package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

// SetupInventory seeds the ledger for a freshly created event. Every type
// starts with remaining = total.
func (r *Repository) SetupInventory(ctx context.Context, eventID uuid.UUID, types []domain.TicketType) error {
	return r.WithTx(ctx, func(ctx context.Context) error {
		if _, err := r.exec(ctx, `
			INSERT INTO event_inventory (event_id, sold) VALUES ($1, 0)
		`, eventID); err != nil {
			return errors.Wrap(err, "insert event inventory")
		}
		for i, t := range types {
			if _, err := r.exec(ctx, `
				INSERT INTO ticket_types (event_id, label, price, total, remaining, description, position)
				VALUES ($1, $2, $3, $4, $4, $5, $6)
			`, eventID, t.Label, t.Price, t.Total, t.Description, i); err != nil {
				return errors.Wrap(err, "insert ticket type")
			}
		}
		return nil
	})
}

func (r *Repository) EventInventory(ctx context.Context, eventID uuid.UUID) (*domain.EventInventory, error) {
	inv := domain.EventInventory{EventID: eventID}

	err := r.queryRow(ctx, `
		SELECT sold FROM event_inventory WHERE event_id = $1
	`, eventID).Scan(&inv.Sold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get event inventory")
	}

	rows, err := r.query(ctx, `
		SELECT label, price, total, remaining, description
		FROM ticket_types WHERE event_id = $1 ORDER BY position
	`, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "list ticket types")
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.TicketType
		if err := rows.Scan(&t.Label, &t.Price, &t.Total, &t.Remaining, &t.Description); err != nil {
			return nil, err
		}
		inv.Types = append(inv.Types, t)
	}
	return &inv, rows.Err()
}

// DecrementRemaining re-verifies stock at commit time: the conditional
// UPDATE leaves the row untouched when remaining < qty, and the caller's
// transaction rolls the whole order back.
func (r *Repository) DecrementRemaining(ctx context.Context, eventID uuid.UUID, label string, qty int) error {
	tag, err := r.exec(ctx, `
		UPDATE ticket_types SET remaining = remaining - $3
		WHERE event_id = $1 AND label = $2 AND remaining >= $3
	`, eventID, label, qty)
	if err != nil {
		return errors.Wrap(err, "decrement remaining")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketsUnavailable
	}
	return nil
}

func (r *Repository) IncrementSold(ctx context.Context, eventID uuid.UUID, qty int) error {
	tag, err := r.exec(ctx, `
		UPDATE event_inventory SET sold = sold + $2 WHERE event_id = $1
	`, eventID, qty)
	if err != nil {
		return errors.Wrap(err, "increment sold")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteInventory removes an event's ledger, refusing while tickets exist.
func (r *Repository) DeleteInventory(ctx context.Context, eventID uuid.UUID) error {
	return r.WithTx(ctx, func(ctx context.Context) error {
		var count int
		if err := r.queryRow(ctx, `
			SELECT count(*) FROM tickets WHERE event_id = $1
		`, eventID).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrEventHasTickets
		}
		if _, err := r.exec(ctx, `DELETE FROM ticket_types WHERE event_id = $1`, eventID); err != nil {
			return err
		}
		_, err := r.exec(ctx, `DELETE FROM event_inventory WHERE event_id = $1`, eventID)
		return err
	})
}
