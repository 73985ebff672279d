package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

func (r *Repository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	return r.WithTx(ctx, func(ctx context.Context) error {
		if _, err := r.exec(ctx, `
			INSERT INTO reservations (id, user_id, event_id, status, payment_method, payment_status,
				total, expires_at, customer_name, customer_email, customer_phone, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, res.ID, res.UserID, res.EventID, res.Status, res.PaymentMethod, res.PaymentStatus,
			res.Total, res.ExpiresAt, res.Customer.Name, res.Customer.Email, res.Customer.Phone,
			res.CreatedAt); err != nil {
			return errors.Wrap(err, "insert reservation")
		}

		for i, item := range res.Items {
			if _, err := r.exec(ctx, `
				INSERT INTO reservation_items (reservation_id, position, ticket_type, quantity, unit_price, subtotal)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, res.ID, i, item.TicketType, item.Quantity, item.UnitPrice, item.Subtotal); err != nil {
				return errors.Wrap(err, "insert reservation item")
			}
		}
		return nil
	})
}

func (r *Repository) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.getReservation(ctx, id, false)
}

// GetReservationForUpdate locks the reservation row for the rest of the
// surrounding transaction, making commit replays serialize per reservation.
func (r *Repository) GetReservationForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.getReservation(ctx, id, true)
}

func (r *Repository) getReservation(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Reservation, error) {
	query := `
		SELECT id, user_id, event_id, status, payment_method, payment_status,
			total, expires_at, customer_name, customer_email, customer_phone, created_at
		FROM reservations WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var res domain.Reservation
	err := r.queryRow(ctx, query, id).Scan(
		&res.ID, &res.UserID, &res.EventID, &res.Status, &res.PaymentMethod, &res.PaymentStatus,
		&res.Total, &res.ExpiresAt, &res.Customer.Name, &res.Customer.Email, &res.Customer.Phone,
		&res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get reservation")
	}

	rows, err := r.query(ctx, `
		SELECT ticket_type, quantity, unit_price, subtotal
		FROM reservation_items WHERE reservation_id = $1 ORDER BY position
	`, id)
	if err != nil {
		return nil, errors.Wrap(err, "list reservation items")
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.TicketType, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, err
		}
		res.Items = append(res.Items, item)
	}
	return &res, rows.Err()
}

func (r *Repository) CompleteReservation(ctx context.Context, id uuid.UUID, paymentMethod string, customer domain.CustomerInfo) error {
	tag, err := r.exec(ctx, `
		UPDATE reservations
		SET status = $2, payment_status = $3, payment_method = $4, expires_at = NULL,
			customer_name = $5, customer_email = $6, customer_phone = $7
		WHERE id = $1 AND status = $8
	`, id, domain.ReservationCompleted, domain.PaymentPaid, paymentMethod,
		customer.Name, customer.Email, customer.Phone, domain.ReservationPending)
	if err != nil {
		return errors.Wrap(err, "complete reservation")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CancelExpiredReservations is the hygiene sweep: expiry is already enforced
// lazily at commit time, this just tidies abandoned holds.
func (r *Repository) CancelExpiredReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	rows, err := r.query(ctx, `
		UPDATE reservations SET status = $1, expires_at = NULL
		WHERE id IN (
			SELECT id FROM reservations
			WHERE status = $2 AND expires_at <= $3
			ORDER BY expires_at LIMIT $4
		)
		RETURNING id, user_id, event_id, total
	`, domain.ReservationCancelled, domain.ReservationPending, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "cancel expired reservations")
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.EventID, &res.Total); err != nil {
			return nil, err
		}
		res.Status = domain.ReservationCancelled
		out = append(out, res)
	}
	return out, rows.Err()
}

// RevenueByEvents sums paid order totals for the organizer dashboard.
func (r *Repository) RevenueByEvents(ctx context.Context, eventIDs []uuid.UUID) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	err := r.queryRow(ctx, `
		SELECT COALESCE(SUM(total), 0) FROM reservations
		WHERE event_id = ANY($1) AND payment_status = $2
	`, eventIDs, domain.PaymentPaid).Scan(&revenue)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum revenue")
	}
	return revenue, nil
}
