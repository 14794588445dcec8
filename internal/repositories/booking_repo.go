package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
)

type BookingRepo struct {
	DB *sql.DB
}

const bookingColumns = `id, trip_id, seat_id, customer_id, status, payment_method, total_price,
		booking_reference, COALESCE(group_id, ''), COALESCE(cancellation_reason, ''), cancelled_at,
		is_deleted, deleted_at, COALESCE(deleted_by, ''), created_at, updated_at`

// BookingColumns is exported for tests that build mock rows.
var BookingColumns = []string{
	"id", "trip_id", "seat_id", "customer_id", "status", "payment_method", "total_price",
	"booking_reference", "group_id", "cancellation_reason", "cancelled_at",
	"is_deleted", "deleted_at", "deleted_by", "created_at", "updated_at",
}

func scanBooking(row interface{ Scan(...any) error }) (models.Booking, error) {
	var b models.Booking
	var status, method string
	var cancelledAt, deletedAt, createdAt, updatedAt sql.NullTime
	if err := row.Scan(
		&b.ID, &b.TripID, &b.SeatID, &b.CustomerID, &status, &method, &b.TotalPrice,
		&b.BookingReference, &b.GroupID, &b.CancellationReason, &cancelledAt,
		&b.IsDeleted, &deletedAt, &b.DeletedBy, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, ErrNotFound
		}
		return models.Booking{}, err
	}
	b.Status = domain.Status(status)
	b.PaymentMethod = domain.PaymentMethod(method)
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		b.DeletedAt = &t
	}
	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	defer rows.Close()
	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertTx stores a new booking and returns its id.
func (r BookingRepo) InsertTx(ctx context.Context, tx *sql.Tx, nb models.NewBooking) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookings
			(trip_id, seat_id, customer_id, status, payment_method, total_price, booking_reference, group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nb.TripID, nb.SeatID, nb.CustomerID, string(nb.Status), string(nb.PaymentMethod),
		nb.TotalPrice, nb.BookingReference, intdb.NullIfEmpty(nb.GroupID),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID ignores soft-deleted rows.
func (r BookingRepo) GetByID(ctx context.Context, id int64) (models.Booking, error) {
	return scanBooking(r.DB.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? AND is_deleted = 0 LIMIT 1`, id))
}

// GetForUpdateTx locks one live booking row.
func (r BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (models.Booking, error) {
	return scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? AND is_deleted = 0 FOR UPDATE`, id))
}

// ListByGroupForUpdateTx locks every live booking sharing groupID.
func (r BookingRepo) ListByGroupForUpdateTx(ctx context.Context, tx *sql.Tx, groupID string) ([]models.Booking, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE group_id = ? AND is_deleted = 0 ORDER BY id FOR UPDATE`, groupID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (r BookingRepo) ListByGroup(ctx context.Context, groupID string) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE group_id = ? AND is_deleted = 0 ORDER BY id`, groupID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// ListByCustomer returns one page of live bookings, newest first, and the total count.
func (r BookingRepo) ListByCustomer(ctx context.Context, customerID int64, p domain.Pagination) ([]models.Booking, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE customer_id = ? AND is_deleted = 0`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE customer_id = ? AND is_deleted = 0
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, customerID, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	out, err := scanBookings(rows)
	return out, total, err
}

// CancelTx moves still-cancellable bookings to cancelled and returns how many changed.
func (r BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, ids []int64, reason string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+2)
	args = append(args, reason, at)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancellation_reason = ?, cancelled_at = ?
		WHERE id IN (`+intdb.Placeholders(len(ids))+`) AND status IN ('confirmed', 'pending')`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r BookingRepo) UpdateSeatTx(ctx context.Context, tx *sql.Tx, id int64, seatID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET seat_id = ? WHERE id = ?`, seatID, id)
	return err
}

// CompleteTripTx marks every confirmed booking of a trip as completed.
func (r BookingRepo) CompleteTripTx(ctx context.Context, tx *sql.Tx, tripID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE bookings SET status = 'completed'
		WHERE trip_id = ? AND status = 'confirmed' AND is_deleted = 0`, tripID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r BookingRepo) SoftDeleteTx(ctx context.Context, tx *sql.Tx, id int64, by string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bookings SET is_deleted = 1, deleted_at = ?, deleted_by = ?
		WHERE id = ? AND is_deleted = 0`, at, by, id)
	return err
}

// PurgeTombstonesTx physically removes soft-deleted bookings older than before,
// together with their passenger rows.
func (r BookingRepo) PurgeTombstonesTx(ctx context.Context, tx *sql.Tx, before time.Time) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		DELETE p FROM booking_passengers p
		JOIN bookings b ON b.id = p.booking_id
		WHERE b.is_deleted = 1 AND b.deleted_at < ?`, before); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM bookings WHERE is_deleted = 1 AND deleted_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
