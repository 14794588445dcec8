package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
)

// SeatRepo owns the explicit trip_seats flag rows. Seat ownership itself is derived
// from bookings; the flag row is what concurrent writers lock on.
type SeatRepo struct {
	DB *sql.DB
}

// EnsureSlotsTx creates missing flag rows so they can be locked.
func (r SeatRepo) EnsureSlotsTx(ctx context.Context, tx *sql.Tx, tripID int64, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	values := make([]string, 0, len(seats))
	args := make([]any, 0, len(seats)*2)
	for _, s := range seats {
		values = append(values, "(?, ?, 'available')")
		args = append(args, tripID, s)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO trip_seats (trip_id, seat_id, status) VALUES `+strings.Join(values, ", "), args...)
	return err
}

// LockSlotsTx takes row locks on the requested slots in seat order.
func (r SeatRepo) LockSlotsTx(ctx context.Context, tx *sql.Tx, tripID int64, seats []string) ([]models.SeatSlot, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(seats)+1)
	args = append(args, tripID)
	for _, s := range seats {
		args = append(args, s)
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT trip_id, seat_id, status, booking_id
		FROM trip_seats
		WHERE trip_id = ? AND seat_id IN (`+intdb.Placeholders(len(seats))+`)
		ORDER BY seat_id
		FOR UPDATE`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SeatSlot{}
	for rows.Next() {
		var s models.SeatSlot
		var status string
		var bookingID sql.NullInt64
		if err := rows.Scan(&s.TripID, &s.SeatID, &status, &bookingID); err != nil {
			return nil, err
		}
		s.Status = domain.SeatStatus(status)
		if bookingID.Valid {
			id := bookingID.Int64
			s.BookingID = &id
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TakenSeats returns the subset of seats held by a confirmed, non-deleted booking
// other than excludeBookingID.
func (r SeatRepo) TakenSeats(ctx context.Context, q intdb.DBTX, tripID int64, seats []string, excludeBookingID int64) (map[string]bool, error) {
	return r.takenSeats(ctx, q, tripID, seats, excludeBookingID, "")
}

// TakenSeatsTx is TakenSeats as a locking read, so it sees rows committed after tx's
// snapshot was taken.
func (r SeatRepo) TakenSeatsTx(ctx context.Context, tx *sql.Tx, tripID int64, seats []string, excludeBookingID int64) (map[string]bool, error) {
	return r.takenSeats(ctx, tx, tripID, seats, excludeBookingID, " FOR SHARE")
}

func (r SeatRepo) takenSeats(ctx context.Context, q intdb.DBTX, tripID int64, seats []string, excludeBookingID int64, lock string) (map[string]bool, error) {
	taken := map[string]bool{}
	if len(seats) == 0 {
		return taken, nil
	}
	args := make([]any, 0, len(seats)+2)
	args = append(args, tripID)
	for _, s := range seats {
		args = append(args, s)
	}
	args = append(args, excludeBookingID)
	rows, err := q.QueryContext(ctx, `
		SELECT seat_id
		FROM bookings
		WHERE trip_id = ? AND seat_id IN (`+intdb.Placeholders(len(seats))+`)
		  AND status = 'confirmed' AND is_deleted = 0 AND id <> ?`+lock, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		taken[seat] = true
	}
	return taken, rows.Err()
}

// SlotStatus reads the flag without locking. Missing rows read as available.
func (r SeatRepo) SlotStatus(ctx context.Context, tripID int64, seatID string) (domain.SeatStatus, error) {
	var status string
	err := r.DB.QueryRowContext(ctx,
		`SELECT status FROM trip_seats WHERE trip_id = ? AND seat_id = ? LIMIT 1`, tripID, seatID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SeatAvailable, nil
		}
		return "", err
	}
	return domain.SeatStatus(status), nil
}

// SetSlotTx writes the flag. bookingID may be nil to clear ownership.
func (r SeatRepo) SetSlotTx(ctx context.Context, tx *sql.Tx, tripID int64, seatID string, status domain.SeatStatus, bookingID *int64) error {
	var owner any
	if bookingID != nil {
		owner = *bookingID
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE trip_seats SET status = ?, booking_id = ? WHERE trip_id = ? AND seat_id = ?`,
		string(status), owner, tripID, seatID)
	return err
}

// ReleaseTx frees a slot only if bookingID still owns it.
func (r SeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, tripID int64, seatID string, bookingID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE trip_seats SET status = 'available', booking_id = NULL
		WHERE trip_id = ? AND seat_id = ? AND booking_id = ?`, tripID, seatID, bookingID)
	return err
}

func (r SeatRepo) ListByTrip(ctx context.Context, tripID int64) ([]models.SeatSlot, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT trip_id, seat_id, status, booking_id, updated_at
		FROM trip_seats
		WHERE trip_id = ?
		ORDER BY seat_id`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SeatSlot{}
	for rows.Next() {
		var s models.SeatSlot
		var status string
		var bookingID sql.NullInt64
		var updated sql.NullTime
		if err := rows.Scan(&s.TripID, &s.SeatID, &status, &bookingID, &updated); err != nil {
			return nil, err
		}
		s.Status = domain.SeatStatus(status)
		if bookingID.Valid {
			id := bookingID.Int64
			s.BookingID = &id
		}
		if updated.Valid {
			s.UpdatedAt = updated.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
