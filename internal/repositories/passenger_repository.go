package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"seatledger/internal/domain/models"
)

type PassengerRepository struct {
	DB *sql.DB
}

func (r PassengerRepository) InsertTx(ctx context.Context, tx *sql.Tx, bookingID int64, in models.PassengerInput) (models.Passenger, error) {
	p := models.Passenger{
		BookingID:  bookingID,
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		DocumentNo: strings.TrimSpace(in.DocumentNo),
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO booking_passengers (booking_id, name, phone, document_no) VALUES (?, ?, ?, ?)`,
		p.BookingID, p.Name, p.Phone, p.DocumentNo)
	if err != nil {
		return models.Passenger{}, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

func (r PassengerRepository) GetByBookingID(ctx context.Context, bookingID int64) (models.Passenger, error) {
	var p models.Passenger
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, booking_id, name, phone, document_no
		FROM booking_passengers
		WHERE booking_id = ?
		LIMIT 1`, bookingID).Scan(&p.ID, &p.BookingID, &p.Name, &p.Phone, &p.DocumentNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Passenger{}, ErrNotFound
		}
		return models.Passenger{}, err
	}
	return p, nil
}
