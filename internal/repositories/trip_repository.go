package repositories

import (
	"context"
	"database/sql"
	"errors"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain/models"
)

// TripRepo is the engine's read view of the trip catalog.
type TripRepo struct {
	DB *sql.DB
}

func (r TripRepo) get(ctx context.Context, q intdb.DBTX, id int64) (models.Trip, error) {
	var t models.Trip
	err := q.QueryRowContext(ctx, `
		SELECT id, route_from, route_to, departure_at, base_price, status
		FROM trips
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&t.ID, &t.RouteFrom, &t.RouteTo, &t.DepartureAt, &t.BasePrice, &t.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Trip{}, ErrNotFound
		}
		return models.Trip{}, err
	}
	return t, nil
}

func (r TripRepo) GetByID(ctx context.Context, id int64) (models.Trip, error) {
	return r.get(ctx, r.DB, id)
}

func (r TripRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id int64) (models.Trip, error) {
	return r.get(ctx, tx, id)
}

func (r TripRepo) MarkCompletedTx(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE trips SET status = 'completed' WHERE id = ?`, id)
	return err
}
