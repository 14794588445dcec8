package repositories

import (
	"context"
	"database/sql"

	"seatledger/internal/domain/models"
)

// LoyaltyRepo keeps the audit trail of point accruals.
type LoyaltyRepo struct {
	DB *sql.DB
}

func (r LoyaltyRepo) InsertTx(ctx context.Context, tx *sql.Tx, res models.LoyaltyResult, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loyalty_transactions
			(customer_id, points, points_before, points_after, tier_before, tier_after, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.CustomerID, res.PointsEarned, res.PointsBefore, res.PointsAfter,
		string(res.TierBefore), string(res.TierAfter), description,
	)
	return err
}
