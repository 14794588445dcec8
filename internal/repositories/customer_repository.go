package repositories

import (
	"context"
	"database/sql"
	"errors"

	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
)

// CustomerRepo reads and writes the directory fields owned by the engine:
// tier, loyalty points and wallet balance.
type CustomerRepo struct {
	DB *sql.DB
}

const customerColumns = `id, name, tier, loyalty_points, wallet_balance`

func scanCustomer(row interface{ Scan(...any) error }) (models.Customer, error) {
	var c models.Customer
	var tier string
	if err := row.Scan(&c.ID, &c.Name, &tier, &c.LoyaltyPoints, &c.WalletBalance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Customer{}, ErrNotFound
		}
		return models.Customer{}, err
	}
	c.Tier = domain.ParseTier(tier)
	return c, nil
}

func (r CustomerRepo) GetByID(ctx context.Context, id int64) (models.Customer, error) {
	return scanCustomer(r.DB.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ? LIMIT 1`, id))
}

// GetForUpdateTx locks the customer row until the transaction ends. Every balance,
// points or tier mutation goes through this lock.
func (r CustomerRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (models.Customer, error) {
	return scanCustomer(tx.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ? FOR UPDATE`, id))
}

func (r CustomerRepo) UpdateBalanceTx(ctx context.Context, tx *sql.Tx, id int64, balance domain.Money) error {
	_, err := tx.ExecContext(ctx, `UPDATE customers SET wallet_balance = ? WHERE id = ?`, balance, id)
	return err
}

func (r CustomerRepo) UpdateLoyaltyTx(ctx context.Context, tx *sql.Tx, id int64, points int64, tier domain.Tier) error {
	_, err := tx.ExecContext(ctx, `UPDATE customers SET loyalty_points = ?, tier = ? WHERE id = ?`, points, string(tier), id)
	return err
}

func (r CustomerRepo) UpdateTierTx(ctx context.Context, tx *sql.Tx, id int64, tier domain.Tier) error {
	_, err := tx.ExecContext(ctx, `UPDATE customers SET tier = ? WHERE id = ?`, string(tier), id)
	return err
}

// ListIDsAfter pages through customer ids in ascending order.
func (r CustomerRepo) ListIDsAfter(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM customers WHERE id > ? ORDER BY id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
