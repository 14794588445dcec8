package repositories

import (
	"context"
	"database/sql"

	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
)

// WalletRepo is the append-only wallet ledger. Rows are only written together with the
// matching customers.wallet_balance update in the same transaction.
type WalletRepo struct {
	DB *sql.DB
}

func (r WalletRepo) InsertTx(ctx context.Context, tx *sql.Tx, wt models.WalletTransaction) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions
			(customer_id, amount, type, balance_before, balance_after, reference, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		wt.CustomerID, wt.Amount, string(wt.Type), wt.BalanceBefore, wt.BalanceAfter, wt.Reference, wt.Description,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ExistsTx reports whether a row of the given type and reference was already written.
func (r WalletRepo) ExistsTx(ctx context.Context, tx *sql.Tx, customerID int64, typ domain.TxType, reference string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM wallet_transactions
		WHERE customer_id = ? AND type = ? AND reference = ?`, customerID, string(typ), reference).Scan(&n)
	return n > 0, err
}

// ListByCustomer returns one page of ledger rows, newest first, and the total count.
func (r WalletRepo) ListByCustomer(ctx context.Context, customerID int64, p domain.Pagination) ([]models.WalletTransaction, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wallet_transactions WHERE customer_id = ?`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, customer_id, amount, type, balance_before, balance_after, reference, description, created_at
		FROM wallet_transactions
		WHERE customer_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`, customerID, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.WalletTransaction{}
	for rows.Next() {
		var wt models.WalletTransaction
		var typ string
		var created sql.NullTime
		if err := rows.Scan(&wt.ID, &wt.CustomerID, &wt.Amount, &typ, &wt.BalanceBefore, &wt.BalanceAfter,
			&wt.Reference, &wt.Description, &created); err != nil {
			return nil, 0, err
		}
		wt.Type = domain.TxType(typ)
		wt.CreatedAt = created.Time
		out = append(out, wt)
	}
	return out, total, rows.Err()
}
