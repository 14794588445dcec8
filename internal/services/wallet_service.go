package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
	"seatledger/internal/repositories"
	"seatledger/internal/utils"
)

// WalletService is the wallet ledger. Balance changes only happen in applyTx, which
// writes the customers row and its wallet_transactions row under the same row lock.
type WalletService struct {
	DB           *sql.DB
	Customers    repositories.CustomerRepo
	Transactions repositories.WalletRepo
	Events       EventSink
	RequestID    string
}

func (s WalletService) GetBalance(ctx context.Context, caller domain.RequestContext, customerID int64) (models.Balance, error) {
	if err := requirePositive("customerId", customerID); err != nil {
		return models.Balance{}, err
	}
	if !caller.CanAccessCustomer(customerID) {
		return models.Balance{}, forbidden("wallet")
	}
	c, err := s.Customers.GetByID(ctx, customerID)
	if err != nil {
		return models.Balance{}, wrapErr(notFound("customer", err))
	}
	return models.Balance{CustomerID: c.ID, Balance: c.WalletBalance}, nil
}

// TopUp credits the wallet. A reference that was already applied for this customer is a conflict.
func (s WalletService) TopUp(ctx context.Context, caller domain.RequestContext, in models.TopUpInput) (models.WalletTransaction, error) {
	in.Method = strings.TrimSpace(in.Method)
	in.Reference = strings.TrimSpace(in.Reference)
	switch {
	case in.CustomerID <= 0:
		return models.WalletTransaction{}, domain.ValidationError{Field: "customerId", Msg: "must be a positive id"}
	case in.Amount <= 0:
		return models.WalletTransaction{}, domain.ValidationError{Field: "amount", Msg: "must be greater than zero"}
	case in.Amount > domain.MaxMoney:
		return models.WalletTransaction{}, domain.ValidationError{Field: "amount", Msg: "exceeds " + domain.MaxMoney.String()}
	case in.Method == "":
		return models.WalletTransaction{}, domain.ValidationError{Field: "method", Msg: "required"}
	case in.Reference == "":
		return models.WalletTransaction{}, domain.ValidationError{Field: "reference", Msg: "required"}
	}
	if !caller.CanAccessCustomer(in.CustomerID) {
		return models.WalletTransaction{}, forbidden("wallet")
	}

	var out models.WalletTransaction
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		c, err := s.Customers.GetForUpdateTx(ctx, tx, in.CustomerID)
		if err != nil {
			return notFound("customer", err)
		}
		dup, err := s.Transactions.ExistsTx(ctx, tx, in.CustomerID, domain.TxTopUp, in.Reference)
		if err != nil {
			return err
		}
		if dup {
			return domain.ConflictError{Resource: "top_up", Msg: "reference already applied"}
		}
		out, err = s.CreditTx(ctx, tx, &c, in.Amount, domain.TxTopUp, in.Reference, "Top up via "+in.Method)
		return err
	})
	if err != nil {
		return models.WalletTransaction{}, wrapErr(err)
	}
	utils.LogEvent(s.RequestID, "wallet", "top_up", fmt.Sprintf("customer_id=%d amount=%s", in.CustomerID, in.Amount))
	s.Events.WalletCredited(out)
	return out, nil
}

// RecordPayment debits the wallet in its own transaction.
func (s WalletService) RecordPayment(ctx context.Context, customerID int64, amount domain.Money, description string) (models.WalletTransaction, error) {
	if err := requirePositive("customerId", customerID); err != nil {
		return models.WalletTransaction{}, err
	}
	if amount <= 0 {
		return models.WalletTransaction{}, domain.ValidationError{Field: "amount", Msg: "must be greater than zero"}
	}
	if amount > domain.MaxMoney {
		return models.WalletTransaction{}, domain.ValidationError{Field: "amount", Msg: "exceeds " + domain.MaxMoney.String()}
	}
	var out models.WalletTransaction
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		c, err := s.Customers.GetForUpdateTx(ctx, tx, customerID)
		if err != nil {
			return notFound("customer", err)
		}
		out, err = s.DebitTx(ctx, tx, &c, amount, "", description)
		return err
	})
	if err != nil {
		return models.WalletTransaction{}, wrapErr(err)
	}
	utils.LogEvent(s.RequestID, "wallet", "payment", fmt.Sprintf("customer_id=%d amount=%s", customerID, amount))
	return out, nil
}

// DebitTx takes a payment from a customer row already locked by the caller's transaction.
func (s WalletService) DebitTx(ctx context.Context, tx *sql.Tx, c *models.Customer, amount domain.Money, reference, description string) (models.WalletTransaction, error) {
	if amount > c.WalletBalance {
		return models.WalletTransaction{}, domain.InsufficientBalanceError{
			CustomerID: c.ID,
			Balance:    c.WalletBalance,
			Required:   amount,
		}
	}
	return s.applyTx(ctx, tx, c, -amount, domain.TxPayment, reference, description)
}

// CreditTx adds funds to a customer row already locked by the caller's transaction.
func (s WalletService) CreditTx(ctx context.Context, tx *sql.Tx, c *models.Customer, amount domain.Money, typ domain.TxType, reference, description string) (models.WalletTransaction, error) {
	return s.applyTx(ctx, tx, c, amount, typ, reference, description)
}

func (s WalletService) applyTx(ctx context.Context, tx *sql.Tx, c *models.Customer, delta domain.Money, typ domain.TxType, reference, description string) (models.WalletTransaction, error) {
	before := c.WalletBalance
	after := before + delta
	if after < 0 {
		return models.WalletTransaction{}, domain.InsufficientBalanceError{CustomerID: c.ID, Balance: before, Required: -delta}
	}
	if after > domain.MaxMoney {
		return models.WalletTransaction{}, domain.ValidationError{Field: "amount", Msg: "balance would exceed " + domain.MaxMoney.String()}
	}
	amount := delta
	if amount < 0 {
		amount = -amount
	}
	wt := models.WalletTransaction{
		CustomerID:    c.ID,
		Amount:        amount,
		Type:          typ,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reference:     reference,
		Description:   description,
	}
	if err := s.Customers.UpdateBalanceTx(ctx, tx, c.ID, after); err != nil {
		return models.WalletTransaction{}, err
	}
	id, err := s.Transactions.InsertTx(ctx, tx, wt)
	if err != nil {
		return models.WalletTransaction{}, err
	}
	wt.ID = id
	wt.CreatedAt = utils.NowUTC()
	c.WalletBalance = after
	return wt, nil
}

func (s WalletService) ListTransactions(ctx context.Context, caller domain.RequestContext, customerID int64, p domain.Pagination) ([]models.WalletTransaction, domain.Pagination, error) {
	if err := requirePositive("customerId", customerID); err != nil {
		return nil, p, err
	}
	if !caller.CanAccessCustomer(customerID) {
		return nil, p, forbidden("wallet")
	}
	p = p.Normalize()
	rows, total, err := s.Transactions.ListByCustomer(ctx, customerID, p)
	if err != nil {
		return nil, p, wrapErr(err)
	}
	p.Total = total
	return rows, p, nil
}
