package models

import (
	"time"

	"seatledger/internal/domain"
)

// WalletTransaction is one append-only ledger row paired with a balance mutation.
type WalletTransaction struct {
	ID            int64         `json:"id"`
	CustomerID    int64         `json:"customerId"`
	Amount        domain.Money  `json:"amount"`
	Type          domain.TxType `json:"type"`
	BalanceBefore domain.Money  `json:"balanceBefore"`
	BalanceAfter  domain.Money  `json:"balanceAfter"`
	Reference     string        `json:"reference"`
	Description   string        `json:"description"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// TopUpInput credits a wallet from an external payment method.
type TopUpInput struct {
	CustomerID int64
	Amount     domain.Money
	Method     string
	Reference  string
}

// Balance is the client view of a wallet.
type Balance struct {
	CustomerID int64        `json:"customerId"`
	Balance    domain.Money `json:"balance"`
}
