package models

import "seatledger/internal/domain"

// Customer holds the directory fields the engine reads and writes.
type Customer struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Tier          domain.Tier  `json:"tier"`
	LoyaltyPoints int64        `json:"loyaltyPoints"`
	WalletBalance domain.Money `json:"walletBalance"`
}

// LoyaltyResult reports an accrual and whether it crossed a tier threshold.
type LoyaltyResult struct {
	CustomerID   int64       `json:"customerId"`
	PointsEarned int64       `json:"pointsEarned"`
	PointsBefore int64       `json:"pointsBefore"`
	PointsAfter  int64       `json:"pointsAfter"`
	TierBefore   domain.Tier `json:"tierBefore"`
	TierAfter    domain.Tier `json:"tierAfter"`
	TierUpgraded bool        `json:"tierUpgraded"`
}

// TierRepair reports what recalculateTier changed.
type TierRepair struct {
	CustomerID int64       `json:"customerId"`
	Points     int64       `json:"points"`
	Before     domain.Tier `json:"before"`
	After      domain.Tier `json:"after"`
	Changed    bool        `json:"changed"`
}
