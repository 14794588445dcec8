package domain

import "strings"

// ID is used across domain entities.
type ID int64

// Status represents a lightweight state value.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Cancellable reports whether a booking in this status may still be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusConfirmed || s == StatusPending
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Tier is a discrete loyalty level.
type Tier string

const (
	TierRegular  Tier = "regular"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

var tierRank = map[Tier]int{
	TierRegular:  0,
	TierSilver:   1,
	TierGold:     2,
	TierPlatinum: 3,
}

// Rank orders tiers regular < silver < gold < platinum. Unknown tiers rank -1.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

func (t Tier) Valid() bool { return t.Rank() >= 0 }

// ParseTier normalizes stored tier values; empty or unknown values read as regular.
func ParseTier(s string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return TierRegular
	}
	return t
}

// PaymentMethod is how a booking was settled.
type PaymentMethod string

const (
	PaymentWallet   PaymentMethod = "wallet"
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentWallet, PaymentCash, PaymentTransfer, PaymentCard:
		return true
	}
	return false
}

// TxType classifies wallet ledger rows.
type TxType string

const (
	TxTopUp   TxType = "top_up"
	TxPayment TxType = "payment"
	TxRefund  TxType = "refund"
)

// SeatStatus is the explicit flag kept on a seat slot.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatBlocked   SeatStatus = "blocked"
)

const RoleAdmin = "admin"

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total,omitempty"`
}

// Normalize clamps page values into a sane window.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID ID     `json:"userId"`
	Role   string `json:"role"`
	// Anonymous is set when identity enforcement is disabled.
	Anonymous bool `json:"-"`
}

func (rc RequestContext) IsAdmin() bool {
	return rc.Anonymous || rc.Role == RoleAdmin
}

// Actor returns the label stored in audit columns.
func (rc RequestContext) Actor() string {
	switch {
	case rc.Anonymous:
		return "system"
	case rc.Role != "":
		return rc.Role + ":" + itoa(int64(rc.UserID))
	default:
		return "user:" + itoa(int64(rc.UserID))
	}
}

// CanAccessCustomer reports whether the caller may act on the given customer's resources.
func (rc RequestContext) CanAccessCustomer(customerID int64) bool {
	return rc.IsAdmin() || int64(rc.UserID) == customerID
}
