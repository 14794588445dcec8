package models

import (
	"time"

	"seatledger/internal/domain"
)

// Booking is one seat on one trip held by one customer.
type Booking struct {
	ID                 int64                `json:"id"`
	TripID             int64                `json:"tripId"`
	SeatID             string               `json:"seatId"`
	CustomerID         int64                `json:"customerId"`
	Status             domain.Status        `json:"status"`
	PaymentMethod      domain.PaymentMethod `json:"paymentMethod"`
	TotalPrice         domain.Money         `json:"totalPrice"`
	BookingReference   string               `json:"bookingReference"`
	GroupID            string               `json:"groupId,omitempty"`
	CancellationReason string               `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time           `json:"cancelledAt,omitempty"`
	IsDeleted          bool                 `json:"isDeleted"`
	DeletedAt          *time.Time           `json:"deletedAt,omitempty"`
	DeletedBy          string               `json:"deletedBy,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
	Passenger          *Passenger           `json:"passenger,omitempty"`
}

// NewBooking carries the server computed fields for an insert.
type NewBooking struct {
	TripID           int64
	SeatID           string
	CustomerID       int64
	Status           domain.Status
	PaymentMethod    domain.PaymentMethod
	TotalPrice       domain.Money
	BookingReference string
	GroupID          string
}

// Passenger is the optional identity record attached 1:1 to a booking.
type Passenger struct {
	ID         int64  `json:"id"`
	BookingID  int64  `json:"bookingId"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	DocumentNo string `json:"documentNo,omitempty"`
}

// PassengerInput carries per-seat passenger info.
type PassengerInput struct {
	SeatID     string `json:"seatId"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	DocumentNo string `json:"documentNo"`
}

func (p PassengerInput) Empty() bool {
	return p.Name == "" && p.Phone == "" && p.DocumentNo == ""
}

// CreateBookingInput is the request for a single seat booking.
type CreateBookingInput struct {
	TripID        int64
	CustomerID    int64
	SeatID        string
	PaymentMethod domain.PaymentMethod
	Passenger     *PassengerInput
}

// CreateGroupInput is the request for a multi seat booking.
type CreateGroupInput struct {
	TripID        int64
	CustomerID    int64
	Seats         []string
	PaymentMethod domain.PaymentMethod
	Passengers    []PassengerInput
}

// GroupResult is returned after a group booking commits.
type GroupResult struct {
	GroupID    string         `json:"groupId"`
	TotalPrice domain.Money   `json:"totalPrice"`
	Bookings   []Booking      `json:"bookings"`
	Loyalty    *LoyaltyResult `json:"loyalty,omitempty"`
}

// BookingResult is returned after a single booking commits.
type BookingResult struct {
	Booking Booking        `json:"booking"`
	Loyalty *LoyaltyResult `json:"loyalty,omitempty"`
}

// CancelResult lists every booking touched by a cancel call.
type CancelResult struct {
	Cancelled []Booking    `json:"cancelled"`
	Skipped   []int64      `json:"skipped,omitempty"`
	Refunded  domain.Money `json:"refunded"`
}
