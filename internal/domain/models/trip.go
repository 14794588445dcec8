package models

import (
	"time"

	"seatledger/internal/domain"
)

// Trip is the catalog view the engine needs: authoritative price and departure.
type Trip struct {
	ID          int64        `json:"id"`
	RouteFrom   string       `json:"routeFrom"`
	RouteTo     string       `json:"routeTo"`
	DepartureAt time.Time    `json:"departureAt"`
	BasePrice   domain.Money `json:"basePrice"`
	Status      string       `json:"status"`
}

// Departed reports whether the trip has left relative to now.
func (t Trip) Departed(now time.Time) bool {
	return !t.DepartureAt.After(now)
}

// SeatSlot is the explicit flag row for (trip, seat).
type SeatSlot struct {
	TripID    int64             `json:"tripId"`
	SeatID    string            `json:"seatId"`
	Status    domain.SeatStatus `json:"status"`
	BookingID *int64            `json:"bookingId,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
