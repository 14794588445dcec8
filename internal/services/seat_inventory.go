package services

import (
	"context"
	"database/sql"
	"fmt"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
	"seatledger/internal/repositories"
	"seatledger/internal/utils"
)

// SeatInventory answers availability from booking rows and guards check-and-insert
// with row locks on trip_seats.
type SeatInventory struct {
	DB        *sql.DB
	Seats     repositories.SeatRepo
	Events    EventSink
	RequestID string
}

// CheckAvailability is a plain read. Callers that go on to write must use ReserveTx instead.
func (s SeatInventory) CheckAvailability(ctx context.Context, tripID int64, seatID string, excludeBookingID int64) (bool, error) {
	seatID = utils.NormalizeSeatID(seatID)
	if err := requirePositive("tripId", tripID); err != nil {
		return false, err
	}
	if seatID == "" {
		return false, domain.ValidationError{Field: "seatId", Msg: "required"}
	}
	taken, err := s.Seats.TakenSeats(ctx, s.DB, tripID, []string{seatID}, excludeBookingID)
	if err != nil {
		return false, wrapErr(err)
	}
	if taken[seatID] {
		return false, nil
	}
	status, err := s.Seats.SlotStatus(ctx, tripID, seatID)
	if err != nil {
		return false, wrapErr(err)
	}
	return status != domain.SeatBlocked, nil
}

// ReserveTx locks the slots for seats and fails with ConflictError if any of them is
// blocked or held by a live booking other than excludeBookingID. The locks are held
// until tx ends, so the caller's insert cannot race another reservation.
func (s SeatInventory) ReserveTx(ctx context.Context, tx *sql.Tx, tripID int64, seats []string, excludeBookingID int64) error {
	if err := s.Seats.EnsureSlotsTx(ctx, tx, tripID, seats); err != nil {
		return err
	}
	slots, err := s.Seats.LockSlotsTx(ctx, tx, tripID, seats)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		switch {
		case slot.Status == domain.SeatBlocked:
			return domain.ConflictError{Resource: "seat", Msg: fmt.Sprintf("seat %s is blocked", slot.SeatID)}
		case slot.Status == domain.SeatReserved && (slot.BookingID == nil || *slot.BookingID != excludeBookingID):
			return domain.ConflictError{Resource: "seat", Msg: fmt.Sprintf("seat %s is already booked", slot.SeatID)}
		}
	}
	taken, err := s.Seats.TakenSeatsTx(ctx, tx, tripID, seats, excludeBookingID)
	if err != nil {
		return err
	}
	for _, seat := range seats {
		if taken[seat] {
			return domain.ConflictError{Resource: "seat", Msg: fmt.Sprintf("seat %s is already booked", seat)}
		}
	}
	return nil
}

func (s SeatInventory) AssignTx(ctx context.Context, tx *sql.Tx, tripID int64, seatID string, bookingID int64) error {
	return s.Seats.SetSlotTx(ctx, tx, tripID, seatID, domain.SeatReserved, &bookingID)
}

func (s SeatInventory) ReleaseTx(ctx context.Context, tx *sql.Tx, tripID int64, seatID string, bookingID int64) error {
	return s.Seats.ReleaseTx(ctx, tx, tripID, seatID, bookingID)
}

// Block takes a free seat out of sale. A seat held by a live booking cannot be blocked.
func (s SeatInventory) Block(ctx context.Context, tripID int64, seatID string) error {
	seatID = utils.NormalizeSeatID(seatID)
	if err := requirePositive("tripId", tripID); err != nil {
		return err
	}
	if seatID == "" {
		return domain.ValidationError{Field: "seatId", Msg: "required"}
	}
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.ReserveTx(ctx, tx, tripID, []string{seatID}, 0); err != nil {
			return err
		}
		return s.Seats.SetSlotTx(ctx, tx, tripID, seatID, domain.SeatBlocked, nil)
	})
	if err != nil {
		return wrapErr(err)
	}
	utils.LogEvent(s.RequestID, "seats", "block", fmt.Sprintf("trip_id=%d seat=%s", tripID, seatID))
	s.Events.SeatFlagChanged(tripID, seatID, domain.SeatBlocked)
	return nil
}

// Unblock returns a blocked seat to sale. Seats that are not blocked are left alone.
func (s SeatInventory) Unblock(ctx context.Context, tripID int64, seatID string) error {
	seatID = utils.NormalizeSeatID(seatID)
	if err := requirePositive("tripId", tripID); err != nil {
		return err
	}
	if seatID == "" {
		return domain.ValidationError{Field: "seatId", Msg: "required"}
	}
	changed := false
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		slots, err := s.Seats.LockSlotsTx(ctx, tx, tripID, []string{seatID})
		if err != nil {
			return err
		}
		if len(slots) == 0 || slots[0].Status != domain.SeatBlocked {
			return nil
		}
		changed = true
		return s.Seats.SetSlotTx(ctx, tx, tripID, seatID, domain.SeatAvailable, nil)
	})
	if err != nil {
		return wrapErr(err)
	}
	if changed {
		utils.LogEvent(s.RequestID, "seats", "unblock", fmt.Sprintf("trip_id=%d seat=%s", tripID, seatID))
		s.Events.SeatFlagChanged(tripID, seatID, domain.SeatAvailable)
	}
	return nil
}

func (s SeatInventory) ListSeats(ctx context.Context, tripID int64) ([]models.SeatSlot, error) {
	if err := requirePositive("tripId", tripID); err != nil {
		return nil, err
	}
	slots, err := s.Seats.ListByTrip(ctx, tripID)
	return slots, wrapErr(err)
}
