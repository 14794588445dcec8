package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
	"seatledger/internal/utils"

	"github.com/google/uuid"
)

// DefaultMaxGroupSeats caps one group request.
const DefaultMaxGroupSeats = 10

// GroupCoordinator books several seats on one trip as a unit. Either every seat is
// booked and paid for, or nothing is persisted.
type GroupCoordinator struct {
	Bookings   BookingService
	MaxSeats   int
	NewGroupID func() string
}

func (g GroupCoordinator) WithRequestID(requestID string) GroupCoordinator {
	g.Bookings = g.Bookings.WithRequestID(requestID)
	return g
}

func (g GroupCoordinator) maxSeats() int {
	if g.MaxSeats > 0 {
		return g.MaxSeats
	}
	return DefaultMaxGroupSeats
}

func (g GroupCoordinator) groupID() string {
	if g.NewGroupID != nil {
		return g.NewGroupID()
	}
	return uuid.NewString()
}

// passengersBySeat matches passenger entries to requested seats. Entries without a
// seat id are assigned in request order.
func passengersBySeat(seats []string, in []models.PassengerInput) (map[string]*models.PassengerInput, error) {
	out := make(map[string]*models.PassengerInput, len(in))
	requested := make(map[string]bool, len(seats))
	for _, s := range seats {
		requested[s] = true
	}
	next := 0
	for i := range in {
		p := in[i]
		p.Name = utils.NormalizeSpace(p.Name)
		p.Phone = strings.TrimSpace(p.Phone)
		p.DocumentNo = strings.TrimSpace(p.DocumentNo)
		seat := utils.NormalizeSeatID(p.SeatID)
		if seat == "" {
			for next < len(seats) && out[seats[next]] != nil {
				next++
			}
			if next >= len(seats) {
				return nil, domain.ValidationError{Field: "passengers", Msg: "more passengers than seats"}
			}
			seat = seats[next]
		}
		if !requested[seat] {
			return nil, domain.ValidationError{Field: "passengers", Msg: fmt.Sprintf("seat %s is not part of the request", seat)}
		}
		if out[seat] != nil {
			return nil, domain.ValidationError{Field: "passengers", Msg: fmt.Sprintf("seat %s has two passengers", seat)}
		}
		p.SeatID = seat
		out[seat] = &p
	}
	return out, nil
}

// CreateGroup books every seat in one transaction under a fresh group id. The wallet is
// debited once for the total and loyalty accrues once on the total.
func (g GroupCoordinator) CreateGroup(ctx context.Context, caller domain.RequestContext, in models.CreateGroupInput) (models.GroupResult, error) {
	s := g.Bookings
	if err := validateCreate(in.TripID, in.CustomerID, in.PaymentMethod); err != nil {
		return models.GroupResult{}, err
	}
	seats, bad, ok := utils.CleanSeatList(in.Seats)
	if !ok {
		return models.GroupResult{}, domain.ValidationError{Field: "seats", Msg: "invalid or duplicate seat " + bad}
	}
	if len(seats) == 0 {
		return models.GroupResult{}, domain.ValidationError{Field: "seats", Msg: "required"}
	}
	if len(seats) > g.maxSeats() {
		return models.GroupResult{}, domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("at most %d seats per group", g.maxSeats())}
	}
	passengers, err := passengersBySeat(seats, in.Passengers)
	if err != nil {
		return models.GroupResult{}, err
	}
	if !caller.CanAccessCustomer(in.CustomerID) {
		return models.GroupResult{}, forbidden("customer")
	}

	groupID := g.groupID()
	var out models.GroupResult
	err = intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		trip, err := s.openTripTx(ctx, tx, in.TripID)
		if err != nil {
			return err
		}
		cust, err := s.Customers.GetForUpdateTx(ctx, tx, in.CustomerID)
		if err != nil {
			return notFound("customer", err)
		}
		unit := s.Loyalty.Tiers.Price(trip.BasePrice, cust.Tier)
		total := unit * domain.Money(len(seats))
		if in.PaymentMethod == domain.PaymentWallet && total > cust.WalletBalance {
			return domain.InsufficientBalanceError{CustomerID: cust.ID, Balance: cust.WalletBalance, Required: total}
		}

		if err := s.Seats.ReserveTx(ctx, tx, trip.ID, seats, 0); err != nil {
			return err
		}
		bookings := make([]models.Booking, 0, len(seats))
		for _, seat := range seats {
			b, err := s.insertTx(ctx, tx, models.NewBooking{
				TripID:        trip.ID,
				SeatID:        seat,
				CustomerID:    cust.ID,
				Status:        domain.StatusConfirmed,
				PaymentMethod: in.PaymentMethod,
				TotalPrice:    unit,
				GroupID:       groupID,
			}, passengers[seat])
			if err != nil {
				return err
			}
			bookings = append(bookings, b)
		}

		desc := fmt.Sprintf("Group booking %s (%d seats)", groupID, len(seats))
		if in.PaymentMethod == domain.PaymentWallet {
			if _, err := s.Wallet.DebitTx(ctx, tx, &cust, total, groupID, desc); err != nil {
				return err
			}
		}
		loyalty, err := s.Loyalty.AccrueTx(ctx, tx, &cust, total, desc)
		if err != nil {
			return err
		}
		out = models.GroupResult{GroupID: groupID, TotalPrice: total, Bookings: bookings, Loyalty: &loyalty}
		return nil
	})
	if err != nil {
		return models.GroupResult{}, wrapErr(err)
	}

	utils.LogEvent(s.RequestID, "group", "create",
		fmt.Sprintf("group_id=%s trip_id=%d seats=%s total=%s", groupID, in.TripID, strings.Join(seats, ","), out.TotalPrice))
	s.Events.BookingsConfirmed(out.Bookings, groupID, out.TotalPrice)
	s.Loyalty.afterAccrual(*out.Loyalty)
	return out, nil
}

// GetGroup lists the live bookings of a group.
func (g GroupCoordinator) GetGroup(ctx context.Context, caller domain.RequestContext, groupID string) ([]models.Booking, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, domain.ValidationError{Field: "groupId", Msg: "required"}
	}
	bs, err := g.Bookings.Bookings.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(bs) == 0 {
		return nil, domain.NotFoundError{Resource: "group"}
	}
	if !caller.CanAccessCustomer(bs[0].CustomerID) {
		return nil, forbidden("group")
	}
	return bs, nil
}

func (g GroupCoordinator) CancelGroup(ctx context.Context, caller domain.RequestContext, groupID, reason string) (models.CancelResult, error) {
	return g.Bookings.CancelGroup(ctx, caller, groupID, reason)
}
