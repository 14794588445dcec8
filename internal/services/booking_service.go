package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
	"seatledger/internal/repositories"
	"seatledger/internal/utils"

	"github.com/google/uuid"
)

const (
	keyActiveSeat       = "uniq_active_seat"
	keyBookingReference = "uniq_booking_reference"
	maxReasonLen        = 255
)

// BookingService is the booking ledger: create, cancel, modify and the admin lifecycle
// operations. Every write runs in one transaction together with its seat locks, wallet
// movement and loyalty accrual; notifications are dispatched only after commit.
type BookingService struct {
	DB           *sql.DB
	Bookings     repositories.BookingRepo
	Passengers   repositories.PassengerRepository
	Trips        repositories.TripRepo
	Customers    repositories.CustomerRepo
	Seats        SeatInventory
	Wallet       WalletService
	Loyalty      LoyaltyService
	Events       EventSink
	ModifyCutoff time.Duration
	Now          func() time.Time
	NewReference func() string
	RequestID    string
}

// WithRequestID returns a copy whose logs carry requestID.
func (s BookingService) WithRequestID(requestID string) BookingService {
	s.RequestID = requestID
	s.Seats.RequestID = requestID
	s.Wallet.RequestID = requestID
	s.Loyalty.RequestID = requestID
	return s
}

func (s BookingService) now() time.Time { return nowFunc(s.Now) }

func (s BookingService) reference() string {
	if s.NewReference != nil {
		return s.NewReference()
	}
	return NewBookingReference()
}

func (s BookingService) modifyCutoff() time.Duration {
	if s.ModifyCutoff > 0 {
		return s.ModifyCutoff
	}
	return 2 * time.Hour
}

// NewBookingReference returns a short code such as "BK7F3A9C2E".
func NewBookingReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BK" + strings.ToUpper(raw[:8])
}

// openTripTx loads the authoritative trip row and rejects trips that can no longer be sold.
func (s BookingService) openTripTx(ctx context.Context, tx *sql.Tx, tripID int64) (models.Trip, error) {
	trip, err := s.Trips.GetByIDTx(ctx, tx, tripID)
	if err != nil {
		return models.Trip{}, notFound("trip", err)
	}
	switch trip.Status {
	case "completed", "cancelled":
		return models.Trip{}, domain.ValidationError{Field: "tripId", Msg: "trip is " + trip.Status}
	}
	if trip.Departed(s.now()) {
		return models.Trip{}, domain.ValidationError{Field: "tripId", Msg: "trip already departed"}
	}
	return trip, nil
}

// insertTx writes one confirmed booking, its optional passenger, and takes the seat flag.
// A clash on the booking reference is retried with a fresh code.
func (s BookingService) insertTx(ctx context.Context, tx *sql.Tx, nb models.NewBooking, p *models.PassengerInput) (models.Booking, error) {
	var id int64
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		nb.BookingReference = s.reference()
		id, err = s.Bookings.InsertTx(ctx, tx, nb)
		if err == nil || !intdb.IsDuplicateKey(err, keyBookingReference) {
			break
		}
	}
	if err != nil {
		if intdb.IsDuplicateKey(err, keyActiveSeat) {
			return models.Booking{}, domain.ConflictError{
				Resource: "seat",
				Msg:      fmt.Sprintf("seat %s is already booked", nb.SeatID),
				Err:      err,
			}
		}
		return models.Booking{}, err
	}

	now := s.now()
	b := models.Booking{
		ID:               id,
		TripID:           nb.TripID,
		SeatID:           nb.SeatID,
		CustomerID:       nb.CustomerID,
		Status:           nb.Status,
		PaymentMethod:    nb.PaymentMethod,
		TotalPrice:       nb.TotalPrice,
		BookingReference: nb.BookingReference,
		GroupID:          nb.GroupID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p != nil && !p.Empty() {
		passenger, err := s.Passengers.InsertTx(ctx, tx, id, *p)
		if err != nil {
			return models.Booking{}, err
		}
		b.Passenger = &passenger
	}
	if err := s.Seats.AssignTx(ctx, tx, nb.TripID, nb.SeatID, id); err != nil {
		return models.Booking{}, err
	}
	return b, nil
}

func validateCreate(tripID, customerID int64, method domain.PaymentMethod) error {
	if err := requirePositive("tripId", tripID); err != nil {
		return err
	}
	if err := requirePositive("customerId", customerID); err != nil {
		return err
	}
	if !method.Valid() {
		return domain.ValidationError{Field: "paymentMethod", Msg: "must be one of wallet, cash, transfer, card"}
	}
	return nil
}

// Create books one seat. The price always comes from the trip row and the customer's tier.
func (s BookingService) Create(ctx context.Context, caller domain.RequestContext, in models.CreateBookingInput) (models.BookingResult, error) {
	in.SeatID = utils.NormalizeSeatID(in.SeatID)
	if err := validateCreate(in.TripID, in.CustomerID, in.PaymentMethod); err != nil {
		return models.BookingResult{}, err
	}
	if in.SeatID == "" {
		return models.BookingResult{}, domain.ValidationError{Field: "seatId", Msg: "required"}
	}
	if !caller.CanAccessCustomer(in.CustomerID) {
		return models.BookingResult{}, forbidden("customer")
	}

	var out models.BookingResult
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		trip, err := s.openTripTx(ctx, tx, in.TripID)
		if err != nil {
			return err
		}
		cust, err := s.Customers.GetForUpdateTx(ctx, tx, in.CustomerID)
		if err != nil {
			return notFound("customer", err)
		}
		price := s.Loyalty.Tiers.Price(trip.BasePrice, cust.Tier)

		if err := s.Seats.ReserveTx(ctx, tx, trip.ID, []string{in.SeatID}, 0); err != nil {
			return err
		}
		b, err := s.insertTx(ctx, tx, models.NewBooking{
			TripID:        trip.ID,
			SeatID:        in.SeatID,
			CustomerID:    cust.ID,
			Status:        domain.StatusConfirmed,
			PaymentMethod: in.PaymentMethod,
			TotalPrice:    price,
		}, in.Passenger)
		if err != nil {
			return err
		}

		desc := "Booking " + b.BookingReference
		if in.PaymentMethod == domain.PaymentWallet {
			if _, err := s.Wallet.DebitTx(ctx, tx, &cust, price, b.BookingReference, desc); err != nil {
				return err
			}
		}
		loyalty, err := s.Loyalty.AccrueTx(ctx, tx, &cust, price, desc)
		if err != nil {
			return err
		}
		out = models.BookingResult{Booking: b, Loyalty: &loyalty}
		return nil
	})
	if err != nil {
		return models.BookingResult{}, wrapErr(err)
	}

	b := out.Booking
	utils.LogEvent(s.RequestID, "booking", "create",
		fmt.Sprintf("booking_id=%d trip_id=%d seat=%s price=%s", b.ID, b.TripID, b.SeatID, b.TotalPrice))
	s.Events.BookingsConfirmed([]models.Booking{b}, "", b.TotalPrice)
	s.Loyalty.afterAccrual(*out.Loyalty)
	return out, nil
}

func (s BookingService) Get(ctx context.Context, caller domain.RequestContext, bookingID int64) (models.Booking, error) {
	if err := requirePositive("bookingId", bookingID); err != nil {
		return models.Booking{}, err
	}
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return models.Booking{}, wrapErr(notFound("booking", err))
	}
	if !caller.CanAccessCustomer(b.CustomerID) {
		return models.Booking{}, forbidden("booking")
	}
	p, err := s.Passengers.GetByBookingID(ctx, bookingID)
	switch {
	case err == nil:
		b.Passenger = &p
	case !errors.Is(err, repositories.ErrNotFound):
		return models.Booking{}, wrapErr(err)
	}
	return b, nil
}

func (s BookingService) ListByCustomer(ctx context.Context, caller domain.RequestContext, customerID int64, p domain.Pagination) ([]models.Booking, domain.Pagination, error) {
	if err := requirePositive("customerId", customerID); err != nil {
		return nil, p, err
	}
	if !caller.CanAccessCustomer(customerID) {
		return nil, p, forbidden("customer")
	}
	p = p.Normalize()
	out, total, err := s.Bookings.ListByCustomer(ctx, customerID, p)
	if err != nil {
		return nil, p, wrapErr(err)
	}
	p.Total = total
	return out, p, nil
}

func cleanReason(reason string) (string, error) {
	reason = utils.NormalizeSpace(reason)
	if reason == "" {
		reason = "cancelled by customer"
	}
	if len(reason) > maxReasonLen {
		return "", domain.ValidationError{Field: "reason", Msg: "too long"}
	}
	return reason, nil
}

// Cancel cancels one booking. A grouped booking takes every still-cancellable sibling with it;
// siblings already cancelled or completed are reported as skipped.
func (s BookingService) Cancel(ctx context.Context, caller domain.RequestContext, bookingID int64, reason string) (models.CancelResult, error) {
	if err := requirePositive("bookingId", bookingID); err != nil {
		return models.CancelResult{}, err
	}
	reason, err := cleanReason(reason)
	if err != nil {
		return models.CancelResult{}, err
	}

	var out models.CancelResult
	err = intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		b, err := s.Bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return notFound("booking", err)
		}
		if !caller.CanAccessCustomer(b.CustomerID) {
			return forbidden("booking")
		}
		if !b.Status.Cancellable() {
			return domain.ConflictError{Resource: "booking", Msg: "booking is already " + string(b.Status)}
		}
		set := []models.Booking{b}
		if b.GroupID != "" {
			siblings, err := s.Bookings.ListByGroupForUpdateTx(ctx, tx, b.GroupID)
			if err != nil {
				return err
			}
			set = siblings
		}
		out, err = s.cancelSetTx(ctx, tx, set, reason)
		return err
	})
	if err != nil {
		return models.CancelResult{}, wrapErr(err)
	}
	s.afterCancel(out)
	return out, nil
}

// CancelGroup cancels every still-cancellable booking sharing groupID.
func (s BookingService) CancelGroup(ctx context.Context, caller domain.RequestContext, groupID, reason string) (models.CancelResult, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return models.CancelResult{}, domain.ValidationError{Field: "groupId", Msg: "required"}
	}
	reason, err := cleanReason(reason)
	if err != nil {
		return models.CancelResult{}, err
	}

	var out models.CancelResult
	err = intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		set, err := s.Bookings.ListByGroupForUpdateTx(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if len(set) == 0 {
			return domain.NotFoundError{Resource: "group"}
		}
		if !caller.CanAccessCustomer(set[0].CustomerID) {
			return forbidden("group")
		}
		live := 0
		for _, b := range set {
			if !b.Status.Terminal() {
				live++
			}
		}
		if live == 0 {
			return domain.ConflictError{Resource: "group", Msg: "no cancellable bookings in group"}
		}
		out, err = s.cancelSetTx(ctx, tx, set, reason)
		return err
	})
	if err != nil {
		return models.CancelResult{}, wrapErr(err)
	}
	s.afterCancel(out)
	return out, nil
}

// cancelSetTx cancels the cancellable members of set, refunds wallet-paid ones in a single
// refund row and frees their seat flags. All rows in set are already locked by tx.
func (s BookingService) cancelSetTx(ctx context.Context, tx *sql.Tx, set []models.Booking, reason string) (models.CancelResult, error) {
	out := models.CancelResult{Cancelled: []models.Booking{}}
	targets := make([]models.Booking, 0, len(set))
	for _, b := range set {
		if b.Status.Cancellable() {
			targets = append(targets, b)
		} else {
			out.Skipped = append(out.Skipped, b.ID)
		}
	}
	if len(targets) == 0 {
		return out, nil
	}

	trip, err := s.Trips.GetByIDTx(ctx, tx, targets[0].TripID)
	if err != nil {
		return out, notFound("trip", err)
	}
	now := s.now()
	if trip.Departed(now) {
		return out, domain.ValidationError{Field: "bookingId", Msg: "trip already departed"}
	}

	var refund domain.Money
	ids := make([]int64, 0, len(targets))
	for _, b := range targets {
		ids = append(ids, b.ID)
		if b.PaymentMethod == domain.PaymentWallet {
			refund += b.TotalPrice
		}
	}
	if refund > 0 {
		cust, err := s.Customers.GetForUpdateTx(ctx, tx, targets[0].CustomerID)
		if err != nil {
			return out, notFound("customer", err)
		}
		ref := targets[0].BookingReference
		if targets[0].GroupID != "" {
			ref = targets[0].GroupID
		}
		if _, err := s.Wallet.CreditTx(ctx, tx, &cust, refund, domain.TxRefund, ref, "Refund "+ref); err != nil {
			return out, err
		}
	}

	n, err := s.Bookings.CancelTx(ctx, tx, ids, reason, now)
	if err != nil {
		return out, err
	}
	if n != int64(len(ids)) {
		return out, domain.ConflictError{Resource: "booking", Msg: "booking changed during cancellation"}
	}
	for i := range targets {
		if err := s.Seats.ReleaseTx(ctx, tx, targets[i].TripID, targets[i].SeatID, targets[i].ID); err != nil {
			return out, err
		}
		targets[i].Status = domain.StatusCancelled
		targets[i].CancellationReason = reason
		at := now
		targets[i].CancelledAt = &at
	}
	out.Cancelled = targets
	out.Refunded = refund
	return out, nil
}

func (s BookingService) afterCancel(res models.CancelResult) {
	if len(res.Cancelled) == 0 {
		return
	}
	_, ids := seatsAndIDs(res.Cancelled)
	utils.LogEvent(s.RequestID, "booking", "cancel",
		fmt.Sprintf("booking_ids=%v skipped=%v refunded=%s", ids, res.Skipped, res.Refunded))
	s.Events.BookingsCancelled(res.Cancelled, res.Refunded)
}

// Modify moves a confirmed booking to another seat on the same trip. The booking row,
// the old slot and the new slot change in one transaction, so exactly one of the two
// seats is held afterwards.
func (s BookingService) Modify(ctx context.Context, caller domain.RequestContext, bookingID int64, newSeatID string) (models.Booking, error) {
	newSeatID = utils.NormalizeSeatID(newSeatID)
	if err := requirePositive("bookingId", bookingID); err != nil {
		return models.Booking{}, err
	}
	if newSeatID == "" {
		return models.Booking{}, domain.ValidationError{Field: "newSeatId", Msg: "required"}
	}

	var out models.Booking
	var oldSeat string
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		b, err := s.Bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return notFound("booking", err)
		}
		if !caller.CanAccessCustomer(b.CustomerID) {
			return forbidden("booking")
		}
		if b.Status != domain.StatusConfirmed {
			return domain.ConflictError{Resource: "booking", Msg: "only confirmed bookings can be modified"}
		}
		if b.SeatID == newSeatID {
			return domain.ValidationError{Field: "newSeatId", Msg: "same as current seat"}
		}
		trip, err := s.Trips.GetByIDTx(ctx, tx, b.TripID)
		if err != nil {
			return notFound("trip", err)
		}
		if trip.DepartureAt.Sub(s.now()) < s.modifyCutoff() {
			return domain.ValidationError{
				Field: "bookingId",
				Msg:   fmt.Sprintf("changes close %s before departure", s.modifyCutoff()),
			}
		}

		if err := s.Seats.ReserveTx(ctx, tx, trip.ID, []string{b.SeatID, newSeatID}, b.ID); err != nil {
			return err
		}
		if err := s.Bookings.UpdateSeatTx(ctx, tx, b.ID, newSeatID); err != nil {
			if intdb.IsDuplicateKey(err, keyActiveSeat) {
				return domain.ConflictError{Resource: "seat", Msg: fmt.Sprintf("seat %s is already booked", newSeatID), Err: err}
			}
			return err
		}
		if err := s.Seats.ReleaseTx(ctx, tx, trip.ID, b.SeatID, b.ID); err != nil {
			return err
		}
		if err := s.Seats.AssignTx(ctx, tx, trip.ID, newSeatID, b.ID); err != nil {
			return err
		}
		oldSeat = b.SeatID
		b.SeatID = newSeatID
		b.UpdatedAt = s.now()
		out = b
		return nil
	})
	if err != nil {
		return models.Booking{}, wrapErr(err)
	}
	utils.LogEvent(s.RequestID, "booking", "modify",
		fmt.Sprintf("booking_id=%d seat=%s->%s", out.ID, oldSeat, out.SeatID))
	s.Events.BookingModified(out, oldSeat)
	return out, nil
}

// CompleteTrip closes a trip and moves its confirmed bookings to completed.
func (s BookingService) CompleteTrip(ctx context.Context, tripID int64) (int64, error) {
	if err := requirePositive("tripId", tripID); err != nil {
		return 0, err
	}
	var n int64
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := s.Trips.GetByIDTx(ctx, tx, tripID); err != nil {
			return notFound("trip", err)
		}
		var err error
		n, err = s.Bookings.CompleteTripTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		return s.Trips.MarkCompletedTx(ctx, tx, tripID)
	})
	if err != nil {
		return 0, wrapErr(err)
	}
	utils.LogEvent(s.RequestID, "booking", "complete_trip", fmt.Sprintf("trip_id=%d completed=%d", tripID, n))
	return n, nil
}

// SoftDelete tombstones a booking. It is an administrative action; normal cancellation
// never deletes.
func (s BookingService) SoftDelete(ctx context.Context, caller domain.RequestContext, bookingID int64) error {
	if err := requirePositive("bookingId", bookingID); err != nil {
		return err
	}
	var b models.Booking
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		b, err = s.Bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return notFound("booking", err)
		}
		if err := s.Bookings.SoftDeleteTx(ctx, tx, b.ID, caller.Actor(), s.now()); err != nil {
			return err
		}
		if b.Status == domain.StatusConfirmed {
			return s.Seats.ReleaseTx(ctx, tx, b.TripID, b.SeatID, b.ID)
		}
		return nil
	})
	if err != nil {
		return wrapErr(err)
	}
	utils.LogEvent(s.RequestID, "booking", "soft_delete", fmt.Sprintf("booking_id=%d by=%s", b.ID, caller.Actor()))
	if b.Status == domain.StatusConfirmed {
		s.Events.SeatFlagChanged(b.TripID, b.SeatID, domain.SeatAvailable)
	}
	return nil
}

// PurgeTombstones removes soft-deleted bookings whose deletion is older than retention.
func (s BookingService) PurgeTombstones(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < 0 {
		return 0, domain.ValidationError{Field: "olderThan", Msg: "must not be negative"}
	}
	cutoff := s.now().Add(-retention)
	var n int64
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		n, err = s.Bookings.PurgeTombstonesTx(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return 0, wrapErr(err)
	}
	utils.LogEvent(s.RequestID, "booking", "purge_tombstones",
		fmt.Sprintf("cutoff=%s removed=%d", utils.FormatDateTime(cutoff), n))
	return n, nil
}
