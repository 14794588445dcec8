package services

import (
	"context"
	"fmt"
	"time"

	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
	"seatledger/internal/messaging"

	"github.com/google/uuid"
)

// EventSink turns committed state changes into post-commit tasks. The zero value
// drops everything, which is what tests and tools without brokers want.
type EventSink struct {
	Dispatcher  *messaging.Dispatcher
	Notifier    messaging.Notifier
	Broadcaster messaging.Broadcaster
}

func (e EventSink) notify(n messaging.Notification) {
	if e.Dispatcher == nil || e.Notifier == nil {
		return
	}
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	notifier := e.Notifier
	e.Dispatcher.Dispatch(messaging.Task{
		Name: "notify:" + n.Type,
		Run:  func(ctx context.Context) error { return notifier.Notify(ctx, n) },
	})
}

func (e EventSink) broadcast(ev messaging.Event) {
	if e.Dispatcher == nil || e.Broadcaster == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.OccurredAt = time.Now().UTC()
	b := e.Broadcaster
	e.Dispatcher.Dispatch(messaging.Task{
		Name: "broadcast:" + ev.Type,
		Run:  func(ctx context.Context) error { return b.Broadcast(ctx, ev) },
	})
}

func seatsAndIDs(bs []models.Booking) ([]string, []int64) {
	seats := make([]string, 0, len(bs))
	ids := make([]int64, 0, len(bs))
	for _, b := range bs {
		seats = append(seats, b.SeatID)
		ids = append(ids, b.ID)
	}
	return seats, ids
}

// BookingsConfirmed covers both single and group creation.
func (e EventSink) BookingsConfirmed(bs []models.Booking, groupID string, total domain.Money) {
	if len(bs) == 0 {
		return
	}
	seats, ids := seatsAndIDs(bs)
	typ, title := "booking.confirmed", "Booking confirmed"
	body := fmt.Sprintf("Booking %s confirmed for seat %s.", bs[0].BookingReference, bs[0].SeatID)
	if groupID != "" {
		typ, title = "group.confirmed", "Group booking confirmed"
		body = fmt.Sprintf("%d seats confirmed, total %s.", len(bs), total)
	}
	e.notify(messaging.Notification{
		CustomerID: bs[0].CustomerID,
		Type:       typ,
		Title:      title,
		Body:       body,
		Data:       map[string]any{"bookingIds": ids, "groupId": groupID, "tripId": bs[0].TripID},
	})
	e.broadcast(messaging.Event{
		Type:       "seat.reserved",
		TripID:     bs[0].TripID,
		SeatIDs:    seats,
		BookingIDs: ids,
		GroupID:    groupID,
		Status:     string(domain.SeatReserved),
	})
}

func (e EventSink) BookingsCancelled(bs []models.Booking, refunded domain.Money) {
	if len(bs) == 0 {
		return
	}
	seats, ids := seatsAndIDs(bs)
	body := fmt.Sprintf("%d booking(s) cancelled.", len(bs))
	if refunded > 0 {
		body += fmt.Sprintf(" %s refunded to your wallet.", refunded)
	}
	e.notify(messaging.Notification{
		CustomerID: bs[0].CustomerID,
		Type:       "booking.cancelled",
		Title:      "Booking cancelled",
		Body:       body,
		Data:       map[string]any{"bookingIds": ids, "groupId": bs[0].GroupID},
	})
	e.broadcast(messaging.Event{
		Type:       "seat.released",
		TripID:     bs[0].TripID,
		SeatIDs:    seats,
		BookingIDs: ids,
		GroupID:    bs[0].GroupID,
		Status:     string(domain.SeatAvailable),
	})
}

func (e EventSink) BookingModified(b models.Booking, oldSeat string) {
	e.notify(messaging.Notification{
		CustomerID: b.CustomerID,
		Type:       "booking.modified",
		Title:      "Seat changed",
		Body:       fmt.Sprintf("Booking %s moved from seat %s to %s.", b.BookingReference, oldSeat, b.SeatID),
		Data:       map[string]any{"bookingId": b.ID, "oldSeatId": oldSeat, "newSeatId": b.SeatID},
	})
	e.broadcast(messaging.Event{
		Type:       "seat.swapped",
		TripID:     b.TripID,
		SeatIDs:    []string{oldSeat, b.SeatID},
		BookingIDs: []int64{b.ID},
		Status:     string(domain.SeatReserved),
	})
}

func (e EventSink) TierUpgraded(res models.LoyaltyResult) {
	if !res.TierUpgraded {
		return
	}
	e.notify(messaging.Notification{
		CustomerID: res.CustomerID,
		Type:       "tier.upgraded",
		Title:      "Tier upgraded",
		Body:       fmt.Sprintf("You are now %s with %d points.", res.TierAfter, res.PointsAfter),
		Data:       map[string]any{"from": res.TierBefore, "to": res.TierAfter},
	})
}

func (e EventSink) WalletCredited(wt models.WalletTransaction) {
	e.notify(messaging.Notification{
		CustomerID: wt.CustomerID,
		Type:       "wallet." + string(wt.Type),
		Title:      "Wallet credited",
		Body:       fmt.Sprintf("%s credited, balance %s.", wt.Amount, wt.BalanceAfter),
		Data:       map[string]any{"transactionId": wt.ID, "reference": wt.Reference},
	})
}

func (e EventSink) SeatFlagChanged(tripID int64, seatID string, status domain.SeatStatus) {
	e.broadcast(messaging.Event{
		Type:    "seat.flag",
		TripID:  tripID,
		SeatIDs: []string{seatID},
		Status:  string(status),
	})
}
