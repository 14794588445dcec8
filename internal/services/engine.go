package services

import (
	"database/sql"
	"time"

	"seatledger/internal/repositories"
	"seatledger/internal/tier"
)

// EngineOptions carries the tunables read from configuration.
type EngineOptions struct {
	ModifyCutoff  time.Duration
	MaxGroupSeats int
}

// Engine bundles the services that share one pool, one tier table and one event sink.
type Engine struct {
	Seats    SeatInventory
	Wallet   WalletService
	Loyalty  LoyaltyService
	Bookings BookingService
	Groups   GroupCoordinator
	Docs     DocsService
}

func NewEngine(db *sql.DB, tiers tier.Table, events EventSink, opts EngineOptions) Engine {
	customers := repositories.CustomerRepo{DB: db}
	seats := SeatInventory{DB: db, Seats: repositories.SeatRepo{DB: db}, Events: events}
	wallet := WalletService{
		DB:           db,
		Customers:    customers,
		Transactions: repositories.WalletRepo{DB: db},
		Events:       events,
	}
	loyalty := LoyaltyService{
		DB:        db,
		Customers: customers,
		Ledger:    repositories.LoyaltyRepo{DB: db},
		Tiers:     tiers,
		Events:    events,
	}
	bookings := BookingService{
		DB:           db,
		Bookings:     repositories.BookingRepo{DB: db},
		Passengers:   repositories.PassengerRepository{DB: db},
		Trips:        repositories.TripRepo{DB: db},
		Customers:    customers,
		Seats:        seats,
		Wallet:       wallet,
		Loyalty:      loyalty,
		Events:       events,
		ModifyCutoff: opts.ModifyCutoff,
	}
	return Engine{
		Seats:    seats,
		Wallet:   wallet,
		Loyalty:  loyalty,
		Bookings: bookings,
		Groups:   GroupCoordinator{Bookings: bookings, MaxSeats: opts.MaxGroupSeats},
		Docs:     DocsService{Bookings: bookings, Wallet: wallet},
	}
}

// WithRequestID returns a copy whose services log under requestID.
func (e Engine) WithRequestID(requestID string) Engine {
	e.Seats.RequestID = requestID
	e.Wallet.RequestID = requestID
	e.Loyalty.RequestID = requestID
	e.Bookings = e.Bookings.WithRequestID(requestID)
	e.Groups = e.Groups.WithRequestID(requestID)
	e.Docs = e.Docs.WithRequestID(requestID)
	return e
}
