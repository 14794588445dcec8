package services

import (
	"context"
	"testing"
	"time"

	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
)

func ticketLoader(status domain.Status) func(context.Context, domain.RequestContext, int64) (ticketDocData, error) {
	return func(_ context.Context, _ domain.RequestContext, id int64) (ticketDocData, error) {
		return ticketDocData{
			Booking: models.Booking{
				ID:               id,
				TripID:           3,
				SeatID:           "A1",
				CustomerID:       7,
				Status:           status,
				PaymentMethod:    domain.PaymentWallet,
				TotalPrice:       domain.MoneyFromMajor(4500),
				BookingReference: "BK12AB34CD",
				Passenger:        &models.Passenger{Name: "Tester", Phone: "0800"},
			},
			Trip: models.Trip{
				ID:          3,
				RouteFrom:   "CityA",
				RouteTo:     "CityB",
				DepartureAt: time.Now().Add(24 * time.Hour),
			},
		}, nil
	}
}

func TestDocsServiceGenerateETicket(t *testing.T) {
	svc := DocsService{TicketLoader: ticketLoader(domain.StatusConfirmed)}

	pdf, filename, err := svc.GenerateETicket(context.Background(), domain.RequestContext{UserID: 7}, 10)
	if err != nil {
		t.Fatalf("GenerateETicket returned error: %v", err)
	}
	if len(pdf) == 0 || filename != "ETICKET_BK12AB34CD_A1.pdf" {
		t.Fatalf("unexpected output: %d bytes, filename %q", len(pdf), filename)
	}
}

func TestDocsServiceETicketRejectsCancelledAndForeign(t *testing.T) {
	svc := DocsService{TicketLoader: ticketLoader(domain.StatusCancelled)}
	if _, _, err := svc.GenerateETicket(context.Background(), domain.RequestContext{Anonymous: true}, 10); !domain.IsConflict(err) {
		t.Fatalf("expected conflict for cancelled booking, got %v", err)
	}

	svc.TicketLoader = ticketLoader(domain.StatusConfirmed)
	if _, _, err := svc.GenerateETicket(context.Background(), domain.RequestContext{UserID: 8}, 10); !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized for another customer, got %v", err)
	}
}

func TestDocsServiceGenerateStatement(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := DocsService{StatementLoader: func(_ context.Context, id int64) (statementDocData, error) {
		return statementDocData{
			Customer: models.Customer{ID: id, Name: "Tester", Tier: domain.TierGold, WalletBalance: domain.MoneyFromMajor(500)},
			Transactions: []models.WalletTransaction{
				{Type: domain.TxTopUp, Amount: domain.MoneyFromMajor(5000), BalanceAfter: domain.MoneyFromMajor(5000), Reference: "TOPUP-1", CreatedAt: at},
				{Type: domain.TxPayment, Amount: domain.MoneyFromMajor(4500), BalanceAfter: domain.MoneyFromMajor(500), Reference: "BK12AB34CD", CreatedAt: at},
			},
			GeneratedAt: at,
		}, nil
	}}

	pdf, filename, err := svc.GenerateStatement(context.Background(), domain.RequestContext{UserID: 7}, 7)
	if err != nil {
		t.Fatalf("GenerateStatement returned error: %v", err)
	}
	if len(pdf) == 0 || filename != "STATEMENT_7_20260301.pdf" {
		t.Fatalf("unexpected output: %d bytes, filename %q", len(pdf), filename)
	}
}
