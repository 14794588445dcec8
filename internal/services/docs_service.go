package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
	"seatledger/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders e-tickets and wallet statements as PDF.
type DocsService struct {
	Bookings        BookingService
	Wallet          WalletService
	RequestID       string
	TicketLoader    func(context.Context, domain.RequestContext, int64) (ticketDocData, error)
	StatementLoader func(context.Context, int64) (statementDocData, error)
}

type ticketDocData struct {
	Booking      models.Booking
	Trip         models.Trip
	CustomerName string
}

type statementDocData struct {
	Customer     models.Customer
	Transactions []models.WalletTransaction
	GeneratedAt  time.Time
}

func (s DocsService) WithRequestID(requestID string) DocsService {
	s.RequestID = requestID
	s.Bookings = s.Bookings.WithRequestID(requestID)
	s.Wallet.RequestID = requestID
	return s
}

// GenerateETicket renders the ticket of a confirmed or completed booking.
func (s DocsService) GenerateETicket(ctx context.Context, caller domain.RequestContext, bookingID int64) ([]byte, string, error) {
	if err := requirePositive("bookingId", bookingID); err != nil {
		return nil, "", err
	}
	data, err := s.loadTicket(ctx, caller, bookingID)
	if err != nil {
		return nil, "", err
	}
	if !caller.CanAccessCustomer(data.Booking.CustomerID) {
		return nil, "", forbidden("booking")
	}
	switch data.Booking.Status {
	case domain.StatusConfirmed, domain.StatusCompleted:
	default:
		return nil, "", domain.ConflictError{Resource: "booking", Msg: "no ticket for a " + string(data.Booking.Status) + " booking"}
	}
	utils.LogEvent(s.RequestID, "docs", "generate_eticket", fmt.Sprintf("booking_id=%d", bookingID))
	return buildETicketPDF(data)
}

// GenerateStatement renders the most recent wallet movements of a customer.
func (s DocsService) GenerateStatement(ctx context.Context, caller domain.RequestContext, customerID int64) ([]byte, string, error) {
	if err := requirePositive("customerId", customerID); err != nil {
		return nil, "", err
	}
	if !caller.CanAccessCustomer(customerID) {
		return nil, "", forbidden("wallet")
	}
	data, err := s.loadStatement(ctx, customerID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_statement", fmt.Sprintf("customer_id=%d rows=%d", customerID, len(data.Transactions)))
	return buildStatementPDF(data)
}

func (s DocsService) loadTicket(ctx context.Context, caller domain.RequestContext, bookingID int64) (ticketDocData, error) {
	if s.TicketLoader != nil {
		return s.TicketLoader(ctx, caller, bookingID)
	}
	b, err := s.Bookings.Get(ctx, caller, bookingID)
	if err != nil {
		return ticketDocData{}, err
	}
	trip, err := s.Bookings.Trips.GetByID(ctx, b.TripID)
	if err != nil {
		return ticketDocData{}, wrapErr(notFound("trip", err))
	}
	out := ticketDocData{Booking: b, Trip: trip}
	if c, err := s.Bookings.Customers.GetByID(ctx, b.CustomerID); err == nil {
		out.CustomerName = c.Name
	}
	return out, nil
}

func (s DocsService) loadStatement(ctx context.Context, customerID int64) (statementDocData, error) {
	if s.StatementLoader != nil {
		return s.StatementLoader(ctx, customerID)
	}
	c, err := s.Wallet.Customers.GetByID(ctx, customerID)
	if err != nil {
		return statementDocData{}, wrapErr(notFound("customer", err))
	}
	rows, _, err := s.Wallet.Transactions.ListByCustomer(ctx, customerID, domain.Pagination{Page: 1, PageSize: 100})
	if err != nil {
		return statementDocData{}, wrapErr(err)
	}
	return statementDocData{Customer: c, Transactions: rows, GeneratedAt: time.Now()}, nil
}

func buildETicketPDF(d ticketDocData) ([]byte, string, error) {
	b := d.Booking
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	passenger := d.CustomerName
	phone := ""
	if b.Passenger != nil {
		passenger = b.Passenger.Name
		phone = b.Passenger.Phone
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Passenger   : %s", safe(passenger, "-")),
		fmt.Sprintf("Phone       : %s", safe(phone, "-")),
		fmt.Sprintf("Seat        : %s", safe(b.SeatID, "-")),
		fmt.Sprintf("Route       : %s -> %s", safe(d.Trip.RouteFrom, "-"), safe(d.Trip.RouteTo, "-")),
		fmt.Sprintf("Departure   : %s %s", utils.FormatDate(d.Trip.DepartureAt), utils.FormatHM(d.Trip.DepartureAt)),
		fmt.Sprintf("Paid        : %s (%s)", utils.FormatAmount(b.TotalPrice), b.PaymentMethod),
		fmt.Sprintf("Reference   : %s", b.BookingReference),
		fmt.Sprintf("Ticket code : TCK-%d-%s", b.ID, safeFilenamePart(b.SeatID)),
	}
	if b.GroupID != "" {
		lines = append(lines, fmt.Sprintf("Group       : %s", b.GroupID))
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Valid for one passenger on one seat. Show it at boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("ETICKET_%s_%s.pdf", safeFilenamePart(b.BookingReference), safeFilenamePart(b.SeatID))
	return buf.Bytes(), filename, nil
}

func buildStatementPDF(d statementDocData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Wallet statement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "WALLET STATEMENT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Customer : %s (#%d)", safe(d.Customer.Name, "-"), d.Customer.ID))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Tier     : %s, %d points", d.Customer.Tier, d.Customer.LoyaltyPoints))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Balance  : "+utils.FormatAmount(d.Customer.WalletBalance))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Printed  : "+utils.FormatDateTime(d.GeneratedAt))
	pdf.Ln(10)

	widths := []float64{38, 22, 30, 30, 70}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"Date", "Type", "Amount", "Balance", "Reference"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	if len(d.Transactions) == 0 {
		pdf.CellFormat(190, 7, "No transactions", "1", 1, "C", false, 0, "")
	}
	for _, wt := range d.Transactions {
		amount := utils.FormatAmount(wt.Amount)
		if wt.Type == domain.TxPayment {
			amount = "-" + amount
		}
		pdf.CellFormat(widths[0], 6, utils.FormatDateTime(wt.CreatedAt), "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[1], 6, string(wt.Type), "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[2], 6, amount, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, utils.FormatAmount(wt.BalanceAfter), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, safe(wt.Reference, "-"), "1", 0, "", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("STATEMENT_%d_%s.pdf", d.Customer.ID, d.GeneratedAt.Format("20060102"))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
