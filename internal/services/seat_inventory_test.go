package services

import (
	"context"
	"testing"

	"seatledger/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCheckAvailabilityHonoursBookingsAndBlocks(t *testing.T) {
	eng, mock := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT seat_id FROM bookings").WithArgs(int64(3), "A1", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("A1"))
	ok, err := eng.Seats.CheckAvailability(ctx, 3, "a1", 0)
	if err != nil || ok {
		t.Fatalf("expected taken seat to be unavailable, got %v, %v", ok, err)
	}

	mock.ExpectQuery("SELECT seat_id FROM bookings").WithArgs(int64(3), "A1", int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
	mock.ExpectQuery("SELECT status FROM trip_seats").WithArgs(int64(3), "A1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("reserved"))
	ok, err = eng.Seats.CheckAvailability(ctx, 3, "A1", 101)
	if err != nil || !ok {
		t.Fatalf("expected seat to be free when excluding its own booking, got %v, %v", ok, err)
	}

	mock.ExpectQuery("SELECT seat_id FROM bookings").WithArgs(int64(3), "B1", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
	mock.ExpectQuery("SELECT status FROM trip_seats").WithArgs(int64(3), "B1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("blocked"))
	ok, err = eng.Seats.CheckAvailability(ctx, 3, "B1", 0)
	if err != nil || ok {
		t.Fatalf("expected blocked seat to be unavailable, got %v, %v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBlockRefusesBookedSeat(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	expectReserve(mock, 3, []string{"A1"}, 0, "A1")
	mock.ExpectRollback()

	if err := eng.Seats.Block(context.Background(), 3, "A1"); !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBlockAndUnblockFreeSeat(t *testing.T) {
	eng, mock := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	expectReserve(mock, 3, []string{"A1"}, 0)
	mock.ExpectExec("UPDATE trip_seats SET status = \\?, booking_id = \\?").
		WithArgs("blocked", nil, int64(3), "A1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	if err := eng.Seats.Block(ctx, 3, "A1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT trip_id, seat_id, status, booking_id FROM trip_seats").WithArgs(int64(3), "A1").
		WillReturnRows(sqlmock.NewRows(slotCols).AddRow(int64(3), "A1", "blocked", nil))
	mock.ExpectExec("UPDATE trip_seats SET status = \\?, booking_id = \\?").
		WithArgs("available", nil, int64(3), "A1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	if err := eng.Seats.Unblock(ctx, 3, "A1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveTxTrustsLockedSlotOwner(t *testing.T) {
	cases := []struct {
		name    string
		status  string
		owner   any
		exclude int64
		lookup  bool
		wantErr bool
	}{
		{"reserved by another booking", "reserved", int64(55), 0, false, true},
		{"reserved without owner", "reserved", nil, 0, false, true},
		{"reserved by the excluded booking", "reserved", int64(101), 101, true, false},
		{"free slot", "available", nil, 0, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng, mock := newMockEngine(t)
			ctx := context.Background()

			mock.ExpectBegin()
			mock.ExpectExec("INSERT IGNORE INTO trip_seats").WithArgs(int64(3), "A1").
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery("SELECT trip_id, seat_id, status, booking_id FROM trip_seats").WithArgs(int64(3), "A1").
				WillReturnRows(sqlmock.NewRows(slotCols).AddRow(int64(3), "A1", tc.status, tc.owner))
			if tc.lookup {
				mock.ExpectQuery("SELECT seat_id FROM bookings (.+) FOR SHARE").WithArgs(int64(3), "A1", tc.exclude).
					WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
			}
			mock.ExpectRollback()

			tx, err := eng.Seats.DB.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("begin: %v", err)
			}
			err = eng.Seats.ReserveTx(ctx, tx, 3, []string{"A1"}, tc.exclude)
			_ = tx.Rollback()

			if tc.wantErr && !domain.IsConflict(err) {
				t.Fatalf("expected conflict, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}
