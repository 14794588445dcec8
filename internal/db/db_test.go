package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestEnsureSchemaCreatesMissingTablesAndPatchesColumns(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	for _, name := range SchemaTables() {
		q := mock.ExpectQuery("information_schema\\.tables").WithArgs(name)
		if name == "wallet_transactions" {
			q.WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
			mock.ExpectExec("CREATE TABLE IF NOT EXISTS wallet_transactions").
				WillReturnResult(sqlmock.NewResult(0, 0))
			continue
		}
		q.WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow(name))
		if name != "bookings" {
			continue
		}
		for _, col := range []string{"group_id", "is_deleted", "deleted_at", "deleted_by", "active_seat_key"} {
			cq := mock.ExpectQuery("information_schema\\.columns").WithArgs("bookings", col)
			switch col {
			case "deleted_by":
				cq.WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
				mock.ExpectExec("ALTER TABLE bookings ADD COLUMN deleted_by").
					WillReturnResult(sqlmock.NewResult(0, 0))
				continue
			case "active_seat_key":
				cq.WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
				mock.ExpectExec("ALTER TABLE bookings ADD COLUMN active_seat_key (.+) ADD UNIQUE KEY uniq_active_seat").
					WillReturnResult(sqlmock.NewResult(0, 0))
				continue
			}
			cq.WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow(col))
		}
	}

	if err := EnsureSchema(context.Background(), conn); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE customers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(context.Background(), "UPDATE customers SET tier='gold'"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithTxCommits(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	if err := WithTx(context.Background(), conn, func(tx *sql.Tx) error { return nil }); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMySQLErrorClassification(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '10:7' for key 'bookings.uniq_active_seat'"}
	if !IsDuplicateKey(dup, "uniq_active_seat") {
		t.Fatalf("expected duplicate on uniq_active_seat")
	}
	if IsDuplicateKey(dup, "uniq_booking_reference") {
		t.Fatalf("did not expect match on another key")
	}
	if !IsLockConflict(&mysql.MySQLError{Number: 1213}) {
		t.Fatalf("expected deadlock to be a lock conflict")
	}
	if IsLockConflict(errors.New("plain")) {
		t.Fatalf("plain error is not a lock conflict")
	}
	if Placeholders(3) != "?,?,?" {
		t.Fatalf("unexpected placeholders %q", Placeholders(3))
	}
}
