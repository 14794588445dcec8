package db

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

type tableDDL struct {
	name string
	ddl  string
}

// Tables in creation order. bookings.active_seat_key is NULL unless the booking is confirmed
// and not deleted, so uniq_active_seat allows one live booking per (trip, seat) and any
// number of cancelled or deleted ones.
var schema = []tableDDL{
	{"customers", `
		CREATE TABLE IF NOT EXISTS customers (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(150) NOT NULL DEFAULT '',
			phone VARCHAR(40) NOT NULL DEFAULT '',
			tier VARCHAR(20) NOT NULL DEFAULT 'regular',
			loyalty_points BIGINT NOT NULL DEFAULT 0,
			wallet_balance DECIMAL(14,2) NOT NULL DEFAULT 0.00,
			created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT chk_wallet_non_negative CHECK (wallet_balance >= 0)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"trips", `
		CREATE TABLE IF NOT EXISTS trips (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			route_from VARCHAR(120) NOT NULL DEFAULT '',
			route_to VARCHAR(120) NOT NULL DEFAULT '',
			departure_at DATETIME NOT NULL,
			base_price DECIMAL(14,2) NOT NULL DEFAULT 0.00,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"trip_seats", `
		CREATE TABLE IF NOT EXISTS trip_seats (
			trip_id BIGINT NOT NULL,
			seat_id VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'available',
			booking_id BIGINT NULL,
			updated_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (trip_id, seat_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"bookings", `
		CREATE TABLE IF NOT EXISTS bookings (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			trip_id BIGINT NOT NULL,
			seat_id VARCHAR(20) NOT NULL,
			customer_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
			payment_method VARCHAR(20) NOT NULL,
			total_price DECIMAL(14,2) NOT NULL,
			booking_reference VARCHAR(20) NOT NULL,
			group_id VARCHAR(36) NULL,
			cancellation_reason VARCHAR(255) NULL,
			cancelled_at DATETIME NULL,
			is_deleted TINYINT(1) NOT NULL DEFAULT 0,
			deleted_at DATETIME NULL,
			deleted_by VARCHAR(64) NULL,
			created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			active_seat_key VARCHAR(64) GENERATED ALWAYS AS (
				IF(status = 'confirmed' AND is_deleted = 0, CONCAT(trip_id, ':', seat_id), NULL)
			) STORED,
			UNIQUE KEY uniq_booking_reference (booking_reference),
			UNIQUE KEY uniq_active_seat (active_seat_key),
			KEY idx_bookings_trip_seat (trip_id, seat_id),
			KEY idx_bookings_customer (customer_id, created_at),
			KEY idx_bookings_group (group_id),
			KEY idx_bookings_tombstone (is_deleted, deleted_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"booking_passengers", `
		CREATE TABLE IF NOT EXISTS booking_passengers (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			booking_id BIGINT NOT NULL,
			name VARCHAR(150) NOT NULL DEFAULT '',
			phone VARCHAR(40) NOT NULL DEFAULT '',
			document_no VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_passenger_booking (booking_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"wallet_transactions", `
		CREATE TABLE IF NOT EXISTS wallet_transactions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			amount DECIMAL(14,2) NOT NULL,
			type VARCHAR(20) NOT NULL,
			balance_before DECIMAL(14,2) NOT NULL,
			balance_after DECIMAL(14,2) NOT NULL,
			reference VARCHAR(64) NOT NULL DEFAULT '',
			description VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_wallet_customer (customer_id, id),
			KEY idx_wallet_reference (type, reference)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"loyalty_transactions", `
		CREATE TABLE IF NOT EXISTS loyalty_transactions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			points BIGINT NOT NULL,
			points_before BIGINT NOT NULL,
			points_after BIGINT NOT NULL,
			tier_before VARCHAR(20) NOT NULL,
			tier_after VARCHAR(20) NOT NULL,
			description VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_loyalty_customer (customer_id, id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"tier_configs", `
		CREATE TABLE IF NOT EXISTS tier_configs (
			tier VARCHAR(20) PRIMARY KEY,
			min_points BIGINT NOT NULL,
			discount_bps INT NOT NULL DEFAULT 0,
			multiplier_pct INT NOT NULL DEFAULT 100
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

type columnPatch struct {
	table  string
	column string
	ddl    string
}

// Columns added after the first release. Tables created before them are patched in place.
var columnPatches = []columnPatch{
	{"bookings", "group_id", "ALTER TABLE bookings ADD COLUMN group_id VARCHAR(36) NULL, ADD KEY idx_bookings_group (group_id)"},
	{"bookings", "is_deleted", "ALTER TABLE bookings ADD COLUMN is_deleted TINYINT(1) NOT NULL DEFAULT 0"},
	{"bookings", "deleted_at", "ALTER TABLE bookings ADD COLUMN deleted_at DATETIME NULL"},
	{"bookings", "deleted_by", "ALTER TABLE bookings ADD COLUMN deleted_by VARCHAR(64) NULL"},
	// Needs is_deleted. Fails if the table already holds two live bookings for one seat.
	{"bookings", "active_seat_key", `ALTER TABLE bookings
		ADD COLUMN active_seat_key VARCHAR(64) GENERATED ALWAYS AS (
			IF(status = 'confirmed' AND is_deleted = 0, CONCAT(trip_id, ':', seat_id), NULL)
		) STORED,
		ADD UNIQUE KEY uniq_active_seat (active_seat_key)`},
}

func patchColumns(ctx context.Context, q DBTX, table string) error {
	for _, p := range columnPatches {
		if p.table != table || HasColumn(ctx, q, p.table, p.column) {
			continue
		}
		if _, err := q.ExecContext(ctx, p.ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", p.table, p.column, err)
		}
		logrus.WithFields(logrus.Fields{"table": p.table, "column": p.column}).Info("added column")
	}
	return nil
}

// EnsureSchema creates any missing table and adds late columns to existing ones.
func EnsureSchema(ctx context.Context, q DBTX) error {
	for _, t := range schema {
		if HasTable(ctx, q, t.name) {
			if err := patchColumns(ctx, q, t.name); err != nil {
				return err
			}
			continue
		}
		if _, err := q.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
		logrus.WithField("table", t.name).Info("created table")
	}
	return nil
}

// SchemaTables lists managed table names in creation order.
func SchemaTables() []string {
	out := make([]string, 0, len(schema))
	for _, t := range schema {
		out = append(out, t.name)
	}
	return out
}
