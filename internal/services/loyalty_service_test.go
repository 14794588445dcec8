package services

import (
	"context"
	"testing"

	"seatledger/internal/domain"
	"seatledger/internal/repositories"
	"seatledger/internal/tier"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestAddLoyaltyPointsCrossesIntoPlatinum(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	expectCustomerLock(mock, 7, "gold", 9500, "0.00")
	mock.ExpectExec("UPDATE customers SET loyalty_points").
		WithArgs(int64(11300), "platinum", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO loyalty_transactions").
		WithArgs(int64(7), int64(1800), int64(9500), int64(11300), "gold", "platinum", "trip").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := eng.Loyalty.AddLoyaltyPoints(context.Background(), 7, domain.MoneyFromMajor(12000), "trip")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.TierUpgraded || res.TierBefore != domain.TierGold || res.TierAfter != domain.TierPlatinum {
		t.Fatalf("expected gold to platinum upgrade, got %+v", res)
	}
	if res.PointsAfter < 10000 {
		t.Fatalf("expected at least 10000 points, got %d", res.PointsAfter)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddLoyaltyPointsZeroAmountWritesNothing(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectBegin()
	expectCustomerLock(mock, 7, "silver", 1200, "0.00")
	mock.ExpectCommit()

	res, err := eng.Loyalty.AddLoyaltyPoints(context.Background(), 7, 0, "noop")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.PointsEarned != 0 || res.TierUpgraded {
		t.Fatalf("unexpected result %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecalculateTierIsIdempotent(t *testing.T) {
	eng, mock := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	expectCustomerLock(mock, 7, "gold", 11300, "0.00")
	mock.ExpectExec("UPDATE customers SET tier = \\?").
		WithArgs("platinum", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	first, err := eng.Loyalty.RecalculateTier(ctx, 7)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !first.Changed || first.After != domain.TierPlatinum {
		t.Fatalf("expected repair to platinum, got %+v", first)
	}

	mock.ExpectBegin()
	expectCustomerLock(mock, 7, "platinum", 11300, "0.00")
	mock.ExpectCommit()

	second, err := eng.Loyalty.RecalculateTier(ctx, 7)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if second.Changed {
		t.Fatalf("expected no change on second run, got %+v", second)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecalculateAllPagesThroughCustomers(t *testing.T) {
	eng, mock := newMockEngine(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id FROM customers WHERE id > \\?").WithArgs(int64(0), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectBegin()
	expectCustomerLock(mock, 1, "regular", 1500, "0.00")
	mock.ExpectExec("UPDATE customers SET tier = \\?").WithArgs("silver", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	expectCustomerLock(mock, 2, "regular", 10, "0.00")
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT id FROM customers WHERE id > \\?").WithArgs(int64(2), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	checked, changed, err := eng.Loyalty.RecalculateAll(ctx, 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if checked != 2 || changed != 1 {
		t.Fatalf("expected 2 checked and 1 changed, got %d and %d", checked, changed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadTierTableFallsBackToDefault(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery("information_schema\\.tables").WithArgs("tier_configs").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	got := LoadTierTable(context.Background(), repositories.TierConfigRepo{DB: conn})
	if got.TierFromPoints(5000) != domain.TierGold {
		t.Fatalf("expected default thresholds, got %s", got.TierFromPoints(5000))
	}
	if len(got.Configs()) != len(tier.DefaultConfigs()) {
		t.Fatalf("expected %d configs, got %d", len(tier.DefaultConfigs()), len(got.Configs()))
	}
}
