package services

import (
	"context"
	"database/sql"
	"fmt"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
	"seatledger/internal/repositories"
	"seatledger/internal/tier"
	"seatledger/internal/utils"

	"github.com/sirupsen/logrus"
)

// LoyaltyService is the stateful side of the tier rules: point accrual and tier repair.
type LoyaltyService struct {
	DB        *sql.DB
	Customers repositories.CustomerRepo
	Ledger    repositories.LoyaltyRepo
	Tiers     tier.Table
	Events    EventSink
	RequestID string
}

// LoadTierTable returns the tier_configs override when present and valid, else the default table.
func LoadTierTable(ctx context.Context, repo repositories.TierConfigRepo) tier.Table {
	rows, ok, err := repo.Load(ctx)
	if err != nil {
		logrus.WithError(err).Warn("tier_configs unreadable, using default tier table")
		return tier.Default()
	}
	if !ok {
		return tier.Default()
	}
	t, err := tier.New(rows, tier.DefaultUnitsPerPoint)
	if err != nil {
		logrus.WithError(err).Warn("tier_configs invalid, using default tier table")
		return tier.Default()
	}
	return t
}

func (s LoyaltyService) Configs() []tier.Config {
	return s.Tiers.Configs()
}

// AddLoyaltyPoints accrues points for amount in its own transaction.
func (s LoyaltyService) AddLoyaltyPoints(ctx context.Context, customerID int64, amount domain.Money, description string) (models.LoyaltyResult, error) {
	if err := requirePositive("customerId", customerID); err != nil {
		return models.LoyaltyResult{}, err
	}
	if amount < 0 {
		return models.LoyaltyResult{}, domain.ValidationError{Field: "amount", Msg: "must not be negative"}
	}
	var out models.LoyaltyResult
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		c, err := s.Customers.GetForUpdateTx(ctx, tx, customerID)
		if err != nil {
			return notFound("customer", err)
		}
		out, err = s.AccrueTx(ctx, tx, &c, amount, description)
		return err
	})
	if err != nil {
		return models.LoyaltyResult{}, wrapErr(err)
	}
	s.afterAccrual(out)
	return out, nil
}

// AccrueTx earns points at the customer's current tier and moves the tier to match the new total.
// c must be locked by tx.
func (s LoyaltyService) AccrueTx(ctx context.Context, tx *sql.Tx, c *models.Customer, amount domain.Money, description string) (models.LoyaltyResult, error) {
	earned := s.Tiers.PointsEarned(amount, c.Tier)
	res := models.LoyaltyResult{
		CustomerID:   c.ID,
		PointsEarned: earned,
		PointsBefore: c.LoyaltyPoints,
		PointsAfter:  c.LoyaltyPoints + earned,
		TierBefore:   c.Tier,
	}
	res.TierAfter = s.Tiers.TierFromPoints(res.PointsAfter)
	res.TierUpgraded = res.TierAfter.Rank() > res.TierBefore.Rank()
	if earned == 0 && res.TierAfter == res.TierBefore {
		return res, nil
	}
	if err := s.Customers.UpdateLoyaltyTx(ctx, tx, c.ID, res.PointsAfter, res.TierAfter); err != nil {
		return models.LoyaltyResult{}, err
	}
	if err := s.Ledger.InsertTx(ctx, tx, res, description); err != nil {
		return models.LoyaltyResult{}, err
	}
	c.LoyaltyPoints = res.PointsAfter
	c.Tier = res.TierAfter
	return res, nil
}

func (s LoyaltyService) afterAccrual(res models.LoyaltyResult) {
	if res.PointsEarned > 0 {
		utils.LogEvent(s.RequestID, "loyalty", "accrue",
			fmt.Sprintf("customer_id=%d points=%d tier=%s", res.CustomerID, res.PointsEarned, res.TierAfter))
	}
	s.Events.TierUpgraded(res)
}

// RecalculateTier recomputes the tier from stored points and fixes drift. Running it
// twice changes nothing the second time.
func (s LoyaltyService) RecalculateTier(ctx context.Context, customerID int64) (models.TierRepair, error) {
	if err := requirePositive("customerId", customerID); err != nil {
		return models.TierRepair{}, err
	}
	var out models.TierRepair
	err := intdb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		c, err := s.Customers.GetForUpdateTx(ctx, tx, customerID)
		if err != nil {
			return notFound("customer", err)
		}
		want := s.Tiers.TierFromPoints(c.LoyaltyPoints)
		out = models.TierRepair{CustomerID: c.ID, Points: c.LoyaltyPoints, Before: c.Tier, After: want}
		if want == c.Tier {
			return nil
		}
		out.Changed = true
		return s.Customers.UpdateTierTx(ctx, tx, c.ID, want)
	})
	if err != nil {
		return models.TierRepair{}, wrapErr(err)
	}
	if out.Changed {
		utils.LogEvent(s.RequestID, "loyalty", "recalculate_tier",
			fmt.Sprintf("customer_id=%d %s->%s", out.CustomerID, out.Before, out.After))
	}
	return out, nil
}

// RecalculateAll runs RecalculateTier over every customer in id order.
func (s LoyaltyService) RecalculateAll(ctx context.Context, batch int) (checked, changed int, err error) {
	if batch <= 0 {
		batch = 500
	}
	var after int64
	for {
		ids, err := s.Customers.ListIDsAfter(ctx, after, batch)
		if err != nil {
			return checked, changed, wrapErr(err)
		}
		for _, id := range ids {
			res, err := s.RecalculateTier(ctx, id)
			if err != nil {
				if domain.IsNotFound(err) {
					continue
				}
				return checked, changed, err
			}
			checked++
			if res.Changed {
				changed++
			}
		}
		if len(ids) < batch {
			return checked, changed, nil
		}
		after = ids[len(ids)-1]
	}
}
