package repositories

import (
	"context"
	"database/sql"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain"
	"seatledger/internal/tier"
)

// TierConfigRepo loads an optional override of the built-in tier table.
type TierConfigRepo struct {
	DB *sql.DB
}

// Load returns ok=false when the table is absent or empty.
func (r TierConfigRepo) Load(ctx context.Context) ([]tier.Config, bool, error) {
	if r.DB == nil || !intdb.HasTable(ctx, r.DB, "tier_configs") {
		return nil, false, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT tier, min_points, discount_bps, multiplier_pct FROM tier_configs ORDER BY min_points`)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	out := []tier.Config{}
	for rows.Next() {
		var c tier.Config
		var name string
		if err := rows.Scan(&name, &c.MinPoints, &c.DiscountBps, &c.MultiplierPct); err != nil {
			return nil, false, err
		}
		c.Tier = domain.Tier(name)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, len(out) > 0, nil
}
