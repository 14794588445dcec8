// Package tier holds the loyalty tier table and the pure pricing/points rules built on it.
package tier

import (
	"fmt"
	"sort"

	"seatledger/internal/domain"
)

// Config is one row of the threshold table.
type Config struct {
	Tier          domain.Tier `json:"tier"`
	MinPoints     int64       `json:"minPoints"`
	DiscountBps   int64       `json:"discountBps"`   // 1000 = 10%
	MultiplierPct int64       `json:"multiplierPct"` // 150 = 1.5x
}

// DiscountPercent is the human readable discount.
func (c Config) DiscountPercent() float64 { return float64(c.DiscountBps) / 100 }

// Multiplier is the human readable points multiplier.
func (c Config) Multiplier() float64 { return float64(c.MultiplierPct) / 100 }

// DefaultUnitsPerPoint is the base earning rate: one point per ten currency units.
const DefaultUnitsPerPoint int64 = 10

// Table is an immutable, validated threshold table. The zero value is not usable; use Default or New.
type Table struct {
	rows          []Config // ascending by MinPoints
	unitsPerPoint int64
}

// DefaultConfigs is regular <1000, silver 1000-4999, gold 5000-9999, platinum >=10000.
func DefaultConfigs() []Config {
	return []Config{
		{Tier: domain.TierRegular, MinPoints: 0, DiscountBps: 0, MultiplierPct: 100},
		{Tier: domain.TierSilver, MinPoints: 1000, DiscountBps: 500, MultiplierPct: 125},
		{Tier: domain.TierGold, MinPoints: 5000, DiscountBps: 1000, MultiplierPct: 150},
		{Tier: domain.TierPlatinum, MinPoints: 10000, DiscountBps: 1500, MultiplierPct: 200},
	}
}

// Default returns the built-in table.
func Default() Table {
	t, err := New(DefaultConfigs(), DefaultUnitsPerPoint)
	if err != nil {
		panic(err)
	}
	return t
}

// New validates configs. Thresholds must rise strictly with tier rank and start at zero,
// which keeps TierFromPoints monotonic.
func New(configs []Config, unitsPerPoint int64) (Table, error) {
	if len(configs) == 0 {
		return Table{}, fmt.Errorf("tier table is empty")
	}
	if unitsPerPoint <= 0 {
		return Table{}, fmt.Errorf("units per point must be positive")
	}
	rows := make([]Config, len(configs))
	copy(rows, configs)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Tier.Rank() < rows[j].Tier.Rank() })

	seen := map[domain.Tier]bool{}
	for i, c := range rows {
		if !c.Tier.Valid() {
			return Table{}, fmt.Errorf("unknown tier %q", c.Tier)
		}
		if seen[c.Tier] {
			return Table{}, fmt.Errorf("duplicate tier %q", c.Tier)
		}
		seen[c.Tier] = true
		if c.DiscountBps < 0 || c.DiscountBps > 10000 {
			return Table{}, fmt.Errorf("tier %q: discount out of range", c.Tier)
		}
		if c.MultiplierPct < 0 {
			return Table{}, fmt.Errorf("tier %q: negative multiplier", c.Tier)
		}
		if i == 0 && c.MinPoints != 0 {
			return Table{}, fmt.Errorf("lowest tier %q must start at 0 points", c.Tier)
		}
		if i > 0 && c.MinPoints <= rows[i-1].MinPoints {
			return Table{}, fmt.Errorf("tier %q threshold must exceed %q", c.Tier, rows[i-1].Tier)
		}
	}
	return Table{rows: rows, unitsPerPoint: unitsPerPoint}, nil
}

// Configs returns a copy of the table rows, lowest tier first.
func (t Table) Configs() []Config {
	out := make([]Config, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t Table) UnitsPerPoint() int64 { return t.unitsPerPoint }

// Config looks up one tier row.
func (t Table) Config(tr domain.Tier) (Config, bool) {
	for _, c := range t.rows {
		if c.Tier == tr {
			return c, true
		}
	}
	return Config{}, false
}

// TierFromPoints picks the highest tier whose threshold is reached.
func (t Table) TierFromPoints(points int64) domain.Tier {
	out := t.rows[0].Tier
	for _, c := range t.rows {
		if points >= c.MinPoints {
			out = c.Tier
		}
	}
	return out
}

// PointsEarned is floor(amount / unitsPerPoint * multiplier). Unknown tiers earn at the base rate.
func (t Table) PointsEarned(amount domain.Money, tr domain.Tier) int64 {
	if amount <= 0 {
		return 0
	}
	mult := int64(100)
	if c, ok := t.Config(tr); ok {
		mult = c.MultiplierPct
	}
	return int64(amount) * mult / (100 * 100 * t.unitsPerPoint)
}

// Discount is the amount taken off a price for the tier, rounded down to the cent.
func (t Table) Discount(amount domain.Money, tr domain.Tier) domain.Money {
	if amount <= 0 {
		return 0
	}
	c, ok := t.Config(tr)
	if !ok {
		return 0
	}
	return domain.Money(int64(amount) * c.DiscountBps / 10000)
}

// Price is amount minus the tier discount.
func (t Table) Price(amount domain.Money, tr domain.Tier) domain.Money {
	return amount - t.Discount(amount, tr)
}
