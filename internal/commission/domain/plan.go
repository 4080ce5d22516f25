package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/triviabees/internal/config"
)

var hundred = decimal.NewFromInt(100)

// Line is the part of an order item that feeds the commission pool.
type Line struct {
	TotalPrice           decimal.Decimal
	CommissionPercentage decimal.Decimal
}

// Distribution is the planned payout for one upline level.
type Distribution struct {
	Level      int             `json:"level"`
	UserID     string          `json:"userId"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// Pool returns Σ(total_price × commission_percentage / 100). No rounding is applied.
func Pool(lines []Line) decimal.Decimal {
	pool := decimal.Zero
	for _, line := range lines {
		pool = pool.Add(line.TotalPrice.Mul(line.CommissionPercentage).Div(hundred))
	}
	return pool
}

// Plan assigns levels[i] to uplines[i], nearest upline first. Levels beyond
// the end of the chain are forfeited and never redistributed.
func Plan(pool decimal.Decimal, uplines []string, levels []config.LevelShare) []Distribution {
	if !pool.IsPositive() || len(uplines) == 0 {
		return nil
	}

	n := len(uplines)
	if len(levels) < n {
		n = len(levels)
	}
	plan := make([]Distribution, 0, n)
	for i := 0; i < n; i++ {
		pct := decimal.NewFromFloat(levels[i].Percentage)
		plan = append(plan, Distribution{
			Level:      levels[i].Level,
			UserID:     uplines[i],
			Percentage: pct,
			Amount:     pool.Mul(pct).Div(hundred),
		})
	}
	return plan
}

// Total sums the planned amounts.
func Total(plan []Distribution) decimal.Decimal {
	total := decimal.Zero
	for _, d := range plan {
		total = total.Add(d.Amount)
	}
	return total
}
