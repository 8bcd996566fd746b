package economy

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

// MinutesPerMonth is the number of ticks a monthly figure is spread over.
const MinutesPerMonth = 30 * 24 * 60

var (
	hundred         = decimal.NewFromInt(100)
	one             = decimal.NewFromInt(1)
	minutesPerMonth = decimal.NewFromInt(MinutesPerMonth)
)

// Revenue is the derived financial picture of one product at one moment.
type Revenue struct {
	Months int
	// Current is the compounded monthly revenue before bugs and bonuses.
	Current decimal.Decimal
	// BugMultiplier is the product of (1 - penalty/100) over open bugs.
	BugMultiplier decimal.Decimal
	// Gross is the monthly revenue after bugs and revenue bonuses.
	Gross decimal.Decimal
	// Upkeep is the monthly upkeep after the upkeep bonus.
	Upkeep decimal.Decimal
	// NetPerMinute is (Gross - Upkeep) spread over a month of minutes.
	NetPerMinute decimal.Decimal
}

// ProductRevenue derives the revenue of p at now. Every path that reports or
// credits product revenue goes through here so the bug multiplier is never
// skipped.
func ProductRevenue(p *models.Product, bugs []models.ProductBug, set bonus.Set, now time.Time) Revenue {
	months := WholeMonthsBetween(p.LaunchedAt, now)

	growth := p.GrowthRate.Mul(factor(set, bonus.ProductGrowth))
	current := p.BaseMonthlyRevenue.Mul(powInt(one.Add(growth), months))

	bugMult := BugMultiplier(bugs)
	revenueFactor := decimal.NewFromFloat(1 + set.Get(bonus.GlobalRevenue) + set.Get(bonus.ProductRevenue))
	gross := current.Mul(bugMult).Mul(revenueFactor)
	upkeep := p.Upkeep.Mul(factor(set, bonus.Upkeep))

	return Revenue{
		Months:        months,
		Current:       current,
		BugMultiplier: bugMult,
		Gross:         gross,
		Upkeep:        upkeep,
		NetPerMinute:  gross.Sub(upkeep).Div(minutesPerMonth),
	}
}

// BugMultiplier compounds the revenue penalty of every bug that is not yet
// fixed. Two bugs of 10 and 20 give 0.9 * 0.8 = 0.72.
func BugMultiplier(bugs []models.ProductBug) decimal.Decimal {
	mult := one
	for i := range bugs {
		if bugs[i].Status == models.BugFixed {
			continue
		}
		penalty := decimal.NewFromFloat(bugs[i].RevenuePenalty).Div(hundred)
		mult = mult.Mul(one.Sub(penalty))
	}
	if mult.IsNegative() {
		return decimal.Zero
	}
	return mult
}

// WholeMonthsBetween counts completed calendar months from start to end,
// never negative.
func WholeMonthsBetween(start, end time.Time) int {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	if start.AddDate(0, months, 0).After(end) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func factor(set bonus.Set, k bonus.Key) decimal.Decimal {
	return decimal.NewFromFloat(set.Factor(k))
}

// powScale bounds the digits carried through compounding.
const powScale = 16

// powInt raises base to a non-negative integer power by squaring.
func powInt(base decimal.Decimal, exp int) decimal.Decimal {
	result := one
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base).Round(powScale)
		}
		base = base.Mul(base).Round(powScale)
		exp >>= 1
	}
	return result
}
