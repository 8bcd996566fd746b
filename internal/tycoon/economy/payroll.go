package economy

import (
	"github.com/shopspring/decimal"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

const (
	// DaysPerMonth converts a monthly salary into a daily one.
	DaysPerMonth = 30
	// PayrollMoralePenalty is taken from every employee when payroll fails.
	PayrollMoralePenalty = 10
)

var daysPerMonth = decimal.NewFromInt(DaysPerMonth)

// Payroll is the salary bill of one company for one game day.
type Payroll struct {
	Monthly decimal.Decimal
	Daily   decimal.Decimal
}

// PayrollFor sums the salaries of every non-quit employee.
func PayrollFor(staff []models.Employee, set bonus.Set) Payroll {
	monthly := decimal.Zero
	for i := range staff {
		if staff[i].Status == models.EmployeeQuit {
			continue
		}
		monthly = monthly.Add(staff[i].Salary)
	}
	daily := monthly.Mul(factor(set, bonus.Salary)).Div(daysPerMonth)
	return Payroll{
		Monthly: monthly,
		Daily:   models.RoundMoney(daily),
	}
}

// CanPay reports whether cash covers the daily bill.
func (p Payroll) CanPay(cash decimal.Decimal) bool {
	return cash.GreaterThanOrEqual(p.Daily)
}

// TickIncome is the idle income a company earns in one tick:
// (base * level + auto * (1 + auto bonus) + passive) * (1 + global revenue).
func TickIncome(basePerTick decimal.Decimal, level int, autoIncome decimal.Decimal, set bonus.Set) decimal.Decimal {
	if level < 1 {
		level = 1
	}
	income := basePerTick.Mul(decimal.NewFromInt(int64(level))).
		Add(autoIncome.Mul(factor(set, bonus.AutoIncome))).
		Add(decimal.NewFromFloat(set.Get(bonus.PassiveIncome)))
	return models.RoundMoney(income.Mul(factor(set, bonus.GlobalRevenue)))
}

// Bankrupt reports whether cash has fallen strictly below threshold.
func Bankrupt(cash, threshold decimal.Decimal) bool {
	return cash.LessThan(threshold)
}
