package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits kept on money columns.
const MoneyScale = 2

// CarryScale is the precision of the sub-cent revenue carry.
const CarryScale = 8

var (
	// StartingCash is the balance of a freshly registered or reset company.
	StartingCash = decimal.NewFromInt(100)
	// DefaultBankruptcyThreshold is the cash level below which a company is reset.
	DefaultBankruptcyThreshold = decimal.NewFromInt(-10000)
)

// RoundMoney rounds d half away from zero to MoneyScale digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Money builds a rounded money value from a float literal.
func Money(v float64) decimal.Decimal {
	return RoundMoney(decimal.NewFromFloat(v))
}
