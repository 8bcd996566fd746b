// Package models defines the persisted records of the tycoon simulation,
// configured to work using GORM as the ORM. Money columns are fixed-point
// decimals with two fractional digits.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Company is the single operating business owned by a player.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	// OwnerID is the player that owns the company.
	OwnerID uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	// Name is the company's display name.
	Name string `gorm:"size:64"`
	// Cash is the current balance. It may go negative.
	Cash decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	// Level is the company level, at least 1.
	Level int `gorm:"not null;default:1;check:level >= 1"`
	// MonthlyRevenue caches the gross monthly revenue of active products.
	MonthlyRevenue decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	// MonthlyCosts caches the monthly salary bill of the last paid payroll.
	MonthlyCosts decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	// RevenueCarry holds accrued sub-cent amounts not yet moved into Cash.
	// Its magnitude stays below one cent.
	RevenueCarry decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Accrue adds an unrounded amount to the company. Whole cents go to Cash
// and the remainder, of the same sign as the running total, stays in
// RevenueCarry for later ticks.
func (c *Company) Accrue(amount decimal.Decimal) {
	total := c.RevenueCarry.Add(amount)
	cents := total.Truncate(MoneyScale)
	c.Cash = c.Cash.Add(cents)
	c.RevenueCarry = total.Sub(cents)
}

// BeforeSave keeps money columns at two fractional digits.
func (c *Company) BeforeSave(_ *gorm.DB) error {
	c.Cash = RoundMoney(c.Cash)
	c.MonthlyRevenue = RoundMoney(c.MonthlyRevenue)
	c.MonthlyCosts = RoundMoney(c.MonthlyCosts)
	c.RevenueCarry = c.RevenueCarry.Round(CarryScale)
	return nil
}

// GameState is the per-player progression record.
type GameState struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlayerID uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Level    int       `gorm:"not null;default:1"`
	XP       int64     `gorm:"not null;default:0"`
	// Reputation never drops below zero.
	Reputation        int   `gorm:"not null;default:0;check:reputation >= 0"`
	CompletedProjects int   `gorm:"not null;default:0"`
	PrestigeLevel     int   `gorm:"not null;default:0"`
	PrestigePoints    int   `gorm:"not null;default:0"`
	CurrentDay        int   `gorm:"not null"`
	TotalClicks       int64 `gorm:"not null;default:0"`
	// ClickPower is the money earned per manual click.
	ClickPower decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	// AutoIncome is the money accrued by the idle income job each tick.
	AutoIncome   decimal.Decimal                    `gorm:"type:decimal(15,2);not null;default:0"`
	Upgrades     datatypes.JSONType[map[string]int] `gorm:"type:json"`
	Achievements datatypes.JSONType[[]string]       `gorm:"type:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BeforeSave keeps money columns at two fractional digits.
func (g *GameState) BeforeSave(_ *gorm.DB) error {
	g.ClickPower = RoundMoney(g.ClickPower)
	g.AutoIncome = RoundMoney(g.AutoIncome)
	return nil
}

// ApplyReputationPenalty lowers reputation by penalty, clamped at zero.
func (g *GameState) ApplyReputationPenalty(penalty int) {
	if penalty <= 0 {
		return
	}
	g.Reputation -= penalty
	if g.Reputation < 0 {
		g.Reputation = 0
	}
}

// AutomationSetting holds a player's auto-rest and auto-assign policy.
type AutomationSetting struct {
	ID                      uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlayerID                uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	AutoRestEnabled         bool      `gorm:"not null;default:false"`
	AutoRestEnergyThreshold int       `gorm:"not null;default:20"`
	AutoRestMoraleThreshold int       `gorm:"not null;default:20"`
	AutoAssignEnabled       bool      `gorm:"not null;default:false"`
	AutoAssignMinEnergy     int       `gorm:"not null;default:50"`
	AutoAssignMinMorale     int       `gorm:"not null;default:50"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// DefaultAutomationSetting returns the setting created at registration.
func DefaultAutomationSetting(playerID uuid.UUID) *AutomationSetting {
	return &AutomationSetting{
		ID:                      uuid.New(),
		PlayerID:                playerID,
		AutoRestEnergyThreshold: 20,
		AutoRestMoraleThreshold: 20,
		AutoAssignMinEnergy:     50,
		AutoAssignMinMorale:     50,
	}
}
