package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a revenue-generating asset launched from a completed project.
// Revenue is always derived from LaunchedAt and never stored per tick.
type Product struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	SourceProjectID    uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	Name               string          `gorm:"size:128"`
	BaseMonthlyRevenue decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Upkeep             decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	// GrowthRate is the monthly compounding rate, e.g. 0.02.
	GrowthRate decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	Active     bool            `gorm:"index;not null"`
	LaunchedAt time.Time       `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BeforeSave keeps money columns at two fractional digits.
func (p *Product) BeforeSave(_ *gorm.DB) error {
	p.BaseMonthlyRevenue = RoundMoney(p.BaseMonthlyRevenue)
	p.Upkeep = RoundMoney(p.Upkeep)
	return nil
}

// BugStatus is a step of the bug state machine: active -> fixing -> fixed.
type BugStatus string

const (
	BugActive BugStatus = "active"
	BugFixing BugStatus = "fixing"
	BugFixed  BugStatus = "fixed"
)

// MaxOpenBugsPerProduct caps the simultaneous non-fixed bugs of a product.
const MaxOpenBugsPerProduct = 2

// ProductBug is a defect that reduces a product's revenue until fixed.
type ProductBug struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null"`
	Title     string    `gorm:"size:128"`
	Severity  string    `gorm:"size:16"`
	// RevenuePenalty is a percentage, e.g. 10 for -10%.
	RevenuePenalty float64         `gorm:"not null;default:0"`
	FixCost        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	FixTimeMinutes int             `gorm:"not null;default:0"`
	Status         BugStatus       `gorm:"size:16;index;not null;default:active"`
	DiscoveredAt   time.Time
	FixStartedAt   *time.Time
	FixedAt        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BeforeSave keeps the fix cost at two fractional digits.
func (b *ProductBug) BeforeSave(_ *gorm.DB) error {
	b.FixCost = RoundMoney(b.FixCost)
	return nil
}

// FixDueAt is the moment an in-progress fix completes.
func (b *ProductBug) FixDueAt() (time.Time, bool) {
	if b.FixStartedAt == nil {
		return time.Time{}, false
	}
	return b.FixStartedAt.Add(time.Duration(b.FixTimeMinutes) * time.Minute), true
}

// MarketingCampaign boosts product revenue for a bounded window.
// A nil ProductID applies to every product of the company.
type MarketingCampaign struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProductID    *uuid.UUID `gorm:"type:uuid;index"`
	Name         string     `gorm:"size:128"`
	RevenueBoost float64    `gorm:"not null;default:0"`
	StartsAt     time.Time  `gorm:"index"`
	EndsAt       time.Time  `gorm:"index"`
	CreatedAt    time.Time
}

// Covers reports whether the campaign applies to productID at now.
func (c *MarketingCampaign) Covers(productID uuid.UUID, now time.Time) bool {
	if now.Before(c.StartsAt) || now.After(c.EndsAt) {
		return false
	}
	return c.ProductID == nil || *c.ProductID == productID
}
