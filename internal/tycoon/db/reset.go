package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"gorm.io/datatypes"
)

// ResetSummary counts what a bankruptcy reset removed.
type ResetSummary struct {
	Employees int64
	Projects  int64
	Products  int64
}

// ResetCompany wipes a company's operational assets in one transaction:
// employees and the owner's projects are deleted, products deactivated,
// finances and level reset, and the owner's click power, auto income and
// upgrades cleared. Level, XP, reputation, completed projects, clicks,
// skills, research and achievements are left untouched.
func (r *Repository) ResetCompany(ctx context.Context, companyID uuid.UUID) (*ResetSummary, error) {
	var summary ResetSummary
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		company, err := tx.UpdateCompany(ctx, companyID, func(c *models.Company) error {
			c.Cash = models.StartingCash
			c.MonthlyRevenue = decimal.Zero
			c.MonthlyCosts = decimal.Zero
			c.RevenueCarry = decimal.Zero
			c.Level = 1
			return nil
		})
		if err != nil {
			return fmt.Errorf("reset company: %w", err)
		}

		res := tx.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&models.Employee{})
		if res.Error != nil {
			return fmt.Errorf("delete employees: %w", res.Error)
		}
		summary.Employees = res.RowsAffected

		if summary.Projects, err = tx.DeleteOwnerProjects(ctx, company.OwnerID); err != nil {
			return fmt.Errorf("delete projects: %w", err)
		}
		if summary.Products, err = tx.DeactivateCompanyProducts(ctx, companyID); err != nil {
			return fmt.Errorf("deactivate products: %w", err)
		}

		res = tx.db.WithContext(ctx).Model(&models.GameState{}).
			Where("player_id = ?", company.OwnerID).
			Updates(map[string]interface{}{
				"click_power": decimal.NewFromInt(1),
				"auto_income": decimal.Zero,
				"upgrades":    datatypes.NewJSONType(map[string]int{}),
			})
		if res.Error != nil {
			return fmt.Errorf("reset game state: %w", res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
