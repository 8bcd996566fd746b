package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// ListActiveProducts returns every active product, oldest launch first.
func (r *Repository) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("launched_at, id").
		Find(&products).Error
	return products, err
}

// ListCompanyProducts returns every product of a company.
func (r *Repository) ListCompanyProducts(ctx context.Context, companyID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("launched_at, id").
		Find(&products).Error
	return products, err
}

// DeactivateCompanyProducts switches off every product of a company.
func (r *Repository) DeactivateCompanyProducts(ctx context.Context, companyID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("company_id = ? AND active = ?", companyID, true).
		Update("active", false)
	return result.RowsAffected, result.Error
}

func (r *Repository) GetBug(ctx context.Context, id uuid.UUID) (*models.ProductBug, error) {
	var bug models.ProductBug
	if err := r.db.WithContext(ctx).First(&bug, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &bug, nil
}

// ListOpenBugs returns the bugs of a product that are not fixed.
func (r *Repository) ListOpenBugs(ctx context.Context, productID uuid.UUID) ([]models.ProductBug, error) {
	var bugs []models.ProductBug
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND status <> ?", productID, models.BugFixed).
		Order("discovered_at, id").
		Find(&bugs).Error
	return bugs, err
}

// ListFixingBugs returns every bug with a fix in progress.
func (r *Repository) ListFixingBugs(ctx context.Context) ([]models.ProductBug, error) {
	var bugs []models.ProductBug
	err := r.db.WithContext(ctx).
		Where("status = ?", models.BugFixing).
		Order("fix_started_at, id").
		Find(&bugs).Error
	return bugs, err
}

// CreateBug inserts bug unless its product already has the maximum number
// of open bugs, in which case it returns ErrBugCapReached.
func (r *Repository) CreateBug(ctx context.Context, bug *models.ProductBug) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		var open int64
		err := tx.db.WithContext(ctx).Model(&models.ProductBug{}).
			Where("product_id = ? AND status <> ?", bug.ProductID, models.BugFixed).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open >= models.MaxOpenBugsPerProduct {
			return fmt.Errorf("%w: product %s has %d open bugs", e.ErrBugCapReached, bug.ProductID, open)
		}
		return translate(tx.db.WithContext(ctx).Create(bug).Error)
	})
}

// TransitionBug moves a bug from status from to to, stamping the matching
// timestamp. It reports false when the bug was not in from.
func (r *Repository) TransitionBug(ctx context.Context, id uuid.UUID, from, to models.BugStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.BugFixing:
		updates["fix_started_at"] = at
	case models.BugFixed:
		updates["fixed_at"] = at
	}
	result := r.db.WithContext(ctx).Model(&models.ProductBug{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}

func (r *Repository) CreateCampaign(ctx context.Context, campaign *models.MarketingCampaign) error {
	return translate(r.db.WithContext(ctx).Create(campaign).Error)
}

// ActiveCampaigns returns the campaigns of a company running at now.
func (r *Repository) ActiveCampaigns(ctx context.Context, companyID uuid.UUID, now time.Time) ([]models.MarketingCampaign, error) {
	var campaigns []models.MarketingCampaign
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND starts_at <= ? AND ends_at >= ?", companyID, now, now).
		Find(&campaigns).Error
	return campaigns, err
}
