package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	return translate(r.db.WithContext(ctx).Create(company).Error)
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &company, nil
}

func (r *Repository) GetCompanyByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, "owner_id = ?", ownerID).Error; err != nil {
		return nil, translate(err)
	}
	return &company, nil
}

// ListCompanies returns every company ordered by creation.
func (r *Repository) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	err := r.db.WithContext(ctx).Order("created_at, id").Find(&companies).Error
	return companies, err
}

// UpdateCompany is the only path that changes a company's cash. It
// serializes callers per company in-process, row-locks the record for the
// transaction, applies fn and saves the result. An error from fn rolls the
// change back and is returned as is.
func (r *Repository) UpdateCompany(ctx context.Context, id uuid.UUID, fn func(c *models.Company) error) (*models.Company, error) {
	if !r.inTx {
		release := r.locks.Lock(id)
		defer release()
	}

	var updated models.Company
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&updated, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := fn(&updated); err != nil {
			return err
		}
		return tx.Save(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *Repository) CreateGameState(ctx context.Context, state *models.GameState) error {
	return translate(r.db.WithContext(ctx).Create(state).Error)
}

func (r *Repository) GetGameState(ctx context.Context, playerID uuid.UUID) (*models.GameState, error) {
	var state models.GameState
	if err := r.db.WithContext(ctx).First(&state, "player_id = ?", playerID).Error; err != nil {
		return nil, translate(err)
	}
	return &state, nil
}

// UpdateGameState applies fn to the player's game state under a row lock.
func (r *Repository) UpdateGameState(ctx context.Context, playerID uuid.UUID, fn func(s *models.GameState) error) (*models.GameState, error) {
	var updated models.GameState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&updated, "player_id = ?", playerID).Error; err != nil {
			return translate(err)
		}
		if err := fn(&updated); err != nil {
			return err
		}
		return tx.Save(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// PenalizeReputation lowers a player's reputation by penalty, floored at zero.
func (r *Repository) PenalizeReputation(ctx context.Context, playerID uuid.UUID, penalty int) error {
	_, err := r.UpdateGameState(ctx, playerID, func(s *models.GameState) error {
		s.ApplyReputationPenalty(penalty)
		return nil
	})
	return err
}

// IncrementDay advances the day counter of every game state and returns the
// number of rows touched.
func (r *Repository) IncrementDay(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.GameState{}).
		Where("1 = 1").
		UpdateColumn("current_day", gorm.Expr("current_day + 1"))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to increment day: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) CreateAutomationSetting(ctx context.Context, setting *models.AutomationSetting) error {
	return translate(r.db.WithContext(ctx).Create(setting).Error)
}

func (r *Repository) GetAutomationSetting(ctx context.Context, playerID uuid.UUID) (*models.AutomationSetting, error) {
	var setting models.AutomationSetting
	if err := r.db.WithContext(ctx).First(&setting, "player_id = ?", playerID).Error; err != nil {
		return nil, translate(err)
	}
	return &setting, nil
}

func (r *Repository) SaveAutomationSetting(ctx context.Context, setting *models.AutomationSetting) error {
	return translate(r.db.WithContext(ctx).Save(setting).Error)
}

// ListEnabledAutomation returns settings with at least one policy on.
func (r *Repository) ListEnabledAutomation(ctx context.Context) ([]models.AutomationSetting, error) {
	var settings []models.AutomationSetting
	err := r.db.WithContext(ctx).
		Where("auto_rest_enabled = ? OR auto_assign_enabled = ?", true, true).
		Order("created_at, id").
		Find(&settings).Error
	return settings, err
}
