package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

func (r *Repository) CreateMarketEvent(ctx context.Context, event *models.MarketEvent) error {
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

// ActiveMarketEvents returns events whose window contains now.
func (r *Repository) ActiveMarketEvents(ctx context.Context, now time.Time) ([]models.MarketEvent, error) {
	var events []models.MarketEvent
	err := r.db.WithContext(ctx).
		Where("start_time <= ? AND end_time >= ?", now, now).
		Order("start_time, id").
		Find(&events).Error
	return events, err
}

// ListRecentMarketEvents returns up to limit events, newest first.
func (r *Repository) ListRecentMarketEvents(ctx context.Context, limit int) ([]models.MarketEvent, error) {
	var events []models.MarketEvent
	err := r.db.WithContext(ctx).
		Order("start_time DESC, id").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *Repository) CreateSkill(ctx context.Context, skill *models.PlayerSkill) error {
	return translate(r.db.WithContext(ctx).Create(skill).Error)
}

// UnlockSkill marks a skill as unlocked and sets its level.
func (r *Repository) UnlockSkill(ctx context.Context, id uuid.UUID, level int) error {
	result := r.db.WithContext(ctx).Model(&models.PlayerSkill{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"unlocked": true, "level": level})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) UnlockedSkills(ctx context.Context, playerID uuid.UUID) ([]models.PlayerSkill, error) {
	var skills []models.PlayerSkill
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND unlocked = ?", playerID, true).
		Find(&skills).Error
	return skills, err
}

// ListSkills returns every skill of a player, locked or not.
func (r *Repository) ListSkills(ctx context.Context, playerID uuid.UUID) ([]models.PlayerSkill, error) {
	var skills []models.PlayerSkill
	err := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("name").
		Find(&skills).Error
	return skills, err
}

func (r *Repository) CreateResearch(ctx context.Context, research *models.PlayerResearch) error {
	return translate(r.db.WithContext(ctx).Create(research).Error)
}

func (r *Repository) UnlockedResearch(ctx context.Context, playerID uuid.UUID) ([]models.PlayerResearch, error) {
	var research []models.PlayerResearch
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND unlocked = ?", playerID, true).
		Find(&research).Error
	return research, err
}
