package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

// CreateQuest inserts quest unless the player already has an active quest
// from the same NPC, in which case it returns ErrDuplicate.
func (r *Repository) CreateQuest(ctx context.Context, quest *models.NPCQuest) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		var active int64
		err := tx.db.WithContext(ctx).Model(&models.NPCQuest{}).
			Where("player_id = ? AND npc_id = ? AND status = ?", quest.PlayerID, quest.NPCID, models.QuestActive).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: active quest from npc %s", e.ErrDuplicate, quest.NPCID)
		}
		return translate(tx.db.WithContext(ctx).Create(quest).Error)
	})
}

func (r *Repository) GetQuest(ctx context.Context, id uuid.UUID) (*models.NPCQuest, error) {
	var quest models.NPCQuest
	if err := r.db.WithContext(ctx).First(&quest, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &quest, nil
}

// SetQuestProgress stores progress on an active quest.
func (r *Repository) SetQuestProgress(ctx context.Context, id uuid.UUID, progress int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.NPCQuest{}).
		Where("id = ? AND status = ?", id, models.QuestActive).
		Update("current_progress", progress)
	return result.RowsAffected == 1, result.Error
}

// ListExpiredQuests returns active quests whose expiry is before now.
func (r *Repository) ListExpiredQuests(ctx context.Context, now time.Time) ([]models.NPCQuest, error) {
	var quests []models.NPCQuest
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.QuestActive, now).
		Order("expires_at, id").
		Find(&quests).Error
	return quests, err
}

// TransitionQuest moves an active quest to a terminal status. It reports
// false when the quest was no longer active.
func (r *Repository) TransitionQuest(ctx context.Context, id uuid.UUID, to models.QuestStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if to == models.QuestCompleted {
		updates["completed_at"] = at
	}
	result := r.db.WithContext(ctx).Model(&models.NPCQuest{}).
		Where("id = ? AND status = ?", id, models.QuestActive).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}
