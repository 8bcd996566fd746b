package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QuestStatus is a step of the quest state machine: active -> completed | expired.
type QuestStatus string

const (
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestExpired   QuestStatus = "expired"
)

// QuestRewards is the reward bag granted when a quest completes.
type QuestRewards struct {
	Money      float64 `json:"money"`
	XP         int64   `json:"xp"`
	Reputation int     `json:"reputation"`
}

// NPCQuest is a task offered to a player by an NPC. A player holds at most
// one active quest per NPC.
type NPCQuest struct {
	ID                uuid.UUID                        `gorm:"type:uuid;primaryKey"`
	PlayerID          uuid.UUID                        `gorm:"type:uuid;index;not null"`
	NPCID             string                           `gorm:"size:64;index;not null"`
	QuestType         string                           `gorm:"size:32"`
	Title             string                           `gorm:"size:128"`
	CurrentProgress   int                              `gorm:"not null;default:0"`
	TargetProgress    int                              `gorm:"not null"`
	Rewards           datatypes.JSONType[QuestRewards] `gorm:"type:json"`
	Status            QuestStatus                      `gorm:"size:16;index;not null;default:active"`
	RequiredProjectID *uuid.UUID                       `gorm:"type:uuid"`
	ExpiresAt         *time.Time                       `gorm:"index"`
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// All returns every record type for schema migration.
func All() []interface{} {
	return []interface{}{
		&Company{},
		&GameState{},
		&AutomationSetting{},
		&Employee{},
		&Project{},
		&Product{},
		&ProductBug{},
		&MarketingCampaign{},
		&MarketEvent{},
		&PlayerSkill{},
		&PlayerResearch{},
		&NPCQuest{},
	}
}
