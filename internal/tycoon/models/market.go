package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventSource records where a market event came from.
type EventSource string

const (
	EventSourceStatic EventSource = "static"
	EventSourceAI     EventSource = "ai"
)

// MarketEvent is a global, time-boxed set of multiplier effects.
// Effects keys are bonus key names.
type MarketEvent struct {
	ID          uuid.UUID                              `gorm:"type:uuid;primaryKey"`
	Name        string                                 `gorm:"size:128"`
	Description string                                 `gorm:"size:1000"`
	Effects     datatypes.JSONType[map[string]float64] `gorm:"type:json"`
	Source      EventSource                            `gorm:"size:16"`
	StartTime   time.Time                              `gorm:"index"`
	EndTime     time.Time                              `gorm:"index"`
	CreatedAt   time.Time
}

// ActiveAt reports whether start <= now <= end.
func (m *MarketEvent) ActiveAt(now time.Time) bool {
	return !now.Before(m.StartTime) && !now.After(m.EndTime)
}

// PlayerSkill is a skill a player has learned. Unlocked skills whose
// ProjectTypes match a project title speed up that project.
type PlayerSkill struct {
	ID              uuid.UUID                    `gorm:"type:uuid;primaryKey"`
	PlayerID        uuid.UUID                    `gorm:"type:uuid;index;not null"`
	Name            string                       `gorm:"size:64"`
	Level           int                          `gorm:"not null;default:1"`
	EfficiencyBonus float64                      `gorm:"not null;default:0"`
	ProjectTypes    datatypes.JSONType[[]string] `gorm:"type:json"`
	Unlocked        bool                         `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PlayerResearch is a research node with a bag of bonus effects.
type PlayerResearch struct {
	ID        uuid.UUID                              `gorm:"type:uuid;primaryKey"`
	PlayerID  uuid.UUID                              `gorm:"type:uuid;index;not null"`
	Key       string                                 `gorm:"size:64"`
	Effects   datatypes.JSONType[map[string]float64] `gorm:"type:json"`
	Unlocked  bool                                   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
