package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProjectStatus is a step of the project state machine:
// available -> queued/in_progress -> completed | failed.
type ProjectStatus string

const (
	ProjectAvailable  ProjectStatus = "available"
	ProjectQueued     ProjectStatus = "queued"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectFailed     ProjectStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectCompleted || s == ProjectFailed
}

// MaxProgress is the completion percentage of a finished project.
const MaxProgress = 100.0

// Project is a unit of work. A nil OwnerID marks an open job-board listing.
type Project struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID     *uuid.UUID      `gorm:"type:uuid;index"`
	CompanyID   *uuid.UUID      `gorm:"type:uuid;index"`
	Title       string          `gorm:"size:128;not null"`
	Description string          `gorm:"size:3000"`
	Difficulty  int             `gorm:"not null;default:1;check:difficulty >= 1 AND difficulty <= 10"`
	Progress    float64         `gorm:"not null;default:0"`
	Status      ProjectStatus   `gorm:"size:16;index;not null;default:available"`
	Deadline    *time.Time      `gorm:"index"`
	Reward      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	CompletedAt *time.Time
	FailedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BeforeSave keeps the reward at two fractional digits.
func (p *Project) BeforeSave(_ *gorm.DB) error {
	p.Reward = RoundMoney(p.Reward)
	return nil
}

// Overdue reports whether the deadline has passed at now.
func (p *Project) Overdue(now time.Time) bool {
	return p.Deadline != nil && now.After(*p.Deadline)
}
