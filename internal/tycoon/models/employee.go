package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EmployeeStatus is the employment state of an Employee.
type EmployeeStatus string

const (
	EmployeeWorking EmployeeStatus = "working"
	EmployeeIdle    EmployeeStatus = "idle"
	EmployeeQuit    EmployeeStatus = "quit"
)

const (
	// MaxStat is the ceiling of energy and morale.
	MaxStat = 100
	// LowStatThreshold is the level below which a low energy or morale
	// notification is published.
	LowStatThreshold = 30
)

// Employee is a virtual worker owned by exactly one company.
// Status working holds exactly when AssignedProjectID points to an
// in-progress project.
type Employee struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name              string          `gorm:"size:64"`
	Role              string          `gorm:"size:32"`
	Energy            int             `gorm:"not null;check:energy >= 0 AND energy <= 100"`
	Morale            int             `gorm:"not null;check:morale >= 0 AND morale <= 100"`
	Level             int             `gorm:"not null;default:1"`
	Experience        int             `gorm:"not null;default:0"`
	Productivity      float64         `gorm:"not null"`
	Salary            decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Status            EmployeeStatus  `gorm:"size:16;index;not null;default:idle"`
	AssignedProjectID *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BeforeSave keeps the salary at two fractional digits.
func (e *Employee) BeforeSave(_ *gorm.DB) error {
	e.Salary = RoundMoney(e.Salary)
	return nil
}

// EffectiveProductivity scales base productivity by the current energy.
func (e *Employee) EffectiveProductivity() float64 {
	return e.Productivity * float64(e.Energy) / 100
}

// Assign moves the employee onto a project.
func (e *Employee) Assign(projectID uuid.UUID) {
	id := projectID
	e.AssignedProjectID = &id
	e.Status = EmployeeWorking
}

// Unassign returns a working employee to the idle pool.
func (e *Employee) Unassign() {
	e.AssignedProjectID = nil
	if e.Status == EmployeeWorking {
		e.Status = EmployeeIdle
	}
}

// ClampStat bounds v to [0, MaxStat].
func ClampStat(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxStat {
		return MaxStat
	}
	return v
}
