// Package economy holds the balance formulas of the simulation. Everything
// here is pure: callers load records, apply a formula, and persist.
package economy

import (
	"math"

	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

const (
	// BaseProgressPerTick is the unassisted progress of a difficulty 1/0.3
	// project in one tick, in percent.
	BaseProgressPerTick = 5.0
	// DifficultyWeight scales difficulty in the base rate denominator.
	DifficultyWeight = 0.3
	// XPPerDifficulty is the experience granted per difficulty point on
	// project completion.
	XPPerDifficulty = 20
	// XPPerLevel is multiplied by the current level to get the next
	// level-up threshold.
	XPPerLevel = 100
	// ProductivityPerLevel is added to base productivity on each level-up.
	ProductivityPerLevel = 2.0
	// WorkEnergyCost is the energy a working employee spends per tick.
	WorkEnergyCost = 1
)

// BaseRate is the progress a project of the given difficulty makes per
// tick before bonuses and staff.
func BaseRate(difficulty int) float64 {
	if difficulty < 1 {
		difficulty = 1
	}
	return BaseProgressPerTick / (float64(difficulty) * DifficultyWeight)
}

// ProgressRate combines the base rate, the progress multiplier sum, the
// skill bonus and the staff contribution into the per-tick increment.
// The two bonus factors multiply; staff adds on top.
func ProgressRate(difficulty int, progressBonus, skillBonus float64, staff []models.Employee) float64 {
	rate := BaseRate(difficulty) * (1 + progressBonus) * (1 + skillBonus)
	return rate + StaffContribution(staff)
}

// StaffContribution is the sum of effective productivity over 100.
func StaffContribution(staff []models.Employee) float64 {
	var sum float64
	for i := range staff {
		sum += staff[i].EffectiveProductivity()
	}
	return sum / 100
}

// Advance adds rate to progress and caps at MaxProgress. A negative rate
// never moves progress backwards.
func Advance(progress, rate float64) float64 {
	if rate < 0 {
		rate = 0
	}
	return math.Min(models.MaxProgress, progress+rate)
}

// ProjectXP is the experience each assigned employee receives when a
// project of the given difficulty completes.
func ProjectXP(difficulty int, xpBonus float64) int {
	return int(math.Round(float64(difficulty*XPPerDifficulty) * (1 + xpBonus)))
}
