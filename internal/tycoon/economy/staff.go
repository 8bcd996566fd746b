package economy

import (
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

// StatAlert reports which stats crossed below models.LowStatThreshold.
type StatAlert struct {
	LowEnergy bool
	LowMorale bool
}

// Any reports whether at least one stat crossed.
func (a StatAlert) Any() bool {
	return a.LowEnergy || a.LowMorale
}

// RecomputeMorale moves morale toward the employee's energy level:
// tired staff lose 2, rested staff gain 1.
func RecomputeMorale(energy, morale int) int {
	switch {
	case energy < 50:
		morale -= 2
	case energy >= 80:
		morale++
	}
	return models.ClampStat(morale)
}

// Work applies one tick of work to e and reports threshold crossings.
func Work(e *models.Employee) StatAlert {
	prevEnergy, prevMorale := e.Energy, e.Morale

	e.Energy = models.ClampStat(e.Energy - WorkEnergyCost)
	e.Morale = RecomputeMorale(e.Energy, e.Morale)

	return StatAlert{
		LowEnergy: crossedBelow(prevEnergy, e.Energy),
		LowMorale: crossedBelow(prevMorale, e.Morale),
	}
}

// Rest applies one tick of idle recovery to e.
func Rest(e *models.Employee, energy, morale int) {
	e.Energy = models.ClampStat(e.Energy + energy)
	e.Morale = models.ClampStat(e.Morale + morale)
}

// PenalizeMorale lowers morale by amount, floored at zero.
func PenalizeMorale(e *models.Employee, amount int) {
	e.Morale = models.ClampStat(e.Morale - amount)
}

// GrantXP adds xp to e, levelling up as many times as the experience
// allows. It returns the number of levels gained.
func GrantXP(e *models.Employee, xp int) int {
	if xp <= 0 {
		return 0
	}
	if e.Level < 1 {
		e.Level = 1
	}
	e.Experience += xp
	gained := 0
	for e.Experience >= e.Level*XPPerLevel {
		e.Experience -= e.Level * XPPerLevel
		e.Level++
		e.Productivity += ProductivityPerLevel
		gained++
	}
	return gained
}

// RestReason reports why a working employee should be sent to rest.
// Energy is checked before morale.
func RestReason(e *models.Employee, energyThreshold, moraleThreshold int) (string, bool) {
	if e.Energy < energyThreshold {
		return "low_energy", true
	}
	if e.Morale < moraleThreshold {
		return "low_morale", true
	}
	return "", false
}

// Eligible reports whether an idle employee may be auto-assigned.
func Eligible(e *models.Employee, minEnergy, minMorale int) bool {
	return e.Status == models.EmployeeIdle &&
		e.Energy >= minEnergy &&
		e.Morale >= minMorale
}

func crossedBelow(before, after int) bool {
	return before >= models.LowStatThreshold && after < models.LowStatThreshold
}
