package economy

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxStaffPerProject caps the desired headcount of any project.
	MaxStaffPerProject = 10
	// StaffingFactor scales a project's share of the idle pool.
	StaffingFactor = 2
)

// Candidate is an idle employee that may be auto-assigned.
type Candidate struct {
	EmployeeID   uuid.UUID
	Productivity float64
}

// Demand is an in-progress project that may receive staff.
type Demand struct {
	ProjectID  uuid.UUID
	Difficulty int
	Assigned   int
	CreatedAt  time.Time
}

// Assignment pairs an employee with a project.
type Assignment struct {
	EmployeeID uuid.UUID
	ProjectID  uuid.UUID
}

type slot struct {
	projectID uuid.UUID
	remaining int
}

// DesiredStaff is the headcount a project of difficulty should reach given
// the idle pool size and the total difficulty of all open projects:
// max(1, min(10, ceil(idle * difficulty / total * 2))).
func DesiredStaff(idle, difficulty, totalDifficulty int) int {
	if totalDifficulty <= 0 || idle <= 0 {
		return 1
	}
	num := idle * difficulty * StaffingFactor
	want := (num + totalDifficulty - 1) / totalDifficulty
	if want > MaxStaffPerProject {
		want = MaxStaffPerProject
	}
	if want < 1 {
		want = 1
	}
	return want
}

// PlanAssignments distributes candidates over projects round-robin.
// Candidates are taken by productivity, highest first; projects are visited
// by difficulty, highest first, then oldest first. Each pass gives one
// employee to every project still short of its desired headcount, so hard
// projects get more staff without starving easy ones. Planning stops when
// candidates run out or a whole pass assigns nobody.
func PlanAssignments(candidates []Candidate, projects []Demand) []Assignment {
	if len(candidates) == 0 || len(projects) == 0 {
		return nil
	}

	pool := make([]Candidate, len(candidates))
	copy(pool, candidates)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Productivity > pool[j].Productivity
	})

	ordered := make([]Demand, len(projects))
	copy(ordered, projects)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Difficulty != ordered[j].Difficulty {
			return ordered[i].Difficulty > ordered[j].Difficulty
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	total := 0
	for _, p := range ordered {
		total += p.Difficulty
	}

	slots := make([]slot, len(ordered))
	for i, p := range ordered {
		need := DesiredStaff(len(pool), p.Difficulty, total) - p.Assigned
		if need < 0 {
			need = 0
		}
		slots[i] = slot{projectID: p.ProjectID, remaining: need}
	}

	var out []Assignment
	next := 0
	for next < len(pool) {
		assigned := false
		for i := range slots {
			if next >= len(pool) {
				break
			}
			if slots[i].remaining == 0 {
				continue
			}
			out = append(out, Assignment{
				EmployeeID: pool[next].EmployeeID,
				ProjectID:  slots[i].projectID,
			})
			slots[i].remaining--
			next++
			assigned = true
		}
		if !assigned {
			break
		}
	}
	return out
}
