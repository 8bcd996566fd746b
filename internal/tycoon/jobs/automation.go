package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/db"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/economy"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
)

// AutomationJob applies each player's auto-rest and auto-assign policy.
type AutomationJob struct {
	env    *Env
	logger *zap.Logger
}

func NewAutomationJob(env *Env) *AutomationJob {
	return &AutomationJob{env: env, logger: env.Logger.Named("automation_job")}
}

func (j *AutomationJob) Name() string { return ProcessAutomation }

func (j *AutomationJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}

	settings, err := j.env.Repo.ListEnabledAutomation(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list automation settings: %w", err)
	}

	for i := range settings {
		s := &settings[i]
		res.Processed++

		company, err := j.env.Repo.GetCompanyByOwner(ctx, s.PlayerID)
		if errors.Is(err, e.ErrNotFound) {
			res.Skipped++
			continue
		}
		if err != nil {
			j.logger.Error("Failed to load company", zap.String("player_id", s.PlayerID.String()), zap.Error(err))
			res.Failed++
			continue
		}

		var pending []pendingEvent
		var moved int
		err = j.env.Repo.WithTransaction(ctx, func(tx *db.Repository) error {
			pending, moved = nil, 0
			staff, err := tx.ListCompanyEmployees(ctx, company.ID)
			if err != nil {
				return err
			}
			rested := map[uuid.UUID]bool{}
			if s.AutoRestEnabled {
				evs, err := j.autoRest(ctx, tx, s, staff, rested)
				if err != nil {
					return err
				}
				moved += len(evs)
				pending = append(pending, evs...)
			}
			if s.AutoAssignEnabled {
				evs, err := j.autoAssign(ctx, tx, s, staff, rested)
				if err != nil {
					return err
				}
				moved += len(evs)
				pending = append(pending, evs...)
			}
			return nil
		})
		if err != nil {
			j.logger.Error("Failed to apply automation", zap.String("player_id", s.PlayerID.String()), zap.Error(err))
			res.Failed++
			continue
		}

		for _, ev := range pending {
			j.env.publish(ev.channel, ev.name, ev.payload)
		}
		if moved > 0 {
			res.Changed++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

// autoRest sends tired or unhappy working staff back to idle. Staff it moves
// are recorded in rested so the same pass does not reassign them.
func (j *AutomationJob) autoRest(ctx context.Context, tx *db.Repository, s *models.AutomationSetting, staff []models.Employee, rested map[uuid.UUID]bool) ([]pendingEvent, error) {
	var out []pendingEvent
	for k := range staff {
		emp := &staff[k]
		if emp.Status != models.EmployeeWorking {
			continue
		}
		reason, ok := economy.RestReason(emp, s.AutoRestEnergyThreshold, s.AutoRestMoraleThreshold)
		if !ok {
			continue
		}
		emp.Unassign()
		if err := tx.SaveEmployee(ctx, emp); err != nil {
			return nil, fmt.Errorf("rest employee %s: %w", emp.ID, err)
		}
		rested[emp.ID] = true
		j.logger.Info("Employee sent to rest",
			zap.String("employee_id", emp.ID.String()),
			zap.String("reason", reason),
		)
		out = append(out, pendingEvent{
			channel: events.PlayerChannel(s.PlayerID),
			name:    events.EmployeeRested,
			payload: events.Payload{"employee_id": emp.ID.String(), "name": emp.Name, "reason": reason},
		})
	}
	return out, nil
}

func (j *AutomationJob) autoAssign(ctx context.Context, tx *db.Repository, s *models.AutomationSetting, staff []models.Employee, rested map[uuid.UUID]bool) ([]pendingEvent, error) {
	byID := make(map[uuid.UUID]*models.Employee, len(staff))
	var candidates []economy.Candidate
	for k := range staff {
		emp := &staff[k]
		if rested[emp.ID] || !economy.Eligible(emp, s.AutoAssignMinEnergy, s.AutoAssignMinMorale) {
			continue
		}
		byID[emp.ID] = emp
		candidates = append(candidates, economy.Candidate{
			EmployeeID:   emp.ID,
			Productivity: emp.EffectiveProductivity(),
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	projects, err := tx.ListPlayerProjects(ctx, s.PlayerID, models.ProjectInProgress)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(projects))
	titles := make(map[uuid.UUID]string, len(projects))
	for k := range projects {
		ids[k] = projects[k].ID
		titles[projects[k].ID] = projects[k].Title
	}
	counts, err := tx.CountProjectEmployees(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count staff: %w", err)
	}

	demands := make([]economy.Demand, len(projects))
	for k := range projects {
		demands[k] = economy.Demand{
			ProjectID:  projects[k].ID,
			Difficulty: projects[k].Difficulty,
			Assigned:   counts[projects[k].ID],
			CreatedAt:  projects[k].CreatedAt,
		}
	}

	var out []pendingEvent
	for _, a := range economy.PlanAssignments(candidates, demands) {
		emp := byID[a.EmployeeID]
		emp.Assign(a.ProjectID)
		if err := tx.SaveEmployee(ctx, emp); err != nil {
			return nil, fmt.Errorf("assign employee %s: %w", emp.ID, err)
		}
		out = append(out, pendingEvent{
			channel: events.PlayerChannel(s.PlayerID),
			name:    events.EmployeeAssigned,
			payload: events.Payload{
				"employee_id": emp.ID.String(),
				"name":        emp.Name,
				"project_id":  a.ProjectID.String(),
				"project":     titles[a.ProjectID],
			},
		})
	}
	return out, nil
}
