package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/db"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/economy"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
)

// ProjectJob advances every in-progress project by one tick and finalizes
// the ones that complete or run past their deadline.
type ProjectJob struct {
	env    *Env
	logger *zap.Logger
}

func NewProjectJob(env *Env) *ProjectJob {
	return &ProjectJob{env: env, logger: env.Logger.Named("project_job")}
}

func (j *ProjectJob) Name() string { return ProcessProjects }

type projectOutcome int

const (
	projectAdvanced projectOutcome = iota
	projectCompleted
	projectFailed
	projectUntouched
)

type pendingEvent struct {
	channel string
	name    events.Name
	payload events.Payload
}

func (j *ProjectJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}
	now := j.env.now()

	projects, err := j.env.Repo.ListProjectsByStatus(ctx, models.ProjectInProgress)
	if err != nil {
		return res, fmt.Errorf("failed to list projects: %w", err)
	}

	for i := range projects {
		p := &projects[i]
		res.Processed++
		if p.OwnerID == nil {
			res.Skipped++
			continue
		}

		outcome, err := j.process(ctx, p, now)
		if err != nil {
			j.logger.Error("Failed to process project",
				zap.String("project_id", p.ID.String()),
				zap.Error(err),
			)
			res.Failed++
			continue
		}
		if outcome == projectUntouched {
			res.Skipped++
		} else {
			res.Changed++
		}
	}
	return res, nil
}

func (j *ProjectJob) process(ctx context.Context, p *models.Project, now time.Time) (projectOutcome, error) {
	ownerID := *p.OwnerID

	set, err := j.env.Bonuses.Resolve(ctx, ownerID, now, bonus.Options{})
	if err != nil {
		return 0, err
	}
	skill, err := j.env.Bonuses.SkillBonus(ctx, ownerID, p.Title)
	if err != nil {
		return 0, err
	}

	var outcome projectOutcome
	var pending []pendingEvent
	err = j.env.Repo.WithTransaction(ctx, func(tx *db.Repository) error {
		pending = pending[:0]
		staff, err := tx.ListProjectEmployees(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("load staff: %w", err)
		}

		// staff contribute with the energy they had at the start of the tick
		rate := economy.ProgressRate(p.Difficulty, set.Get(bonus.ProjectProgress), skill, staff)
		for k := range staff {
			emp := &staff[k]
			alert := economy.Work(emp)
			if err := tx.SaveEmployee(ctx, emp); err != nil {
				return fmt.Errorf("save employee %s: %w", emp.ID, err)
			}
			pending = append(pending, statEvents(ownerID, emp, alert)...)
		}

		progress := economy.Advance(p.Progress, rate)
		switch {
		case progress >= models.MaxProgress:
			ok, err := j.completeProject(ctx, tx, p, staff, set.Get(bonus.XP), now)
			if err != nil {
				return err
			}
			if !ok {
				outcome = projectUntouched
				return nil
			}
			outcome = projectCompleted
			pending = append(pending, pendingEvent{
				channel: events.PlayerChannel(ownerID),
				name:    events.ProjectCompleted,
				payload: events.Payload{
					"project_id": p.ID.String(),
					"title":      p.Title,
					"reward":     p.Reward.StringFixed(models.MoneyScale),
				},
			})
		case p.Overdue(now):
			ok, ev, err := failProject(ctx, tx, p, []models.ProjectStatus{models.ProjectInProgress},
				j.env.Settings.ReputationPenaltyPerDifficulty, now)
			if err != nil {
				return err
			}
			if !ok {
				outcome = projectUntouched
				return nil
			}
			outcome = projectFailed
			pending = append(pending, ev)
		default:
			if _, err := tx.SetProjectProgress(ctx, p.ID, progress); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
			outcome = projectAdvanced
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, ev := range pending {
		j.env.publish(ev.channel, ev.name, ev.payload)
	}
	return outcome, nil
}

// completeProject finalizes p, rewards its staff, owner and company. It
// reports false when another runner already finalized the project. A
// project whose company is gone completes without the cash reward.
func (j *ProjectJob) completeProject(ctx context.Context, tx *db.Repository, p *models.Project, staff []models.Employee, xpBonus float64, now time.Time) (bool, error) {
	ok, err := tx.TransitionProject(ctx, p.ID, []models.ProjectStatus{models.ProjectInProgress}, models.ProjectCompleted, now)
	if err != nil || !ok {
		return ok, err
	}

	xp := economy.ProjectXP(p.Difficulty, xpBonus)
	for k := range staff {
		emp := &staff[k]
		economy.GrantXP(emp, xp)
		emp.Unassign()
		if err := tx.SaveEmployee(ctx, emp); err != nil {
			return false, fmt.Errorf("save employee %s: %w", emp.ID, err)
		}
	}

	_, err = tx.UpdateGameState(ctx, *p.OwnerID, func(s *models.GameState) error {
		s.CompletedProjects++
		return nil
	})
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return false, fmt.Errorf("update game state: %w", err)
	}

	companyID, err := projectCompany(ctx, tx, p)
	if err == nil {
		_, err = tx.UpdateCompany(ctx, companyID, func(c *models.Company) error {
			c.Cash = c.Cash.Add(p.Reward)
			return nil
		})
	}
	if errors.Is(err, e.ErrNotFound) {
		j.logger.Warn("Project completed without a company, reward skipped",
			zap.String("project_id", p.ID.String()),
			zap.String("owner_id", p.OwnerID.String()),
		)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("credit reward: %w", err)
	}
	return true, nil
}

// failProject moves p to failed if it is still in one of from, frees its
// staff and penalizes the owner's reputation.
func failProject(ctx context.Context, tx *db.Repository, p *models.Project, from []models.ProjectStatus, penaltyPerDifficulty int, now time.Time) (bool, pendingEvent, error) {
	ok, err := tx.TransitionProject(ctx, p.ID, from, models.ProjectFailed, now)
	if err != nil || !ok {
		return ok, pendingEvent{}, err
	}
	if _, err := tx.UnassignProject(ctx, p.ID); err != nil {
		return false, pendingEvent{}, fmt.Errorf("unassign staff: %w", err)
	}

	penalty := p.Difficulty * penaltyPerDifficulty
	if p.OwnerID != nil {
		err := tx.PenalizeReputation(ctx, *p.OwnerID, penalty)
		if err != nil && !errors.Is(err, e.ErrNotFound) {
			return false, pendingEvent{}, fmt.Errorf("penalize reputation: %w", err)
		}
	}

	channel := events.GlobalChannel
	if p.OwnerID != nil {
		channel = events.PlayerChannel(*p.OwnerID)
	}
	return true, pendingEvent{
		channel: channel,
		name:    events.ProjectFailed,
		payload: events.Payload{
			"project_id":         p.ID.String(),
			"title":              p.Title,
			"reputation_penalty": penalty,
		},
	}, nil
}

func projectCompany(ctx context.Context, repo *db.Repository, p *models.Project) (uuid.UUID, error) {
	if p.CompanyID != nil {
		return *p.CompanyID, nil
	}
	c, err := repo.GetCompanyByOwner(ctx, *p.OwnerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load owner company: %w", err)
	}
	return c.ID, nil
}

func statEvents(ownerID uuid.UUID, emp *models.Employee, alert economy.StatAlert) []pendingEvent {
	var out []pendingEvent
	if alert.LowEnergy {
		out = append(out, pendingEvent{
			channel: events.PlayerChannel(ownerID),
			name:    events.EmployeeLowEnergy,
			payload: events.Payload{"employee_id": emp.ID.String(), "name": emp.Name, "energy": emp.Energy},
		})
	}
	if alert.LowMorale {
		out = append(out, pendingEvent{
			channel: events.PlayerChannel(ownerID),
			name:    events.EmployeeLowMorale,
			payload: events.Payload{"employee_id": emp.ID.String(), "name": emp.Name, "morale": emp.Morale},
		})
	}
	return out
}
