package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/db"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
)

// DeadlineJob fails overdue projects and expires overdue quests.
type DeadlineJob struct {
	env    *Env
	logger *zap.Logger
}

func NewDeadlineJob(env *Env) *DeadlineJob {
	return &DeadlineJob{env: env, logger: env.Logger.Named("deadline_job")}
}

func (j *DeadlineJob) Name() string { return CheckDeadlines }

func (j *DeadlineJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}
	now := j.env.now()
	s := j.env.Settings

	projects, err := j.env.Repo.ListOverdueProjects(ctx, now)
	if err != nil {
		return res, fmt.Errorf("failed to list overdue projects: %w", err)
	}
	quests, err := j.env.Repo.ListExpiredQuests(ctx, now)
	if err != nil {
		return res, fmt.Errorf("failed to list expired quests: %w", err)
	}

	open := []models.ProjectStatus{models.ProjectQueued, models.ProjectInProgress}
	for i := range projects {
		p := &projects[i]
		res.Processed++

		var ev pendingEvent
		var failed bool
		err := j.env.Repo.WithTransaction(ctx, func(tx *db.Repository) error {
			var err error
			failed, ev, err = failProject(ctx, tx, p, open, s.ReputationPenaltyPerDifficulty, now)
			return err
		})
		if err != nil {
			j.logger.Error("Failed to fail overdue project", zap.String("project_id", p.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		if !failed {
			res.Skipped++
			continue
		}
		res.Changed++
		j.env.publish(ev.channel, ev.name, ev.payload)
	}

	for i := range quests {
		q := &quests[i]
		res.Processed++

		var expired bool
		err := j.env.Repo.WithTransaction(ctx, func(tx *db.Repository) error {
			var err error
			if expired, err = tx.TransitionQuest(ctx, q.ID, models.QuestExpired, now); err != nil || !expired {
				return err
			}
			err = tx.PenalizeReputation(ctx, q.PlayerID, s.QuestExpiryReputationPenalty)
			if errors.Is(err, e.ErrNotFound) {
				return nil
			}
			return err
		})
		if err != nil {
			j.logger.Error("Failed to expire quest", zap.String("quest_id", q.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		if !expired {
			res.Skipped++
			continue
		}
		res.Changed++
		j.env.publish(events.PlayerChannel(q.PlayerID), events.QuestExpired, events.Payload{
			"quest_id": q.ID.String(),
			"npc_id":   q.NPCID,
			"title":    q.Title,
		})
	}
	return res, nil
}
