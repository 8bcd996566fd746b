package jobs

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/ai"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/catalog"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/metrics"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// MarketJob occasionally starts a global market event, generated by the AI
// collaborator when possible and picked from the static catalog otherwise.
type MarketJob struct {
	env    *Env
	logger *zap.Logger
}

func NewMarketJob(env *Env) *MarketJob {
	return &MarketJob{env: env, logger: env.Logger.Named("market_job")}
}

func (j *MarketJob) Name() string { return TriggerMarketEvent }

func (j *MarketJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name(), Processed: 1}
	s := j.env.Settings
	now := j.env.now()

	if j.env.Rand.Float64() >= s.MarketEventChance {
		res.Skipped++
		return res, nil
	}

	var event *models.MarketEvent
	if j.env.AI != nil && j.env.Rand.Float64() < s.AIEventShare {
		generated, err := j.generate(ctx, now)
		if err != nil {
			if !errors.Is(err, ai.ErrDisabled) {
				j.logger.Warn("AI market event failed, using static catalog", zap.Error(err))
			}
			metrics.AIFallbacks.WithLabelValues(string(ai.KindMarketEvent)).Inc()
		}
		event = generated
	}
	if event == nil {
		if len(j.env.Catalog.Events) == 0 {
			res.Skipped++
			return res, nil
		}
		var tpl catalog.EventTemplate
		j.env.Rand.Do(func(r *rand.Rand) { tpl = j.env.Catalog.RandomEvent(r) })
		event = tpl.NewEvent(now, s.MarketEventDuration)
	}

	if err := j.env.Repo.CreateMarketEvent(ctx, event); err != nil {
		return res, fmt.Errorf("failed to store market event: %w", err)
	}
	j.logger.Info("Market event started",
		zap.String("name", event.Name),
		zap.String("source", string(event.Source)),
		zap.Time("ends_at", event.EndTime),
	)
	j.env.publish(events.GlobalChannel, events.MarketEventStart, events.Payload{
		"name":        event.Name,
		"description": event.Description,
		"effects":     event.Effects.Data(),
		"source":      string(event.Source),
		"ends_at":     event.EndTime.Format(time.RFC3339),
	})
	res.Changed++
	return res, nil
}

func (j *MarketJob) generate(ctx context.Context, now time.Time) (*models.MarketEvent, error) {
	active, err := j.env.Repo.ActiveMarketEvents(ctx, now)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(active))
	for i := range active {
		names[i] = active[i].Name
	}

	raw, err := j.env.AI.Generate(ctx, ai.KindMarketEvent, map[string]interface{}{
		"active_events": names,
		"duration":      j.env.Settings.MarketEventDuration.String(),
	})
	if err != nil {
		return nil, err
	}
	proposal, err := ai.DecodeMarketEvent(raw)
	if err != nil {
		return nil, err
	}
	effects, err := proposal.Effects()
	if err != nil {
		return nil, err
	}
	return &models.MarketEvent{
		ID:          uuid.New(),
		Name:        proposal.Name,
		Description: proposal.Description,
		Effects:     datatypes.NewJSONType(effects),
		Source:      models.EventSourceAI,
		StartTime:   now,
		EndTime:     now.Add(j.env.Settings.MarketEventDuration),
	}, nil
}
