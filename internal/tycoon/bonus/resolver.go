package bonus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
)

// Source is the read-only view of the entity store the resolver needs.
type Source interface {
	UnlockedResearch(ctx context.Context, playerID uuid.UUID) ([]models.PlayerResearch, error)
	UnlockedSkills(ctx context.Context, playerID uuid.UUID) ([]models.PlayerSkill, error)
	ActiveMarketEvents(ctx context.Context, now time.Time) ([]models.MarketEvent, error)
	ActiveCampaigns(ctx context.Context, companyID uuid.UUID, now time.Time) ([]models.MarketingCampaign, error)
}

// Options narrows which contributions apply.
type Options struct {
	// ProjectTitle enables skill matching into ProjectProgress.
	ProjectTitle string
	// CompanyID and ProductID enable marketing campaigns into ProductRevenue.
	CompanyID *uuid.UUID
	ProductID *uuid.UUID
}

// Inputs is everything Compose needs, already loaded.
type Inputs struct {
	Research  []models.PlayerResearch
	Skills    []models.PlayerSkill
	Events    []models.MarketEvent
	Campaigns []models.MarketingCampaign
}

// Resolver computes bonus sets from the store. It never writes.
type Resolver struct {
	src    Source
	logger *zap.Logger
}

// NewResolver constructs a Resolver over src.
func NewResolver(src Source, logger *zap.Logger) *Resolver {
	return &Resolver{
		src:    src,
		logger: logger.Named("bonus_resolver"),
	}
}

// Resolve loads every contribution for playerID at now and composes them.
func (r *Resolver) Resolve(ctx context.Context, playerID uuid.UUID, now time.Time, opts Options) (Set, error) {
	var in Inputs
	var err error

	if in.Research, err = r.src.UnlockedResearch(ctx, playerID); err != nil {
		return Set{}, fmt.Errorf("load research: %w", err)
	}
	if opts.ProjectTitle != "" {
		if in.Skills, err = r.src.UnlockedSkills(ctx, playerID); err != nil {
			return Set{}, fmt.Errorf("load skills: %w", err)
		}
	}
	if in.Events, err = r.src.ActiveMarketEvents(ctx, now); err != nil {
		return Set{}, fmt.Errorf("load market events: %w", err)
	}
	if opts.CompanyID != nil && opts.ProductID != nil {
		if in.Campaigns, err = r.src.ActiveCampaigns(ctx, *opts.CompanyID, now); err != nil {
			return Set{}, fmt.Errorf("load campaigns: %w", err)
		}
	}

	set, unknown := Compose(in, opts, now)
	if len(unknown) > 0 {
		r.logger.Debug("ignoring unknown effect keys",
			zap.String("player_id", playerID.String()),
			zap.Strings("keys", unknown),
		)
	}
	return set, nil
}

// SkillBonus loads the player's unlocked skills and sums those matching title.
func (r *Resolver) SkillBonus(ctx context.Context, playerID uuid.UUID, title string) (float64, error) {
	skills, err := r.src.UnlockedSkills(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("load skills: %w", err)
	}
	return SkillBonus(skills, title), nil
}

// Compose sums every applicable contribution. It is pure.
func Compose(in Inputs, opts Options, now time.Time) (Set, []string) {
	var set Set
	var unknown []string

	for i := range in.Research {
		if !in.Research[i].Unlocked {
			continue
		}
		unknown = append(unknown, set.Merge(in.Research[i].Effects.Data())...)
	}
	if opts.ProjectTitle != "" {
		set.Add(ProjectProgress, SkillBonus(in.Skills, opts.ProjectTitle))
	}
	for i := range in.Events {
		if !in.Events[i].ActiveAt(now) {
			continue
		}
		unknown = append(unknown, set.Merge(in.Events[i].Effects.Data())...)
	}
	if opts.ProductID != nil {
		for i := range in.Campaigns {
			if in.Campaigns[i].Covers(*opts.ProductID, now) {
				set.Add(ProductRevenue, in.Campaigns[i].RevenueBoost)
			}
		}
	}
	return set, unknown
}

// SkillBonus sums level * efficiency for each unlocked skill with a project
// type contained in title, ignoring case. A skill counts once.
func SkillBonus(skills []models.PlayerSkill, title string) float64 {
	t := strings.ToLower(title)
	if t == "" {
		return 0
	}
	var total float64
	for i := range skills {
		s := &skills[i]
		if !s.Unlocked {
			continue
		}
		for _, pt := range s.ProjectTypes.Data() {
			pt = strings.ToLower(strings.TrimSpace(pt))
			if pt != "" && strings.Contains(t, pt) {
				total += float64(s.Level) * s.EfficiencyBonus
				break
			}
		}
	}
	return total
}
