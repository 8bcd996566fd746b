package jobs

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/catalog"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/economy"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
)

// ProductJob credits one minute of net product revenue to each company and
// refreshes its monthly revenue figure.
type ProductJob struct {
	env    *Env
	logger *zap.Logger
}

func NewProductJob(env *Env) *ProductJob {
	return &ProductJob{env: env, logger: env.Logger.Named("product_job")}
}

func (j *ProductJob) Name() string { return ProcessProducts }

type companyRevenue struct {
	net   decimal.Decimal
	gross decimal.Decimal
}

func (j *ProductJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}
	now := j.env.now()

	products, err := j.env.Repo.ListActiveProducts(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list products: %w", err)
	}

	owners := map[uuid.UUID]uuid.UUID{}
	var order []uuid.UUID
	totals := map[uuid.UUID]*companyRevenue{}
	failed := map[uuid.UUID]bool{}

	for i := range products {
		p := &products[i]
		res.Processed++

		ownerID, ok := owners[p.CompanyID]
		if !ok {
			c, err := j.env.Repo.GetCompany(ctx, p.CompanyID)
			if err != nil {
				j.logger.Error("Failed to load company", zap.String("product_id", p.ID.String()), zap.Error(err))
				res.Failed++
				continue
			}
			ownerID = c.OwnerID
			owners[p.CompanyID] = ownerID
		}

		rev, err := j.revenue(ctx, p, ownerID, now)
		if err != nil {
			j.logger.Error("Failed to compute revenue", zap.String("product_id", p.ID.String()), zap.Error(err))
			res.Failed++
			// a partial total would under-report the monthly figure
			failed[p.CompanyID] = true
			continue
		}

		t, ok := totals[p.CompanyID]
		if !ok {
			t = &companyRevenue{net: decimal.Zero, gross: decimal.Zero}
			totals[p.CompanyID] = t
			order = append(order, p.CompanyID)
		}
		t.net = t.net.Add(rev.NetPerMinute)
		t.gross = t.gross.Add(rev.Gross)
	}

	for _, companyID := range order {
		t := totals[companyID]
		_, err := j.env.Repo.UpdateCompany(ctx, companyID, func(c *models.Company) error {
			c.Accrue(t.net)
			if !failed[companyID] {
				c.MonthlyRevenue = t.gross
			}
			return nil
		})
		if err != nil {
			j.logger.Error("Failed to credit product revenue", zap.String("company_id", companyID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		res.Changed++
	}
	return res, nil
}

func (j *ProductJob) revenue(ctx context.Context, p *models.Product, ownerID uuid.UUID, now time.Time) (economy.Revenue, error) {
	companyID, productID := p.CompanyID, p.ID
	set, err := j.env.Bonuses.Resolve(ctx, ownerID, now, bonus.Options{CompanyID: &companyID, ProductID: &productID})
	if err != nil {
		return economy.Revenue{}, err
	}
	bugs, err := j.env.Repo.ListOpenBugs(ctx, p.ID)
	if err != nil {
		return economy.Revenue{}, fmt.Errorf("load bugs: %w", err)
	}
	return economy.ProductRevenue(p, bugs, set, now), nil
}

// BugJob spawns random bugs on active products and completes fixes whose
// time has elapsed.
type BugJob struct {
	env    *Env
	logger *zap.Logger
}

func NewBugJob(env *Env) *BugJob {
	return &BugJob{env: env, logger: env.Logger.Named("bug_job")}
}

func (j *BugJob) Name() string { return SpawnProductBugs }

func (j *BugJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}
	now := j.env.now()

	products, err := j.env.Repo.ListActiveProducts(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list products: %w", err)
	}
	owners := newOwnerCache(j.env)

	for i := range products {
		p := &products[i]
		res.Processed++

		open, err := j.env.Repo.ListOpenBugs(ctx, p.ID)
		if err != nil {
			j.logger.Error("Failed to load bugs", zap.String("product_id", p.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		if len(open) >= models.MaxOpenBugsPerProduct || len(j.env.Catalog.Bugs) == 0 ||
			j.env.Rand.Float64() >= j.env.Settings.BugSpawnChance {
			res.Skipped++
			continue
		}

		var tpl catalog.BugTemplate
		j.env.Rand.Do(func(r *rand.Rand) { tpl = j.env.Catalog.RandomBug(r) })
		bug := tpl.NewBug(p.ID, now)
		err = j.env.Repo.CreateBug(ctx, bug)
		if errors.Is(err, e.ErrBugCapReached) {
			res.Skipped++
			continue
		}
		if err != nil {
			j.logger.Error("Failed to spawn bug", zap.String("product_id", p.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		res.Changed++
		j.env.publish(owners.channel(ctx, p.CompanyID), events.BugSpawned, events.Payload{
			"product":  p.Name,
			"bug_id":   bug.ID.String(),
			"title":    bug.Title,
			"severity": bug.Severity,
			"penalty":  bug.RevenuePenalty,
		})
	}

	fixing, err := j.env.Repo.ListFixingBugs(ctx)
	if err != nil {
		j.logger.Error("Failed to list bugs under fix", zap.Error(err))
		res.Failed++
		return res, nil
	}
	for i := range fixing {
		b := &fixing[i]
		res.Processed++
		due, ok := b.FixDueAt()
		if !ok || now.Before(due) {
			res.Skipped++
			continue
		}
		done, err := j.env.Repo.TransitionBug(ctx, b.ID, models.BugFixing, models.BugFixed, now)
		if err != nil {
			j.logger.Error("Failed to complete bug fix", zap.String("bug_id", b.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		if !done {
			res.Skipped++
			continue
		}
		res.Changed++

		channel := events.GlobalChannel
		if p, err := j.env.Repo.GetProduct(ctx, b.ProductID); err == nil {
			channel = owners.channel(ctx, p.CompanyID)
		}
		j.env.publish(channel, events.BugFixed, events.Payload{
			"bug_id":     b.ID.String(),
			"title":      b.Title,
			"product_id": b.ProductID.String(),
		})
	}
	return res, nil
}

// ownerCache maps companies to their owner's event channel within one run.
type ownerCache struct {
	env      *Env
	channels map[uuid.UUID]string
}

func newOwnerCache(env *Env) *ownerCache {
	return &ownerCache{env: env, channels: map[uuid.UUID]string{}}
}

func (o *ownerCache) channel(ctx context.Context, companyID uuid.UUID) string {
	if ch, ok := o.channels[companyID]; ok {
		return ch
	}
	ch := events.GlobalChannel
	if c, err := o.env.Repo.GetCompany(ctx, companyID); err == nil {
		ch = events.PlayerChannel(c.OwnerID)
	}
	o.channels[companyID] = ch
	return ch
}
