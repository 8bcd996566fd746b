package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/economy"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
)

// IncomeJob credits every company with its idle income for one tick.
type IncomeJob struct {
	env    *Env
	logger *zap.Logger
}

func NewIncomeJob(env *Env) *IncomeJob {
	return &IncomeJob{env: env, logger: env.Logger.Named("income_job")}
}

func (j *IncomeJob) Name() string { return CalculateIdleIncome }

func (j *IncomeJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}
	now := j.env.now()

	companies, err := j.env.Repo.ListCompanies(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list companies: %w", err)
	}

	for i := range companies {
		c := &companies[i]
		res.Processed++

		state, err := j.env.Repo.GetGameState(ctx, c.OwnerID)
		if errors.Is(err, e.ErrNotFound) {
			res.Skipped++
			continue
		}
		if err != nil {
			j.logger.Error("Failed to load game state", zap.String("company_id", c.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}

		set, err := j.env.Bonuses.Resolve(ctx, c.OwnerID, now, bonus.Options{})
		if err != nil {
			j.logger.Error("Failed to resolve bonuses", zap.String("company_id", c.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}

		income := economy.TickIncome(j.env.Settings.BaseIncomePerTick, c.Level, state.AutoIncome, set)
		if !income.IsPositive() {
			res.Skipped++
			continue
		}

		_, err = j.env.Repo.UpdateCompany(ctx, c.ID, func(locked *models.Company) error {
			locked.Cash = locked.Cash.Add(income)
			return nil
		})
		if err != nil {
			j.logger.Error("Failed to credit idle income", zap.String("company_id", c.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		res.Changed++
	}
	return res, nil
}

// EmployeeStateJob lets idle employees recover energy and morale.
type EmployeeStateJob struct {
	env    *Env
	logger *zap.Logger
}

func NewEmployeeStateJob(env *Env) *EmployeeStateJob {
	return &EmployeeStateJob{env: env, logger: env.Logger.Named("employee_state_job")}
}

func (j *EmployeeStateJob) Name() string { return UpdateEmployeesState }

func (j *EmployeeStateJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}
	s := j.env.Settings
	n, err := j.env.Repo.RecoverIdleEmployees(ctx, s.IdleEnergyRecovery, s.IdleMoraleRecovery)
	if err != nil {
		return res, fmt.Errorf("failed to recover idle employees: %w", err)
	}
	res.Processed = int(n)
	res.Changed = int(n)
	return res, nil
}

// DayJob advances the game day of every player.
type DayJob struct {
	env    *Env
	logger *zap.Logger
}

func NewDayJob(env *Env) *DayJob {
	return &DayJob{env: env, logger: env.Logger.Named("day_job")}
}

func (j *DayJob) Name() string { return IncrementDay }

func (j *DayJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}
	n, err := j.env.Repo.IncrementDay(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to increment day: %w", err)
	}
	j.logger.Info("Game day advanced", zap.Int64("players", n))
	res.Processed = int(n)
	res.Changed = int(n)
	return res, nil
}
