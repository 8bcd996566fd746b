package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/economy"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
)

// PayrollJob pays one game day of salaries for every company with staff.
// A company that cannot pay keeps its cash and its staff lose morale.
type PayrollJob struct {
	env    *Env
	logger *zap.Logger
}

func NewPayrollJob(env *Env) *PayrollJob {
	return &PayrollJob{env: env, logger: env.Logger.Named("payroll_job")}
}

func (j *PayrollJob) Name() string { return PaySalaries }

func (j *PayrollJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}
	now := j.env.now()

	companies, err := j.env.Repo.ListCompanies(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list companies: %w", err)
	}

	for i := range companies {
		c := &companies[i]
		res.Processed++

		staff, err := j.env.Repo.ListCompanyEmployees(ctx, c.ID)
		if err != nil {
			j.logger.Error("Failed to load staff", zap.String("company_id", c.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		if len(staff) == 0 {
			res.Skipped++
			continue
		}

		set, err := j.env.Bonuses.Resolve(ctx, c.OwnerID, now, bonus.Options{})
		if err != nil {
			j.logger.Error("Failed to resolve bonuses", zap.String("company_id", c.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		bill := economy.PayrollFor(staff, set)

		_, err = j.env.Repo.UpdateCompany(ctx, c.ID, func(locked *models.Company) error {
			if !bill.CanPay(locked.Cash) {
				return e.ErrInsufficientFunds
			}
			locked.Cash = locked.Cash.Sub(bill.Daily)
			locked.MonthlyCosts = bill.Monthly
			return nil
		})
		switch {
		case err == nil:
			res.Changed++
		case errors.Is(err, e.ErrInsufficientFunds):
			if _, err := j.env.Repo.PenalizeCompanyMorale(ctx, c.ID, economy.PayrollMoralePenalty); err != nil {
				j.logger.Error("Failed to apply payroll morale penalty", zap.String("company_id", c.ID.String()), zap.Error(err))
				res.Failed++
				continue
			}
			j.logger.Warn("Payroll failed", zap.String("company_id", c.ID.String()), zap.String("due", bill.Daily.StringFixed(models.MoneyScale)))
			j.env.publish(events.PlayerChannel(c.OwnerID), events.PayrollFailed, events.Payload{
				"company_id": c.ID.String(),
				"due":        bill.Daily.StringFixed(models.MoneyScale),
				"employees":  len(staff),
			})
			res.Changed++
		default:
			j.logger.Error("Failed to pay salaries", zap.String("company_id", c.ID.String()), zap.Error(err))
			res.Failed++
		}
	}
	return res, nil
}

// BankruptcyJob resets companies whose cash fell below the threshold.
type BankruptcyJob struct {
	env    *Env
	logger *zap.Logger
}

func NewBankruptcyJob(env *Env) *BankruptcyJob {
	return &BankruptcyJob{env: env, logger: env.Logger.Named("bankruptcy_job")}
}

func (j *BankruptcyJob) Name() string { return CheckBankruptcy }

func (j *BankruptcyJob) Run(ctx context.Context) (Result, error) {
	res := Result{Job: j.Name()}
	threshold := j.env.Settings.BankruptcyThreshold

	companies, err := j.env.Repo.ListCompanies(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list companies: %w", err)
	}

	for i := range companies {
		c := &companies[i]
		res.Processed++
		if !economy.Bankrupt(c.Cash, threshold) {
			res.Skipped++
			continue
		}

		summary, err := j.env.Repo.ResetCompany(ctx, c.ID)
		if err != nil {
			j.logger.Error("Failed to reset bankrupt company", zap.String("company_id", c.ID.String()), zap.Error(err))
			res.Failed++
			continue
		}
		j.logger.Warn("Company went bankrupt",
			zap.String("company_id", c.ID.String()),
			zap.String("cash", c.Cash.StringFixed(models.MoneyScale)),
			zap.Int64("employees_removed", summary.Employees),
			zap.Int64("projects_removed", summary.Projects),
			zap.Int64("products_deactivated", summary.Products),
		)
		j.env.publish(events.PlayerChannel(c.OwnerID), events.CompanyBankrupt, events.Payload{
			"company": c.Name,
			"cash":    c.Cash.StringFixed(models.MoneyScale),
		})
		res.Changed++
	}
	return res, nil
}
