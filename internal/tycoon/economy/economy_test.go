package economy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

func TestBaseRate(t *testing.T) {
	assert.InDelta(t, 16.6667, BaseRate(1), 1e-4)
	assert.InDelta(t, 5.0/3.0, BaseRate(10), 1e-9)
	assert.Equal(t, BaseRate(1), BaseRate(0), "difficulty below 1 is treated as 1")
}

func TestProgressRate(t *testing.T) {
	staff := []models.Employee{
		{Productivity: 50, Energy: 100},
		{Productivity: 40, Energy: 50},
	}
	// base 5/(5*0.3) = 3.333.., * 1.5 * 1.2 = 6, + (50 + 20)/100
	got := ProgressRate(5, 0.5, 0.2, staff)
	assert.InDelta(t, 6.7, got, 1e-9)
}

func TestAdvanceNeverExceedsMax(t *testing.T) {
	p := 0.0
	for i := 0; i < 1000; i++ {
		next := Advance(p, BaseRate(1)*3)
		assert.GreaterOrEqual(t, next, p)
		assert.LessOrEqual(t, next, models.MaxProgress)
		p = next
	}
	assert.Equal(t, models.MaxProgress, p)
	assert.Equal(t, 40.0, Advance(40, -5), "negative rate is ignored")
}

func TestProjectXP(t *testing.T) {
	assert.Equal(t, 160, ProjectXP(8, 0))
	assert.Equal(t, 240, ProjectXP(8, 0.5))
}

func TestWorkCrossesThresholds(t *testing.T) {
	e := &models.Employee{Energy: 30, Morale: 31}
	alert := Work(e)
	assert.Equal(t, 29, e.Energy)
	assert.Equal(t, 29, e.Morale)
	assert.True(t, alert.LowEnergy)
	assert.True(t, alert.LowMorale)

	alert = Work(e)
	assert.False(t, alert.Any(), "already below threshold does not alert again")
}

func TestRecomputeMorale(t *testing.T) {
	assert.Equal(t, 48, RecomputeMorale(49, 50))
	assert.Equal(t, 50, RecomputeMorale(60, 50))
	assert.Equal(t, 51, RecomputeMorale(80, 50))
	assert.Equal(t, 100, RecomputeMorale(90, 100))
	assert.Equal(t, 0, RecomputeMorale(10, 1))
}

func TestGrantXPLevelsUp(t *testing.T) {
	e := &models.Employee{Level: 1, Productivity: 10}
	levels := GrantXP(e, 350)
	// 100 to reach level 2, 200 to reach level 3, 50 left
	assert.Equal(t, 2, levels)
	assert.Equal(t, 3, e.Level)
	assert.Equal(t, 50, e.Experience)
	assert.Equal(t, 14.0, e.Productivity)
}

func TestRestReason(t *testing.T) {
	e := &models.Employee{Energy: 10, Morale: 10}
	reason, ok := RestReason(e, 20, 20)
	assert.True(t, ok)
	assert.Equal(t, "low_energy", reason, "energy is checked first")

	e.Energy = 50
	reason, ok = RestReason(e, 20, 20)
	assert.True(t, ok)
	assert.Equal(t, "low_morale", reason)

	e.Morale = 50
	_, ok = RestReason(e, 20, 20)
	assert.False(t, ok)
}

func TestProductRevenueCompounding(t *testing.T) {
	launched := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	p := &models.Product{
		BaseMonthlyRevenue: decimal.NewFromInt(1000),
		Upkeep:             decimal.NewFromInt(100),
		GrowthRate:         decimal.RequireFromString("0.02"),
		LaunchedAt:         launched,
	}

	rev := ProductRevenue(p, nil, bonus.Set{}, now)
	require.Equal(t, 3, rev.Months)
	assert.True(t, rev.Current.Equal(decimal.RequireFromString("1061.208")), rev.Current.String())

	want := (1061.208 - 100) / 43200
	got, _ := rev.NetPerMinute.Float64()
	assert.InDelta(t, want, got, 1e-12)
}

func TestProductRevenueBonuses(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &models.Product{
		BaseMonthlyRevenue: decimal.NewFromInt(1000),
		Upkeep:             decimal.NewFromInt(100),
		LaunchedAt:         now,
	}
	var set bonus.Set
	set.Add(bonus.GlobalRevenue, 0.5)
	set.Add(bonus.ProductRevenue, 0.25)
	set.Add(bonus.Upkeep, 0.15)

	rev := ProductRevenue(p, nil, set, now)
	assert.True(t, rev.Gross.Equal(decimal.NewFromInt(1750)), rev.Gross.String())
	assert.True(t, rev.Upkeep.Equal(decimal.NewFromInt(115)), rev.Upkeep.String())
}

func TestBugMultiplierCompounds(t *testing.T) {
	bugs := []models.ProductBug{
		{RevenuePenalty: 10, Status: models.BugActive},
		{RevenuePenalty: 20, Status: models.BugFixing},
		{RevenuePenalty: 50, Status: models.BugFixed},
	}
	got := BugMultiplier(bugs)
	assert.True(t, got.Equal(decimal.RequireFromString("0.72")), got.String())
	assert.True(t, BugMultiplier(nil).Equal(decimal.NewFromInt(1)))
}

func TestBugMultiplierAppliedToRevenue(t *testing.T) {
	now := time.Now()
	p := &models.Product{BaseMonthlyRevenue: decimal.NewFromInt(1000), LaunchedAt: now}
	bugs := []models.ProductBug{
		{RevenuePenalty: 10, Status: models.BugActive},
		{RevenuePenalty: 20, Status: models.BugActive},
	}
	rev := ProductRevenue(p, bugs, bonus.Set{}, now)
	assert.True(t, rev.Gross.Equal(decimal.NewFromInt(720)), rev.Gross.String())
}

func TestWholeMonthsBetween(t *testing.T) {
	base := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"before launch", base.Add(-time.Hour), 0},
		{"same instant", base, 0},
		{"month end rolls over", time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC), 1},
		{"exactly a year", time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC), 12},
		{"hour short of a year", time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC), 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WholeMonthsBetween(base, tt.end))
		})
	}
}

func TestDesiredStaff(t *testing.T) {
	assert.Equal(t, 5, DesiredStaff(3, 8, 10))
	assert.Equal(t, 2, DesiredStaff(3, 2, 10))
	assert.Equal(t, MaxStaffPerProject, DesiredStaff(100, 5, 5))
	assert.Equal(t, 1, DesiredStaff(1, 1, 100))
}

func TestPlanAssignmentsWeighted(t *testing.T) {
	easy := uuid.New()
	hard := uuid.New()
	candidates := []Candidate{
		{EmployeeID: uuid.New(), Productivity: 10},
		{EmployeeID: uuid.New(), Productivity: 30},
		{EmployeeID: uuid.New(), Productivity: 20},
	}
	projects := []Demand{
		{ProjectID: easy, Difficulty: 2},
		{ProjectID: hard, Difficulty: 8},
	}

	plan := PlanAssignments(candidates, projects)
	require.Len(t, plan, 3)

	counts := map[uuid.UUID]int{}
	for _, a := range plan {
		counts[a.ProjectID]++
	}
	assert.Equal(t, 2, counts[hard])
	assert.Equal(t, 1, counts[easy])
	assert.Equal(t, candidates[1].EmployeeID, plan[0].EmployeeID, "most productive goes first")
	assert.Equal(t, hard, plan[0].ProjectID, "hardest project is visited first")
}

func TestPlanAssignmentsRespectsExistingStaff(t *testing.T) {
	full := uuid.New()
	open := uuid.New()
	candidates := []Candidate{
		{EmployeeID: uuid.New(), Productivity: 10},
		{EmployeeID: uuid.New(), Productivity: 10},
	}
	projects := []Demand{
		{ProjectID: full, Difficulty: 5, Assigned: 10},
		{ProjectID: open, Difficulty: 5},
	}

	plan := PlanAssignments(candidates, projects)
	require.Len(t, plan, 2)
	for _, a := range plan {
		assert.Equal(t, open, a.ProjectID)
	}
}

func TestPlanAssignmentsStopsWhenSatisfied(t *testing.T) {
	only := uuid.New()
	var candidates []Candidate
	for i := 0; i < 5; i++ {
		candidates = append(candidates, Candidate{EmployeeID: uuid.New()})
	}
	plan := PlanAssignments(candidates, []Demand{{ProjectID: only, Difficulty: 1, Assigned: 9}})
	assert.Len(t, plan, 1)
	assert.Empty(t, PlanAssignments(nil, []Demand{{ProjectID: only, Difficulty: 1}}))
}

func TestPayrollFor(t *testing.T) {
	staff := []models.Employee{
		{Salary: decimal.NewFromInt(3000), Status: models.EmployeeWorking},
		{Salary: decimal.NewFromInt(1500), Status: models.EmployeeIdle},
		{Salary: decimal.NewFromInt(9999), Status: models.EmployeeQuit},
	}
	pay := PayrollFor(staff, bonus.Set{})
	assert.True(t, pay.Monthly.Equal(decimal.NewFromInt(4500)))
	assert.True(t, pay.Daily.Equal(decimal.NewFromInt(150)))
	assert.True(t, pay.CanPay(decimal.NewFromInt(150)))
	assert.False(t, pay.CanPay(decimal.RequireFromString("149.99")))

	var set bonus.Set
	set.Add(bonus.Salary, -0.1)
	assert.True(t, PayrollFor(staff, set).Daily.Equal(decimal.NewFromInt(135)))
}

func TestTickIncome(t *testing.T) {
	var set bonus.Set
	set.Add(bonus.AutoIncome, 1)
	set.Add(bonus.PassiveIncome, 2)
	set.Add(bonus.GlobalRevenue, 0.5)

	// (1*3 + 5*2 + 2) * 1.5
	got := TickIncome(decimal.NewFromInt(1), 3, decimal.NewFromInt(5), set)
	assert.True(t, got.Equal(decimal.RequireFromString("22.5")), got.String())
}

func TestBankrupt(t *testing.T) {
	assert.True(t, Bankrupt(decimal.NewFromInt(-10001), models.DefaultBankruptcyThreshold))
	assert.False(t, Bankrupt(decimal.NewFromInt(-10000), models.DefaultBankruptcyThreshold))
}
