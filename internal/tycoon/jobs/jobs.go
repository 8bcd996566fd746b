// Package jobs implements the periodic simulation steps. Each job reads the
// entity store, applies the economy formulas and persists the outcome.
// A job fails as a whole only when its initial listing fails; per-entity
// errors are logged and counted.
package jobs

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/ai"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/catalog"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/db"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/metrics"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
)

// Job names double as command names.
const (
	CalculateIdleIncome  = "calculate-idle-income"
	ProcessProjects      = "process-projects"
	ProcessAutomation    = "process-automation"
	UpdateEmployeesState = "update-employees-state"
	PaySalaries          = "pay-salaries"
	CheckBankruptcy      = "check-bankruptcy"
	ProcessProducts      = "process-products"
	SpawnProductBugs     = "spawn-product-bugs"
	TriggerMarketEvent   = "trigger-market-event"
	CheckDeadlines       = "check-deadlines"
	IncrementDay         = "increment-day"
)

// Names lists every job in tick order.
var Names = []string{
	CalculateIdleIncome,
	ProcessProjects,
	ProcessAutomation,
	UpdateEmployeesState,
	PaySalaries,
	CheckBankruptcy,
	ProcessProducts,
	SpawnProductBugs,
	TriggerMarketEvent,
	CheckDeadlines,
	IncrementDay,
}

// Result summarizes one job run.
type Result struct {
	Job       string `json:"job"`
	Processed int    `json:"processed"`
	Changed   int    `json:"changed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

func (r Result) String() string {
	return fmt.Sprintf("%s: processed=%d changed=%d skipped=%d failed=%d",
		r.Job, r.Processed, r.Changed, r.Skipped, r.Failed)
}

// Job is one periodic step of the simulation.
type Job interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// Settings are the tunable game rules.
type Settings struct {
	BaseIncomePerTick              decimal.Decimal
	BankruptcyThreshold            decimal.Decimal
	ReputationPenaltyPerDifficulty int
	QuestExpiryReputationPenalty   int
	IdleEnergyRecovery             int
	IdleMoraleRecovery             int
	BugSpawnChance                 float64
	MarketEventChance              float64
	AIEventShare                   float64
	MarketEventDuration            time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		BaseIncomePerTick:              decimal.NewFromInt(1),
		BankruptcyThreshold:            models.DefaultBankruptcyThreshold,
		ReputationPenaltyPerDifficulty: 5,
		QuestExpiryReputationPenalty:   2,
		IdleEnergyRecovery:             5,
		IdleMoraleRecovery:             1,
		BugSpawnChance:                 0.15,
		MarketEventChance:              0.4,
		AIEventShare:                   0.3,
		MarketEventDuration:            10 * time.Minute,
	}
}

// Random is a math/rand source safe for concurrent job runs.
type Random struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom seeds a source; seed 0 seeds from the clock.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{r: rand.New(rand.NewSource(seed))}
}

func (r *Random) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}

// Do runs fn with exclusive use of the underlying source.
func (r *Random) Do(fn func(r *rand.Rand)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.r)
}

// Env is what every job needs from the outside world.
type Env struct {
	Repo     *db.Repository
	Bonuses  *bonus.Resolver
	Catalog  *catalog.Catalog
	Events   events.Broadcaster
	AI       ai.Generator
	Settings Settings
	Logger   *zap.Logger
	Now      func() time.Time
	Rand     *Random
}

func (env *Env) now() time.Time {
	if env.Now != nil {
		return env.Now().UTC()
	}
	return time.Now().UTC()
}

func (env *Env) publish(channel string, name events.Name, payload events.Payload) {
	if env.Events == nil {
		return
	}
	metrics.EventsPublished.WithLabelValues(string(name)).Inc()
	env.Events.Publish(channel, name, payload)
}

// Registry holds every job in the order a tick runs them.
type Registry struct {
	jobs   []Job
	byName map[string]Job
}

// NewRegistry builds the eleven simulation jobs over env.
func NewRegistry(env *Env) *Registry {
	if env.Rand == nil {
		env.Rand = NewRandom(0)
	}
	if env.Events == nil {
		env.Events = events.Nop{}
	}
	return newRegistry(
		NewIncomeJob(env),
		NewProjectJob(env),
		NewAutomationJob(env),
		NewEmployeeStateJob(env),
		NewPayrollJob(env),
		NewBankruptcyJob(env),
		NewProductJob(env),
		NewBugJob(env),
		NewMarketJob(env),
		NewDeadlineJob(env),
		NewDayJob(env),
	)
}

func newRegistry(jobs ...Job) *Registry {
	r := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, j := range jobs {
		r.jobs = append(r.jobs, j)
		r.byName[j.Name()] = j
	}
	return r
}

// All returns the jobs in tick order.
func (r *Registry) All() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, j := range r.jobs {
		names[i] = j.Name()
	}
	return names
}

func (r *Registry) Get(name string) (Job, error) {
	j, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", e.ErrUnknownJob, name)
	}
	return j, nil
}
