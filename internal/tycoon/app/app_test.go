package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/config"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/jobs"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("TYCOON_DATABASE_DRIVER", "sqlite")
	t.Setenv("TYCOON_DATABASE_SQLITE_PATH", ":memory:")
	t.Setenv("TYCOON_LOCK_BACKEND", "memory")
	t.Setenv("TYCOON_SIMULATION_TICKS_PER_GAME_DAY", "4")
	t.Setenv("TYCOON_SIMULATION_SEED", "7")

	// no config file next to the package: defaults plus environment
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewAssemblesSimulation(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Registry.Names(), 11)
	assert.IsType(t, events.Nop{}, a.Events)

	cadence := a.Scheduler.Cadence()
	assert.Equal(t, 4, cadence[jobs.PaySalaries])
	assert.Equal(t, 4, cadence[jobs.IncrementDay])
	assert.Equal(t, 1, cadence[jobs.ProcessProjects])

	playerID := uuid.New()
	_, err = a.Game.RegisterPlayer(context.Background(), playerID, "Acme")
	require.NoError(t, err)

	report, err := a.Scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Failed)
	assert.Len(t, report.Results, 11)

	company, err := a.Repo.GetCompanyByOwner(context.Background(), playerID)
	require.NoError(t, err)
	assert.True(t, company.Cash.IsPositive())
}

func TestNewRejectsUnknownCadence(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Cadence = map[string]int{"brew-coffee": 3}

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.Nil(t, a)
}

func TestNewServerRegistersGateway(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "secret"
	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	srv, err := a.NewServer(context.Background())
	require.NoError(t, err)
	require.NotNil(t, srv)
	srv.Stop()
}

func TestSettings(t *testing.T) {
	s := Settings(config.SimulationConfig{
		BaseIncomePerTick:   2.5,
		BankruptcyThreshold: -500,
		BugSpawnChance:      0.5,
	})
	assert.Equal(t, "2.5", s.BaseIncomePerTick.String())
	assert.Equal(t, "-500", s.BankruptcyThreshold.String())
	assert.Equal(t, 0.5, s.BugSpawnChance)
	assert.Equal(t, 10*time.Minute, s.MarketEventDuration, "zero duration keeps the default")
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	_, err = NewLogger(config.ObservabilityConfig{LogFormat: "xml"})
	assert.Error(t, err)
	_, err = NewLogger(config.ObservabilityConfig{LogLevel: "loud"})
	assert.Error(t, err)
}
