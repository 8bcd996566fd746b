package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tycoon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)

	s := cfg.Simulation
	assert.Equal(t, time.Minute, s.TickInterval)
	assert.Equal(t, 1, s.TicksPerGameDay)
	assert.Equal(t, 5, s.ReputationPenaltyPerDifficulty)
	assert.Equal(t, 2, s.QuestExpiryReputationPenalty)
	assert.Equal(t, -10000.0, s.BankruptcyThreshold)
	assert.Equal(t, 0.15, s.BugSpawnChance)
	assert.Equal(t, 0.4, s.MarketEventChance)
	assert.Equal(t, 0.3, s.AIEventShare)
	assert.Equal(t, 10*time.Minute, s.MarketEventDuration)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "memory", cfg.Lock.Backend)
	assert.Equal(t, "test", cfg.App.Name)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("TYCOON_TEST_DB_HOST", "db.internal")
	t.Setenv("TYCOON_SIMULATION_TICKS_PER_GAME_DAY", "24")
	path := writeConfig(t, `
simulation:
  tick_interval: 30s
  cadence:
    pay-salaries: 12
database:
  host: ${TYCOON_TEST_DB_HOST:localhost}
  password: ${TYCOON_TEST_UNSET:fallback}
kafka:
  brokers: [a:9092, b:9092]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Simulation.TickInterval)
	assert.Equal(t, 24, cfg.Simulation.TicksPerGameDay, "environment wins over file and defaults")
	assert.Equal(t, map[string]int{"pay-salaries": 12}, cfg.Simulation.Cadence)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "fallback", cfg.Database.Password)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "host=db.internal port=5432 user=postgres password=fallback dbname=tycoon sslmode=disable", cfg.Database.DSN())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"zero tick":         "simulation:\n  tick_interval: 0s\n",
		"chance above one":  "simulation:\n  bug_spawn_chance: 1.5\n",
		"bad cadence":       "simulation:\n  cadence:\n    pay-salaries: 0\n",
		"unknown backend":   "lock:\n  backend: etcd\n",
		"pg lock on sqlite": "database:\n  driver: sqlite\nlock:\n  backend: postgres\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.ErrorIs(t, err, e.ErrInvalidInput)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TYCOON_X", "1")
	assert.Equal(t, "a=1 b=two c=${TYCOON_NOPE}", expandEnv("a=${TYCOON_X:9} b=${TYCOON_NOPE:two} c=${TYCOON_NOPE}"))
}
