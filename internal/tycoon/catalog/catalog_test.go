package catalog

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

func TestLoadBuiltin(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Bugs)
	assert.Len(t, c.Events, 4)
	assert.NotEmpty(t, c.Skills)

	names := make([]string, 0, len(c.Events))
	for _, ev := range c.Events {
		names = append(names, ev.Name)
	}
	assert.ElementsMatch(t, []string{"Tech Boom", "Market Crash", "AI Hype Wave", "Bug Outbreak"}, names)
}

func TestLoadDirOverridesAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	bugs := []byte("- title: Custom bug\n  severity: low\n  revenue_penalty: 1\n  fix_cost: 10\n  fix_time_minutes: 1\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, bugsFile), bugs, 0o600))

	c, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, c.Bugs, 1)
	assert.Equal(t, "Custom bug", c.Bugs[0].Title)
	assert.Len(t, c.Events, 4, "missing file falls back to built-in")
}

func TestLoadDirRejectsUnknownEffect(t *testing.T) {
	dir := t.TempDir()
	events := []byte("- name: Bad\n  effects:\n    revenue_multiplier: 1\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, eventsFile), events, 0o600))

	_, err := LoadDir(dir)
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestValidateBugPenaltyRange(t *testing.T) {
	c := &Catalog{
		Bugs:   []BugTemplate{{Title: "x", RevenuePenalty: 120}},
		Events: []EventTemplate{{Name: "y", Effects: map[string]float64{"upkeep_multiplier": 0.1}}},
	}
	assert.ErrorIs(t, c.Validate(), e.ErrInvalidInput)
}

func TestRandomPicksAreUniformAndDeterministic(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	a := rand.New(rand.NewSource(7))
	b := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		assert.Equal(t, c.RandomBug(a), c.RandomBug(b))
	}

	seen := map[string]bool{}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 400; i++ {
		seen[c.RandomEvent(r).Name] = true
	}
	assert.Len(t, seen, len(c.Events))
}

func TestTemplateConstructors(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	productID := uuid.New()

	bug := BugTemplate{Title: "t", Severity: "low", RevenuePenalty: 5, FixCost: 12.345, FixTimeMinutes: 3}.NewBug(productID, now)
	assert.Equal(t, models.BugActive, bug.Status)
	assert.Equal(t, productID, bug.ProductID)
	assert.Equal(t, "12.35", bug.FixCost.StringFixed(2))
	assert.Equal(t, now, bug.DiscoveredAt)

	ev := EventTemplate{Name: "n", Effects: map[string]float64{"upkeep_multiplier": 0.15}}.NewEvent(now, 10*time.Minute)
	assert.Equal(t, models.EventSourceStatic, ev.Source)
	assert.Equal(t, now.Add(10*time.Minute), ev.EndTime)
	assert.Equal(t, 0.15, ev.Effects.Data()["upkeep_multiplier"])

	playerID := uuid.New()
	skill := SkillTemplate{Name: "s", EfficiencyBonus: 0.1, ProjectTypes: []string{"web"}}.NewSkill(playerID)
	assert.False(t, skill.Unlocked)
	assert.Equal(t, 1, skill.Level)
	assert.Equal(t, []string{"web"}, skill.ProjectTypes.Data())
}
