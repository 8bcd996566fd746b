// Package catalog loads the static game content (bug templates, fallback
// market events and starter skills) from YAML.
package catalog

import (
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

//go:embed data/*.yaml
var builtin embed.FS

const (
	bugsFile   = "bugs.yaml"
	eventsFile = "market_events.yaml"
	skillsFile = "skills.yaml"
)

// BugTemplate describes a bug that can be spawned on a product.
type BugTemplate struct {
	Title          string  `yaml:"title"`
	Severity       string  `yaml:"severity"`
	RevenuePenalty float64 `yaml:"revenue_penalty"`
	FixCost        float64 `yaml:"fix_cost"`
	FixTimeMinutes int     `yaml:"fix_time_minutes"`
}

// EventTemplate describes a canned market event.
type EventTemplate struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Effects     map[string]float64 `yaml:"effects"`
}

// SkillTemplate describes a skill granted at registration.
type SkillTemplate struct {
	Name            string   `yaml:"name"`
	EfficiencyBonus float64  `yaml:"efficiency_bonus"`
	ProjectTypes    []string `yaml:"project_types"`
}

// Catalog is the validated static content.
type Catalog struct {
	Bugs   []BugTemplate
	Events []EventTemplate
	Skills []SkillTemplate
}

// Load parses the built-in catalog.
func Load() (*Catalog, error) {
	return load(func(name string) ([]byte, error) {
		return builtin.ReadFile("data/" + name)
	})
}

// LoadDir parses a catalog from dir. Files missing from dir fall back to the
// built-in copy.
func LoadDir(dir string) (*Catalog, error) {
	return load(func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			return builtin.ReadFile("data/" + name)
		}
		return data, err
	})
}

func load(read func(string) ([]byte, error)) (*Catalog, error) {
	var c Catalog
	if err := decode(read, bugsFile, &c.Bugs); err != nil {
		return nil, err
	}
	if err := decode(read, eventsFile, &c.Events); err != nil {
		return nil, err
	}
	if err := decode(read, skillsFile, &c.Skills); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func decode(read func(string) ([]byte, error), name string, out interface{}) error {
	data, err := read(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// Validate checks every template for values the simulation cannot use.
func (c *Catalog) Validate() error {
	if len(c.Bugs) == 0 {
		return fmt.Errorf("%w: bug catalog is empty", e.ErrInvalidInput)
	}
	if len(c.Events) == 0 {
		return fmt.Errorf("%w: market event catalog is empty", e.ErrInvalidInput)
	}
	for _, b := range c.Bugs {
		if b.Title == "" {
			return fmt.Errorf("%w: bug template without title", e.ErrInvalidInput)
		}
		if b.RevenuePenalty < 0 || b.RevenuePenalty > 100 {
			return fmt.Errorf("%w: bug %q penalty %v out of range", e.ErrInvalidInput, b.Title, b.RevenuePenalty)
		}
		if b.FixCost < 0 || b.FixTimeMinutes < 0 {
			return fmt.Errorf("%w: bug %q has negative fix cost or time", e.ErrInvalidInput, b.Title)
		}
	}
	for _, ev := range c.Events {
		if len(ev.Effects) == 0 {
			return fmt.Errorf("%w: event %q has no effects", e.ErrInvalidInput, ev.Name)
		}
		for k := range ev.Effects {
			if _, ok := bonus.ParseKey(k); !ok {
				return fmt.Errorf("%w: event %q has unknown effect %q", e.ErrInvalidInput, ev.Name, k)
			}
		}
	}
	return nil
}

// RandomBug picks a bug template uniformly.
func (c *Catalog) RandomBug(r *rand.Rand) BugTemplate {
	return c.Bugs[r.Intn(len(c.Bugs))]
}

// RandomEvent picks a market event template uniformly.
func (c *Catalog) RandomEvent(r *rand.Rand) EventTemplate {
	return c.Events[r.Intn(len(c.Events))]
}

// NewBug builds an active bug on productID from t.
func (t BugTemplate) NewBug(productID uuid.UUID, now time.Time) *models.ProductBug {
	return &models.ProductBug{
		ID:             uuid.New(),
		ProductID:      productID,
		Title:          t.Title,
		Severity:       t.Severity,
		RevenuePenalty: t.RevenuePenalty,
		FixCost:        models.Money(t.FixCost),
		FixTimeMinutes: t.FixTimeMinutes,
		Status:         models.BugActive,
		DiscoveredAt:   now,
	}
}

// NewEvent builds a static market event from t lasting d from now.
func (t EventTemplate) NewEvent(now time.Time, d time.Duration) *models.MarketEvent {
	effects := make(map[string]float64, len(t.Effects))
	for k, v := range t.Effects {
		effects[k] = v
	}
	return &models.MarketEvent{
		ID:          uuid.New(),
		Name:        t.Name,
		Description: t.Description,
		Effects:     datatypes.NewJSONType(effects),
		Source:      models.EventSourceStatic,
		StartTime:   now,
		EndTime:     now.Add(d),
	}
}

// NewSkill builds a locked level 1 skill for playerID from t.
func (t SkillTemplate) NewSkill(playerID uuid.UUID) *models.PlayerSkill {
	types := make([]string, len(t.ProjectTypes))
	copy(types, t.ProjectTypes)
	return &models.PlayerSkill{
		ID:              uuid.New(),
		PlayerID:        playerID,
		Name:            t.Name,
		Level:           1,
		EfficiencyBonus: t.EfficiencyBonus,
		ProjectTypes:    datatypes.NewJSONType(types),
	}
}
