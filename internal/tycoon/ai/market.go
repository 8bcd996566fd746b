package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
)

// MarketEventProposal is the generated shape of a market event.
type MarketEventProposal struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	EffectType  string  `json:"effect_type"`
	EffectValue float64 `json:"effect_value"`
}

// DecodeMarketEvent parses and validates a generated market event.
func DecodeMarketEvent(raw json.RawMessage) (*MarketEventProposal, error) {
	var p MarketEventProposal
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode market event: %w", err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("market event without name")
	}
	if math.IsNaN(p.EffectValue) || math.IsInf(p.EffectValue, 0) {
		return nil, fmt.Errorf("market event %q has invalid effect value", p.Name)
	}
	if _, err := p.Effects(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Effects maps the proposal onto bonus keys. Cost effects always raise
// upkeep.
func (p *MarketEventProposal) Effects() (map[string]float64, error) {
	switch strings.ToLower(p.EffectType) {
	case "revenue", "bonus":
		return map[string]float64{bonus.GlobalRevenue.String(): p.EffectValue}, nil
	case "progress":
		return map[string]float64{bonus.ProjectProgress.String(): p.EffectValue}, nil
	case "cost":
		return map[string]float64{bonus.Upkeep.String(): math.Abs(p.EffectValue)}, nil
	default:
		return nil, fmt.Errorf("market event %q has unknown effect type %q", p.Name, p.EffectType)
	}
}
