package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ProjectProposal is the generated shape of a job-board project.
type ProjectProposal struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Difficulty  int     `json:"difficulty"`
	Reward      float64 `json:"reward"`
}

// DecodeProject parses a generated project. Difficulty is clamped to 1..10.
func DecodeProject(raw json.RawMessage) (*ProjectProposal, error) {
	var p ProjectProposal
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, fmt.Errorf("project without title")
	}
	if len(p.Title) > 128 {
		p.Title = p.Title[:128]
	}
	if math.IsNaN(p.Reward) || math.IsInf(p.Reward, 0) || p.Reward < 0 {
		return nil, fmt.Errorf("project %q has invalid reward", p.Title)
	}
	switch {
	case p.Difficulty < 1:
		p.Difficulty = 1
	case p.Difficulty > 10:
		p.Difficulty = 10
	}
	return &p, nil
}

// DecodeEmployeeName parses a generated employee name.
func DecodeEmployeeName(raw json.RawMessage) (string, error) {
	var out struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode employee name: %w", err)
	}
	name := strings.TrimSpace(out.Name)
	if name == "" || len(name) > 64 {
		return "", fmt.Errorf("invalid employee name %q", out.Name)
	}
	return name, nil
}
