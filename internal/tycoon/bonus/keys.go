// Package bonus resolves the stacked multiplier set that applies to a
// player at a moment in time. Contributions from research, skills, market
// events and marketing campaigns are summed per key; consumers apply a key
// as value * (1 + sum).
package bonus

import "sort"

// Key names one multiplier or flat bonus.
type Key int

const (
	ProjectProgress Key = iota
	GlobalRevenue
	ProductRevenue
	Upkeep
	ProductGrowth
	AutoIncome
	PassiveIncome
	Salary
	XP

	numKeys
)

var keyNames = [numKeys]string{
	ProjectProgress: "project_progress_multiplier",
	GlobalRevenue:   "global_revenue_multiplier",
	ProductRevenue:  "product_revenue_multiplier",
	Upkeep:          "upkeep_multiplier",
	ProductGrowth:   "product_growth_multiplier",
	AutoIncome:      "auto_income_multiplier",
	PassiveIncome:   "passive_income",
	Salary:          "salary_multiplier",
	XP:              "xp_multiplier",
}

var keysByName = func() map[string]Key {
	m := make(map[string]Key, numKeys)
	for k, name := range keyNames {
		m[name] = Key(k)
	}
	return m
}()

func (k Key) String() string {
	if k < 0 || k >= numKeys {
		return "unknown"
	}
	return keyNames[k]
}

// ParseKey maps a stored effect name to its Key.
func ParseKey(name string) (Key, bool) {
	k, ok := keysByName[name]
	return k, ok
}

// Keys lists every known key in declaration order.
func Keys() []Key {
	out := make([]Key, numKeys)
	for i := range out {
		out[i] = Key(i)
	}
	return out
}

// Set is a complete bonus set. Unset keys read as zero.
type Set [numKeys]float64

// Get returns the summed contribution for k.
func (s Set) Get(k Key) float64 {
	if k < 0 || k >= numKeys {
		return 0
	}
	return s[k]
}

// Add sums v into k.
func (s *Set) Add(k Key, v float64) {
	if k < 0 || k >= numKeys {
		return
	}
	s[k] += v
}

// Factor returns 1 + sum for k.
func (s Set) Factor(k Key) float64 {
	return 1 + s.Get(k)
}

// Apply scales v by the factor of k.
func (s Set) Apply(k Key, v float64) float64 {
	return v * s.Factor(k)
}

// Merge adds a stored effect bag and returns the names it did not know.
func (s *Set) Merge(effects map[string]float64) []string {
	var unknown []string
	for name, v := range effects {
		k, ok := ParseKey(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		s.Add(k, v)
	}
	sort.Strings(unknown)
	return unknown
}

// Map returns the non-zero entries keyed by name.
func (s Set) Map() map[string]float64 {
	out := make(map[string]float64)
	for k, v := range s {
		if v != 0 {
			out[keyNames[k]] = v
		}
	}
	return out
}
