package domain

import "strings"

// DefaultTopN is used when neither the group nor the notify section sets top_n
const DefaultTopN = 3

// GroupConfig defines a trackable product category.
// Groups are kept in configured order; the first matching group wins an offer,
// so reordering groups changes which group an ambiguous offer lands in.
type GroupConfig struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	BaseUnit    BaseUnit `json:"baseUnit"`
	SearchTerms []string `json:"searchTerms"`
	IncludeAny  []string `json:"includeAny"`
	Exclude     []string `json:"exclude"`
	Threshold   *float64 `json:"threshold,omitempty"`
	TopN        int      `json:"topN"`
}

// Label returns the display name, falling back to the group key
func (g GroupConfig) Label() string {
	if g.DisplayName != "" {
		return g.DisplayName
	}
	return g.Name
}

// SearchTerms returns the distinct search terms of all groups in first-use order,
// compared case-insensitively. Groups without search terms search by name.
func SearchTerms(groups []GroupConfig) []string {
	seen := make(map[string]bool)
	var terms []string
	add := func(term string) {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, term)
	}

	for _, g := range groups {
		if len(g.SearchTerms) == 0 {
			add(g.Name)
			continue
		}
		for _, t := range g.SearchTerms {
			add(t)
		}
	}
	return terms
}
