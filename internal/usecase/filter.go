package usecase

import (
	"fmt"
	"strings"

	"github.com/Glx28/billigst-mat/internal/domain"
)

// Filter assigns normalized offers to configured groups.
//
// Groups are evaluated in configured order and the first match wins, so an offer
// that fits two groups always lands in the one listed first. Reordering the group
// file changes outcomes.
type Filter struct {
	groups         []domain.GroupConfig
	excludedStores []string
}

// NewFilter creates a filter over groups in their configured order.
// excludedStores are case-insensitive substrings of store names that are never tracked.
func NewFilter(groups []domain.GroupConfig, excludedStores []string) *Filter {
	excluded := make([]string, 0, len(excludedStores))
	for _, s := range excludedStores {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			excluded = append(excluded, s)
		}
	}
	return &Filter{
		groups:         groups,
		excludedStores: excluded,
	}
}

// Groups returns the groups in configured order
func (f *Filter) Groups() []domain.GroupConfig {
	return f.groups
}

// BaseUnits returns the distinct base units used by the groups, in first-use order
func (f *Filter) BaseUnits() []domain.BaseUnit {
	seen := make(map[domain.BaseUnit]bool)
	var units []domain.BaseUnit
	for _, g := range f.groups {
		if !seen[g.BaseUnit] {
			seen[g.BaseUnit] = true
			units = append(units, g.BaseUnit)
		}
	}
	return units
}

// IsExcludedStore reports whether the store is globally excluded
func (f *Filter) IsExcludedStore(store string) bool {
	store = strings.ToLower(strings.TrimSpace(store))
	if store == "" {
		return false
	}
	for _, excl := range f.excludedStores {
		if strings.Contains(store, excl) {
			return true
		}
	}
	return false
}

// Matches reports whether the offer passes the group's unit and term rules
func Matches(offer domain.NormalizedOffer, group domain.GroupConfig) bool {
	if offer.BaseUnit != group.BaseUnit {
		return false
	}

	name := strings.ToLower(offer.ProductName)

	for _, term := range group.Exclude {
		if term = strings.ToLower(term); term != "" && strings.Contains(name, term) {
			return false
		}
	}

	for _, term := range group.IncludeAny {
		if term = strings.ToLower(term); term != "" && strings.Contains(name, term) {
			return true
		}
	}
	return false
}

// AssignGroup returns the first group, in configured order, that the offer belongs to.
// It returns domain.ErrNoGroupMatch when no group accepts the offer.
func (f *Filter) AssignGroup(offer domain.NormalizedOffer) (string, error) {
	for _, g := range f.groups {
		if Matches(offer, g) {
			return g.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q from %s", domain.ErrNoGroupMatch, offer.ProductName, offer.StoreName)
}

// AssignVariants walks the groups in order and returns the unit variant of the offer
// accepted by the first matching group, with GroupName set.
func (f *Filter) AssignVariants(variants map[domain.BaseUnit]domain.NormalizedOffer) (domain.NormalizedOffer, error) {
	var product string
	for _, g := range f.groups {
		offer, ok := variants[g.BaseUnit]
		if !ok {
			continue
		}
		if Matches(offer, g) {
			offer.GroupName = g.Name
			return offer, nil
		}
		product = offer.ProductName
	}
	return domain.NormalizedOffer{}, fmt.Errorf("%w: %q", domain.ErrNoGroupMatch, product)
}
