package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Glx28/billigst-mat/internal/domain"
	"gopkg.in/yaml.v3"
)

// GroupsFile is the on-disk shape of the group definitions.
// groups is a list: the first matching group wins an offer, so order matters.
type GroupsFile struct {
	Notify NotifySection `yaml:"notify"`
	Groups []GroupEntry  `yaml:"groups"`
}

// NotifySection holds defaults shared by all groups
type NotifySection struct {
	TopN int `yaml:"top_n"`
}

// GroupEntry is one group as written in YAML
type GroupEntry struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	BaseUnit    string   `yaml:"base_unit"`
	SearchTerms []string `yaml:"search_terms"`
	IncludeAny  []string `yaml:"include_any"`
	Exclude     []string `yaml:"exclude"`
	Threshold   *float64 `yaml:"threshold"`
	TopN        int      `yaml:"top_n"`
}

// LoadGroups reads and validates the group file at path.
// defaultTopN applies when neither the group nor the notify section sets top_n.
func LoadGroups(path string, defaultTopN int) ([]domain.GroupConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening groups file: %v", domain.ErrConfig, err)
	}
	defer f.Close()

	return ParseGroups(f, defaultTopN)
}

// ParseGroups decodes a group document. Unknown fields are rejected.
func ParseGroups(r io.Reader, defaultTopN int) ([]domain.GroupConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc GroupsFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: groups file is empty", domain.ErrConfig)
		}
		return nil, fmt.Errorf("%w: decoding groups file: %v", domain.ErrConfig, err)
	}

	return doc.Build(defaultTopN)
}

// Build validates the document and converts it to domain groups, keeping order
func (doc GroupsFile) Build(defaultTopN int) ([]domain.GroupConfig, error) {
	if len(doc.Groups) == 0 {
		return nil, fmt.Errorf("%w: no groups defined", domain.ErrConfig)
	}
	if doc.Notify.TopN < 0 {
		return nil, fmt.Errorf("%w: notify.top_n must not be negative", domain.ErrConfig)
	}

	topN := defaultTopN
	if doc.Notify.TopN > 0 {
		topN = doc.Notify.TopN
	}
	if topN <= 0 {
		topN = domain.DefaultTopN
	}

	seen := make(map[string]bool, len(doc.Groups))
	groups := make([]domain.GroupConfig, 0, len(doc.Groups))
	for i, entry := range doc.Groups {
		group, err := entry.build(topN)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i+1, err)
		}
		if seen[group.Name] {
			return nil, fmt.Errorf("%w: duplicate group name %q", domain.ErrConfig, group.Name)
		}
		seen[group.Name] = true
		groups = append(groups, group)
	}
	return groups, nil
}

func (e GroupEntry) build(defaultTopN int) (domain.GroupConfig, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return domain.GroupConfig{}, fmt.Errorf("%w: missing name", domain.ErrConfig)
	}
	if e.BaseUnit == "" {
		return domain.GroupConfig{}, fmt.Errorf("%w: group %q: missing base_unit", domain.ErrConfig, name)
	}
	unit, err := domain.ParseBaseUnit(strings.ToLower(strings.TrimSpace(e.BaseUnit)))
	if err != nil {
		return domain.GroupConfig{}, fmt.Errorf("group %q: %w", name, err)
	}

	include := cleanTerms(e.IncludeAny)
	if len(include) == 0 {
		return domain.GroupConfig{}, fmt.Errorf("%w: group %q: include_any must not be empty", domain.ErrConfig, name)
	}
	if e.Threshold != nil && *e.Threshold < 0 {
		return domain.GroupConfig{}, fmt.Errorf("%w: group %q: threshold must not be negative", domain.ErrConfig, name)
	}
	if e.TopN < 0 {
		return domain.GroupConfig{}, fmt.Errorf("%w: group %q: top_n must not be negative", domain.ErrConfig, name)
	}

	group := domain.GroupConfig{
		Name:        name,
		DisplayName: strings.TrimSpace(e.DisplayName),
		BaseUnit:    unit,
		SearchTerms: cleanTerms(e.SearchTerms),
		IncludeAny:  include,
		Exclude:     cleanTerms(e.Exclude),
		Threshold:   e.Threshold,
		TopN:        e.TopN,
	}
	if group.DisplayName == "" {
		group.DisplayName = name
	}
	if group.TopN == 0 {
		group.TopN = defaultTopN
	}
	return group, nil
}

// cleanTerms trims terms and drops empty ones
func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
