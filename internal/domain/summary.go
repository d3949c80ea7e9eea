package domain

import "time"

// RunSummary counts everything a run dropped or failed on, so nothing is discarded silently
type RunSummary struct {
	RawOffers         int               `json:"rawOffers"`
	Normalized        int               `json:"normalized"`
	InvalidOffers     int               `json:"invalidOffers"`
	ParseFailures     int               `json:"parseFailures"`
	ExcludedStores    int               `json:"excludedStores"`
	GroupMisses       int               `json:"groupMisses"`
	DuplicatesDropped int               `json:"duplicatesDropped"`
	Triggered         int               `json:"triggered"`
	SourceOffers      map[string]int    `json:"sourceOffers"`
	SourceFailures    map[string]string `json:"sourceFailures,omitempty"`
	SinkFailures      map[string]string `json:"sinkFailures,omitempty"`
	NotifyFailure     string            `json:"notifyFailure,omitempty"`
	Duration          time.Duration     `json:"duration"`
}

// NewRunSummary returns a summary with its maps allocated
func NewRunSummary() RunSummary {
	return RunSummary{
		SourceOffers:   make(map[string]int),
		SourceFailures: make(map[string]string),
		SinkFailures:   make(map[string]string),
	}
}

// RunReport is what one pipeline run produces
type RunReport struct {
	StartedAt time.Time      `json:"startedAt"`
	Results   []RankedResult `json:"results"`
	Summary   RunSummary     `json:"summary"`
}

// Triggered returns the results that represent a new best price
func (r *RunReport) Triggered() []RankedResult {
	var out []RankedResult
	for _, res := range r.Results {
		if res.IsNewBest {
			out = append(out, res)
		}
	}
	return out
}
