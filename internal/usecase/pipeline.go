package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PipelineConfig holds configuration for the pipeline service
type PipelineConfig struct {
	DefaultTopN       int
	ExcludedStores    []string
	DedupKey          KeyFunc
	SourceConcurrency int
}

// RunOptions tweaks a single run
type RunOptions struct {
	// SkipNotify ranks and records but does not hand triggered results to the notifier
	SkipNotify bool
	// DryRun neither records observations nor notifies
	DryRun bool
}

// PipelineService runs one full pass: collect -> normalize -> filter -> dedupe -> rank -> record -> notify.
// It keeps no state between runs; the history store is the only shared resource.
type PipelineService struct {
	sources     []domain.OfferSource
	history     domain.HistoryStore
	notifier    domain.Notifier
	filter      *Filter
	normalizer  *Normalizer
	dedup       *Deduplicator
	ranker      *Ranker
	concurrency int
	log         zerolog.Logger
	now         func() time.Time
}

// NewPipelineService creates a new pipeline service with dependencies.
// groups must already be validated and are used in the given order. notifier may be nil.
func NewPipelineService(
	groups []domain.GroupConfig,
	sources []domain.OfferSource,
	history domain.HistoryStore,
	notifier domain.Notifier,
	config PipelineConfig,
	log zerolog.Logger,
) *PipelineService {
	concurrency := config.SourceConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &PipelineService{
		sources:     sources,
		history:     history,
		notifier:    notifier,
		filter:      NewFilter(groups, config.ExcludedStores),
		normalizer:  NewNormalizer(log),
		dedup:       NewDeduplicator(config.DedupKey),
		ranker:      NewRanker(config.DefaultTopN),
		concurrency: concurrency,
		log:         log,
		now:         time.Now,
	}
}

// Groups returns the configured groups in order
func (s *PipelineService) Groups() []domain.GroupConfig {
	return s.filter.Groups()
}

// Run executes one pipeline pass.
// The report is returned even when notification fails; the error then wraps ErrNotifyFailure.
// A context canceled while groups are being ranked returns the groups finished so far
// along with the context error, and nothing is notified.
func (s *PipelineService) Run(ctx context.Context, opts RunOptions) (*domain.RunReport, error) {
	startedAt := s.now()
	report := &domain.RunReport{
		StartedAt: startedAt,
		Summary:   domain.NewRunSummary(),
	}
	summary := &report.Summary

	raw, err := s.collect(ctx, summary)
	if err != nil {
		return nil, err
	}

	byGroup := s.partition(raw, summary)

	for _, group := range s.filter.Groups() {
		if err := ctx.Err(); err != nil {
			summary.Duration = s.now().Sub(startedAt)
			s.log.Warn().Err(err).
				Int("ranked", len(report.Results)).
				Int("groups", len(s.filter.Groups())).
				Msg("pipeline run interrupted")
			return report, err
		}
		result := s.rankGroup(ctx, group, byGroup[group.Name], startedAt, opts, summary)
		report.Results = append(report.Results, result)
	}

	triggered := report.Triggered()
	summary.Triggered = len(triggered)
	summary.Duration = s.now().Sub(startedAt)

	var notifyErr error
	if len(triggered) > 0 && s.notifier != nil && !opts.SkipNotify && !opts.DryRun {
		if err := s.notifier.Notify(ctx, triggered); err != nil {
			summary.NotifyFailure = err.Error()
			notifyErr = fmt.Errorf("%w: %v", domain.ErrNotifyFailure, err)
			s.log.Error().Err(err).Int("triggered", len(triggered)).Msg("notify failed")
		}
	}

	s.log.Info().
		Int("raw", summary.RawOffers).
		Int("normalized", summary.Normalized).
		Int("invalid", summary.InvalidOffers).
		Int("parse_failures", summary.ParseFailures).
		Int("excluded_stores", summary.ExcludedStores).
		Int("group_misses", summary.GroupMisses).
		Int("duplicates", summary.DuplicatesDropped).
		Int("source_failures", len(summary.SourceFailures)).
		Int("sink_failures", len(summary.SinkFailures)).
		Int("triggered", summary.Triggered).
		Dur("took", summary.Duration).
		Msg("pipeline run finished")

	return report, notifyErr
}

// collect fetches from every source. A failing source is counted and contributes nothing.
func (s *PipelineService) collect(ctx context.Context, summary *domain.RunSummary) ([]domain.RawOffer, error) {
	groups := s.filter.Groups()
	perSource := make([][]domain.RawOffer, len(s.sources))
	failures := make([]error, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, src := range s.sources {
		g.Go(func() error {
			offers, err := src.FetchOffers(gctx, groups)
			if err != nil {
				failures[i] = err
				return nil
			}
			perSource[i] = offers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []domain.RawOffer
	for i, src := range s.sources {
		name := src.Name()
		if failures[i] != nil {
			summary.SourceFailures[name] = failures[i].Error()
			summary.SourceOffers[name] = 0
			s.log.Warn().Err(failures[i]).Str("source", name).Msg("source failed, contributing no offers")
			continue
		}
		summary.SourceOffers[name] = len(perSource[i])
		all = append(all, perSource[i]...)
	}
	return all, nil
}

// partition normalizes and assigns every raw offer, counting each kind of drop
func (s *PipelineService) partition(raw []domain.RawOffer, summary *domain.RunSummary) map[string][]domain.NormalizedOffer {
	units := s.filter.BaseUnits()
	byGroup := make(map[string][]domain.NormalizedOffer)

	for _, offer := range raw {
		summary.RawOffers++

		if err := offer.Validate(); err != nil {
			summary.InvalidOffers++
			s.log.Debug().Err(err).Str("source", offer.SourceID).Msg("invalid offer dropped")
			continue
		}

		if s.filter.IsExcludedStore(offer.StoreName) {
			summary.ExcludedStores++
			continue
		}

		variants, err := s.normalizer.NormalizeVariants(offer, units)
		if err != nil {
			summary.ParseFailures++
			continue
		}
		summary.Normalized++

		assigned, err := s.filter.AssignVariants(variants)
		if err != nil {
			summary.GroupMisses++
			s.log.Debug().Err(err).Str("store", offer.StoreName).Msg("no group match")
			continue
		}
		byGroup[assigned.GroupName] = append(byGroup[assigned.GroupName], assigned)
	}

	return byGroup
}

// rankGroup dedupes, ranks and records one group. History failures only affect this group.
func (s *PipelineService) rankGroup(
	ctx context.Context,
	group domain.GroupConfig,
	offers []domain.NormalizedOffer,
	observedAt time.Time,
	opts RunOptions,
	summary *domain.RunSummary,
) domain.RankedResult {
	deduped := s.dedup.Dedupe(offers)
	summary.DuplicatesDropped += len(offers) - len(deduped)

	previousBest, readErr := s.history.GetPreviousBest(ctx, group.Name)
	if readErr != nil {
		previousBest = nil
	}

	result := s.ranker.Rank(deduped, group, previousBest)

	if readErr != nil {
		s.sinkFailure(&result, summary, "read", readErr)
	}

	if !opts.DryRun && len(result.Top) > 0 {
		if err := s.history.RecordObservation(ctx, group.Name, result.Top, observedAt); err != nil {
			s.sinkFailure(&result, summary, "write", err)
		}
	}

	logEvent := s.log.Debug()
	if best, ok := result.Best(); ok {
		logEvent = logEvent.Float64("best", best.UnitPrice).Str("store", best.StoreName)
	}
	logEvent.
		Str("group", group.Name).
		Int("offers", len(offers)).
		Int("deduped", len(deduped)).
		Bool("new_best", result.IsNewBest).
		Msg("group ranked")

	return result
}

// sinkFailure blocks the alert for the group; an unknown prior state must never alert
func (s *PipelineService) sinkFailure(result *domain.RankedResult, summary *domain.RunSummary, op string, err error) {
	result.IsNewBest = false
	result.DropPercent = 0
	result.Err = fmt.Errorf("%w: %s %s: %v", domain.ErrSinkUnavailable, op, result.GroupName, err)
	summary.SinkFailures[result.GroupName] = result.Err.Error()
	s.log.Error().Err(err).Str("group", result.GroupName).Str("op", op).Msg("price history failure")
}
