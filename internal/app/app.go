// Package app wires configuration into a ready pipeline, shared by the CLI and the server
package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Glx28/billigst-mat/config"
	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/Glx28/billigst-mat/internal/infrastructure/cache"
	"github.com/Glx28/billigst-mat/internal/infrastructure/etilbudsavis"
	"github.com/Glx28/billigst-mat/internal/infrastructure/fixture"
	"github.com/Glx28/billigst-mat/internal/infrastructure/history"
	"github.com/Glx28/billigst-mat/internal/infrastructure/logger"
	"github.com/Glx28/billigst-mat/internal/infrastructure/notify"
	"github.com/Glx28/billigst-mat/internal/infrastructure/webstore"
	"github.com/Glx28/billigst-mat/internal/usecase"
	"github.com/rs/zerolog"
)

// Options adjusts wiring per binary
type Options struct {
	// Console receives the leaderboard of triggered results when set
	Console io.Writer
	// Groups overrides loading the groups file
	Groups []domain.GroupConfig
	// Sources overrides the configured sources
	Sources []domain.OfferSource
}

// App owns every long-lived dependency of a running pipeline
type App struct {
	config   *config.Config
	pipeline *usecase.PipelineService
	history  *history.Store
	cache    *cache.MemoryCache
	log      zerolog.Logger

	runMu sync.Mutex
}

// New loads groups, opens the history store and builds the pipeline.
// Group validation happens here, before any source is contacted.
func New(cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	groups := opts.Groups
	if groups == nil {
		var err error
		groups, err = config.LoadGroups(cfg.Groups.File, cfg.Pipeline.DefaultTopN)
		if err != nil {
			return nil, err
		}
	}

	keyFunc, err := usecase.KeyFuncByName(cfg.Pipeline.DedupKey)
	if err != nil {
		return nil, err
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:  cfg,
		history: store,
		cache:   cache.NewMemoryCache(cfg.Cache.SweepInterval),
		log:     log,
	}

	sources := opts.Sources
	if sources == nil {
		sources, err = a.buildSources()
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	if len(sources) == 0 {
		log.Warn().Msg("no offer sources configured; runs will find nothing")
	}

	a.pipeline = usecase.NewPipelineService(
		groups,
		sources,
		store,
		a.buildNotifier(opts.Console),
		usecase.PipelineConfig{
			DefaultTopN:       cfg.Pipeline.DefaultTopN,
			ExcludedStores:    cfg.Pipeline.ExcludedStores,
			DedupKey:          keyFunc,
			SourceConcurrency: cfg.Pipeline.SourceConcurrency,
		},
		logger.Named(log, "pipeline"),
	)

	log.Info().
		Int("groups", len(groups)).
		Int("sources", len(sources)).
		Str("history", cfg.History.Path).
		Msg("pipeline ready")

	return a, nil
}

func (a *App) buildSources() ([]domain.OfferSource, error) {
	cfg := a.config
	var sources []domain.OfferSource

	if cfg.Etilbudsavis.APIKey != "" {
		client := etilbudsavis.NewClient(etilbudsavis.Config{
			APIKey:      cfg.Etilbudsavis.APIKey,
			BaseURL:     cfg.Etilbudsavis.BaseURL,
			Lat:         cfg.Etilbudsavis.Lat,
			Lng:         cfg.Etilbudsavis.Lng,
			Radius:      cfg.Etilbudsavis.Radius,
			PageSize:    cfg.Etilbudsavis.PageSize,
			RatePerHour: cfg.Etilbudsavis.RatePerHour,
			CacheTTL:    cfg.Cache.TTL,
		}, a.cache, logger.Named(a.log, etilbudsavis.SourceID))
		client.SetDebug(cfg.Etilbudsavis.Debug)
		sources = append(sources, etilbudsavis.NewSource(client, logger.Named(a.log, etilbudsavis.SourceID)))
	} else {
		a.log.Info().Msg("etilbudsavis disabled (no api_key)")
	}

	for _, ws := range cfg.Webstores {
		store, err := webstore.NewStore(webstore.StoreConfig{
			Name:            ws.Name,
			SearchURL:       ws.SearchURL,
			ItemSelector:    ws.ItemSelector,
			NameSelector:    ws.NameSelector,
			PriceSelector:   ws.PriceSelector,
			PackageSelector: ws.PackageSelector,
			LinkSelector:    ws.LinkSelector,
			Timeout:         ws.Timeout,
		}, logger.Named(a.log, "webstore"))
		if err != nil {
			return nil, err
		}
		sources = append(sources, store)
	}

	if len(cfg.Fixtures.Files) > 0 {
		sources = append(sources, fixture.NewSource(cfg.Fixtures.Files, logger.Named(a.log, fixture.SourceName)))
	}

	return sources, nil
}

func (a *App) buildNotifier(console io.Writer) domain.Notifier {
	var notifiers notify.Multi
	if console != nil {
		notifiers = append(notifiers, notify.NewConsoleNotifier(console))
	}

	smtp := notify.EmailConfig{
		Host:     a.config.SMTP.Host,
		Port:     a.config.SMTP.Port,
		Username: a.config.SMTP.Username,
		Password: a.config.SMTP.Password,
		From:     a.config.SMTP.From,
		To:       a.config.SMTP.To,
	}
	if smtp.Enabled() {
		notifiers = append(notifiers, notify.NewEmailNotifier(smtp, logger.Named(a.log, "email")))
	}

	if len(notifiers) == 0 {
		return nil
	}
	return notifiers
}

// Groups returns the configured groups in order
func (a *App) Groups() []domain.GroupConfig {
	return a.pipeline.Groups()
}

// Run executes one pipeline pass. Overlapping runs are refused with ErrRunInProgress.
func (a *App) Run(ctx context.Context, opts usecase.RunOptions) (*domain.RunReport, error) {
	if !a.runMu.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer a.runMu.Unlock()

	return a.pipeline.Run(ctx, opts)
}

// History returns recorded best prices for a configured group, newest first
func (a *App) History(ctx context.Context, groupName string, limit int) ([]domain.Observation, error) {
	if !a.hasGroup(groupName) {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupName)
	}
	return a.history.History(ctx, groupName, limit)
}

func (a *App) hasGroup(name string) bool {
	for _, g := range a.Groups() {
		if g.Name == name {
			return true
		}
	}
	return false
}

// Close releases the history store and the cache sweeper
func (a *App) Close() error {
	a.cache.Close()
	return a.history.Close()
}
