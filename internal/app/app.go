package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"loadplan/internal/config"
	"loadplan/internal/history"
	"loadplan/internal/masterlist"
	"loadplan/internal/resolver"
	"loadplan/internal/shared/observability"
)

// App owns the durable state of one run: the masterlist store and the
// run-history log. Resolution state (graph, plan) is rebuilt per call.
type App struct {
	Config  *config.Config
	Store   *masterlist.Store
	History *history.Store

	limiter *rate.Limiter
}

func New(cfg *config.Config) (*App, error) {
	store, err := masterlist.Open(cfg.MasterlistDir)
	if err != nil {
		return nil, fmt.Errorf("open masterlists in %q: %w", cfg.MasterlistDir, err)
	}

	hist, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:  cfg,
		Store:   store,
		History: hist,
		limiter: rate.NewLimiter(rate.Limit(cfg.Discovery.RatePerSecond), cfg.Discovery.Burst),
	}, nil
}

// Classifier builds the phase classifier from the configured rules.
func (a *App) Classifier() (*resolver.Classifier, error) {
	return resolver.NewClassifier(resolver.Rules{
		Infrastructure: a.Config.Phases.Infrastructure,
		Extensions:     a.Config.Phases.Extensions,
		Gadgets:        a.Config.Phases.Gadgets,
		FanInThreshold: a.Config.Phases.FanInThreshold,
	})
}

// Close persists the masterlists and releases the history store.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	if err := a.Store.Persist(); err != nil {
		return err
	}
	observability.PersistDuration.Observe(time.Since(start).Seconds())
	a.updateMasterlistGauges()

	return a.History.Close()
}

func (a *App) updateMasterlistGauges() {
	observability.MasterlistSize.WithLabelValues("discovered").Set(float64(a.Store.DiscoveredCount()))
	observability.MasterlistSize.WithLabelValues("implemented").Set(float64(a.Store.ImplementedCount()))
	observability.MasterlistSize.WithLabelValues("unimplemented").Set(float64(a.Store.UnimplementedCount()))
}
