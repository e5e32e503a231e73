package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/scholarly-group/confcollect/internal/adapter"
	"github.com/scholarly-group/confcollect/internal/collector"
	"github.com/scholarly-group/confcollect/internal/profile"
	"github.com/scholarly-group/confcollect/internal/resilience"
	"github.com/scholarly-group/confcollect/internal/store"
	"github.com/scholarly-group/confcollect/internal/table"
	"github.com/scholarly-group/confcollect/pkg/openreview"
)

// collectorEnv holds the wired pipeline plus anything that needs closing.
type collectorEnv struct {
	Collector *collector.Collector
	Store     store.Store
}

func (e *collectorEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the run-history backend.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initCollector wires upstream clients, the format adapter, the profile
// pool, and the table writer from config.
func initCollector(ctx context.Context) (*collectorEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	reg, err := adapter.LoadRegistry(cfg.Venue.RegistryPath)
	if err != nil {
		st.Close()
		return nil, err
	}
	venue, err := reg.Resolve(cfg.Venue.Name)
	if err != nil {
		st.Close()
		return nil, err
	}

	rateOpt := openreview.WithRateLimit(rate.Limit(cfg.Upstream.RatePerSec), cfg.Upstream.RateBurst)
	legacy := openreview.NewClient(cfg.Upstream.LegacyBaseURL, rateOpt)
	revised := openreview.NewClient(cfg.Upstream.RevisedBaseURL, rateOpt)

	a := adapter.New(legacy, revised, venue, cfg.Upstream.WebBaseURL)

	scraper := profile.NewScraper(revised, cfg.Upstream.WebBaseURL)
	retry := resilience.DefaultRetryConfig()
	if cfg.Pool.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Pool.MaxRetries
	}
	if cfg.Pool.InitialDelayMS > 0 {
		retry.InitialBackoff = time.Duration(cfg.Pool.InitialDelayMS) * time.Millisecond
	}
	pool := profile.NewPool(scraper,
		profile.WithBound(cfg.Pool.MaxConcurrent),
		profile.WithRetry(retry),
	)

	c := collector.New(a, pool, cfg.Venue.Name,
		collector.WithStore(st),
		collector.WithWriter(table.NewWriter(cfg.Output.Format)),
		collector.WithOutputDir(cfg.Output.Dir),
	)

	return &collectorEnv{Collector: c, Store: st}, nil
}
