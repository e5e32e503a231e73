package profile

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scholarly-group/confcollect/internal/model"
	"github.com/scholarly-group/confcollect/internal/resilience"
)

// DefaultMaxConcurrent bounds simultaneously in-flight profile fetches.
const DefaultMaxConcurrent = 50

// Fetcher is the single-identifier operation the pool drives. *Scraper
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, authorID string) (*model.AuthorFragment, error)
}

// Pool fans one fetch per distinct author identifier out under a fixed
// concurrency bound, retrying rate-limited identifiers with exponential
// backoff. FetchAll is a barrier: it returns only after every identifier
// has resolved, succeeded or not.
type Pool struct {
	fetcher Fetcher
	bound   int
	retry   resilience.RetryConfig
}

// PoolOption configures the pool.
type PoolOption func(*Pool)

// WithBound overrides the concurrency bound.
func WithBound(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.bound = n
		}
	}
}

// WithRetry overrides the per-identifier retry policy.
func WithRetry(cfg resilience.RetryConfig) PoolOption {
	return func(p *Pool) {
		p.retry = cfg
	}
}

// NewPool builds a pool over the given fetcher.
func NewPool(fetcher Fetcher, opts ...PoolOption) *Pool {
	p := &Pool{
		fetcher: fetcher,
		bound:   DefaultMaxConcurrent,
		retry: resilience.RetryConfig{
			MaxAttempts:    4,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.25,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchResult is the outcome of one pool run. Fragments holds at most one
// entry per requested identifier; NotFound and Failed tally the skipped
// identifiers.
type FetchResult struct {
	Fragments []model.AuthorFragment
	NotFound  int
	Failed    int
}

// FetchAll fetches every distinct identifier exactly once. Individual
// failures are contained: a not-found or retry-exhausted identifier is
// counted and skipped, never aborting the pool. A cancelled context drains
// in-flight work and contributes no partial fragments.
func (p *Pool) FetchAll(ctx context.Context, authorIDs []string) (*FetchResult, error) {
	ids := dedupe(authorIDs)
	if len(ids) == 0 {
		return &FetchResult{Fragments: []model.AuthorFragment{}}, nil
	}

	zap.L().Info("fetching author profiles",
		zap.Int("authors", len(ids)),
		zap.Int("bound", p.bound),
	)

	// Each slot is written by exactly one goroutine; no shared state is
	// touched until after the barrier.
	slots := make([]*model.AuthorFragment, len(ids))
	var notFound, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.bound)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			frag, err := resilience.DoVal(gctx, p.retryFor(id), func(ctx context.Context) (*model.AuthorFragment, error) {
				return p.fetcher.Fetch(ctx, id)
			})
			if err != nil {
				if resilience.IsNotFound(err) {
					notFound.Add(1)
					return nil
				}
				failed.Add(1)
				zap.L().Warn("profile fetch failed, skipping author",
					zap.String("author_id", id),
					zap.Error(err),
				)
				return nil // one failed identifier never aborts the pool
			}
			slots[i] = frag
			return nil
		})
	}

	// Synchronization barrier: aggregation must not start early.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// Aborted request: emit nothing rather than a truncated set.
		return nil, err
	}

	result := &FetchResult{
		Fragments: make([]model.AuthorFragment, 0, len(ids)),
		NotFound:  int(notFound.Load()),
		Failed:    int(failed.Load()),
	}
	for _, frag := range slots {
		if frag != nil {
			result.Fragments = append(result.Fragments, *frag)
		}
	}

	zap.L().Info("author profiles fetched",
		zap.Int("found", len(result.Fragments)),
		zap.Int("not_found", result.NotFound),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (p *Pool) retryFor(id string) resilience.RetryConfig {
	cfg := p.retry
	cfg.OnRetry = func(attempt int, err error) {
		zap.L().Warn("retrying profile fetch",
			zap.String("author_id", id),
			zap.Int("attempt", attempt),
			zap.Bool("rate_limited", resilience.IsRateLimited(err)),
			zap.Error(err),
		)
	}
	return cfg
}

// dedupe keeps the first occurrence of each identifier, preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
