// Package collector orchestrates one collection request end to end:
// per-year fetch and normalization, review extraction, bounded concurrent
// profile collection, aggregation, and table output.
package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/scholarly-group/confcollect/internal/adapter"
	"github.com/scholarly-group/confcollect/internal/aggregate"
	"github.com/scholarly-group/confcollect/internal/model"
	"github.com/scholarly-group/confcollect/internal/profile"
	"github.com/scholarly-group/confcollect/internal/review"
	"github.com/scholarly-group/confcollect/internal/store"
	"github.com/scholarly-group/confcollect/internal/table"
)

// Collector wires the pipeline stages for one deployment.
type Collector struct {
	adapter   *adapter.Adapter
	pool      *profile.Pool
	writer    table.Writer
	store     store.Store
	outputDir string
	venue     string
}

// Option configures the collector.
type Option func(*Collector)

// WithStore enables run-history persistence.
func WithStore(s store.Store) Option {
	return func(c *Collector) {
		c.store = s
	}
}

// WithWriter overrides the table writer (default CSV).
func WithWriter(w table.Writer) Option {
	return func(c *Collector) {
		c.writer = w
	}
}

// WithOutputDir sets where table files are written.
func WithOutputDir(dir string) Option {
	return func(c *Collector) {
		c.outputDir = dir
	}
}

// New builds a collector for one venue.
func New(a *adapter.Adapter, pool *profile.Pool, venue string, opts ...Option) *Collector {
	c := &Collector{
		adapter:   a,
		pool:      pool,
		writer:    &table.CSVWriter{},
		outputDir: "output",
		venue:     venue,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs the full pipeline for the requested years: papers, reviews,
// author profiles, aggregation, and the three output tables. Failures are
// contained per unit; the returned result carries skip tallies instead.
func (c *Collector) Collect(ctx context.Context, years []int) (*model.RunResult, *aggregate.Collections, error) {
	req := model.RunRequest{Years: years}
	run := c.recordStart(ctx, req)

	result, collections, err := c.collect(ctx, runIDOf(run), years)
	c.recordFinish(ctx, run, result, err)
	return result, collections, err
}

// CollectPapersOnly fetches and writes just the papers table, forcing the
// given API shape for every requested year.
func (c *Collector) CollectPapersOnly(ctx context.Context, years []int, shape model.APIShape) (*model.RunResult, *aggregate.Collections, error) {
	req := model.RunRequest{Years: years, PapersOnly: true, Shape: string(shape)}
	run := c.recordStart(ctx, req)

	result, collections, err := c.collectPapersOnly(ctx, runIDOf(run), years, shape)
	c.recordFinish(ctx, run, result, err)
	return result, collections, err
}

func (c *Collector) collect(ctx context.Context, runID string, years []int) (*model.RunResult, *aggregate.Collections, error) {
	years = normalizeYears(years)
	agg := aggregate.New()
	result := &model.RunResult{}

	c.setStatus(ctx, runID, model.RunStatusFetching)

	skippedByYear := make(map[int]int, len(years))
	failedYears := make(map[int]bool, len(years))
	var authorIDs []string
	for _, year := range years {
		yr, err := c.adapter.FetchYear(ctx, year)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			// A failed year is recorded as such; the rest proceed.
			zap.L().Error("year fetch failed, continuing",
				zap.Int("year", year),
				zap.Error(err),
			)
			failedYears[year] = true
			continue
		}
		skippedByYear[year] = yr.Skipped

		for _, bundle := range yr.Bundles {
			agg.AddPapers([]model.Paper{bundle.Paper})
			agg.AddReviews(review.Extract(bundle.Shape, bundle.Paper.ID, year, bundle.Replies))
			authorIDs = append(authorIDs, bundle.Paper.AuthorIDs...)
		}
	}

	c.setStatus(ctx, runID, model.RunStatusProfiling)

	fetched, err := c.pool.FetchAll(ctx, authorIDs)
	if err != nil {
		return nil, nil, err
	}

	c.setStatus(ctx, runID, model.RunStatusAggregating)

	for _, frag := range fetched.Fragments {
		agg.AddFragment(frag)
	}
	collections := agg.Result()

	tallies := collections.Tallies()
	for _, year := range years {
		t := tallies[year]
		result.Years = append(result.Years, model.YearCount{
			Year:          year,
			TotalPapers:   t.Papers,
			TotalReviews:  t.Reviews,
			SkippedPapers: skippedByYear[year],
			Failed:        failedYears[year],
		})
		if failedYears[year] {
			result.FailedYears++
		}
	}
	result.TotalAuthors = len(collections.Authors)
	result.SkippedProfiles = fetched.NotFound + fetched.Failed

	c.setStatus(ctx, runID, model.RunStatusWriting)

	if err := c.writeTables(result, collections, years); err != nil {
		return nil, nil, err
	}

	return result, collections, nil
}

func (c *Collector) collectPapersOnly(ctx context.Context, runID string, years []int, shape model.APIShape) (*model.RunResult, *aggregate.Collections, error) {
	years = normalizeYears(years)
	agg := aggregate.New()
	result := &model.RunResult{}

	c.setStatus(ctx, runID, model.RunStatusFetching)

	src := c.adapter.SourceForShape(shape)
	for _, year := range years {
		yr, err := src.FetchYear(ctx, year)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			zap.L().Error("year fetch failed, continuing",
				zap.Int("year", year),
				zap.Error(err),
			)
			result.Years = append(result.Years, model.YearCount{Year: year, Failed: true})
			result.FailedYears++
			continue
		}

		papers := make([]model.Paper, 0, len(yr.Bundles))
		for _, bundle := range yr.Bundles {
			papers = append(papers, bundle.Paper)
		}
		agg.AddPapers(papers)
		result.Years = append(result.Years, model.YearCount{
			Year:          year,
			TotalPapers:   len(papers),
			SkippedPapers: yr.Skipped,
		})
	}

	collections := agg.Result()

	c.setStatus(ctx, runID, model.RunStatusWriting)

	for _, year := range years {
		papers := papersForYear(collections.Papers, year)
		path := c.tablePath(fmt.Sprintf("%s_%d_papers", c.venue, year))
		if err := c.writer.Write(path, table.PapersHeader(), table.PaperRows(papers)); err != nil {
			return nil, nil, err
		}
		result.PapersFiles = append(result.PapersFiles, path)
	}

	return result, collections, nil
}

func (c *Collector) writeTables(result *model.RunResult, collections *aggregate.Collections, years []int) error {
	for _, year := range years {
		papers := papersForYear(collections.Papers, year)
		papersPath := c.tablePath(fmt.Sprintf("%s_%d_papers", c.venue, year))
		if err := c.writer.Write(papersPath, table.PapersHeader(), table.PaperRows(papers)); err != nil {
			return err
		}
		result.PapersFiles = append(result.PapersFiles, papersPath)

		reviews := reviewsForYear(collections.Reviews, year)
		reviewsPath := c.tablePath(fmt.Sprintf("%s_%d_reviews", c.venue, year))
		if err := c.writer.Write(reviewsPath, table.ReviewsHeader(), table.ReviewRows(reviews)); err != nil {
			return err
		}
		result.ReviewsFiles = append(result.ReviewsFiles, reviewsPath)
	}

	if len(years) > 0 {
		name := fmt.Sprintf("%s_%d_%d_author_profiles", c.venue, years[0], years[len(years)-1])
		if len(years) == 1 {
			name = fmt.Sprintf("%s_%d_author_profiles", c.venue, years[0])
		}
		authorsPath := c.tablePath(name)
		if err := c.writer.Write(authorsPath, table.AuthorsHeader(), table.AuthorRows(collections.Authors)); err != nil {
			return err
		}
		result.AuthorsFile = authorsPath
	}

	return nil
}

func (c *Collector) tablePath(name string) string {
	return filepath.Join(c.outputDir, name+"."+c.writer.Ext())
}

func papersForYear(papers []model.Paper, year int) []model.Paper {
	out := make([]model.Paper, 0, len(papers))
	for _, p := range papers {
		if p.Year == year {
			out = append(out, p)
		}
	}
	return out
}

func reviewsForYear(reviews []model.Review, year int) []model.Review {
	out := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}

func normalizeYears(years []int) []int {
	seen := make(map[int]struct{}, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// recordStart creates the run record when a store is configured. Store
// failures degrade to logging; collection itself never depends on the
// run history being writable.
func (c *Collector) recordStart(ctx context.Context, req model.RunRequest) *model.Run {
	if c.store == nil {
		return nil
	}
	run, err := c.store.CreateRun(ctx, req)
	if err != nil {
		zap.L().Warn("create run record failed", zap.Error(err))
		return nil
	}
	return run
}

// runIDOf keeps run bookkeeping request-scoped: the id travels with the
// request rather than living on the shared collector, so overlapping
// requests never write into each other's run records.
func runIDOf(run *model.Run) string {
	if run == nil {
		return ""
	}
	return run.ID
}

func (c *Collector) setStatus(ctx context.Context, runID string, status model.RunStatus) {
	if c.store == nil || runID == "" {
		return
	}
	if err := c.store.UpdateRunStatus(ctx, runID, status); err != nil {
		zap.L().Warn("update run status failed",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (c *Collector) recordFinish(ctx context.Context, run *model.Run, result *model.RunResult, err error) {
	if c.store == nil || run == nil {
		return
	}
	if err != nil {
		result = &model.RunResult{Error: err.Error()}
	}
	if uErr := c.store.UpdateRunResult(ctx, run.ID, result); uErr != nil {
		zap.L().Warn("update run result failed",
			zap.String("run_id", run.ID),
			zap.Error(uErr),
		)
	}
}
