package collector

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarly-group/confcollect/internal/adapter"
	"github.com/scholarly-group/confcollect/internal/model"
	"github.com/scholarly-group/confcollect/internal/profile"
	"github.com/scholarly-group/confcollect/internal/resilience"
	"github.com/scholarly-group/confcollect/internal/store"
	"github.com/scholarly-group/confcollect/pkg/openreview"
)

// fakeUpstream serves canned notes keyed by invitation, with optional
// per-invitation errors.
type fakeUpstream struct {
	notes map[string][]*openreview.Note
	errs  map[string]error
}

func (f *fakeUpstream) ListNotes(ctx context.Context, q openreview.NotesQuery) (*openreview.NotesPage, error) {
	if err := f.errs[q.Invitation]; err != nil {
		return nil, err
	}
	notes := f.notes[q.Invitation]
	return &openreview.NotesPage{Notes: notes, Count: len(notes)}, nil
}

func (f *fakeUpstream) AllNotes(ctx context.Context, q openreview.NotesQuery) ([]*openreview.Note, error) {
	if err := f.errs[q.Invitation]; err != nil {
		return nil, err
	}
	return f.notes[q.Invitation], nil
}

func (f *fakeUpstream) GetProfile(ctx context.Context, authorID string) (*openreview.Profile, error) {
	return nil, &resilience.NotFoundError{ID: authorID}
}

// fakeFetcher returns canned fragments per author id.
type fakeFetcher struct {
	fragments map[string]*model.AuthorFragment
}

func (f *fakeFetcher) Fetch(ctx context.Context, authorID string) (*model.AuthorFragment, error) {
	frag, ok := f.fragments[authorID]
	if !ok {
		return nil, &resilience.NotFoundError{ID: authorID}
	}
	return frag, nil
}

// memStore records runs and per-run status transitions in memory. It is
// safe for concurrent use so tests can drive overlapping requests.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	runs     map[string]*model.Run
	statuses map[string][]model.RunStatus
}

func newMemStore() *memStore {
	return &memStore{
		runs:     map[string]*model.Run{},
		statuses: map[string][]model.RunStatus{},
	}
}

func (m *memStore) CreateRun(ctx context.Context, req model.RunRequest) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	run := &model.Run{ID: fmt.Sprintf("run-%d", m.nextID), Request: req, Status: model.RunStatusQueued}
	m.runs[run.ID] = run
	return run, nil
}

func (m *memStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[runID] = append(m.statuses[runID], status)
	m.runs[runID].Status = status
	return nil
}

func (m *memStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := m.runs[runID]
	run.Result = result
	run.Status = model.RunStatusComplete
	if result != nil && result.Error != "" {
		run.Status = model.RunStatusFailed
	}
	return nil
}

func (m *memStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[runID], nil
}

func (m *memStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	return nil, nil
}

func (m *memStore) Migrate(ctx context.Context) error { return nil }
func (m *memStore) Close() error                      { return nil }

func mustContent(t *testing.T, pairs map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(pairs))
	for k, v := range pairs {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		out[k] = b
	}
	return out
}

func env(v any) map[string]any { return map[string]any{"value": v} }

func testAdapter(t *testing.T) *adapter.Adapter {
	legacy := &fakeUpstream{notes: map[string][]*openreview.Note{
		"ICLR.cc/2023/Conference/-/Blind_Submission": {
			{
				ID:         "p23",
				Invitation: "ICLR.cc/2023/Conference/-/Blind_Submission",
				Content: mustContent(t, map[string]any{
					"title":     "Legacy Paper",
					"authors":   []string{"Jane Doe"},
					"authorids": []string{"~Jane_Doe1"},
				}),
				Details: &openreview.NoteDetails{Replies: []*openreview.Note{
					{
						ID:         "r23a",
						Invitation: "ICLR.cc/2023/Conference/Paper1/-/Official_Review",
						Content:    mustContent(t, map[string]any{"review": "fine", "rating": "7: good"}),
					},
					{
						ID:         "r23b",
						Invitation: "ICLR.cc/2023/Conference/Paper1/-/Official_Review",
						Content:    mustContent(t, map[string]any{"review": "ok", "rating": "5: borderline"}),
					},
				}},
			},
		},
	}}
	revised := &fakeUpstream{notes: map[string][]*openreview.Note{
		"ICLR.cc/2024/Conference/-/Submission": {
			{
				ID:          "p24",
				Invitations: []string{"ICLR.cc/2024/Conference/-/Submission"},
				Content: mustContent(t, map[string]any{
					"title":     env("Revised Paper"),
					"authors":   env([]string{"Jane Doe", "Gone Person"}),
					"authorids": env([]string{"~Jane_Doe1", "~Gone_Person1"}),
				}),
				Details: &openreview.NoteDetails{DirectReplies: []*openreview.Note{
					{
						ID:          "r24a",
						Invitations: []string{"ICLR.cc/2024/Conference/Submission1/-/Official_Review"},
						Content:     mustContent(t, map[string]any{"summary": env("solid"), "rating": env(8)}),
					},
				}},
			},
		},
	}}

	reg := adapter.DefaultRegistry()
	spec, err := reg.Resolve("ICLR")
	require.NoError(t, err)
	return adapter.New(legacy, revised, spec, "https://openreview.net")
}

func testFragments() map[string]*model.AuthorFragment {
	return map[string]*model.AuthorFragment{
		"~Jane_Doe1": {
			AuthorID:    "~Jane_Doe1",
			Name:        "Jane Doe",
			Affiliation: "MIT",
			Career:      []model.CareerEntry{{Position: "PhD Student", Institution: "MIT", Timeframe: "2017-2022"}},
		},
	}
}

func testPool() *profile.Pool {
	return profile.NewPool(&fakeFetcher{fragments: testFragments()})
}

// gatedFetcher blocks every fetch until the expected number of calls has
// arrived, guaranteeing the requests driving them overlap in time.
type gatedFetcher struct {
	inner   *fakeFetcher
	mu      sync.Mutex
	arrived int
	needed  int
	release chan struct{}
}

func (g *gatedFetcher) Fetch(ctx context.Context, authorID string) (*model.AuthorFragment, error) {
	g.mu.Lock()
	g.arrived++
	if g.arrived == g.needed {
		close(g.release)
	}
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.inner.Fetch(ctx, authorID)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCollect_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	st := newMemStore()
	c := New(testAdapter(t), testPool(), "ICLR",
		WithStore(st),
		WithOutputDir(dir),
	)

	result, collections, err := c.Collect(context.Background(), []int{2024, 2023})
	require.NoError(t, err)

	// Years are normalized to ascending order.
	require.Len(t, result.Years, 2)
	assert.Equal(t, model.YearCount{Year: 2023, TotalPapers: 1, TotalReviews: 2}, result.Years[0])
	assert.Equal(t, model.YearCount{Year: 2024, TotalPapers: 1, TotalReviews: 1}, result.Years[1])

	// One author resolved, one not found.
	assert.Equal(t, 1, result.TotalAuthors)
	assert.Equal(t, 1, result.SkippedProfiles)
	require.Len(t, collections.Authors, 1)
	assert.Equal(t, "~Jane_Doe1", collections.Authors[0].AuthorID)

	// Per-year papers and reviews files plus one cross-year authors file.
	require.Len(t, result.PapersFiles, 2)
	require.Len(t, result.ReviewsFiles, 2)
	assert.Contains(t, result.PapersFiles[0], "ICLR_2023_papers.csv")
	assert.Contains(t, result.ReviewsFiles[1], "ICLR_2024_reviews.csv")
	assert.Contains(t, result.AuthorsFile, "ICLR_2023_2024_author_profiles.csv")

	papers2023 := readCSV(t, result.PapersFiles[0])
	require.Len(t, papers2023, 2)
	assert.Equal(t, "p23", papers2023[1][0])

	authors := readCSV(t, result.AuthorsFile)
	require.Len(t, authors, 2)
	assert.Equal(t, "~Jane_Doe1", authors[1][0])

	// Run history saw the full status progression and the final result.
	assert.Equal(t, []model.RunStatus{
		model.RunStatusFetching,
		model.RunStatusProfiling,
		model.RunStatusAggregating,
		model.RunStatusWriting,
	}, st.statuses["run-1"])
	require.NotNil(t, st.runs["run-1"].Result)
	assert.Equal(t, model.RunStatusComplete, st.runs["run-1"].Status)
}

func TestCollect_DuplicateYearsCollapsed(t *testing.T) {
	c := New(testAdapter(t), testPool(), "ICLR", WithOutputDir(t.TempDir()))

	result, _, err := c.Collect(context.Background(), []int{2023, 2023})
	require.NoError(t, err)

	require.Len(t, result.Years, 1)
	assert.Equal(t, 1, result.Years[0].TotalPapers)
	assert.Len(t, result.PapersFiles, 1)
}

func TestCollect_SingleYearAuthorsFileName(t *testing.T) {
	c := New(testAdapter(t), testPool(), "ICLR", WithOutputDir(t.TempDir()))

	result, _, err := c.Collect(context.Background(), []int{2023})
	require.NoError(t, err)

	assert.Contains(t, result.AuthorsFile, "ICLR_2023_author_profiles.csv")
}

func TestCollectPapersOnly_ForcedShape(t *testing.T) {
	dir := t.TempDir()
	st := newMemStore()
	c := New(testAdapter(t), testPool(), "ICLR",
		WithStore(st),
		WithOutputDir(dir),
	)

	// 2024 forced through the legacy source finds nothing: the legacy
	// upstream has no 2024 invitation.
	result, _, err := c.CollectPapersOnly(context.Background(), []int{2023, 2024}, model.ShapeLegacy)
	require.NoError(t, err)

	require.Len(t, result.Years, 2)
	assert.Equal(t, 1, result.Years[0].TotalPapers)
	assert.Equal(t, 0, result.Years[1].TotalPapers)

	require.Len(t, result.PapersFiles, 2)
	assert.Empty(t, result.ReviewsFiles)
	assert.Empty(t, result.AuthorsFile)

	// The request is recorded as papers-only with the forced shape.
	assert.True(t, st.runs["run-1"].Request.PapersOnly)
	assert.Equal(t, "legacy", st.runs["run-1"].Request.Shape)
}

func TestCollect_ConcurrentRequestsKeepSeparateRunHistories(t *testing.T) {
	st := newMemStore()
	// Three author fetches total (one for 2023, two for 2024); the gate
	// holds all of them until every request is mid-flight.
	gate := &gatedFetcher{
		inner:   &fakeFetcher{fragments: testFragments()},
		needed:  3,
		release: make(chan struct{}),
	}
	c := New(testAdapter(t), profile.NewPool(gate), "ICLR",
		WithStore(st),
		WithOutputDir(t.TempDir()),
	)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, years := range [][]int{{2023}, {2024}} {
		wg.Add(1)
		go func(i int, years []int) {
			defer wg.Done()
			_, _, errs[i] = c.Collect(context.Background(), years)
		}(i, years)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Each run owns its own complete status progression; neither request
	// wrote into the other's record.
	require.Len(t, st.runs, 2)
	want := []model.RunStatus{
		model.RunStatusFetching,
		model.RunStatusProfiling,
		model.RunStatusAggregating,
		model.RunStatusWriting,
	}
	for id, run := range st.runs {
		assert.Equal(t, want, st.statuses[id], "run %s", id)
		assert.Equal(t, model.RunStatusComplete, run.Status, "run %s", id)
		require.NotNil(t, run.Result, "run %s", id)
	}
}

func TestCollect_FailedYearTallied(t *testing.T) {
	legacy := &fakeUpstream{
		notes: map[string][]*openreview.Note{
			"ICLR.cc/2023/Conference/-/Blind_Submission": {
				{
					ID:         "p23",
					Invitation: "ICLR.cc/2023/Conference/-/Blind_Submission",
					Content:    mustContent(t, map[string]any{"title": "Surviving Paper"}),
				},
			},
		},
		errs: map[string]error{
			"ICLR.cc/2022/Conference/-/Blind_Submission": errors.New("upstream unreachable"),
		},
	}
	reg := adapter.DefaultRegistry()
	venue, err := reg.Resolve("ICLR")
	require.NoError(t, err)
	a := adapter.New(legacy, &fakeUpstream{}, venue, "https://openreview.net")
	c := New(a, testPool(), "ICLR", WithOutputDir(t.TempDir()))

	result, _, err := c.Collect(context.Background(), []int{2022, 2023})
	require.NoError(t, err)

	// The failed year is marked, not silently recorded as empty.
	require.Len(t, result.Years, 2)
	assert.True(t, result.Years[0].Failed)
	assert.Equal(t, 0, result.Years[0].TotalPapers)
	assert.False(t, result.Years[1].Failed)
	assert.Equal(t, 1, result.Years[1].TotalPapers)
	assert.Equal(t, 1, result.FailedYears)
}
