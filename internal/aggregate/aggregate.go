// Package aggregate merges per-year paper/review records and raw author
// fragments into the canonical collections for one collection request.
// State is scoped to a single Aggregator instance, so concurrent requests
// for different year sets never interfere. Merging runs single-threaded
// after the profile pool's barrier; no locks are needed here.
package aggregate

import (
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/scholarly-group/confcollect/internal/model"
)

// Collections is the frozen output of aggregation.
type Collections struct {
	Papers  []model.Paper
	Reviews []model.Review
	Authors []model.AuthorProfile
}

// YearTally counts papers and reviews attributed to one year, computed
// over the final collections rather than re-fetched.
type YearTally struct {
	Papers  int
	Reviews int
}

// Aggregator accumulates records for one collection request and
// deduplicates them by native identifier.
type Aggregator struct {
	papers     []model.Paper
	paperSeen  map[string]struct{}
	reviews    []model.Review
	reviewSeen map[string]struct{}

	authors     map[string]*model.AuthorProfile
	authorOrder []string
}

// New returns an empty request-scoped aggregator.
func New() *Aggregator {
	return &Aggregator{
		paperSeen:  make(map[string]struct{}),
		reviewSeen: make(map[string]struct{}),
		authors:    make(map[string]*model.AuthorProfile),
	}
}

// AddPapers records papers, dropping duplicates by paper identifier.
func (a *Aggregator) AddPapers(papers []model.Paper) {
	for _, p := range papers {
		if _, ok := a.paperSeen[p.ID]; ok {
			continue
		}
		a.paperSeen[p.ID] = struct{}{}
		a.papers = append(a.papers, p)
	}
}

// AddReviews records reviews, dropping duplicates by review identifier and
// reviews whose paper was never recorded.
func (a *Aggregator) AddReviews(reviews []model.Review) {
	for _, r := range reviews {
		if _, ok := a.reviewSeen[r.ID]; ok {
			continue
		}
		if _, ok := a.paperSeen[r.PaperID]; !ok {
			continue
		}
		a.reviewSeen[r.ID] = struct{}{}
		a.reviews = append(a.reviews, r)
	}
}

// AddFragment merges one raw fragment into the canonical record for its
// author identifier. Career lists concatenate in encounter order and then
// deduplicate identical triples preserving first-seen order; advisor and
// expertise lists union the same way. Scalar fields keep the first
// non-empty value observed.
func (a *Aggregator) AddFragment(frag model.AuthorFragment) {
	if frag.AuthorID == "" {
		return
	}

	canonical, ok := a.authors[frag.AuthorID]
	if !ok {
		canonical = &model.AuthorProfile{
			AuthorID:      frag.AuthorID,
			Career:        []model.CareerEntry{},
			Advisors:      []model.AdvisorRelation{},
			Expertise:     []model.ExpertiseTag{},
			PersonalLinks: []string{},
		}
		a.authors[frag.AuthorID] = canonical
		a.authorOrder = append(a.authorOrder, frag.AuthorID)
	}

	if canonical.Name == "" {
		canonical.Name = frag.Name
	}
	if canonical.Affiliation == "" {
		canonical.Affiliation = frag.Affiliation
	}
	if canonical.JoinedDate == "" {
		canonical.JoinedDate = frag.JoinedDate
	}

	canonical.Career = mergeCareer(canonical.Career, frag.Career)
	canonical.Advisors = mergeAdvisors(canonical.Advisors, frag.Advisors)
	canonical.Expertise = mergeExpertise(canonical.Expertise, frag.Expertise)
	canonical.PersonalLinks = mergeStrings(canonical.PersonalLinks, frag.PersonalLinks)
}

// Result freezes the canonical collections. Author rows are emitted in
// identifier order so an unchanged request always produces identical
// output.
func (a *Aggregator) Result() *Collections {
	ids := make([]string, len(a.authorOrder))
	copy(ids, a.authorOrder)
	sort.Strings(ids)

	authors := make([]model.AuthorProfile, 0, len(ids))
	for _, id := range ids {
		authors = append(authors, *a.authors[id])
	}

	return &Collections{
		Papers:  a.papers,
		Reviews: a.reviews,
		Authors: authors,
	}
}

// Tallies computes per-year paper and review counts over the final
// collections.
func (c *Collections) Tallies() map[int]YearTally {
	tallies := make(map[int]YearTally)
	for _, p := range c.Papers {
		t := tallies[p.Year]
		t.Papers++
		tallies[p.Year] = t
	}
	for _, r := range c.Reviews {
		t := tallies[r.Year]
		t.Reviews++
		tallies[r.Year] = t
	}
	return tallies
}

// key normalizes a string for dedup comparison. Upstream mixes composed
// and decomposed unicode in names and institutions; comparison uses NFC
// while the stored value keeps its original form.
func key(parts ...string) string {
	out := ""
	for _, p := range parts {
		out += norm.NFC.String(p) + "\x1f"
	}
	return out
}

func mergeCareer(dst, src []model.CareerEntry) []model.CareerEntry {
	seen := make(map[string]struct{}, len(dst))
	for _, e := range dst {
		seen[key(e.Position, e.Institution, e.Timeframe)] = struct{}{}
	}
	for _, e := range src {
		k := key(e.Position, e.Institution, e.Timeframe)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, e)
	}
	return dst
}

func mergeAdvisors(dst, src []model.AdvisorRelation) []model.AdvisorRelation {
	seen := make(map[string]struct{}, len(dst))
	for _, e := range dst {
		seen[key(e.Relation, e.Name, e.Timeframe)] = struct{}{}
	}
	for _, e := range src {
		k := key(e.Relation, e.Name, e.Timeframe)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, e)
	}
	return dst
}

func mergeExpertise(dst, src []model.ExpertiseTag) []model.ExpertiseTag {
	seen := make(map[string]struct{}, len(dst))
	for _, e := range dst {
		seen[key(e.Area, e.Timeframe)] = struct{}{}
	}
	for _, e := range src {
		k := key(e.Area, e.Timeframe)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, e)
	}
	return dst
}

func mergeStrings(dst, src []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[key(s)] = struct{}{}
	}
	for _, s := range src {
		k := key(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}
