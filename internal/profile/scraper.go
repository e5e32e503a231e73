// Package profile retrieves author profiles: the structured profiles API
// where the platform provides it, with a public profile-page scrape as
// fallback. Fetching is driven concurrently by the pool in this package.
package profile

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scholarly-group/confcollect/internal/model"
	"github.com/scholarly-group/confcollect/internal/resilience"
	"github.com/scholarly-group/confcollect/pkg/openreview"
)

// Scraper turns one author identifier into one raw profile fragment.
type Scraper struct {
	client  openreview.Client
	http    *http.Client
	webBase string
}

// ScraperOption configures the scraper.
type ScraperOption func(*Scraper)

// WithHTTPClient sets the HTTP client used for the page-scrape fallback.
func WithHTTPClient(hc *http.Client) ScraperOption {
	return func(s *Scraper) {
		s.http = hc
	}
}

// NewScraper builds a scraper over the structured profiles API with a
// page-scrape fallback rooted at webBaseURL.
func NewScraper(client openreview.Client, webBaseURL string, opts ...ScraperOption) *Scraper {
	s := &Scraper{
		client:  client,
		webBase: strings.TrimRight(webBaseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns exactly one fragment for the identifier, or a
// resilience.NotFoundError for anonymous/withdrawn identifiers. Any
// profile section may be missing; missing sections yield empty defaults.
func (s *Scraper) Fetch(ctx context.Context, authorID string) (*model.AuthorFragment, error) {
	prof, err := s.client.GetProfile(ctx, authorID)
	if err == nil {
		frag := fragmentFromProfile(authorID, prof)
		checkChronology(authorID, frag.Career)
		return frag, nil
	}
	if !resilience.IsNotFound(err) {
		return nil, err
	}

	// Structured record absent: fall back to the public profile page.
	frag, err := s.scrapePage(ctx, authorID)
	if err != nil {
		return nil, err
	}
	checkChronology(authorID, frag.Career)
	return frag, nil
}

func fragmentFromProfile(authorID string, prof *openreview.Profile) *model.AuthorFragment {
	frag := &model.AuthorFragment{
		AuthorID:      authorID,
		Name:          prof.DisplayName(),
		Career:        []model.CareerEntry{},
		Advisors:      []model.AdvisorRelation{},
		Expertise:     []model.ExpertiseTag{},
		PersonalLinks: []string{},
	}

	for _, h := range prof.Content.History {
		frag.Career = append(frag.Career, model.CareerEntry{
			Position:    h.Position,
			Institution: h.Institution.Name,
			Timeframe:   timeframe(h.Start, h.End),
		})
	}
	// Current affiliation is the first (most recent) history row.
	if len(prof.Content.History) > 0 {
		frag.Affiliation = prof.Content.History[0].Institution.Name
	}

	for _, rel := range prof.Content.Relations {
		frag.Advisors = append(frag.Advisors, model.AdvisorRelation{
			Relation:  rel.Relation,
			Name:      rel.Name,
			Timeframe: timeframe(rel.Start, rel.End),
		})
	}

	for _, exp := range prof.Content.Expertise {
		if len(exp.Keywords) == 0 {
			continue
		}
		frag.Expertise = append(frag.Expertise, model.ExpertiseTag{
			Area:      strings.Join(exp.Keywords, ", "),
			Timeframe: timeframe(exp.Start, exp.End),
		})
	}

	frag.PersonalLinks = collectLinks(prof.Content)

	if prof.TCDate > 0 {
		frag.JoinedDate = time.UnixMilli(prof.TCDate).UTC().Format("2006-01-02")
	}

	return frag
}

func collectLinks(content openreview.ProfileContent) []string {
	links := []string{}
	named := []struct{ label, url string }{
		{"homepage", content.Homepage},
		{"gscholar", content.GScholar},
		{"dblp", content.DBLP},
		{"orcid", content.ORCID},
	}
	for _, l := range named {
		if l.url != "" {
			links = append(links, l.label+": "+l.url)
		}
	}
	for _, l := range content.Links {
		if l.URL == "" {
			continue
		}
		if l.Name != "" {
			links = append(links, l.Name+": "+l.URL)
			continue
		}
		links = append(links, l.URL)
	}
	return links
}

// timeframe renders a start/end year pair the way profile pages show it.
func timeframe(start, end int) string {
	switch {
	case start > 0 && end > 0:
		return fmt.Sprintf("%d-%d", start, end)
	case start > 0:
		return fmt.Sprintf("%d-Present", start)
	case end > 0:
		return fmt.Sprintf("%d", end)
	default:
		return ""
	}
}

// checkChronology validates the trusted ordering contract: career entries
// arrive in source order, assumed chronological. Violations are flagged,
// never reordered.
func checkChronology(authorID string, career []model.CareerEntry) {
	prev := 0
	for _, entry := range career {
		start := leadingYear(entry.Timeframe)
		if start == 0 {
			continue
		}
		if prev != 0 && start < prev {
			zap.L().Warn("career entries out of chronological order",
				zap.String("author_id", authorID),
				zap.String("timeframe", entry.Timeframe),
			)
			return
		}
		prev = start
	}
}

var firstYearExpr = regexp.MustCompile(`\d{4}`)

func leadingYear(timeframe string) int {
	match := firstYearExpr.FindString(timeframe)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}

// scrapePage parses the author's public profile page. Any section may be
// absent from the page; absence yields empty defaults, not failure.
func (s *Scraper) scrapePage(ctx context.Context, authorID string) (*model.AuthorFragment, error) {
	pageURL := s.webBase + "/profile?id=" + authorID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "profile: create page request")
	}
	req.Header.Set("User-Agent", "confcollect/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "profile: fetch page")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &resilience.NotFoundError{ID: authorID}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &resilience.RateLimitedError{
			Err:        eris.Errorf("profile: 429 fetching page for %s", authorID),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("profile: status %d fetching page for %s", resp.StatusCode, authorID)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &resilience.MalformedError{Err: eris.Wrap(err, "profile: parse page")}
	}

	return parsePage(authorID, doc), nil
}

func parsePage(authorID string, doc *goquery.Document) *model.AuthorFragment {
	frag := &model.AuthorFragment{
		AuthorID:      authorID,
		Name:          strings.TrimSpace(doc.Find(".profile-header h1").First().Text()),
		Affiliation:   strings.TrimSpace(doc.Find(".profile-header .affiliation").First().Text()),
		JoinedDate:    strings.TrimSpace(doc.Find(".profile-header .joined").First().Text()),
		Career:        []model.CareerEntry{},
		Advisors:      []model.AdvisorRelation{},
		Expertise:     []model.ExpertiseTag{},
		PersonalLinks: []string{},
	}

	doc.Find("section#history .entry").Each(func(_ int, sel *goquery.Selection) {
		entry := model.CareerEntry{
			Position:    strings.TrimSpace(sel.Find(".position").Text()),
			Institution: strings.TrimSpace(sel.Find(".institution").Text()),
			Timeframe:   strings.TrimSpace(sel.Find(".timeframe").Text()),
		}
		if entry.Position == "" && entry.Institution == "" {
			return
		}
		frag.Career = append(frag.Career, entry)
	})

	doc.Find("section#relations .entry").Each(func(_ int, sel *goquery.Selection) {
		rel := model.AdvisorRelation{
			Relation:  strings.TrimSpace(sel.Find(".relation").Text()),
			Name:      strings.TrimSpace(sel.Find(".name").Text()),
			Timeframe: strings.TrimSpace(sel.Find(".timeframe").Text()),
		}
		if rel.Name == "" {
			return
		}
		frag.Advisors = append(frag.Advisors, rel)
	})

	doc.Find("section#expertise .entry").Each(func(_ int, sel *goquery.Selection) {
		tag := model.ExpertiseTag{
			Area:      strings.TrimSpace(sel.Find(".area").Text()),
			Timeframe: strings.TrimSpace(sel.Find(".timeframe").Text()),
		}
		if tag.Area == "" {
			return
		}
		frag.Expertise = append(frag.Expertise, tag)
	})

	doc.Find("section#links a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		label := strings.TrimSpace(sel.Text())
		if label != "" && label != href {
			frag.PersonalLinks = append(frag.PersonalLinks, label+": "+href)
			return
		}
		frag.PersonalLinks = append(frag.PersonalLinks, href)
	})

	if frag.Affiliation == "" && len(frag.Career) > 0 {
		frag.Affiliation = frag.Career[0].Institution
	}

	return frag
}
