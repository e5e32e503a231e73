// Package openreview provides a client for the OpenReview notes and
// profiles APIs. Both API generations (api.openreview.net and
// api2.openreview.net) speak the same endpoints with different payload
// envelopes; one client instance points at one generation.
package openreview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/scholarly-group/confcollect/internal/resilience"
)

// Client defines the upstream operations the collector depends on.
type Client interface {
	// ListNotes fetches one page of notes matching the query.
	ListNotes(ctx context.Context, q NotesQuery) (*NotesPage, error)
	// AllNotes pages through every note matching the query.
	AllNotes(ctx context.Context, q NotesQuery) ([]*Note, error)
	// GetProfile fetches one author profile by identifier. Absent profiles
	// return a resilience.NotFoundError, which is a valid outcome.
	GetProfile(ctx context.Context, authorID string) (*Profile, error)
}

// NotesQuery selects notes from the upstream listing endpoint.
type NotesQuery struct {
	Invitation string
	Details    string // "replies" (legacy) or "directReplies" (revised)
	Limit      int
	Offset     int
}

// NotesPage is one page of the notes listing.
type NotesPage struct {
	Notes []*Note `json:"notes"`
	Count int     `json:"count"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithPageSize overrides the pagination page size.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		c.pageSize = n
	}
}

type httpClient struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	pageSize int
}

// NewClient creates a client pointed at the given API base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:  rate.NewLimiter(10, 10),
		pageSize: 1000,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs one rate-limited GET and classifies the failure modes the
// caller's retry policy cares about: 429 becomes RateLimitedError, 404
// becomes NotFoundError, other non-2xx become plain errors.
func (c *httpClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "openreview: rate limiter wait")
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "openreview: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "confcollect/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "openreview: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openreview: read response body")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &resilience.RateLimitedError{
			Err:        eris.Errorf("openreview: 429 from %s", path),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &resilience.NotFoundError{ID: path}
	case resp.StatusCode >= 500:
		return nil, eris.Errorf("openreview: status %d from %s: %s", resp.StatusCode, path, truncate(body, 200))
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("openreview: unexpected status %d from %s: %s", resp.StatusCode, path, truncate(body, 200))
	}

	return body, nil
}

func (c *httpClient) ListNotes(ctx context.Context, q NotesQuery) (*NotesPage, error) {
	params := url.Values{}
	params.Set("invitation", q.Invitation)
	if q.Details != "" {
		params.Set("details", q.Details)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}

	body, err := c.get(ctx, "/notes", params)
	if err != nil {
		return nil, err
	}

	var page NotesPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &resilience.MalformedError{Err: eris.Wrap(err, "openreview: unmarshal notes page")}
	}
	return &page, nil
}

func (c *httpClient) AllNotes(ctx context.Context, q NotesQuery) ([]*Note, error) {
	var all []*Note
	offset := q.Offset
	for {
		page, err := c.ListNotes(ctx, NotesQuery{
			Invitation: q.Invitation,
			Details:    q.Details,
			Limit:      c.pageSize,
			Offset:     offset,
		})
		if err != nil {
			return nil, err
		}
		if len(page.Notes) == 0 {
			break
		}
		all = append(all, page.Notes...)
		offset += len(page.Notes)
		if len(page.Notes) < c.pageSize {
			break
		}
	}
	return all, nil
}

func (c *httpClient) GetProfile(ctx context.Context, authorID string) (*Profile, error) {
	params := url.Values{}
	params.Set("id", authorID)

	body, err := c.get(ctx, "/profiles", params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Profiles []*Profile `json:"profiles"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &resilience.MalformedError{Err: eris.Wrap(err, "openreview: unmarshal profiles")}
	}
	if len(result.Profiles) == 0 {
		return nil, &resilience.NotFoundError{ID: authorID}
	}
	return result.Profiles[0], nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}
