// Package adapter reconciles the two upstream API generations behind one
// interface. Years at or past the shape boundary are served by the revised
// API whose replies arrive attached to the submission; earlier years use
// the legacy API whose replies form a nested tree. Everything above this
// package is shape-agnostic.
package adapter

import (
	"context"

	"go.uber.org/zap"

	"github.com/scholarly-group/confcollect/internal/model"
	"github.com/scholarly-group/confcollect/internal/resilience"
	"github.com/scholarly-group/confcollect/pkg/openreview"
)

// PaperBundle couples one normalized paper with the raw reply handle the
// review extractor consumes. Shape records which traversal the replies need.
type PaperBundle struct {
	Paper   model.Paper
	Replies []*openreview.Note
	Shape   model.APIShape
}

// YearResult is the outcome of fetching one year: the surviving bundles
// plus a tally of records skipped under the partial-failure policy.
type YearResult struct {
	Bundles []PaperBundle
	Skipped int
}

// Source fetches and normalizes one year's submissions.
type Source interface {
	FetchYear(ctx context.Context, year int) (*YearResult, error)
	Shape() model.APIShape
}

// Adapter dispatches each year to the source matching its API shape.
type Adapter struct {
	legacy  Source
	revised Source
}

// New builds an adapter over the two API generations for one venue.
func New(legacyClient, revisedClient openreview.Client, venue VenueSpec, webBaseURL string) *Adapter {
	return &Adapter{
		legacy:  &shapeSource{client: legacyClient, venue: venue, webBase: webBaseURL, shape: model.ShapeLegacy},
		revised: &shapeSource{client: revisedClient, venue: venue, webBase: webBaseURL, shape: model.ShapeRevised},
	}
}

// SourceFor returns the source serving the given year.
func (a *Adapter) SourceFor(year int) Source {
	if model.ShapeForYear(year) == model.ShapeRevised {
		return a.revised
	}
	return a.legacy
}

// SourceForShape returns the source for an explicitly requested shape,
// bypassing the year boundary. Used by papers-only collection.
func (a *Adapter) SourceForShape(shape model.APIShape) Source {
	if shape == model.ShapeRevised {
		return a.revised
	}
	return a.legacy
}

// FetchYear fetches and normalizes one year through the shape-appropriate
// source.
func (a *Adapter) FetchYear(ctx context.Context, year int) (*YearResult, error) {
	return a.SourceFor(year).FetchYear(ctx, year)
}

// shapeSource implements Source for one API generation.
type shapeSource struct {
	client  openreview.Client
	venue   VenueSpec
	webBase string
	shape   model.APIShape
}

func (s *shapeSource) Shape() model.APIShape { return s.shape }

func (s *shapeSource) FetchYear(ctx context.Context, year int) (*YearResult, error) {
	legacy := s.shape == model.ShapeLegacy
	details := "directReplies"
	if legacy {
		details = "replies"
	}

	q := openreview.NotesQuery{
		Invitation: s.venue.Invitation(year, legacy),
		Details:    details,
	}

	notes, err := resilience.DoVal(ctx, retryPolicy(), func(ctx context.Context) ([]*openreview.Note, error) {
		return s.client.AllNotes(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("fetched submissions",
		zap.Int("year", year),
		zap.String("shape", string(s.shape)),
		zap.Int("count", len(notes)),
	)

	result := &YearResult{Bundles: make([]PaperBundle, 0, len(notes))}
	for _, note := range notes {
		bundle, err := s.normalize(note, year)
		if err != nil {
			// One bad record never aborts the year.
			result.Skipped++
			zap.L().Warn("skipping malformed submission",
				zap.Int("year", year),
				zap.String("shape", string(s.shape)),
				zap.Error(err),
			)
			continue
		}
		result.Bundles = append(result.Bundles, bundle)
	}

	return result, nil
}

func retryPolicy() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("openreview", "list notes")
	return cfg
}

// normalize maps one raw note onto the shape-invariant Paper form. Missing
// optional fields become explicit empty values.
func (s *shapeSource) normalize(note *openreview.Note, year int) (PaperBundle, error) {
	if note == nil || note.ID == "" {
		return PaperBundle{}, &resilience.MalformedError{Err: errMissingID}
	}
	if err := s.checkShape(note); err != nil {
		return PaperBundle{}, err
	}

	venue := note.ValueString("venue")
	if venue == "" {
		venue = s.venue.ID(year)
	}

	paper := model.Paper{
		ID:          note.ID,
		Title:       note.ValueString("title"),
		Abstract:    note.ValueString("abstract"),
		Authors:     emptyIfNil(note.ValueStrings("authors")),
		AuthorIDs:   emptyIfNil(note.ValueStrings("authorids")),
		Keywords:    emptyIfNil(note.ValueStrings("keywords")),
		PrimaryArea: note.ValueString("primary_area"),
		Venue:       venue,
		Year:        year,
		PDFURL:      s.webBase + "/pdf?id=" + note.ID,
		ForumURL:    s.webBase + "/forum?id=" + note.ID,
	}

	var replies []*openreview.Note
	if note.Details != nil {
		if s.shape == model.ShapeLegacy {
			replies = note.Details.Replies
		} else {
			replies = note.Details.DirectReplies
		}
	}

	return PaperBundle{Paper: paper, Replies: replies, Shape: s.shape}, nil
}

// checkShape flags records that claim one API generation but parse like
// the other. Treated as malformed for that record only.
func (s *shapeSource) checkShape(note *openreview.Note) error {
	if s.shape == model.ShapeLegacy && note.Invitation == "" && len(note.Invitations) > 0 {
		return &resilience.MalformedError{Err: errShapeMismatch}
	}
	if s.shape == model.ShapeRevised && len(note.Invitations) == 0 && note.Invitation != "" {
		return &resilience.MalformedError{Err: errShapeMismatch}
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
