// Package review derives structured review records from raw reply trees.
// The legacy shape nests replies and needs a recursive walk; the revised
// shape attaches a flat list to the submission. Field schemas vary across
// years even within one shape, so structured sub-sections fall back to the
// single free-text "review" field when absent.
package review

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scholarly-group/confcollect/internal/model"
	"github.com/scholarly-group/confcollect/pkg/openreview"
)

// officialReviewMarker tags the reply invitations that carry reviews, as
// opposed to comments, decisions, and meta-reviews.
const officialReviewMarker = "Official_Review"

var firstIntExpr = regexp.MustCompile(`-?\d+`)

// textSection names one free-text sub-field and its label in the
// concatenated full text. Order here fixes the concatenation order.
type textSection struct {
	field string
	label string
}

var textSections = []textSection{
	{"summary", "Summary"},
	{"strengths", "Strengths"},
	{"weaknesses", "Weaknesses"},
	{"questions", "Questions"},
	{"limitations", "Limitations"},
}

// Extract walks a paper's raw replies and returns its official reviews.
// Replies that are not reviews are ignored; a paper with no reviews yields
// an empty slice, which is not an error.
func Extract(shape model.APIShape, paperID string, year int, replies []*openreview.Note) []model.Review {
	var reviews []model.Review
	if shape == model.ShapeLegacy {
		walkLegacy(replies, func(note *openreview.Note) {
			reviews = append(reviews, parseReview(note, paperID, year))
		})
		return reviews
	}

	for _, note := range replies {
		if note == nil || !note.InvitationMatches(officialReviewMarker) {
			continue
		}
		reviews = append(reviews, parseReview(note, paperID, year))
	}
	return reviews
}

// walkLegacy recursively visits nested reply nodes, calling visit on each
// official review found at any depth.
func walkLegacy(replies []*openreview.Note, visit func(*openreview.Note)) {
	for _, note := range replies {
		if note == nil {
			continue
		}
		if note.InvitationMatches(officialReviewMarker) {
			visit(note)
		}
		if note.Details != nil {
			walkLegacy(note.Details.Replies, visit)
		}
	}
}

func parseReview(note *openreview.Note, paperID string, year int) model.Review {
	r := model.Review{
		ID:         note.ID,
		PaperID:    paperID,
		Year:       year,
		Reviewer:   reviewerLabel(note),
		ReviewDate: note.CDate,

		Summary:     note.ValueString("summary"),
		Strengths:   note.ValueString("strengths"),
		Weaknesses:  note.ValueString("weaknesses"),
		Questions:   note.ValueString("questions"),
		Limitations: note.ValueString("limitations"),

		Rating:       numericField(note, "rating"),
		Confidence:   numericField(note, "confidence"),
		Soundness:    numericField(note, "soundness"),
		Presentation: numericField(note, "presentation"),
		Contribution: numericField(note, "contribution"),
	}

	r.FullReviewText = fullText(&r, note)
	return r
}

// fullText concatenates the present named sections, each on its own line
// with a label. When no structured section is present the single free-text
// "review" field is the full text.
func fullText(r *model.Review, note *openreview.Note) string {
	var parts []string
	for _, sec := range textSections {
		text := sectionValue(r, sec.field)
		if text == "" {
			continue
		}
		parts = append(parts, sec.label+": "+text)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	return strings.TrimSpace(note.ValueString("review"))
}

func sectionValue(r *model.Review, field string) string {
	switch field {
	case "summary":
		return r.Summary
	case "strengths":
		return r.Strengths
	case "weaknesses":
		return r.Weaknesses
	case "questions":
		return r.Questions
	case "limitations":
		return r.Limitations
	}
	return ""
}

// numericField extracts the first integer found in the field. Upstream
// encodes scores as labeled strings ("8: accept, good paper") in some
// years and bare numbers in others; anything unparseable becomes an
// explicit empty value rather than an error.
func numericField(note *openreview.Note, field string) string {
	if f, ok := note.ValueNumber(field); ok {
		return strconv.Itoa(int(f))
	}
	match := firstIntExpr.FindString(note.ValueString(field))
	return match
}

func reviewerLabel(note *openreview.Note) string {
	if len(note.Signatures) > 0 && note.Signatures[0] != "" {
		return note.Signatures[0]
	}
	return "Anonymous"
}
