// Package table flattens the canonical collections into the three fixed
// output schemas. Projection is pure: no fetching, no merging, no side
// effects. This is the only package that knows the serialized textual
// representation of multi-valued fields.
package table

import (
	"strconv"
	"strings"

	"github.com/scholarly-group/confcollect/internal/model"
)

// listSep joins multi-valued author fields. The join order always equals
// the chronological order established by aggregation.
const listSep = "; "

// PapersHeader is the papers table wire contract; column order matters.
func PapersHeader() []string {
	return []string{
		"paper_id", "title", "abstract", "authors", "authorids", "keywords",
		"primary_area", "venue", "year", "pdf_url", "forum_url",
	}
}

// ReviewsHeader is the reviews table wire contract.
func ReviewsHeader() []string {
	return []string{
		"review_id", "paper_id", "year", "reviewer", "full_review_text",
		"rating", "confidence", "summary", "strengths", "weaknesses",
		"questions", "limitations", "soundness", "presentation",
		"contribution", "review_date",
	}
}

// AuthorsHeader is the authors table wire contract.
func AuthorsHeader() []string {
	return []string{
		"author_id", "name", "affiliation", "joined_date", "personal_links",
		"positions", "institutions", "timeframes", "advisors", "expertise",
	}
}

// PaperRow projects one paper onto the papers schema.
func PaperRow(p model.Paper) []string {
	return []string{
		p.ID,
		p.Title,
		p.Abstract,
		strings.Join(p.Authors, ", "),
		strings.Join(p.AuthorIDs, ", "),
		strings.Join(p.Keywords, ", "),
		p.PrimaryArea,
		p.Venue,
		strconv.Itoa(p.Year),
		p.PDFURL,
		p.ForumURL,
	}
}

// ReviewRow projects one review onto the reviews schema.
func ReviewRow(r model.Review) []string {
	date := ""
	if r.ReviewDate > 0 {
		date = strconv.FormatInt(r.ReviewDate, 10)
	}
	return []string{
		r.ID,
		r.PaperID,
		strconv.Itoa(r.Year),
		r.Reviewer,
		r.FullReviewText,
		r.Rating,
		r.Confidence,
		r.Summary,
		r.Strengths,
		r.Weaknesses,
		r.Questions,
		r.Limitations,
		r.Soundness,
		r.Presentation,
		r.Contribution,
		date,
	}
}

// AuthorRow projects one canonical author onto the authors schema. The
// positions, institutions, and timeframes columns are the career list
// split by component, all three in the same chronological order.
func AuthorRow(a model.AuthorProfile) []string {
	positions := make([]string, 0, len(a.Career))
	institutions := make([]string, 0, len(a.Career))
	timeframes := make([]string, 0, len(a.Career))
	for _, entry := range a.Career {
		positions = append(positions, entry.Position)
		institutions = append(institutions, entry.Institution)
		timeframes = append(timeframes, entry.Timeframe)
	}

	advisors := make([]string, 0, len(a.Advisors))
	for _, rel := range a.Advisors {
		advisors = append(advisors, advisorText(rel))
	}

	expertise := make([]string, 0, len(a.Expertise))
	for _, tag := range a.Expertise {
		expertise = append(expertise, expertiseText(tag))
	}

	return []string{
		a.AuthorID,
		a.Name,
		a.Affiliation,
		a.JoinedDate,
		strings.Join(a.PersonalLinks, listSep),
		strings.Join(positions, listSep),
		strings.Join(institutions, listSep),
		strings.Join(timeframes, listSep),
		strings.Join(advisors, listSep),
		strings.Join(expertise, listSep),
	}
}

func advisorText(rel model.AdvisorRelation) string {
	out := rel.Name
	if rel.Relation != "" {
		out = rel.Relation + ": " + out
	}
	if rel.Timeframe != "" {
		out += " (" + rel.Timeframe + ")"
	}
	return out
}

func expertiseText(tag model.ExpertiseTag) string {
	if tag.Timeframe == "" {
		return tag.Area
	}
	return tag.Area + " (" + tag.Timeframe + ")"
}

// PaperRows projects a paper slice.
func PaperRows(papers []model.Paper) [][]string {
	rows := make([][]string, 0, len(papers))
	for _, p := range papers {
		rows = append(rows, PaperRow(p))
	}
	return rows
}

// ReviewRows projects a review slice.
func ReviewRows(reviews []model.Review) [][]string {
	rows := make([][]string, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, ReviewRow(r))
	}
	return rows
}

// AuthorRows projects a canonical author slice.
func AuthorRows(authors []model.AuthorProfile) [][]string {
	rows := make([][]string, 0, len(authors))
	for _, a := range authors {
		rows = append(rows, AuthorRow(a))
	}
	return rows
}
