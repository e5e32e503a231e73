package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarly-group/confcollect/internal/model"
)

func TestPaperRow_MatchesHeaderOrder(t *testing.T) {
	p := model.Paper{
		ID:          "p1",
		Title:       "Sparse Attention",
		Abstract:    "We study attention.",
		Authors:     []string{"Jane Doe", "Bo Chen"},
		AuthorIDs:   []string{"~Jane_Doe1", "~Bo_Chen1"},
		Keywords:    []string{"attention", "sparsity"},
		PrimaryArea: "optimization",
		Venue:       "ICLR 2023 poster",
		Year:        2023,
		PDFURL:      "https://openreview.net/pdf?id=p1",
		ForumURL:    "https://openreview.net/forum?id=p1",
	}

	row := PaperRow(p)
	header := PapersHeader()
	require.Len(t, row, len(header))

	got := map[string]string{}
	for i, col := range header {
		got[col] = row[i]
	}
	assert.Equal(t, "p1", got["paper_id"])
	assert.Equal(t, "Jane Doe, Bo Chen", got["authors"])
	assert.Equal(t, "~Jane_Doe1, ~Bo_Chen1", got["authorids"])
	assert.Equal(t, "attention, sparsity", got["keywords"])
	assert.Equal(t, "2023", got["year"])
	assert.Equal(t, "https://openreview.net/forum?id=p1", got["forum_url"])
}

func TestPaperRow_EmptyListsAreEmptyCells(t *testing.T) {
	row := PaperRow(model.Paper{ID: "p1", Year: 2024})
	header := PapersHeader()
	for i, col := range header {
		switch col {
		case "paper_id", "year":
			continue
		default:
			assert.Equal(t, "", row[i], "column %s", col)
		}
	}
}

func TestReviewRow_MatchesHeaderOrder(t *testing.T) {
	r := model.Review{
		ID:             "r1",
		PaperID:        "p1",
		Year:           2024,
		Reviewer:       "Reviewer_xYz1",
		FullReviewText: "Summary: Good.\nStrengths: Clear.",
		Rating:         "6",
		Confidence:     "4",
		Summary:        "Good.",
		Strengths:      "Clear.",
		Soundness:      "3",
		Presentation:   "3",
		Contribution:   "2",
		ReviewDate:     1700000000000,
	}

	row := ReviewRow(r)
	header := ReviewsHeader()
	require.Len(t, row, len(header))

	got := map[string]string{}
	for i, col := range header {
		got[col] = row[i]
	}
	assert.Equal(t, "r1", got["review_id"])
	assert.Equal(t, "p1", got["paper_id"])
	assert.Equal(t, "6", got["rating"])
	assert.Equal(t, "1700000000000", got["review_date"])
	// Absent fields are explicit empty values.
	assert.Equal(t, "", got["questions"])
	assert.Equal(t, "", got["limitations"])
}

func TestReviewRow_ZeroDateIsEmpty(t *testing.T) {
	row := ReviewRow(model.Review{ID: "r1", PaperID: "p1", Year: 2023})
	header := ReviewsHeader()
	for i, col := range header {
		if col == "review_date" {
			assert.Equal(t, "", row[i])
		}
	}
}

func TestAuthorRow_CareerColumnsShareOrder(t *testing.T) {
	a := model.AuthorProfile{
		AuthorID:    "~Auth_42",
		Name:        "A. Author",
		Affiliation: "Stanford",
		JoinedDate:  "2017-09-01",
		Career: []model.CareerEntry{
			{Position: "PhD Student", Institution: "MIT", Timeframe: "2017-2022"},
			{Position: "Postdoc", Institution: "Stanford", Timeframe: "2022-Present"},
		},
		Advisors: []model.AdvisorRelation{
			{Relation: "PhD Advisor", Name: "Prof X", Timeframe: "2017-2022"},
		},
		Expertise: []model.ExpertiseTag{
			{Area: "optimization", Timeframe: "2018-Present"},
			{Area: "deep learning"},
		},
		PersonalLinks: []string{"homepage: https://a.example", "dblp: https://dblp.org/a"},
	}

	row := AuthorRow(a)
	header := AuthorsHeader()
	require.Len(t, row, len(header))

	got := map[string]string{}
	for i, col := range header {
		got[col] = row[i]
	}
	// The three career columns are parallel lists in the same order.
	assert.Equal(t, "PhD Student; Postdoc", got["positions"])
	assert.Equal(t, "MIT; Stanford", got["institutions"])
	assert.Equal(t, "2017-2022; 2022-Present", got["timeframes"])

	assert.Equal(t, "PhD Advisor: Prof X (2017-2022)", got["advisors"])
	assert.Equal(t, "optimization (2018-Present); deep learning", got["expertise"])
	assert.Equal(t, "homepage: https://a.example; dblp: https://dblp.org/a", got["personal_links"])
}

func TestAuthorRow_EmptyProfile(t *testing.T) {
	row := AuthorRow(model.AuthorProfile{AuthorID: "~Bare1"})
	header := AuthorsHeader()
	require.Len(t, row, len(header))
	assert.Equal(t, "~Bare1", row[0])
	for _, cell := range row[1:] {
		assert.Equal(t, "", cell)
	}
}

func TestAdvisorText_Forms(t *testing.T) {
	assert.Equal(t, "PhD Advisor: Prof X (2017-2022)",
		advisorText(model.AdvisorRelation{Relation: "PhD Advisor", Name: "Prof X", Timeframe: "2017-2022"}))
	assert.Equal(t, "Prof X",
		advisorText(model.AdvisorRelation{Name: "Prof X"}))
	assert.Equal(t, "Prof X (2020-Present)",
		advisorText(model.AdvisorRelation{Name: "Prof X", Timeframe: "2020-Present"}))
}

func TestRows_Projections(t *testing.T) {
	papers := PaperRows([]model.Paper{{ID: "p1", Year: 2023}, {ID: "p2", Year: 2023}})
	assert.Len(t, papers, 2)

	reviews := ReviewRows([]model.Review{{ID: "r1", PaperID: "p1", Year: 2023}})
	assert.Len(t, reviews, 1)

	authors := AuthorRows(nil)
	assert.Empty(t, authors)
}
