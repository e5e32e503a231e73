// Package model defines the core entities produced by a collection run:
// papers, reviews, author profiles, and run bookkeeping records.
package model

// APIShape identifies which upstream API format served a record.
type APIShape string

const (
	// ShapeLegacy is the pre-2024 API: replies arrive as a nested tree
	// under the "replies" detail and need recursive traversal.
	ShapeLegacy APIShape = "legacy"
	// ShapeRevised is the 2024+ API: replies arrive flat, attached to the
	// submission under "directReplies".
	ShapeRevised APIShape = "revised"
)

// ShapeBoundaryYear is the first year served by the revised API.
const ShapeBoundaryYear = 2024

// ShapeForYear returns the API shape that serves the given year.
func ShapeForYear(year int) APIShape {
	if year >= ShapeBoundaryYear {
		return ShapeRevised
	}
	return ShapeLegacy
}

// Paper is a normalized submission record. Both API shapes map onto this
// one struct; missing optional fields are empty strings or empty slices,
// never omitted.
type Paper struct {
	ID          string   `json:"paper_id"`
	Title       string   `json:"title"`
	Abstract    string   `json:"abstract"`
	Authors     []string `json:"authors"`
	AuthorIDs   []string `json:"authorids"` // positionally aligned with Authors; may be shorter when anonymized
	Keywords    []string `json:"keywords"`
	PrimaryArea string   `json:"primary_area"`
	Venue       string   `json:"venue"`
	Year        int      `json:"year"`
	PDFURL      string   `json:"pdf_url"`
	ForumURL    string   `json:"forum_url"`
}

// Review is one official review of a paper. Sub-sections absent in the
// upstream record are empty strings; that is not an error.
type Review struct {
	ID             string `json:"review_id"`
	PaperID        string `json:"paper_id"`
	Year           int    `json:"year"`
	Reviewer       string `json:"reviewer"`
	FullReviewText string `json:"full_review_text"`
	Rating         string `json:"rating"`
	Confidence     string `json:"confidence"`
	Summary        string `json:"summary"`
	Strengths      string `json:"strengths"`
	Weaknesses     string `json:"weaknesses"`
	Questions      string `json:"questions"`
	Limitations    string `json:"limitations"`
	Soundness      string `json:"soundness"`
	Presentation   string `json:"presentation"`
	Contribution   string `json:"contribution"`
	ReviewDate     int64  `json:"review_date"` // upstream cdate, unix millis, 0 when absent
}
