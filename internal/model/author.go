package model

// CareerEntry is one (position, institution, timeframe) row from an
// author's profile history. Entries keep the order presented by the
// upstream source, which is assumed chronological.
type CareerEntry struct {
	Position    string `json:"position"`
	Institution string `json:"institution"`
	Timeframe   string `json:"timeframe"`
}

// AdvisorRelation is one advisor/relation/conflict row from a profile.
type AdvisorRelation struct {
	Relation  string `json:"relation"`
	Name      string `json:"name"`
	Timeframe string `json:"timeframe"`
}

// ExpertiseTag is one declared research area with an optional timeframe.
type ExpertiseTag struct {
	Area      string `json:"area"`
	Timeframe string `json:"timeframe"`
}

// AuthorFragment is the raw result of a single profile fetch. One fetch
// yields at most one fragment; the same author id surfacing through
// different papers may yield several, which the aggregator merges.
type AuthorFragment struct {
	AuthorID      string            `json:"author_id"`
	Name          string            `json:"name"`
	Affiliation   string            `json:"affiliation"`
	Career        []CareerEntry     `json:"career"`
	Advisors      []AdvisorRelation `json:"advisors"`
	Expertise     []ExpertiseTag    `json:"expertise"`
	PersonalLinks []string          `json:"personal_links"`
	JoinedDate    string            `json:"joined_date"`
}

// AuthorProfile is the canonical, post-aggregation record: exactly one per
// unique author id across the whole requested year range. Multi-valued
// fields are order-preserving deduplicated unions of all observed fragments.
type AuthorProfile struct {
	AuthorID      string            `json:"author_id"`
	Name          string            `json:"name"`
	Affiliation   string            `json:"affiliation"`
	Career        []CareerEntry     `json:"career"`
	Advisors      []AdvisorRelation `json:"advisors"`
	Expertise     []ExpertiseTag    `json:"expertise"`
	PersonalLinks []string          `json:"personal_links"`
	JoinedDate    string            `json:"joined_date"`
}
