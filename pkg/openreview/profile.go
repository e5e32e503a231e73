package openreview

// Profile is a raw author profile record from the profiles endpoint.
type Profile struct {
	ID      string         `json:"id"`
	TCDate  int64          `json:"tcdate,omitempty"`
	Content ProfileContent `json:"content"`
}

// ProfileContent carries the profile sections the collector consumes. Any
// section may be absent; absent sections decode to empty defaults.
type ProfileContent struct {
	Names     []ProfileName    `json:"names,omitempty"`
	History   []HistoryEntry   `json:"history,omitempty"`
	Relations []RelationEntry  `json:"relations,omitempty"`
	Expertise []ExpertiseEntry `json:"expertise,omitempty"`
	Links     []PersonalLink   `json:"links,omitempty"`
	Homepage  string           `json:"homepage,omitempty"`
	GScholar  string           `json:"gscholar,omitempty"`
	DBLP      string           `json:"dblp,omitempty"`
	ORCID     string           `json:"orcid,omitempty"`
}

// ProfileName is one name entry; the preferred one identifies the author.
type ProfileName struct {
	FullName  string `json:"fullname,omitempty"`
	First     string `json:"first,omitempty"`
	Middle    string `json:"middle,omitempty"`
	Last      string `json:"last,omitempty"`
	Preferred bool   `json:"preferred,omitempty"`
}

// HistoryEntry is one career/education row. Start and End may be zero for
// open-ended or undated entries.
type HistoryEntry struct {
	Position    string      `json:"position,omitempty"`
	Institution Institution `json:"institution"`
	Start       int         `json:"start,omitempty"`
	End         int         `json:"end,omitempty"`
}

// Institution names the employer or school of a history entry.
type Institution struct {
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// RelationEntry is one advisor/collaborator relation row.
type RelationEntry struct {
	Relation string `json:"relation,omitempty"`
	Name     string `json:"name,omitempty"`
	Start    int    `json:"start,omitempty"`
	End      int    `json:"end,omitempty"`
}

// ExpertiseEntry is one declared research-area row.
type ExpertiseEntry struct {
	Keywords []string `json:"keywords,omitempty"`
	Start    int      `json:"start,omitempty"`
	End      int      `json:"end,omitempty"`
}

// PersonalLink is one external link row.
type PersonalLink struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// DisplayName returns the preferred name, falling back to the first name
// entry, then to the profile id.
func (p *Profile) DisplayName() string {
	var first string
	for _, n := range p.Content.Names {
		full := n.FullName
		if full == "" {
			full = joinNonEmpty(" ", n.First, n.Middle, n.Last)
		}
		if full == "" {
			continue
		}
		if n.Preferred {
			return full
		}
		if first == "" {
			first = full
		}
	}
	if first != "" {
		return first
	}
	return p.ID
}

func joinNonEmpty(sep string, parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
