package openreview

import (
	"encoding/json"
	"strings"
)

// Note is a raw submission or reply record as served by either API
// generation. The legacy API carries a single Invitation string and plain
// content values; the revised API carries an Invitations list and wraps
// every content value in a {"value": ...} envelope. Value accessors below
// absorb the difference so callers never branch on it.
type Note struct {
	ID          string                     `json:"id"`
	Forum       string                     `json:"forum,omitempty"`
	Invitation  string                     `json:"invitation,omitempty"`
	Invitations []string                   `json:"invitations,omitempty"`
	Signatures  []string                   `json:"signatures,omitempty"`
	CDate       int64                      `json:"cdate,omitempty"`
	Content     map[string]json.RawMessage `json:"content,omitempty"`
	Details     *NoteDetails               `json:"details,omitempty"`
}

// NoteDetails holds the reply payloads requested via the details query
// parameter. Exactly one of the two lists is populated depending on the
// API generation.
type NoteDetails struct {
	Replies       []*Note `json:"replies,omitempty"`
	DirectReplies []*Note `json:"directReplies,omitempty"`
}

// valueEnvelope is the revised-API wrapper around content values.
type valueEnvelope struct {
	Value json.RawMessage `json:"value"`
}

// unwrap strips the {"value": ...} envelope when present.
func unwrap(raw json.RawMessage) json.RawMessage {
	var env valueEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Value != nil {
		return env.Value
	}
	return raw
}

// ValueString returns the content field as a string, or "" when the field
// is absent or not a string. Absence is an explicit empty value, never an
// error.
func (n *Note) ValueString(field string) string {
	raw, ok := n.Content[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(unwrap(raw), &s); err != nil {
		return ""
	}
	return s
}

// ValueStrings returns the content field as a string list, or nil when the
// field is absent or not a list.
func (n *Note) ValueStrings(field string) []string {
	raw, ok := n.Content[field]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(unwrap(raw), &list); err != nil {
		return nil
	}
	return list
}

// ValueNumber returns the content field as a number with ok=false when the
// field is absent or not numeric. Upstream ratings sometimes arrive as
// bare integers instead of labeled strings.
func (n *Note) ValueNumber(field string) (float64, bool) {
	raw, ok := n.Content[field]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(unwrap(raw), &f); err != nil {
		return 0, false
	}
	return f, true
}

// InvitationMatches reports whether any invitation on the note contains
// the given marker. Covers both the legacy single-invitation field and the
// revised multi-invitation list.
func (n *Note) InvitationMatches(marker string) bool {
	if marker == "" {
		return false
	}
	if strings.Contains(n.Invitation, marker) {
		return true
	}
	for _, inv := range n.Invitations {
		if strings.Contains(inv, marker) {
			return true
		}
	}
	return false
}
