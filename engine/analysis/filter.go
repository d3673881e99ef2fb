package analysis

import (
	"strings"

	"github.com/KLMSolutions/leavebuddy/engine/semantic"
)

// Filter narrows search hits to an employee and/or an inclusive date
// window. Dates are ISO strings (YYYY-MM-DD), which compare in the same
// order as the dates themselves.
type Filter struct {
	Name string `json:"name,omitempty"`
	Kind string `json:"kind,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Apply scans hits and keeps those matching the filter. The name match
// is case-insensitive substring so partial names from the form work.
// Kind is not checked here; it is pushed into the vector search as a
// keyword condition.
func (f Filter) Apply(hits []semantic.SearchResult) []semantic.SearchResult {
	if f.Name == "" && f.From == "" && f.To == "" {
		return hits
	}
	var out []semantic.SearchResult
	for _, h := range hits {
		if f.Name != "" && !strings.Contains(strings.ToLower(h.Name), strings.ToLower(f.Name)) {
			continue
		}
		if !f.inWindow(h) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// inWindow checks the record date against [From, To]. Leave records
// span a range; they match if the span overlaps the window.
func (f Filter) inWindow(h semantic.SearchResult) bool {
	start := h.Date
	end := h.Date
	if e, ok := h.Meta["end_date"]; ok && e != "" {
		end = e
	}
	if start == "" {
		// Records without a date only pass an unbounded window.
		return f.From == "" && f.To == ""
	}
	if f.From != "" && end < f.From {
		return false
	}
	if f.To != "" && start > f.To {
		return false
	}
	return true
}
