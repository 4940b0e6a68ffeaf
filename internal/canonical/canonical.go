// Package canonical maps raw backend resource and service identifiers to the
// stable display names the dashboard shows. Matching is an ordered rule
// table: exact matches first, then substring rules with the more specific
// patterns ahead of the generic ones.
package canonical

import (
	"sort"
	"strings"
)

// Unknown is the sentinel for empty or missing identifiers. It is never
// merged into a named category.
const Unknown = "Unknown"

// ServiceRecord is one canonicalized service with an aggregated count.
type ServiceRecord struct {
	RawName string `json:"rawName,omitempty"`
	Name    string `json:"name"`
	Count   int64  `json:"count"`
}

// exactNames is checked first, keys lower-cased.
var exactNames = map[string]string{
	"uvicorn":          "Symmetry Backend",
	"gunicorn":         "Symmetry Backend",
	"symmetry-backend": "Symmetry Backend",
	"symmetry-api":     "Symmetry Backend",
	"node":             "Symmetry Frontend",
	"next-server":      "Symmetry Frontend",
	"postgres":         "PostgreSQL",
	"postgresql":       "PostgreSQL",
	"celery":           "Task Worker",
}

type substringRule struct {
	fragment  string
	canonical string
}

// substringRules is evaluated in order; keep specific fragments ahead of
// generic ones ("ai-features" must win over "backend" for names containing
// both).
var substringRules = []substringRule{
	{"ai-features", "AI Features API"},
	{"ai_features", "AI Features API"},
	{"dead-letter", "Dead Letter Queue"},
	{"frontend", "Symmetry Frontend"},
	{"backend", "Symmetry Backend"},
	{"worker", "Task Worker"},
	{"queue", "Message Queue"},
	{"postgres", "PostgreSQL"},
	{"pgbouncer", "PostgreSQL"},
	{"api", "Symmetry Backend"},
}

// canonicalNames is the set of display names; already-canonical input maps
// to itself, which keeps Canonicalize idempotent.
var canonicalNames = func() map[string]string {
	set := make(map[string]string)
	for _, c := range exactNames {
		set[strings.ToLower(c)] = c
	}
	for _, r := range substringRules {
		set[strings.ToLower(r.canonical)] = r.canonical
	}
	return set
}()

// Canonicalize returns the display name for a raw identifier. Unmatched
// names pass through unchanged so unknown services are never dropped.
func Canonicalize(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return Unknown
	}
	if canonical, ok := canonicalNames[name]; ok {
		return canonical
	}
	if canonical, ok := exactNames[name]; ok {
		return canonical
	}
	for _, rule := range substringRules {
		if strings.Contains(name, rule.fragment) {
			return rule.canonical
		}
	}
	return strings.TrimSpace(raw)
}

// Aggregate canonicalizes every record, sums counts per canonical name and
// returns the result sorted by descending count (name ascending on ties).
// It is idempotent and independent of input order.
func Aggregate(records []ServiceRecord) []ServiceRecord {
	totals := make(map[string]int64, len(records))
	for _, r := range records {
		name := r.Name
		if name == "" {
			name = r.RawName
		}
		totals[Canonicalize(name)] += r.Count
	}

	out := make([]ServiceRecord, 0, len(totals))
	for name, count := range totals {
		out = append(out, ServiceRecord{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
