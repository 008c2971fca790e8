package registry

import (
	"sort"
	"strings"
)

// Searchable fields.
const (
	FieldHost = "host"
	FieldName = "name"
)

// Match scoring.
const (
	scoreExact  = 100
	scorePrefix = 50
)

// Match is one search hit. A server matching on several fields produces one
// Match per field; results are deliberately not deduplicated.
type Match struct {
	// ID is the server identifier.
	ID string

	// Field is the field that matched (FieldHost or FieldName).
	Field string

	// Score is 100 for an exact match, 50 for a prefix (or suffix) match.
	Score int
}

// Search ranks servers against query over the given fields (default: host,
// then name). The query is lowercased and trimmed. A leading "*" or "%"
// switches matching from prefix mode to suffix mode.
//
// Ordering is part of the contract: score descending, then field priority in
// the order the fields were requested (host before name by default), then
// server ID ascending.
func (r *Registry) Search(query string, fields []string) []Match {
	if len(fields) == 0 {
		fields = []string{FieldHost, FieldName}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	suffixMode := false
	if strings.HasPrefix(q, "*") || strings.HasPrefix(q, "%") {
		suffixMode = true
		q = q[1:]
	}

	fieldRank := make(map[string]int, len(fields))
	for i, f := range fields {
		fieldRank[f] = i
	}

	var matches []Match
	for _, id := range r.doc.Servers.IDs() {
		srv := r.doc.Servers.Get(id)
		for _, field := range fields {
			var value string
			switch field {
			case FieldHost:
				value = srv.Host
			case FieldName:
				value = srv.Name
			default:
				continue
			}

			score, ok := classify(strings.ToLower(value), q, suffixMode)
			if !ok {
				continue
			}
			matches = append(matches, Match{ID: id, Field: field, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if fieldRank[a.Field] != fieldRank[b.Field] {
			return fieldRank[a.Field] < fieldRank[b.Field]
		}
		return a.ID < b.ID
	})

	return matches
}

// classify scores value against the normalized query. In prefix mode the
// query must start the value, in suffix mode it must end it.
func classify(value, query string, suffixMode bool) (int, bool) {
	if value == query {
		return scoreExact, true
	}
	if suffixMode {
		if strings.HasSuffix(value, query) {
			return scorePrefix, true
		}
		return 0, false
	}
	if strings.HasPrefix(value, query) {
		return scorePrefix, true
	}
	return 0, false
}
