package db

import (
	"fmt"
	"strings"
)

// TextQuery is the input for BM25 keyword search.
type TextQuery struct {
	IndexName    string
	Query        string // raw user text; escaped by the implementation
	Filter       string // pre-built FT filter clause, may be empty
	TextField    string // TEXT field the query targets
	TopK         int
	ReturnFields []string
}

// ListQuery is the input for filtered, optionally sorted listing.
type ListQuery struct {
	IndexName    string
	Filter       string // pre-built FT filter clause; "*" when empty
	SortBy       string // SORTABLE field name, empty for index order
	SortDesc     bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// TagClause builds an FT filter clause matching a tag field exactly.
func TagClause(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, EscapeTag(value))
}

// TagAnyClause builds an FT filter clause matching any of the given tag values.
func TagAnyClause(field string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = EscapeTag(v)
	}
	return fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, " | "))
}

// AndClauses joins filter clauses with implicit AND, skipping blanks.
func AndClauses(clauses ...string) string {
	parts := clauses[:0:0]
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

// EscapeTag escapes RediSearch TAG special characters.
func EscapeTag(s string) string {
	return tagEscaper.Replace(s)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
