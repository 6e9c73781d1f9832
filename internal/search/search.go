// Package search finds lines of extracted document text that contain a query.
package search

import (
	"iter"
	"strings"
)

// Result is a single matching line together with its neighbors.
type Result struct {
	// Match is the full text of the matching line.
	Match string
	// Context is the matching line with at most one line before and after it,
	// joined by newlines.
	Context string
	// Line is the zero-based index of the matching line.
	Line int
}

// Matches lazily yields every line of text containing query, compared
// case-insensitively. A blank query yields nothing.
func Matches(text, query string) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		if strings.TrimSpace(query) == "" || text == "" {
			return
		}
		needle := strings.ToLower(query)
		lines := strings.Split(text, "\n")
		for idx, line := range lines {
			if !strings.Contains(strings.ToLower(line), needle) {
				continue
			}
			start := max(idx-1, 0)
			end := min(idx+2, len(lines))
			result := Result{
				Match:   line,
				Context: strings.Join(lines[start:end], "\n"),
				Line:    idx,
			}
			if !yield(result) {
				return
			}
		}
	}
}

// Search collects every result of Matches in document order.
func Search(text, query string) []Result {
	var results []Result
	for result := range Matches(text, query) {
		results = append(results, result)
	}
	return results
}

// First returns up to limit results without scanning past the last one needed.
func First(text, query string, limit int) []Result {
	if limit <= 0 {
		return nil
	}
	results := make([]Result, 0, limit)
	for result := range Matches(text, query) {
		results = append(results, result)
		if len(results) == limit {
			break
		}
	}
	return results
}
