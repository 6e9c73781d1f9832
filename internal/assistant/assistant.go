// Package assistant produces the chat panel's replies and the per-document
// summary from a fixed table. Nothing here contacts a model or the network.
package assistant

import (
	"context"
	"regexp"
	"strings"
)

// Responder turns a user prompt into an assistant reply. Implementations
// never fail; unknown prompts receive a fallback reply.
type Responder interface {
	Respond(ctx context.Context, prompt string) string
}

// Prompt is a suggested question shown beneath the summary.
type Prompt struct {
	ID   string
	Text string
}

// Summary describes a loaded document and offers starter prompts.
type Summary struct {
	Title   string
	Text    string
	Prompts []Prompt
}

// Prompt returns the suggested prompt with the given id.
func (s Summary) Prompt(id string) (Prompt, bool) {
	for _, prompt := range s.Prompts {
		if prompt.ID == id {
			return prompt, true
		}
	}
	return Prompt{}, false
}

var punctuation = regexp.MustCompile(`[^\w\s]`)

// Canned scores prompts against a table of known questions.
type Canned struct {
	entries  []Entry
	fallback string
}

// NewCanned returns a Canned responder over entries. A nil slice selects the
// built-in playbook table; an empty fallback selects Fallback.
func NewCanned(entries []Entry, fallback string) *Canned {
	if entries == nil {
		entries = defaultEntries
	}
	if strings.TrimSpace(fallback) == "" {
		fallback = Fallback
	}
	return &Canned{entries: append([]Entry(nil), entries...), fallback: fallback}
}

// Respond implements Responder.
func (c *Canned) Respond(_ context.Context, prompt string) string {
	entry, score := c.best(prompt)
	if score == 0 {
		return c.fallback
	}
	return entry.Reply
}

// Score reports how many words of question occur in the normalized prompt.
// Words match as substrings, so "ai" scores against "said".
func Score(prompt, question string) int {
	normalized := normalize(prompt)
	score := 0
	for _, word := range strings.Split(question, " ") {
		if word == "" {
			continue
		}
		if strings.Contains(normalized, word) {
			score++
		}
	}
	return score
}

func (c *Canned) best(prompt string) (Entry, int) {
	var (
		best      Entry
		bestScore int
	)
	for _, entry := range c.entries {
		if score := Score(prompt, entry.Question); score > bestScore {
			best, bestScore = entry, score
		}
	}
	return best, bestScore
}

func normalize(prompt string) string {
	return punctuation.ReplaceAllString(strings.ToLower(prompt), "")
}

// Summarize returns the canned summary for a document titled title.
func Summarize(title, _ string) Summary {
	return Summary{
		Title:   title,
		Text:    summaryText,
		Prompts: append([]Prompt(nil), summaryPrompts...),
	}
}
