package document

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultExtractWorkers bounds concurrent page extraction.
const DefaultExtractWorkers = 4

// pageSeparator joins page texts in the full-document text.
const pageSeparator = "\n\n"

// Text is the extracted text of a whole document.
type Text struct {
	Pages []string
	Full  string

	// starts holds the zero-based line index at which each page begins in Full.
	starts []int
}

// NewText joins pages into a searchable document text.
func NewText(pages []string) Text {
	starts := make([]int, len(pages))
	line := 0
	for idx, page := range pages {
		starts[idx] = line
		line += strings.Count(page, "\n") + 2
	}
	return Text{
		Pages:  pages,
		Full:   strings.Join(pages, pageSeparator),
		starts: starts,
	}
}

// PageForLine maps a zero-based line of Full to its 1-based page. Lines on
// the blank separator belong to the preceding page.
func (t Text) PageForLine(line int) int {
	if len(t.starts) == 0 {
		return 0
	}
	page := 1
	for idx, start := range t.starts {
		if line < start {
			break
		}
		page = idx + 1
	}
	return page
}

// ExtractText reads every page of src with at most workers extractions in
// flight. The first failure cancels the rest.
func ExtractText(ctx context.Context, src Source, workers int) (Text, error) {
	if workers <= 0 {
		workers = DefaultExtractWorkers
	}
	pages := make([]string, src.PageCount())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx := range pages {
		g.Go(func() error {
			text, err := src.PageText(gctx, idx+1)
			if err != nil {
				return err
			}
			pages[idx] = strings.TrimRight(text, "\n")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Text{}, err
	}
	return NewText(pages), nil
}
