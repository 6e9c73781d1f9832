package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// Rasterize reflows page text into lines no wider than columns. Paragraph
// breaks survive, and runs of blank lines collapse into one.
func Rasterize(ctx context.Context, text string, columns int) ([]string, error) {
	if columns < minColumns {
		columns = minColumns
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	blank := true
	for _, paragraph := range strings.Split(text, "\n") {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			if !blank {
				lines = append(lines, "")
				blank = true
			}
			continue
		}
		wrapped := wrap.String(wordwrap.String(strings.Join(words, " "), columns), columns)
		for _, line := range strings.Split(wrapped, "\n") {
			line = strings.TrimRight(line, " ")
			if runewidth.StringWidth(line) > columns {
				line = runewidth.Truncate(line, columns, "")
			}
			lines = append(lines, line)
		}
		blank = false
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}
