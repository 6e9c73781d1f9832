package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/pagechat/internal/session"
)

const (
	sidebarWidth      = 36
	wideLayoutWidth   = 120
	narrowLayoutWidth = 80
	minPanelWidth     = 30
	maxChatWidth      = 60
	chatResizeStep    = 4
	minBodyHeight     = 8
	// header, status line and help line
	chromeHeight = 3
	// panel header and composer
	chatChromeHeight = 2
	// controls bar
	pageChromeHeight = 1
	panelPadding     = 2
)

// pageLayout splits the terminal between the sidebar, the page panel and
// the chat panel. Narrow terminals fold the sidebar away and stack the chat
// below the page.
type pageLayout struct {
	windowWidth      int
	windowHeight     int
	sidebarWidth     int
	pageWidth        int
	pageHeight       int
	chatWidth        int
	chatHeight       int
	transcriptHeight int
	stacked          bool
	// chatPreferred is the chat width picked with the resize keys, 0 when
	// the chat follows the window.
	chatPreferred int
}

func newPageLayout() pageLayout {
	var l pageLayout
	l.Update(100, 30)
	return l
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	l.sidebarWidth = 0
	if width >= wideLayoutWidth {
		l.sidebarWidth = sidebarWidth
	}
	l.stacked = width < narrowLayoutWidth
	body := max(height-chromeHeight, minBodyHeight)
	if l.stacked {
		l.pageWidth = max(width, minPanelWidth)
		l.chatWidth = l.pageWidth
		l.pageHeight = body - body/3
		l.chatHeight = body - l.pageHeight
	} else {
		rest := width - l.sidebarWidth
		chat := rest / 3
		if l.chatPreferred > 0 {
			chat = l.chatPreferred
		}
		l.chatWidth = clampChatWidth(chat, rest)
		l.pageWidth = max(rest-l.chatWidth, minPanelWidth)
		l.pageHeight = body
		l.chatHeight = body
	}
	l.transcriptHeight = max(l.chatHeight-chatChromeHeight, 1)
}

func clampChatWidth(width, rest int) int {
	upper := max(min(maxChatWidth, rest-minPanelWidth), minPanelWidth)
	return max(min(width, upper), minPanelWidth)
}

// resizeChat moves the split between the page and chat panels. It reports
// false when the layout is stacked or the chat is already at a bound.
func (l *pageLayout) resizeChat(delta int) bool {
	if l.stacked {
		return false
	}
	next := clampChatWidth(l.chatWidth+delta, l.windowWidth-l.sidebarWidth)
	if next == l.chatWidth {
		return false
	}
	l.chatPreferred = next
	l.Update(l.windowWidth, l.windowHeight)
	return true
}

func (m *model) applyLayout() {
	l := m.layout
	m.pageView.Width = l.pageWidth - panelPadding
	m.pageView.Height = max(l.pageHeight-pageChromeHeight, 1)
	m.chatView.Width = l.chatWidth - panelPadding
	m.chatView.Height = l.transcriptHeight
	m.composer.Width = max(m.chatView.Width-len(m.composer.Prompt)-1, 10)
	m.promptInput.Width = max(l.windowWidth-24, 20)
	m.help.Width = l.windowWidth
	m.chatLines = -1
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

func (m *model) buildTranscript(snap session.Snapshot) string {
	cb := &contentBuilder{}
	if len(snap.Transcript) == 0 && snap.PendingChat == 0 {
		if snap.Handle == nil {
			cb.WriteString(helperStyle.Render("Open a PDF to chat about it."))
		} else {
			cb.WriteString(helperStyle.Render(wordwrap.String(
				fmt.Sprintf("Ask about %s, or press 1-3 for a suggested prompt.", filepath.Base(snap.Source)),
				m.wrapWidth(0),
			)))
		}
		return cb.String()
	}
	wrap := m.wrapWidth(2)
	for idx, msg := range snap.Transcript {
		label, style := "You", userLabelStyle
		if msg.Sender == session.SenderAssistant {
			label, style = "Assistant", assistantLabelStyle
		}
		cb.WriteString(style.Render(label))
		cb.WriteString(helperStyle.Render(" " + msg.CreatedAt.Format("15:04")))
		cb.WriteRune('\n')
		cb.WriteString(indentMultiline(wordwrap.String(msg.Text, wrap), "  "))
		if idx < len(snap.Transcript)-1 {
			cb.WriteRune('\n')
			cb.WriteRune('\n')
		}
	}
	if snap.PendingChat > 0 {
		if cb.Line() > 0 || len(snap.Transcript) > 0 {
			cb.WriteRune('\n')
			cb.WriteRune('\n')
		}
		cb.WriteString(helperStyle.Render(fmt.Sprintf("%s Assistant is typing…", m.spinner.View())))
	}
	return cb.String()
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.chatView.Width
	if width <= 0 {
		width = 40
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 10 {
		available = 10
	}
	return available
}

// clipLines cuts a horizontal window out of plain raster lines.
func clipLines(lines []string, offset, width int) []string {
	clipped := make([]string, len(lines))
	for i, line := range lines {
		clipped[i] = clipLine(line, offset, width)
	}
	return clipped
}

func clipLine(line string, offset, width int) string {
	if offset > 0 {
		cut := len(line)
		skipped := 0
		for i, r := range line {
			if skipped >= offset {
				cut = i
				break
			}
			skipped += runewidth.RuneWidth(r)
		}
		line = line[cut:]
	}
	if width <= 0 {
		return line
	}
	return runewidth.Truncate(line, width, "")
}

type matchRange struct {
	start int
	end   int
}

func findMatches(content, query string) []matchRange {
	lowerContent := strings.ToLower(content)
	lowerQuery := strings.ToLower(query)
	if lowerQuery == "" || len(lowerContent) != len(content) {
		return nil
	}
	var matches []matchRange
	searchIdx := 0
	for {
		idx := strings.Index(lowerContent[searchIdx:], lowerQuery)
		if idx == -1 {
			break
		}
		start := searchIdx + idx
		end := start + len(lowerQuery)
		matches = append(matches, matchRange{start: start, end: end})
		searchIdx = end
		if searchIdx >= len(content) {
			break
		}
	}
	return matches
}

func highlightMatches(content string, matches []matchRange, current int) string {
	if len(matches) == 0 {
		return content
	}
	var b strings.Builder
	pos := 0
	for idx, match := range matches {
		if match.start > len(content) {
			break
		}
		if match.start > pos {
			b.WriteString(content[pos:match.start])
		}
		segmentEnd := min(match.end, len(content))
		segment := content[match.start:segmentEnd]
		if idx == current {
			b.WriteString(searchCurrentStyle.Render(segment))
		} else {
			b.WriteString(searchHighlightStyle.Render(segment))
		}
		pos = segmentEnd
	}
	if pos < len(content) {
		b.WriteString(content[pos:])
	}
	return b.String()
}

// highlightLines marks every query occurrence on the page.
func highlightLines(lines []string, query string) []string {
	if strings.TrimSpace(query) == "" {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = highlightMatches(line, findMatches(line, query), -1)
	}
	return out
}

func shortenText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || runewidth.StringWidth(value) <= limit {
		return value
	}
	return strings.TrimSpace(runewidth.Truncate(value, limit, "")) + "…"
}
