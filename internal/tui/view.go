package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/pagechat/internal/document"
	"github.com/csheth/pagechat/internal/session"
)

func (m *model) View() string {
	snap := m.state.Snapshot()
	m.refreshPage(snap)
	m.refreshTranscript(snap)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(snap),
		m.bodyView(snap),
		m.statusView(snap),
		m.helpLine(),
	)
}

func (m *model) bodyView(snap session.Snapshot) string {
	l := m.layout
	page := panelStyle.Width(l.pageWidth).Height(l.pageHeight).MaxHeight(l.pageHeight).
		Render(lipgloss.JoinVertical(lipgloss.Left, m.controlsView(snap), m.pageView.View()))
	chat := panelStyle.Width(l.chatWidth).Height(l.chatHeight).MaxHeight(l.chatHeight).
		Render(m.chatPanel())
	if l.stacked {
		return lipgloss.JoinVertical(lipgloss.Left, page, chat)
	}
	panels := []string{page, chat}
	if l.sidebarWidth > 0 {
		sidebar := sidebarStyle.Width(l.sidebarWidth).Height(l.pageHeight).MaxHeight(l.pageHeight).
			Render(m.sidebarView(snap))
		panels = append([]string{sidebar}, panels...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

func (m *model) headerView(snap session.Snapshot) string {
	stats := []string{loadLabel(snap)}
	if snap.Source != "" {
		stats = append([]string{filepath.Base(snap.Source)}, stats...)
	}
	if snap.Handle != nil {
		stats = append(stats, fmt.Sprintf("%d pages", snap.PageCount()))
	}
	stats = append(stats, fmt.Sprintf("Chat %d", len(snap.Transcript)))
	if badges := m.jobStatusBadges(); len(badges) > 0 {
		stats = append(stats, badges...)
	}
	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		brandStyle.Render("PAGECHAT"),
		" ",
		statusBarStyle.Render(strings.Join(stats, "  •  ")),
	)
	return lipgloss.NewStyle().MaxWidth(m.layout.windowWidth).Render(header)
}

func (m *model) jobStatusBadges() []string {
	var badges []string
	for _, kind := range []jobKind{jobKindLoad, jobKindRender, jobKindReply} {
		if count := m.running[kind]; count > 0 {
			badges = append(badges, fmt.Sprintf("%s×%d", kind, count))
		}
	}
	return badges
}

func (m *model) controlsView(snap session.Snapshot) string {
	if snap.Handle == nil {
		return sectionHeaderStyle.Render("No document")
	}
	view := snap.View
	parts := []string{
		sectionHeaderStyle.Render(fmt.Sprintf("◀ Page %d of %d ▶", view.CurrentPage, snap.PageCount())),
		keyDescStyle.Render(fmt.Sprintf("Zoom %d%%", int(view.Scale*100+0.5))),
	}
	if view.FitToWidth {
		parts = append(parts, keyStyle.Render("fit"))
	}
	if m.xOffset > 0 {
		parts = append(parts, helperStyle.Render(fmt.Sprintf("col %d", m.xOffset+1)))
	}
	if snap.Render == session.RenderRendering {
		parts = append(parts, m.spinner.View())
	}
	return strings.Join(parts, "  ")
}

type pageTag struct {
	page  int
	scale float64
}

func (m *model) refreshPage(snap session.Snapshot) {
	m.pageView.SetContent(m.pageContent(snap))
	if snap.Page != nil {
		tag := pageTag{page: snap.Page.Page, scale: snap.Page.Scale}
		if tag != m.shownPage {
			m.shownPage = tag
			m.pageView.GotoTop()
		}
	}
}

func (m *model) pageContent(snap session.Snapshot) string {
	if m.help.ShowAll {
		return m.helpView()
	}
	width := m.pageView.Width
	var rejected string
	if snap.LoadErr != nil && snap.Load != session.LoadError {
		rejected = errorStyle.Render(wordwrap.String(document.UserMessage(snap.LoadErr), width))
	}
	switch {
	case snap.Load == session.LoadLoading:
		return fmt.Sprintf("%s Loading %s…", m.spinner.View(), filepath.Base(snap.Source))
	case snap.Load == session.LoadError:
		return joinNonEmpty([]string{
			errorStyle.Render(wordwrap.String(document.UserMessage(snap.LoadErr), width)),
			helperStyle.Render("Press r to retry or o to open another file."),
		})
	case snap.Handle == nil:
		return joinNonEmpty([]string{rejected, m.emptyView()})
	case snap.RenderErr != nil:
		return joinNonEmpty([]string{
			rejected,
			errorStyle.Render(wordwrap.String(document.UserMessage(snap.RenderErr), width)),
			helperStyle.Render("Press r to retry rendering, or move to another page."),
		})
	case snap.Page == nil:
		return joinNonEmpty([]string{rejected, fmt.Sprintf("%s Rendering page %d…", m.spinner.View(), snap.View.CurrentPage)})
	}
	lines := clipLines(snap.Page.Lines, m.xOffset, width)
	lines = highlightLines(lines, m.searchQuery)
	if len(lines) == 0 {
		lines = []string{helperStyle.Render("This page has no text.")}
	}
	return joinNonEmpty([]string{rejected, strings.Join(lines, "\n")})
}

func (m *model) emptyView() string {
	return joinNonEmpty([]string{
		lipgloss.JoinVertical(lipgloss.Left, renderLogo(), taglineStyle.Render(heroTagline)),
		helperStyle.Render("Press o and enter the path of a PDF file to open it."),
	})
}

func (m *model) refreshTranscript(snap session.Snapshot) {
	m.chatView.SetContent(m.buildTranscript(snap))
	count := len(snap.Transcript) + snap.PendingChat
	if count != m.chatLines {
		m.chatLines = count
		m.chatView.GotoBottom()
	}
}

func (m *model) chatPanel() string {
	title := sectionHeaderStyle.Render("Chat")
	if m.focus == focusComposer {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, helperStyle.Render("  typing"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, m.chatView.View(), m.composer.View())
}

func (m *model) sidebarView(snap session.Snapshot) string {
	width := m.layout.sidebarWidth - panelPadding
	sections := []string{
		lipgloss.JoinVertical(lipgloss.Left, renderLogo(), taglineStyle.Render(heroTagline)),
	}

	doc := []string{sectionHeaderStyle.Render("Document")}
	if snap.Source == "" {
		doc = append(doc, helperStyle.Render("Nothing open."))
	} else {
		doc = append(doc, wordwrap.String(filepath.Base(snap.Source), width))
		info := loadLabel(snap)
		if snap.Handle != nil {
			info = fmt.Sprintf("%d pages • %s", snap.PageCount(), info)
		}
		doc = append(doc, helperStyle.Render(info))
	}
	sections = append(sections, strings.Join(doc, "\n"))

	if snap.Summary != nil {
		summary := []string{
			sectionHeaderStyle.Render("Summary"),
			wordwrap.String(snap.Summary.Text, width),
		}
		for _, prompt := range snap.Summary.Prompts {
			line := keyStyle.Render(prompt.ID) + " " + keyDescStyle.Render(shortenText(prompt.Text, width-4))
			summary = append(summary, line)
		}
		sections = append(sections, strings.Join(summary, "\n"))
	}

	if m.searchQuery != "" {
		sections = append(sections, m.searchResultsView(snap, width))
	}
	return joinNonEmpty(sections)
}

func (m *model) searchResultsView(snap session.Snapshot, width int) string {
	rows := []string{sectionHeaderStyle.Render(fmt.Sprintf("Search %q", m.searchQuery))}
	if len(m.searchResults) == 0 {
		rows = append(rows, helperStyle.Render("No matches."))
		return strings.Join(rows, "\n")
	}
	start := max(m.searchIdx-searchResultsShown/2, 0)
	end := min(start+searchResultsShown, len(m.searchResults))
	start = max(end-searchResultsShown, 0)
	for idx := start; idx < end; idx++ {
		result := m.searchResults[idx]
		label := fmt.Sprintf("p.%d %s", snap.Text.PageForLine(result.Line), shortenText(result.Match, width-8))
		if idx == m.searchIdx {
			rows = append(rows, currentLineStyle.Render("▸ "+label))
		} else {
			rows = append(rows, "  "+label)
		}
	}
	rows = append(rows, helperStyle.Render(fmt.Sprintf("%d of %d • n/N to move", m.searchIdx+1, len(m.searchResults))))
	return strings.Join(rows, "\n")
}

func (m *model) statusView(snap session.Snapshot) string {
	if m.prompt != promptNone {
		return lipgloss.JoinHorizontal(lipgloss.Top, keyStyle.Render(promptLabel(m.prompt)), " ", m.promptInput.View())
	}
	var parts []string
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if snap.Notice != "" {
		parts = append(parts, noticeStyle.Render(snap.Notice))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	if len(parts) == 0 {
		return " "
	}
	return lipgloss.NewStyle().MaxWidth(m.layout.windowWidth).Render(strings.Join(parts, "  "))
}

func (m *model) helpLine() string {
	if m.prompt != promptNone {
		return helperStyle.Render("Enter to confirm, Esc to cancel.")
	}
	if m.focus == focusComposer {
		return m.help.ShortHelpView(m.composerKey.ShortHelp())
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

// helpView lists every binding inside the page panel. Columns that do not
// fit the panel are dropped by the help model.
func (m *model) helpView() string {
	overlay := m.help
	overlay.Width = max(m.pageView.Width-4, 20)
	return legendBoxStyle.Render(joinNonEmpty([]string{
		sectionHeaderStyle.Render("Keys"),
		overlay.FullHelpView(m.keys.FullHelp()),
		helperStyle.Render("Press ? to close this help."),
	}))
}

func promptLabel(mode promptMode) string {
	switch mode {
	case promptOpen:
		return "Open"
	case promptGoTo:
		return "Go to page"
	case promptSearch:
		return "Search"
	default:
		return ""
	}
}

func loadLabel(snap session.Snapshot) string {
	switch snap.Load {
	case session.LoadLoading:
		return "Loading"
	case session.LoadSuccess:
		if snap.RenderErr != nil {
			return "Page error"
		}
		return "Ready"
	case session.LoadError:
		return "Error"
	default:
		return "Idle"
	}
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func renderLogo() string {
	if len(logoArtLines) == 0 {
		return ""
	}
	width := 0
	lineRunes := make([][]rune, len(logoArtLines))
	for i, line := range logoArtLines {
		runes := []rune(line)
		lineRunes[i] = runes
		if len(runes) > width {
			width = len(runes)
		}
	}
	width += 1
	height := len(logoArtLines) + 1

	type cell struct {
		r     rune
		style lipgloss.Style
	}

	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}

	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			grid[y+1][x+1] = cell{r: r, style: logoShadowStyle}
		}
	}

	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			grid[y][x] = cell{r: r, style: logoFaceStyle}
		}
	}

	lines := make([]string, height)
	for y, row := range grid {
		var b strings.Builder
		for _, c := range row {
			if c.r == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteString(c.style.Render(string(c.r)))
		}
		lines[y] = b.String()
	}
	return logoContainerStyle.Render(strings.Join(lines, "\n"))
}

var (
	sectionHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	noticeStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	searchHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("190"))
	searchCurrentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("229"))

	heroAccentColor        = lipgloss.Color("#ff8c00")
	heroEmberColor         = lipgloss.Color("#2b1400")
	heroTextColor          = lipgloss.Color("#fff4d0")
	heroSecondaryTextColor = lipgloss.Color("#ffb347")

	brandStyle          = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor).Background(heroAccentColor).Padding(0, 1)
	taglineStyle        = lipgloss.NewStyle().Foreground(heroSecondaryTextColor).Italic(true)
	statusBarStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle            = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	currentLineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8ecae6"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	panelStyle          = lipgloss.NewStyle().Padding(0, 1)
	sidebarStyle        = lipgloss.NewStyle().Padding(0, 1)
	logoFaceStyle       = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor).Background(heroEmberColor)
	logoShadowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#110600"))
	logoContainerStyle  = lipgloss.NewStyle()
	logoArtLines        = []string{
		"█▀█ ▄▀█ █▀▀ █▀▀ █▀▀ █ █ ▄▀█ ▀█▀",
		"█▀▀ █▀█ █▄█ ██▄ █▄▄ █▀█ █▀█  █ ",
	}
)
