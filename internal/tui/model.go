package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"pkt.systems/pslog"

	"github.com/csheth/pagechat/internal/chat"
	"github.com/csheth/pagechat/internal/document"
	"github.com/csheth/pagechat/internal/logx"
	"github.com/csheth/pagechat/internal/search"
	"github.com/csheth/pagechat/internal/session"
	"github.com/csheth/pagechat/internal/viewer"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Viewer *viewer.Controller
	Chat   *chat.Controller
	Logger pslog.Logger
	// Context bounds every background job; it is usually cancelled on exit.
	Context context.Context
	// InitialPath is opened as soon as the program starts.
	InitialPath string
	// Watch reloads the open document when it changes on disk.
	Watch         bool
	WatchInterval time.Duration
	// Clipboard replaces the system clipboard writer.
	Clipboard func(string) error
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.Clipboard == nil {
		config.Clipboard = clipboard.WriteAll
	}
	log := logx.Or(config.Logger)
	if config.Logger != nil {
		// Library code logs through pslog.Ctx.
		config.Context = pslog.ContextWithLogger(config.Context, config.Logger)
	}

	composer := textinput.New()
	composer.Placeholder = composerPlaceholder
	composer.CharLimit = 500
	composer.Width = 40

	promptInput := textinput.New()
	promptInput.CharLimit = 512
	promptInput.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	pageView := viewport.New(80, 20)
	pageView.MouseWheelEnabled = true
	chatView := viewport.New(40, 20)
	chatView.MouseWheelEnabled = true

	m := &model{
		config:      config,
		viewer:      config.Viewer,
		chat:        config.Chat,
		state:       config.Viewer.State(),
		log:         log,
		jobs:        newJobBus(config.Context, log),
		keys:        defaultKeyMap(),
		composerKey: defaultComposerKeyMap(),
		help:        help.New(),
		layout:      newPageLayout(),
		composer:    composer,
		promptInput: promptInput,
		spinner:     spin,
		pageView:    pageView,
		chatView:    chatView,
		searchIdx:   -1,
		running:     map[jobKind]int{},
		infoMessage: "Press o to open a PDF.",
	}
	m.applyLayout()
	m.viewer.SetContainerWidth(m.layout.pageWidth)
	return m
}

type model struct {
	config      Config
	viewer      *viewer.Controller
	chat        *chat.Controller
	state       *session.State
	log         pslog.Logger
	jobs        *jobBus
	keys        keyMap
	composerKey composerKeyMap
	help        help.Model
	layout      pageLayout

	focus       focusArea
	prompt      promptMode
	promptInput textinput.Model
	composer    textinput.Model
	spinner     spinner.Model
	pageView    viewport.Model
	chatView    viewport.Model

	shownPage     pageTag
	xOffset       int
	chatLines     int
	searchQuery   string
	searchResults []search.Result
	searchIdx     int
	watcher       *document.Watcher
	running       map[jobKind]int
	infoMessage   string
	errorMessage  string
}

func (m *model) Init() tea.Cmd {
	if m.config.InitialPath == "" {
		return nil
	}
	return m.openPath(m.config.InitialPath)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.shutdown()
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		if m.focus == focusComposer {
			m.chatView, cmd = m.chatView.Update(msg)
		} else {
			m.pageView, cmd = m.pageView.Update(msg)
		}
		return m, cmd
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.applyLayout()
		return m, m.dispatchRender(m.viewer.SetContainerWidth(m.layout.pageWidth))
	case jobSignalMsg:
		m.running[msg.Snapshot.Kind]++
		return m, nil
	case jobResultEnvelope:
		if m.running[msg.Snapshot.Kind] > 0 {
			m.running[msg.Snapshot.Kind]--
		}
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case loadResultMsg:
		return m, m.handleLoadResult(msg.result)
	case renderResultMsg:
		m.viewer.CompleteRender(msg.result)
		return m, nil
	case replyResultMsg:
		if appended := m.chat.Complete(msg.result); len(appended) > 0 {
			m.chatLines = -1
		}
		return m, nil
	case watchStartedMsg:
		return m, m.handleWatchStarted(msg)
	case docChangedMsg:
		return m, m.handleDocChanged(msg)
	case clipboardResultMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Copy failed: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = "Copied to clipboard"
		return m, nil
	}
	return m.updateFocusedInput(msg)
}

func (m *model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.prompt != promptNone:
		m.promptInput, cmd = m.promptInput.Update(msg)
	case m.focus == focusComposer:
		m.composer, cmd = m.composer.Update(msg)
	}
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}
	if m.focus == focusComposer {
		return m.handleComposerKey(msg)
	}
	return m.handlePageKey(msg)
}

func (m *model) handlePageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.state.Snapshot()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.applyLayout()
		return m, nil
	case key.Matches(msg, m.keys.Back):
		if m.searchQuery != "" {
			m.clearSearch()
			m.infoMessage = "Cleared search."
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = ""
		m.state.ClearNotice()
		m.state.ClearRejection()
		return m, nil
	case key.Matches(msg, m.keys.Open):
		return m, m.startPrompt(promptOpen, openPlaceholder, "")
	case key.Matches(msg, m.keys.Close):
		if snap.Source == "" && snap.Handle == nil {
			m.infoMessage = "No document is open."
			return m, nil
		}
		m.viewer.Close()
		m.stopWatching()
		m.clearSearch()
		m.chatLines = -1
		m.errorMessage = ""
		m.infoMessage = "Closed the document."
		return m, nil
	case key.Matches(msg, m.keys.Retry):
		return m, m.retry(snap)
	case key.Matches(msg, m.keys.NextPage):
		m.xOffset = 0
		return m, m.dispatchRender(m.viewer.NextPage())
	case key.Matches(msg, m.keys.PrevPage):
		m.xOffset = 0
		return m, m.dispatchRender(m.viewer.PreviousPage())
	case key.Matches(msg, m.keys.GoTo):
		if snap.Handle == nil {
			m.infoMessage = "Open a PDF before jumping to a page."
			return m, nil
		}
		return m, m.startPrompt(promptGoTo, goToPlaceholder, "")
	case key.Matches(msg, m.keys.ZoomIn):
		return m, m.dispatchRender(m.viewer.ZoomIn())
	case key.Matches(msg, m.keys.ZoomOut):
		return m, m.dispatchRender(m.viewer.ZoomOut())
	case key.Matches(msg, m.keys.Fit):
		m.xOffset = 0
		return m, m.dispatchRender(m.viewer.ToggleFitToWidth())
	case key.Matches(msg, m.keys.ScrollUp):
		m.pageView.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.ScrollDn):
		m.pageView.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PanLeft):
		m.xOffset = max(m.xOffset-panOffset, 0)
		return m, nil
	case key.Matches(msg, m.keys.PanRight):
		if snap.Page != nil && m.xOffset+m.pageView.Width < snap.Page.Columns {
			m.xOffset += panOffset
		}
		return m, nil
	case key.Matches(msg, m.keys.ChatWider):
		return m, m.resizeChat(chatResizeStep)
	case key.Matches(msg, m.keys.ChatNarrower):
		return m, m.resizeChat(-chatResizeStep)
	case key.Matches(msg, m.keys.Search):
		return m, m.startPrompt(promptSearch, searchPlaceholder, m.searchQuery)
	case key.Matches(msg, m.keys.NextMatch):
		return m, m.advanceSearch(1)
	case key.Matches(msg, m.keys.PrevMatch):
		return m, m.advanceSearch(-1)
	case key.Matches(msg, m.keys.Chat):
		m.focus = focusComposer
		return m, m.composer.Focus()
	case key.Matches(msg, m.keys.Prompt):
		return m, m.sendPrompt(msg.String())
	case key.Matches(msg, m.keys.NewChat):
		m.chat.StartNew()
		m.chatLines = -1
		m.errorMessage = ""
		m.infoMessage = chat.NewChatNotice
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		reply, ok := lastAssistantReply(snap.Transcript)
		if !ok {
			m.infoMessage = "No assistant reply to copy yet."
			return m, nil
		}
		return m, copyCmd(m.config.Clipboard, reply)
	}
	return m, nil
}

func (m *model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.composerKey.Leave):
		m.focus = focusPage
		m.composer.Blur()
		return m, nil
	case key.Matches(msg, m.composerKey.Send):
		text := strings.TrimSpace(m.composer.Value())
		m.composer.Reset()
		if text == "" {
			return m, nil
		}
		return m, m.dispatchReply(m.chat.Send(text))
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.endPrompt()
		return m, nil
	case tea.KeyEnter:
		mode := m.prompt
		value := strings.TrimSpace(m.promptInput.Value())
		m.endPrompt()
		switch mode {
		case promptOpen:
			if value == "" {
				return m, nil
			}
			return m, m.openPath(expandHome(value))
		case promptGoTo:
			page, err := strconv.Atoi(value)
			if err != nil {
				m.errorMessage = fmt.Sprintf("%q is not a page number.", value)
				return m, nil
			}
			m.errorMessage = ""
			m.xOffset = 0
			return m, m.dispatchRender(m.viewer.GoToPage(page))
		case promptSearch:
			return m, m.applySearch(value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m *model) startPrompt(mode promptMode, placeholder, value string) tea.Cmd {
	m.prompt = mode
	m.promptInput.Placeholder = placeholder
	m.promptInput.SetValue(value)
	m.promptInput.CursorEnd()
	m.composer.Blur()
	return m.promptInput.Focus()
}

func (m *model) endPrompt() {
	m.prompt = promptNone
	m.promptInput.Reset()
	m.promptInput.Blur()
	if m.focus == focusComposer {
		m.composer.Focus()
	}
}

func (m *model) openPath(path string) tea.Cmd {
	ticket, err := m.viewer.Open(path)
	if err != nil {
		m.errorMessage = document.UserMessage(err)
		return nil
	}
	m.stopWatching()
	m.clearSearch()
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Loading %s…", filepath.Base(path))
	return m.dispatchLoad(ticket)
}

func (m *model) retry(snap session.Snapshot) tea.Cmd {
	switch {
	case snap.Load == session.LoadError || (snap.LoadErr != nil && snap.Handle == nil):
		ticket, err := m.viewer.Retry()
		if errors.Is(err, viewer.ErrNothingToRetry) {
			m.infoMessage = "Open a PDF with o first."
			return nil
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Retrying %s…", filepath.Base(snap.Source))
		return m.dispatchLoad(ticket)
	case snap.RenderErr != nil:
		ticket, err := m.viewer.RetryRender()
		if err != nil {
			m.errorMessage = err.Error()
			return nil
		}
		m.infoMessage = fmt.Sprintf("Rendering page %d again…", snap.View.CurrentPage)
		return m.dispatchRender(ticket)
	}
	m.infoMessage = "Nothing to retry."
	return nil
}

func (m *model) handleLoadResult(res viewer.LoadResult) tea.Cmd {
	render := m.viewer.CompleteLoad(res)
	snap := m.state.Snapshot()
	if render == nil {
		if snap.Load == session.LoadError && snap.Source == res.Path {
			m.infoMessage = "Press r to retry or o to open another file."
		}
		return nil
	}
	m.chatLines = -1
	m.xOffset = 0
	m.pageView.GotoTop()
	m.infoMessage = fmt.Sprintf("Loaded %s (%d pages).", filepath.Base(res.Path), snap.PageCount())
	cmds := []tea.Cmd{m.dispatchRender(render)}
	if m.config.Watch && (m.watcher == nil || !m.isCurrentSource(m.watcher.Path())) {
		cmds = append(cmds, startWatchCmd(m.config.Context, res.Path, m.config.WatchInterval))
	}
	return tea.Batch(cmds...)
}

func (m *model) handleWatchStarted(msg watchStartedMsg) tea.Cmd {
	if msg.err != nil {
		m.log.Warn("document watch failed", "document", msg.path, "err", msg.err)
		return nil
	}
	if !m.isCurrentSource(msg.watcher.Path()) {
		_ = msg.watcher.Close()
		return nil
	}
	m.stopWatching()
	m.watcher = msg.watcher
	return waitForChangeCmd(msg.watcher)
}

func (m *model) handleDocChanged(msg docChangedMsg) tea.Cmd {
	if m.watcher == nil || m.watcher.Path() != msg.path {
		return nil
	}
	next := waitForChangeCmd(m.watcher)
	if !m.isCurrentSource(msg.path) {
		return next
	}
	ticket, err := m.viewer.Retry()
	if err != nil {
		return next
	}
	m.infoMessage = fmt.Sprintf("Reloading %s after a change on disk…", filepath.Base(msg.path))
	return tea.Batch(m.dispatchLoad(ticket), next)
}

func (m *model) isCurrentSource(path string) bool {
	source := m.state.Snapshot().Source
	if source == "" {
		return false
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return false
	}
	return abs == path
}

func (m *model) stopWatching() {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.Close(); err != nil {
		m.log.Debug("watcher close failed", "err", err)
	}
	m.watcher = nil
}

func (m *model) shutdown() {
	m.stopWatching()
	m.viewer.Close()
}

func (m *model) resizeChat(delta int) tea.Cmd {
	if !m.layout.resizeChat(delta) {
		switch {
		case m.layout.stacked:
			m.infoMessage = "The chat panel cannot be resized in a narrow window."
		case delta > 0:
			m.infoMessage = "The chat panel is at its widest."
		default:
			m.infoMessage = "The chat panel is at its narrowest."
		}
		return nil
	}
	m.applyLayout()
	return m.dispatchRender(m.viewer.SetContainerWidth(m.layout.pageWidth))
}

func (m *model) sendPrompt(id string) tea.Cmd {
	ticket, err := m.chat.SendPrompt(id)
	if err != nil {
		m.infoMessage = fmt.Sprintf("No suggested prompt %s. Open a PDF first.", id)
		return nil
	}
	m.errorMessage = ""
	return m.dispatchReply(ticket)
}

func (m *model) dispatchLoad(ticket *viewer.LoadTicket) tea.Cmd {
	if ticket == nil {
		return nil
	}
	return tea.Batch(m.jobs.Start(jobKindLoad, loadJob(ticket)), m.spinner.Tick)
}

func (m *model) dispatchRender(ticket *viewer.RenderTicket) tea.Cmd {
	if ticket == nil {
		return nil
	}
	return tea.Batch(m.jobs.Start(jobKindRender, renderJob(ticket)), m.spinner.Tick)
}

func (m *model) dispatchReply(ticket *chat.ReplyTicket) tea.Cmd {
	if ticket == nil {
		return nil
	}
	m.chatLines = -1
	return tea.Batch(m.jobs.Start(jobKindReply, replyJob(ticket)), m.spinner.Tick)
}

func (m *model) busy() bool {
	for _, count := range m.running {
		if count > 0 {
			return true
		}
	}
	snap := m.state.Snapshot()
	return snap.Load == session.LoadLoading || snap.Render == session.RenderRendering || snap.PendingChat > 0
}

func (m *model) applySearch(query string) tea.Cmd {
	m.clearSearch()
	m.searchQuery = query
	if query == "" {
		m.infoMessage = "Cleared search."
		return nil
	}
	snap := m.state.Snapshot()
	if snap.Handle == nil {
		m.infoMessage = "Open a PDF to search it."
		return nil
	}
	m.searchResults = search.Search(snap.Text.Full, query)
	if len(m.searchResults) == 0 {
		m.infoMessage = fmt.Sprintf("No matches for %q.", query)
		return nil
	}
	m.searchIdx = 0
	return m.jumpToMatch()
}

func (m *model) clearSearch() {
	m.searchQuery = ""
	m.searchResults = nil
	m.searchIdx = -1
}

func (m *model) advanceSearch(delta int) tea.Cmd {
	if m.searchQuery == "" {
		m.infoMessage = "Start a search with / first."
		return nil
	}
	if len(m.searchResults) == 0 {
		m.infoMessage = fmt.Sprintf("No matches for %q.", m.searchQuery)
		return nil
	}
	count := len(m.searchResults)
	m.searchIdx = (m.searchIdx + delta) % count
	if m.searchIdx < 0 {
		m.searchIdx += count
	}
	return m.jumpToMatch()
}

func (m *model) jumpToMatch() tea.Cmd {
	snap := m.state.Snapshot()
	result := m.searchResults[m.searchIdx]
	page := snap.Text.PageForLine(result.Line)
	m.infoMessage = fmt.Sprintf("Match %d/%d for %q on page %d.", m.searchIdx+1, len(m.searchResults), m.searchQuery, page)
	if page == 0 {
		return nil
	}
	m.xOffset = 0
	return m.dispatchRender(m.viewer.GoToPage(page))
}

func lastAssistantReply(transcript []session.Message) (string, bool) {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Sender == session.SenderAssistant {
			return transcript[i].Text, true
		}
	}
	return "", false
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
