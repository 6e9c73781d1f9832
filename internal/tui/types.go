package tui

import (
	"github.com/csheth/pagechat/internal/chat"
	"github.com/csheth/pagechat/internal/document"
	"github.com/csheth/pagechat/internal/viewer"
)

type focusArea int

const (
	focusPage focusArea = iota
	focusComposer
)

type promptMode int

const (
	promptNone promptMode = iota
	promptOpen
	promptGoTo
	promptSearch
)

const heroTagline = "Read a PDF. Ask about it."

const (
	panOffset          = 8
	searchResultsShown = 5
)

const (
	composerPlaceholder = "Ask about the open PDF…"
	openPlaceholder     = "Path to a PDF file…"
	goToPlaceholder     = "Page number…"
	searchPlaceholder   = "Search the document text…"
)

type loadResultMsg struct {
	result viewer.LoadResult
}

type renderResultMsg struct {
	result viewer.RenderResult
}

type replyResultMsg struct {
	result chat.ReplyResult
}

type watchStartedMsg struct {
	path    string
	watcher *document.Watcher
	err     error
}

type docChangedMsg struct {
	path string
}

type clipboardResultMsg struct {
	err error
}
