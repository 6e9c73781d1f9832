package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/pagechat/internal/chat"
	"github.com/csheth/pagechat/internal/document"
	"github.com/csheth/pagechat/internal/viewer"
)

func loadJob(ticket *viewer.LoadTicket) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		res := ticket.Run(ctx)
		return loadResultMsg{result: res}, res.Err
	}
}

func renderJob(ticket *viewer.RenderTicket) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		res := ticket.Run(ctx)
		return renderResultMsg{result: res}, res.Err
	}
}

func replyJob(ticket *chat.ReplyTicket) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		res := ticket.Run(ctx)
		return replyResultMsg{result: res}, res.Err
	}
}

func startWatchCmd(ctx context.Context, path string, interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		w, err := document.Watch(ctx, path, interval)
		return watchStartedMsg{path: path, watcher: w, err: err}
	}
}

func waitForChangeCmd(w *document.Watcher) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-w.Changes(); !ok {
			return nil
		}
		return docChangedMsg{path: w.Path()}
	}
}

func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardResultMsg{err: write(text)}
	}
}
