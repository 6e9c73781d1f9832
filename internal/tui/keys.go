package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings active while the page panel has focus.
type keyMap struct {
	Open         key.Binding
	Close        key.Binding
	Retry        key.Binding
	NextPage     key.Binding
	PrevPage     key.Binding
	GoTo         key.Binding
	ZoomIn       key.Binding
	ZoomOut      key.Binding
	Fit          key.Binding
	ScrollUp     key.Binding
	ScrollDn     key.Binding
	PanLeft      key.Binding
	PanRight     key.Binding
	Search       key.Binding
	NextMatch    key.Binding
	PrevMatch    key.Binding
	Chat         key.Binding
	ChatWider    key.Binding
	ChatNarrower key.Binding
	Prompt       key.Binding
	NewChat      key.Binding
	Copy         key.Binding
	Back         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open"),
		),
		Close: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "close"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "l", "pgdown"),
			key.WithHelp("→/l", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "h", "pgup"),
			key.WithHelp("←/h", "prev page"),
		),
		GoTo: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "go to page"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		Fit: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fit width"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		ScrollDn: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("<", ","),
			key.WithHelp("<", "pan left"),
		),
		PanRight: key.NewBinding(
			key.WithKeys(">", "."),
			key.WithHelp(">", "pan right"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "prev match"),
		),
		Chat: key.NewBinding(
			key.WithKeys("tab", "i"),
			key.WithHelp("tab", "chat"),
		),
		ChatWider: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "wider chat"),
		),
		ChatNarrower: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "narrower chat"),
		),
		Prompt: key.NewBinding(
			key.WithKeys("1", "2", "3"),
			key.WithHelp("1-3", "suggested prompt"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new chat"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy reply"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.PrevPage, k.NextPage, k.ZoomIn, k.Fit, k.Search, k.Chat, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Close, k.Retry, k.GoTo},
		{k.PrevPage, k.NextPage, k.ScrollUp, k.ScrollDn},
		{k.ZoomIn, k.ZoomOut, k.Fit, k.PanLeft, k.PanRight},
		{k.Search, k.NextMatch, k.PrevMatch, k.Back},
		{k.Chat, k.ChatWider, k.ChatNarrower, k.Prompt, k.NewChat, k.Copy},
		{k.Help, k.Quit},
	}
}

// composerKeyMap is shown while the chat composer has focus.
type composerKeyMap struct {
	Send  key.Binding
	Leave key.Binding
}

func defaultComposerKeyMap() composerKeyMap {
	return composerKeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Leave: key.NewBinding(
			key.WithKeys("esc", "tab"),
			key.WithHelp("esc/tab", "back to page"),
		),
	}
}

func (k composerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Leave}
}

func (k composerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
