// Package session holds the state shared by the document viewer and the chat
// panel. A State is created once per program run and handed to every
// controller; nothing in this package is global.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/csheth/pagechat/internal/assistant"
	"github.com/csheth/pagechat/internal/document"
)

// View defaults and bounds.
const (
	DefaultScale = 1.0
	MinScale     = 0.5
	MaxScale     = 3.0
)

// LoadState is the lifecycle phase of the active document.
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadLoading
	LoadSuccess
	LoadError
)

func (s LoadState) String() string {
	switch s {
	case LoadLoading:
		return "loading"
	case LoadSuccess:
		return "success"
	case LoadError:
		return "error"
	default:
		return "idle"
	}
}

// RenderState tracks page rasterization independently of LoadState.
type RenderState int

const (
	RenderIdle RenderState = iota
	RenderRendering
)

func (s RenderState) String() string {
	if s == RenderRendering {
		return "rendering"
	}
	return "idle"
}

// ViewState is the page and zoom the viewer displays.
type ViewState struct {
	CurrentPage int
	Scale       float64
	FitToWidth  bool
}

// DefaultView is the view of a freshly opened or closed document.
func DefaultView() ViewState {
	return ViewState{CurrentPage: 1, Scale: DefaultScale}
}

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one transcript entry.
type Message struct {
	ID        string
	Sender    Sender
	Text      string
	CreatedAt time.Time
}

// Snapshot is a copy of State safe to read without locking.
type Snapshot struct {
	Handle      *document.Handle
	Source      string
	View        ViewState
	Load        LoadState
	Render      RenderState
	LoadErr     error
	RenderErr   error
	Notice      string
	Page        *document.Bitmap
	Text        document.Text
	Summary     *assistant.Summary
	Transcript  []Message
	Epoch       uint64
	PendingChat int
}

// PageCount is the open document's page count, or 0.
func (s Snapshot) PageCount() int {
	if s.Handle == nil {
		return 0
	}
	return s.Handle.PageCount
}

// State is the single owner of the session's document and chat state. All
// methods are safe for concurrent use.
type State struct {
	mu sync.Mutex

	now func() time.Time

	handle    *document.Handle
	source    string
	view      ViewState
	load      LoadState
	render    RenderState
	loadErr   error
	renderErr error
	notice    string
	page      *document.Bitmap
	text      document.Text
	summary   *assistant.Summary

	transcript []Message
	epoch      uint64
	pending    int
}

// New returns an idle State.
func New() *State {
	return &State{now: time.Now, view: DefaultView()}
}

// SetClock replaces the clock used to stamp messages.
func (s *State) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Handle:      s.handle,
		Source:      s.source,
		View:        s.view,
		Load:        s.load,
		Render:      s.render,
		LoadErr:     s.loadErr,
		RenderErr:   s.renderErr,
		Notice:      s.notice,
		Page:        s.page,
		Text:        s.text,
		Transcript:  append([]Message(nil), s.transcript...),
		Epoch:       s.epoch,
		PendingChat: s.pending,
	}
	if s.summary != nil {
		summary := *s.summary
		summary.Prompts = append([]assistant.Prompt(nil), s.summary.Prompts...)
		snap.Summary = &summary
	}
	return snap
}

// Update runs fn with exclusive access to the document fields.
func (s *State) Update(fn func(*Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := Document{state: s}
	fn(&doc)
}

// Document is the mutable view of State passed to Update.
type Document struct {
	state *State
}

func (d *Document) Handle() *document.Handle        { return d.state.handle }
func (d *Document) SetHandle(h *document.Handle)    { d.state.handle = h }
func (d *Document) Source() string                  { return d.state.source }
func (d *Document) SetSource(path string)           { d.state.source = path }
func (d *Document) View() ViewState                 { return d.state.view }
func (d *Document) SetView(v ViewState)             { d.state.view = v }
func (d *Document) Load() LoadState                 { return d.state.load }
func (d *Document) SetLoad(l LoadState)             { d.state.load = l }
func (d *Document) Render() RenderState             { return d.state.render }
func (d *Document) SetRender(r RenderState)         { d.state.render = r }
func (d *Document) SetLoadErr(err error)            { d.state.loadErr = err }
func (d *Document) SetRenderErr(err error)          { d.state.renderErr = err }
func (d *Document) SetNotice(notice string)         { d.state.notice = notice }
func (d *Document) SetPage(b *document.Bitmap)      { d.state.page = b }
func (d *Document) SetText(t document.Text)         { d.state.text = t }
func (d *Document) SetSummary(s *assistant.Summary) { d.state.summary = s }

// ClearTranscript empties the transcript and starts a new chat epoch.
func (d *Document) ClearTranscript() {
	d.state.clearTranscript()
}

// Notice returns the informational notice, if any.
func (s *State) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// ClearNotice drops the informational notice.
func (s *State) ClearNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = ""
}

// ClearRejection drops a document error left by a rejected open while the
// load itself is not in error. It reports whether anything was cleared.
func (s *State) ClearRejection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr == nil || s.load == LoadError {
		return false
	}
	s.loadErr = nil
	return true
}

// AppendMessage stamps and appends a message, returning the stored copy.
func (s *State) AppendMessage(sender Sender, text string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(sender, text)
}

// AppendIfEpoch appends only while the transcript epoch is still epoch.
func (s *State) AppendIfEpoch(epoch uint64, sender Sender, text string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return Message{}, false
	}
	return s.appendLocked(sender, text), true
}

func (s *State) appendLocked(sender Sender, text string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		CreatedAt: s.now(),
	}
	s.transcript = append(s.transcript, msg)
	return msg
}

// Transcript returns a copy of the messages in append order.
func (s *State) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.transcript...)
}

// Epoch identifies the current chat; it changes on every transcript clear.
func (s *State) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// ClearTranscript empties the transcript and starts a new chat epoch.
func (s *State) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearTranscript()
}

func (s *State) clearTranscript() {
	s.transcript = nil
	s.epoch++
	s.pending = 0
}

// SetPendingReplies records how many replies are outstanding.
func (s *State) SetPendingReplies(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = n
}

// HasDocument reports whether a document is loaded.
func (s *State) HasDocument() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load == LoadSuccess && s.handle != nil
}
