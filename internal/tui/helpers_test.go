package tui

import (
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/pagechat/internal/assistant"
	"github.com/csheth/pagechat/internal/chat"
	"github.com/csheth/pagechat/internal/document"
	"github.com/csheth/pagechat/internal/document/pdftest"
	"github.com/csheth/pagechat/internal/session"
	"github.com/csheth/pagechat/internal/viewer"
)

type fakeClipboard struct {
	writes []string
	err    error
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, text)
	return nil
}

func newTestModel(t *testing.T) *model {
	t.Helper()
	m, _ := newTestModelWithClipboard(t)
	return m
}

func newTestModelWithClipboard(t *testing.T) (*model, *fakeClipboard) {
	t.Helper()
	state := session.New()
	opener := document.NewPDFOpener(document.PDFOptions{Validation: document.ValidationNone})
	board := &fakeClipboard{}
	teaModel, ok := New(Config{
		Viewer:    viewer.New(state, opener, viewer.Options{}),
		Chat:      chat.New(state, assistant.NewCanned(nil, ""), chat.Options{ReplyDelay: -1}),
		Clipboard: board.WriteAll,
	}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	t.Cleanup(teaModel.shutdown)
	return teaModel, board
}

func writeFixture(t *testing.T, pages ...string) string {
	t.Helper()
	return pdftest.Write(t, t.TempDir(), "fixture.pdf", pdftest.Spec{Pages: pages})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs every command it produces.
func press(t *testing.T, m *model, msg tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(msg)
	drain(t, m, cmd)
}

// drain runs cmd and feeds its messages back into the model until no work
// is left. Spinner ticks are dropped so the queue settles.
func drain(t *testing.T, m *model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 500 {
			t.Fatal("command queue did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		switch msg := msg.(type) {
		case nil, spinner.TickMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		}
		if cmds, ok := sequenceCmds(msg); ok {
			queue = append(queue, cmds...)
			continue
		}
		if strings.Contains(reflect.TypeOf(msg).PkgPath(), "bubbles/cursor") {
			continue
		}
		_, follow := m.Update(msg)
		queue = append(queue, follow)
	}
}

// sequenceCmds unpacks the message produced by tea.Sequence.
func sequenceCmds(msg tea.Msg) ([]tea.Cmd, bool) {
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Slice {
		return nil, false
	}
	cmds := make([]tea.Cmd, 0, v.Len())
	for i := range v.Len() {
		cmd, ok := v.Index(i).Interface().(tea.Cmd)
		if !ok {
			return nil, false
		}
		cmds = append(cmds, cmd)
	}
	return cmds, true
}

func openViaPrompt(t *testing.T, m *model, path string) {
	t.Helper()
	m.Update(runes("o"))
	if m.prompt != promptOpen {
		t.Fatalf("o should open the path prompt, got %v", m.prompt)
	}
	m.promptInput.SetValue(path)
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}
